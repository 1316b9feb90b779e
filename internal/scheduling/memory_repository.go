package scheduling

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used by the test suites. It
// honors the same contracts as the Postgres implementation, including the
// (professional, date, start) uniqueness constraint and CAS status updates.
type MemoryRepository struct {
	mu            sync.RWMutex
	Patients      map[uuid.UUID]Patient
	Professionals map[uuid.UUID]Professional
	Policies      map[uuid.UUID]SessionPolicy
	Rules         map[uuid.UUID]AvailabilityRule
	Appointments  map[uuid.UUID]Appointment
	Events        []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		Patients:      make(map[uuid.UUID]Patient),
		Professionals: make(map[uuid.UUID]Professional),
		Policies:      make(map[uuid.UUID]SessionPolicy),
		Rules:         make(map[uuid.UUID]AvailabilityRule),
		Appointments:  make(map[uuid.UUID]Appointment),
	}
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.Patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetProfessionalByID(_ context.Context, id uuid.UUID) (*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.Professionals[id]
	if !ok || !p.Active {
		return nil, ErrProfessionalNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) SearchProfessionals(_ context.Context, specialization, city string) ([]Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Professional
	for _, p := range r.Professionals {
		if !p.Active {
			continue
		}
		if specialization != "" && p.Specialization != specialization {
			continue
		}
		if city != "" && p.City != city {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) GetSessionPolicy(_ context.Context, professionalID uuid.UUID) (*SessionPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.Policies[professionalID]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ListActiveRules(_ context.Context, professionalID uuid.UUID, weekday int) ([]AvailabilityRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []AvailabilityRule
	for _, rule := range r.Rules {
		if rule.ProfessionalID == professionalID && rule.Weekday == weekday && rule.Active {
			out = append(out, cloneRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *MemoryRepository) ListRulesByProfessional(_ context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []AvailabilityRule
	for _, rule := range r.Rules {
		if rule.ProfessionalID == professionalID {
			out = append(out, cloneRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (r *MemoryRepository) GetRuleByID(_ context.Context, id uuid.UUID) (*AvailabilityRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.Rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	c := cloneRule(rule)
	return &c, nil
}

func (r *MemoryRepository) CreateRule(_ context.Context, rule *AvailabilityRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rules[rule.ID] = cloneRule(*rule)
	return nil
}

func (r *MemoryRepository) UpdateRule(_ context.Context, rule *AvailabilityRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Rules[rule.ID]; !ok {
		return ErrRuleNotFound
	}
	r.Rules[rule.ID] = cloneRule(*rule)
	return nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.Appointments {
		if a.ProfessionalID == appt.ProfessionalID && a.Date.Equal(appt.Date) && a.Start == appt.Start {
			return ErrDuplicateStart
		}
	}
	r.Appointments[appt.ID] = *appt
	return nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.Appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) ListBookedForDay(_ context.Context, professionalID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, a := range r.Appointments {
		if a.ProfessionalID == professionalID && a.Date.Equal(date) && blocksBooking(a.Status) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f AppointmentFilter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, a := range r.Appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
			continue
		}
		if f.DateFrom != nil && a.Date.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && a.Date.After(*f.DateTo) {
			continue
		}
		if f.HistoryAsOf != nil && !a.Date.Before(*f.HistoryAsOf) && a.Status != StatusCompleted {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			if f.Ascending {
				return out[i].Date.Before(out[j].Date)
			}
			return out[i].Date.After(out[j].Date)
		}
		if f.Ascending {
			return out[i].Start < out[j].Start
		}
		return out[i].Start > out[j].Start
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus, notes string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.Notes = notes
	a.UpdatedAt = time.Now()
	r.Appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) FindStalePending(_ context.Context, now time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, a := range r.Appointments {
		if a.Status == StatusPending && a.StartsAt().Before(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.Events) + 1)
	r.Events = append(r.Events, ev)
	return nil
}

func cloneRule(rule AvailabilityRule) AvailabilityRule {
	rule.BlockedDates = slices.Clone(rule.BlockedDates)
	return rule
}
