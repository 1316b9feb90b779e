package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const upcomingLimit = 10

// ListOptions are the caller-supplied appointment list filters. Ownership
// scoping is derived from the actor, never from the request.
type ListOptions struct {
	Status   *AppointmentStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// ListAppointments returns the actor's appointments, newest first.
// Patients see their own bookings, professionals their own calendar,
// admins everything.
func (s *Service) ListAppointments(ctx context.Context, actor Actor, opts ListOptions) ([]Appointment, error) {
	f := ownerFilter(actor)
	f.Status = opts.Status
	f.DateFrom = opts.DateFrom
	f.DateTo = opts.DateTo

	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// Upcoming returns the actor's next pending/confirmed appointments from
// today on, soonest first, capped at 10.
func (s *Service) Upcoming(ctx context.Context, actor Actor) ([]Appointment, error) {
	today := DateOnly(s.clock.Now())

	f := ownerFilter(actor)
	f.Statuses = []AppointmentStatus{StatusPending, StatusConfirmed}
	f.DateFrom = &today
	f.Ascending = true
	f.Limit = upcomingLimit

	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return appts, nil
}

// History returns the actor's past-dated or completed appointments.
func (s *Service) History(ctx context.Context, actor Actor) ([]Appointment, error) {
	today := DateOnly(s.clock.Now())

	f := ownerFilter(actor)
	f.HistoryAsOf = &today

	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointment history: %w", err)
	}
	return appts, nil
}

// GetAppointment loads one appointment, visible only to its patient, its
// professional, or an admin.
func (s *Service) GetAppointment(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if actor.Role != RoleAdmin && actor.ID != appt.PatientID && actor.ID != appt.ProfessionalID {
		return nil, fmt.Errorf("%w: not a party to this appointment", ErrForbidden)
	}
	return appt, nil
}

func ownerFilter(actor Actor) AppointmentFilter {
	var f AppointmentFilter
	switch actor.Role {
	case RolePatient:
		id := actor.ID
		f.PatientID = &id
	case RoleProfessional:
		id := actor.ID
		f.ProfessionalID = &id
	}
	return f
}
