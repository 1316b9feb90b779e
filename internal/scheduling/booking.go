package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mindwell/clinic-scheduling/internal/config"
	redisclient "github.com/mindwell/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
	EventDateBlocked          = "AVAILABILITY_DATE_BLOCKED"
	EventDateUnblocked        = "AVAILABILITY_DATE_UNBLOCKED"
)

var (
	// ErrValidation marks malformed input; wrap it with context:
	// fmt.Errorf("%w: weekday out of range", ErrValidation).
	ErrValidation = errors.New("invalid input")

	ErrPastDate          = errors.New("appointment date is in the past")
	ErrNotAvailable      = errors.New("professional is not available at this time")
	ErrSlotTaken         = errors.New("the requested time overlaps an existing appointment")
	ErrForbidden         = errors.New("not allowed to perform this action")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTooLateToCancel   = errors.New("appointments must be cancelled at least 24 hours in advance")
	ErrCalendarBusy      = errors.New("the professional's calendar is being updated, please retry")
)

// Service is the single entry point for every appointment write and for
// availability-rule management. All callers go through it so the
// availability and conflict checks exist in exactly one place.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	clock    Clock
	calendar *Calendar

	cancelNotice    time.Duration
	sessionDefaults int
}

func NewService(repo Repository, locker redisclient.Locker, clock Clock, cfg config.Config) *Service {
	return &Service{
		repo:            repo,
		locker:          locker,
		clock:           clock,
		calendar:        NewCalendar(repo),
		cancelNotice:    cfg.CancelNotice,
		sessionDefaults: cfg.SessionMinutes,
	}
}

type CreateBookingInput struct {
	ProfessionalID uuid.UUID
	Date           time.Time
	Start          MinuteOfDay
	Type           AppointmentType
	Reason         string
	Notes          string
}

// CreateAppointment books a slot for the requesting patient. The
// availability check, conflict check and insert run under a per
// professional lock so two concurrent requests cannot both pass the
// conflict check and create overlapping appointments.
func (s *Service) CreateAppointment(ctx context.Context, actor Actor, in CreateBookingInput) (*Appointment, error) {
	if actor.Role != RolePatient {
		return nil, fmt.Errorf("%w: only patients can book appointments", ErrForbidden)
	}
	if !in.Start.Valid() {
		return nil, fmt.Errorf("%w: start time out of range", ErrValidation)
	}
	if in.Type == "" {
		in.Type = TypeInPerson
	}
	if !ValidAppointmentType(in.Type) {
		return nil, fmt.Errorf("%w: unknown appointment type %q", ErrValidation, in.Type)
	}

	if _, err := s.repo.GetPatientByID(ctx, actor.ID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetProfessionalByID(ctx, in.ProfessionalID); err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load professional: %w", err)
	}

	date := DateOnly(in.Date)
	today := DateOnly(s.clock.Now())
	if date.Before(today) {
		return nil, ErrPastDate
	}

	duration, fee, err := s.resolvePolicy(ctx, in.ProfessionalID)
	if err != nil {
		return nil, err
	}

	end := in.Start + MinuteOfDay(duration)
	if end > MinutesPerDay {
		return nil, ErrNotAvailable
	}

	var created *Appointment

	err = s.locker.WithProfessionalLock(ctx, in.ProfessionalID, func(lockCtx context.Context) error {
		rules, err := s.calendar.Open(lockCtx, in.ProfessionalID, date)
		if err != nil {
			return err
		}
		covered := false
		for i := range rules {
			if rules[i].Covers(in.Start, end) {
				covered = true
				break
			}
		}
		if !covered {
			return ErrNotAvailable
		}

		booked, err := s.repo.ListBookedForDay(lockCtx, in.ProfessionalID, date)
		if err != nil {
			return fmt.Errorf("list booked appointments: %w", err)
		}
		if firstConflict(booked, in.Start, end, uuid.Nil) != nil {
			return ErrSlotTaken
		}

		appt := &Appointment{
			ID:             uuid.New(),
			PatientID:      actor.ID,
			ProfessionalID: in.ProfessionalID,
			Date:           date,
			Start:          in.Start,
			End:            end,
			Type:           in.Type,
			Status:         StatusPending,
			Reason:         in.Reason,
			Notes:          in.Notes,
			Fee:            fee,
		}
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			if errors.Is(err, ErrDuplicateStart) {
				return ErrSlotTaken
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"patient_id":      actor.ID.String(),
			"professional_id": in.ProfessionalID.String(),
			"date":            DateKey(date),
			"start_time":      in.Start.String(),
			"end_time":        end.String(),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	return created, nil
}

// resolvePolicy loads the professional's session policy, falling back to
// the configured default duration and no fee when none is stored.
func (s *Service) resolvePolicy(ctx context.Context, professionalID uuid.UUID) (duration int, fee *float64, err error) {
	policy, err := s.repo.GetSessionPolicy(ctx, professionalID)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			return s.sessionDefaults, nil, nil
		}
		return 0, nil, fmt.Errorf("load session policy: %w", err)
	}
	if policy.DurationMinutes <= 0 {
		return s.sessionDefaults, policy.Fee, nil
	}
	return policy.DurationMinutes, policy.Fee, nil
}

// Confirm moves a pending appointment to confirmed. Professional only.
func (s *Service) Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusConfirmed)
}

// Cancel closes an appointment, subject to the cancellation notice window.
// Either party may cancel.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusCancelled)
}

// Complete marks a confirmed appointment as held. Professional only.
func (s *Service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusCompleted)
}

// MarkNoShow records that the patient did not attend. Professional only.
func (s *Service) MarkNoShow(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, StatusNoShow)
}

func (s *Service) transition(ctx context.Context, actor Actor, id uuid.UUID, target AppointmentStatus) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := authorizeTransition(actor, appt, target); err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, target)
	}

	notes := appt.Notes
	if target == StatusCancelled {
		now := s.clock.Now()
		if appt.StartsAt().Sub(now) < s.cancelNotice {
			return nil, ErrTooLateToCancel
		}
		notes = appendAuditNote(notes, fmt.Sprintf("Cancelled by %s on %s", actor.Name, now.Format("2006-01-02 15:04")))
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, target, notes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with a concurrent transition.
			return nil, fmt.Errorf("%w: appointment changed concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, eventForStatus(target), map[string]any{
		"actor_id":   actor.ID.String(),
		"actor_role": string(actor.Role),
		"from":       string(appt.Status),
	})

	return updated, nil
}

// authorizeTransition enforces who may drive each transition: confirm,
// complete and no_show belong to the appointment's professional; cancel is
// shared between the patient and the professional.
func authorizeTransition(actor Actor, appt *Appointment, target AppointmentStatus) error {
	switch target {
	case StatusConfirmed, StatusCompleted, StatusNoShow:
		if actor.ID != appt.ProfessionalID {
			return fmt.Errorf("%w: only the professional may set %s", ErrForbidden, target)
		}
	case StatusCancelled:
		if actor.ID != appt.PatientID && actor.ID != appt.ProfessionalID {
			return fmt.Errorf("%w: only the patient or professional may cancel", ErrForbidden)
		}
	default:
		return fmt.Errorf("%w: unknown target status %q", ErrValidation, target)
	}
	return nil
}

func eventForStatus(s AppointmentStatus) string {
	switch s {
	case StatusConfirmed:
		return EventAppointmentConfirmed
	case StatusCancelled:
		return EventAppointmentCancelled
	case StatusCompleted:
		return EventAppointmentCompleted
	case StatusNoShow:
		return EventAppointmentNoShow
	}
	return "APPOINTMENT_STATUS_CHANGED"
}

func appendAuditNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n\n" + line
}

// SweepStalePending closes pending appointments whose start instant has
// passed without confirmation. Called periodically by the sweep worker.
func (s *Service) SweepStalePending(ctx context.Context) error {
	now := s.clock.Now()
	stale, err := s.repo.FindStalePending(ctx, now)
	if err != nil {
		return fmt.Errorf("find stale pending appointments: %w", err)
	}

	for _, appt := range stale {
		notes := appendAuditNote(appt.Notes, fmt.Sprintf("Cancelled automatically on %s: not confirmed before start", now.Format("2006-01-02 15:04")))
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusPending, StatusCancelled, notes)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			log.Error().Err(err).Stringer("appointment_id", appt.ID).Msg("failed to sweep stale appointment")
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
			"reason": "sweep_worker",
		})
	}

	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Stringer("appointment_id", appointmentID).Msg("failed to insert event log")
	}
}
