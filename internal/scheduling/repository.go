package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrRuleNotFound         = errors.New("availability rule not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrPolicyNotFound       = errors.New("session policy not found")

	// ErrDuplicateStart maps the (professional, date, start) uniqueness
	// constraint; two bookings can never start at the same instant.
	ErrDuplicateStart = errors.New("an appointment already starts at this time")
)

// AppointmentFilter narrows appointment listings. Zero-value fields are
// ignored. HistoryAsOf selects past-dated or completed appointments.
type AppointmentFilter struct {
	PatientID      *uuid.UUID
	ProfessionalID *uuid.UUID
	Status         *AppointmentStatus
	Statuses       []AppointmentStatus
	DateFrom       *time.Time
	DateTo         *time.Time
	HistoryAsOf    *time.Time
	Ascending      bool
	Limit          int
}

// Repository contains all DB interactions needed by the scheduling core.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	SearchProfessionals(ctx context.Context, specialization, city string) ([]Professional, error)

	GetSessionPolicy(ctx context.Context, professionalID uuid.UUID) (*SessionPolicy, error)

	// Availability rules
	ListActiveRules(ctx context.Context, professionalID uuid.UUID, weekday int) ([]AvailabilityRule, error)
	ListRulesByProfessional(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error)
	GetRuleByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error)
	CreateRule(ctx context.Context, rule *AvailabilityRule) error
	UpdateRule(ctx context.Context, rule *AvailabilityRule) error

	// Appointments
	CreateAppointment(ctx context.Context, appt *Appointment) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ListBookedForDay returns the professional's pending and confirmed
	// appointments for one date, ordered by start time.
	ListBookedForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)
	// UpdateAppointmentStatus is a compare-and-set: the row is updated only
	// if it is still in status `from`. ErrAppointmentNotFound signals a
	// lost race (or a genuinely unknown id).
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes string) (*Appointment, error)
	// FindStalePending returns pending appointments whose start instant is
	// before now. Used by the sweep worker.
	FindStalePending(ctx context.Context, now time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
