package scheduling

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient      Role = "patient"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

// Actor is the authenticated caller as seen by the scheduling core.
// Identity management lives elsewhere; the core only needs id, role and a
// display name for audit notes.
type Actor struct {
	ID   uuid.UUID
	Role Role
	Name string
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// transitions is the full appointment lifecycle. Completed, cancelled and
// no_show are terminal.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

func CanTransition(from, to AppointmentStatus) bool {
	return slices.Contains(transitions[from], to)
}

// blocksBooking reports whether an appointment in this status occupies its
// time range. Cancelled, completed and no_show appointments release the
// slot immediately.
func blocksBooking(s AppointmentStatus) bool {
	return s == StatusPending || s == StatusConfirmed
}

type AppointmentType string

const (
	TypeOnline   AppointmentType = "online"
	TypeInPerson AppointmentType = "in_person"
)

func ValidAppointmentType(t AppointmentType) bool {
	return t == TypeOnline || t == TypeInPerson
}

// MinuteOfDay is a whole-minute time of day (0 = midnight, 1439 = 23:59).
// All scheduling arithmetic is minute-granular; there is no sub-minute or
// timezone math anywhere in the core.
type MinuteOfDay int

const MinutesPerDay = 24 * 60

func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return MinuteOfDay(h*60 + m), nil
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func (m MinuteOfDay) Valid() bool {
	return m >= 0 && m < MinutesPerDay
}

func (m MinuteOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *MinuteOfDay) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid time %s, expected \"HH:MM\"", b)
	}
	parsed, err := ParseMinuteOfDay(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

const dateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func DateKey(d time.Time) string {
	return d.Format(dateLayout)
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekdayIndex maps time.Weekday onto the Monday=0..Sunday=6 convention
// used by availability rules.
func WeekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// AvailabilityRule is one recurring weekly open-hours interval for a
// professional. Several rules may exist for the same weekday, including
// overlapping ones (split shifts); downstream consumers treat each rule
// independently.
type AvailabilityRule struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Weekday        int // 0 = Monday .. 6 = Sunday
	Start          MinuteOfDay
	End            MinuteOfDay
	Active         bool
	BlockedDates   []string // sorted YYYY-MM-DD keys
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Covers reports whether [start,end) lies entirely within the rule's hours.
func (r *AvailabilityRule) Covers(start, end MinuteOfDay) bool {
	return r.Start <= start && end <= r.End
}

func (r *AvailabilityRule) IsBlockedOn(date time.Time) bool {
	_, found := slices.BinarySearch(r.BlockedDates, DateKey(date))
	return found
}

// BlockDate adds date to the rule's blocked set. Returns false if the date
// was already blocked (no-op).
func (r *AvailabilityRule) BlockDate(date time.Time) bool {
	key := DateKey(date)
	i, found := slices.BinarySearch(r.BlockedDates, key)
	if found {
		return false
	}
	r.BlockedDates = slices.Insert(r.BlockedDates, i, key)
	return true
}

// UnblockDate removes date from the blocked set. Returns false if the date
// was not blocked (no-op).
func (r *AvailabilityRule) UnblockDate(date time.Time) bool {
	i, found := slices.BinarySearch(r.BlockedDates, DateKey(date))
	if !found {
		return false
	}
	r.BlockedDates = slices.Delete(r.BlockedDates, i, i+1)
	return true
}

// SessionPolicy is a professional's session configuration. A professional
// without a stored policy gets DefaultSessionMinutes and no fee.
type SessionPolicy struct {
	ProfessionalID  uuid.UUID
	DurationMinutes int
	Fee             *float64
	UpdatedAt       time.Time
}

type Professional struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Specialization string
	City           string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	Date           time.Time // civil date, midnight local
	Start          MinuteOfDay
	End            MinuteOfDay
	Type           AppointmentType
	Status         AppointmentStatus
	Reason         string
	Notes          string
	Fee            *float64
	Paid           bool
	MeetingLink    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StartsAt combines the appointment's date and start time into an instant.
func (a *Appointment) StartsAt() time.Time {
	return a.Date.Add(time.Duration(a.Start) * time.Minute)
}

// Slot is a derived candidate booking interval. It is a view computed from
// availability rules, never a stored fact.
type Slot struct {
	Start  MinuteOfDay `json:"start_time"`
	End    MinuteOfDay `json:"end_time"`
	Booked bool        `json:"is_booked"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
