package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

// civilDate re-anchors a DATE column value to the clinic's local timezone
// so civil-date comparisons against the injected clock stay consistent.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Specialization,
		&p.City,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanRule(row pgx.Row) (*AvailabilityRule, error) {
	var r AvailabilityRule
	var start, end int16
	var blocked []byte

	err := row.Scan(
		&r.ID,
		&r.ProfessionalID,
		&r.Weekday,
		&start,
		&end,
		&r.Active,
		&blocked,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	r.Start = MinuteOfDay(start)
	r.End = MinuteOfDay(end)
	r.BlockedDates = []string{}
	if len(blocked) > 0 {
		if err := json.Unmarshal(blocked, &r.BlockedDates); err != nil {
			return nil, fmt.Errorf("decode blocked_dates: %w", err)
		}
	}
	return &r, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end int16
	var fee *float64
	var meetingLink *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.Date,
		&start,
		&end,
		&a.Type,
		&a.Status,
		&a.Reason,
		&a.Notes,
		&fee,
		&a.Paid,
		&meetingLink,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = civilDate(a.Date)
	a.Start = MinuteOfDay(start)
	a.End = MinuteOfDay(end)
	a.Fee = fee
	a.MeetingLink = meetingLink
	return &a, nil
}

const appointmentColumns = `id, patient_id, professional_id, date, start_minute, end_minute,
		       type, status, reason, notes, fee, paid, meeting_link, created_at, updated_at`

const ruleColumns = `id, professional_id, weekday, start_minute, end_minute, active,
		       blocked_dates, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, specialization, city, active, created_at, updated_at
		FROM professionals
		WHERE id = $1 AND active
	`, id)
	return scanProfessional(row)
}

func (r *PgRepository) SearchProfessionals(ctx context.Context, specialization, city string) ([]Professional, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, specialization, city, active, created_at, updated_at
		FROM professionals
		WHERE active
		  AND ($1 = '' OR specialization = $1)
		  AND ($2 = '' OR city ILIKE '%' || $2 || '%')
		ORDER BY name
	`, specialization, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetSessionPolicy(ctx context.Context, professionalID uuid.UUID) (*SessionPolicy, error) {
	var p SessionPolicy
	var fee *float64

	err := r.pool.QueryRow(ctx, `
		SELECT professional_id, duration_minutes, fee, updated_at
		FROM session_policies
		WHERE professional_id = $1
	`, professionalID).Scan(&p.ProfessionalID, &p.DurationMinutes, &fee, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}

	p.Fee = fee
	return &p, nil
}

func (r *PgRepository) ListActiveRules(ctx context.Context, professionalID uuid.UUID, weekday int) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE professional_id = $1 AND weekday = $2 AND active
		ORDER BY start_minute
	`, professionalID, weekday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

func (r *PgRepository) ListRulesByProfessional(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE professional_id = $1
		ORDER BY weekday, start_minute
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]AvailabilityRule, error) {
	var result []AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetRuleByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE id = $1
	`, id)
	return scanRule(row)
}

func (r *PgRepository) CreateRule(ctx context.Context, rule *AvailabilityRule) error {
	blocked, err := json.Marshal(rule.BlockedDates)
	if err != nil {
		return fmt.Errorf("encode blocked_dates: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO availability_rules (id, professional_id, weekday, start_minute, end_minute, active, blocked_dates, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, rule.ID, rule.ProfessionalID, rule.Weekday, int16(rule.Start), int16(rule.End), rule.Active, blocked)
	if err != nil {
		return fmt.Errorf("insert availability rule: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateRule(ctx context.Context, rule *AvailabilityRule) error {
	blocked, err := json.Marshal(rule.BlockedDates)
	if err != nil {
		return fmt.Errorf("encode blocked_dates: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE availability_rules
		SET weekday = $2,
		    start_minute = $3,
		    end_minute = $4,
		    active = $5,
		    blocked_dates = $6,
		    updated_at = now()
		WHERE id = $1
	`, rule.ID, rule.Weekday, int16(rule.Start), int16(rule.End), rule.Active, blocked)
	if err != nil {
		return fmt.Errorf("update availability rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, professional_id, date, start_minute, end_minute,
		                          type, status, reason, notes, fee, paid, meeting_link, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.PatientID, appt.ProfessionalID, appt.Date, int16(appt.Start), int16(appt.End),
		appt.Type, appt.Status, appt.Reason, appt.Notes, appt.Fee, appt.Paid, appt.MeetingLink)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateStart
		}
		return err
	}

	*appt = *created
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListBookedForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND date = $2
		  AND status IN ('pending', 'confirmed')
		ORDER BY start_minute
	`, professionalID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	where := []string{"TRUE"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.PatientID != nil {
		where = append(where, "patient_id = "+arg(*f.PatientID))
	}
	if f.ProfessionalID != nil {
		where = append(where, "professional_id = "+arg(*f.ProfessionalID))
	}
	if f.Status != nil {
		where = append(where, "status = "+arg(string(*f.Status)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if f.DateFrom != nil {
		where = append(where, "date >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		where = append(where, "date <= "+arg(*f.DateTo))
	}
	if f.HistoryAsOf != nil {
		where = append(where, "(date < "+arg(*f.HistoryAsOf)+" OR status = 'completed')")
	}

	order := "ORDER BY date DESC, start_minute DESC"
	if f.Ascending {
		order = "ORDER BY date ASC, start_minute ASC"
	}

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE ` + strings.Join(where, " AND ") + `
		` + order
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+appointmentColumns+`
	`, id, to, notes, from)

	return scanAppointment(row)
}

func (r *PgRepository) FindStalePending(ctx context.Context, now time.Time) ([]Appointment, error) {
	today := DateOnly(now)
	minute := int16(now.Hour()*60 + now.Minute())

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending'
		  AND (date < $1 OR (date = $1 AND start_minute < $2))
	`, today, minute)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
