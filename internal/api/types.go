package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mindwell/clinic-scheduling/internal/scheduling"
)

var validate = validator.New()

type CreateAppointmentRequest struct {
	ProfessionalID string `json:"professional_id" validate:"required,uuid"`
	Date           string `json:"date" validate:"required"`
	StartTime      string `json:"start_time" validate:"required"`
	Type           string `json:"appointment_type" validate:"omitempty,oneof=online in_person"`
	Reason         string `json:"reason_for_visit"`
	Notes          string `json:"notes"`
}

type AppointmentResponse struct {
	ID             uuid.UUID              `json:"id"`
	PatientID      uuid.UUID              `json:"patient_id"`
	ProfessionalID uuid.UUID              `json:"professional_id"`
	Date           string                 `json:"date"`
	StartTime      scheduling.MinuteOfDay `json:"start_time"`
	EndTime        scheduling.MinuteOfDay `json:"end_time"`
	Type           string                 `json:"appointment_type"`
	Status         string                 `json:"status"`
	Reason         string                 `json:"reason_for_visit,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	Fee            *float64               `json:"consultation_fee,omitempty"`
	Paid           bool                   `json:"is_paid"`
	MeetingLink    *string                `json:"meeting_link,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		ProfessionalID: a.ProfessionalID,
		Date:           scheduling.DateKey(a.Date),
		StartTime:      a.Start,
		EndTime:        a.End,
		Type:           string(a.Type),
		Status:         string(a.Status),
		Reason:         a.Reason,
		Notes:          a.Notes,
		Fee:            a.Fee,
		Paid:           a.Paid,
		MeetingLink:    a.MeetingLink,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toAppointmentResponses(appts []scheduling.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

type AvailabilityRequest struct {
	Weekday   *int   `json:"weekday" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	IsActive  *bool  `json:"is_active"`
}

type AvailabilityResponse struct {
	ID             uuid.UUID              `json:"id"`
	ProfessionalID uuid.UUID              `json:"professional_id"`
	Weekday        int                    `json:"weekday"`
	WeekdayName    string                 `json:"weekday_name"`
	StartTime      scheduling.MinuteOfDay `json:"start_time"`
	EndTime        scheduling.MinuteOfDay `json:"end_time"`
	IsActive       bool                   `json:"is_active"`
	BlockedDates   []string               `json:"blocked_dates"`
}

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func toAvailabilityResponse(r *scheduling.AvailabilityRule) AvailabilityResponse {
	blocked := r.BlockedDates
	if blocked == nil {
		blocked = []string{}
	}
	return AvailabilityResponse{
		ID:             r.ID,
		ProfessionalID: r.ProfessionalID,
		Weekday:        r.Weekday,
		WeekdayName:    weekdayNames[r.Weekday],
		StartTime:      r.Start,
		EndTime:        r.End,
		IsActive:       r.Active,
		BlockedDates:   blocked,
	}
}

type BlockDateRequest struct {
	Date string `json:"date" validate:"required"`
}

type BlockDateResponse struct {
	RuleID  uuid.UUID `json:"rule_id"`
	Date    string    `json:"date"`
	Changed bool      `json:"changed"`
}

type ProfessionalResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Specialization string    `json:"specialization"`
	City           string    `json:"city"`
}

type SearchResultResponse struct {
	ProfessionalResponse
	AvailableSlots []scheduling.Slot `json:"available_slots"`
}

type SearchResponse struct {
	Date               string                 `json:"date"`
	Day                string                 `json:"day"`
	ProfessionalsCount int                    `json:"professionals_count"`
	Professionals      []SearchResultResponse `json:"professionals"`
}

type ScheduleDayResponse struct {
	Date        string            `json:"date"`
	Weekday     int               `json:"weekday"`
	DayName     string            `json:"day_name"`
	IsAvailable bool              `json:"is_available"`
	Blocked     bool              `json:"blocked"`
	TimeSlots   []scheduling.Slot `json:"time_slots"`
}

type WeekScheduleResponse struct {
	Professional ProfessionalResponse  `json:"professional"`
	WeekStart    string                `json:"week_start"`
	WeekEnd      string                `json:"week_end"`
	Schedule     []ScheduleDayResponse `json:"schedule"`
}

func toProfessionalResponse(p scheduling.Professional) ProfessionalResponse {
	return ProfessionalResponse{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		Specialization: p.Specialization,
		City:           p.City,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
