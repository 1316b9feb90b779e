package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mindwell/clinic-scheduling/internal/scheduling"
)

func searchProfessionalsHandler(q *scheduling.ScheduleQuery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()

		dateStr := params.Get("date")
		if dateStr == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}
		date, err := scheduling.ParseDate(dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		in := scheduling.SearchInput{
			Date:           date,
			Specialization: params.Get("specialization"),
			City:           params.Get("city"),
		}
		if v := params.Get("time"); v != "" {
			t, err := scheduling.ParseMinuteOfDay(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
				return
			}
			in.Time = &t
		}

		results, err := q.SearchProfessionals(r.Context(), in)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		resp := SearchResponse{
			Date:               scheduling.DateKey(date),
			Day:                weekdayNames[scheduling.WeekdayIndex(date)],
			ProfessionalsCount: len(results),
			Professionals:      make([]SearchResultResponse, 0, len(results)),
		}
		for _, res := range results {
			slots := res.FreeSlots
			if slots == nil {
				slots = []scheduling.Slot{}
			}
			resp.Professionals = append(resp.Professionals, SearchResultResponse{
				ProfessionalResponse: toProfessionalResponse(res.Professional),
				AvailableSlots:       slots,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func weeklyScheduleHandler(q *scheduling.ScheduleQuery, clock scheduling.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "id must be a valid UUID")
			return
		}

		weekStart := scheduling.DateOnly(clock.Now())
		if v := r.URL.Query().Get("week_start"); v != "" {
			parsed, err := scheduling.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_week_start", err.Error())
				return
			}
			weekStart = parsed
		}

		week, err := q.WeeklySchedule(r.Context(), professionalID, weekStart)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		resp := WeekScheduleResponse{
			Professional: toProfessionalResponse(week.Professional),
			WeekStart:    scheduling.DateKey(week.WeekStart),
			WeekEnd:      scheduling.DateKey(week.WeekEnd),
			Schedule:     make([]ScheduleDayResponse, 0, len(week.Days)),
		}
		for _, day := range week.Days {
			slots := day.Slots
			if slots == nil {
				slots = []scheduling.Slot{}
			}
			resp.Schedule = append(resp.Schedule, ScheduleDayResponse{
				Date:        scheduling.DateKey(day.Date),
				Weekday:     day.Weekday,
				DayName:     weekdayNames[day.Weekday],
				IsAvailable: day.Available,
				Blocked:     day.Blocked,
				TimeSlots:   slots,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
