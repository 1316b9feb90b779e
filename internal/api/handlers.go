package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mindwell/clinic-scheduling/internal/scheduling"
)

func createAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}
		date, err := scheduling.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		start, err := scheduling.ParseMinuteOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), GetActor(r.Context()), scheduling.CreateBookingInput{
			ProfessionalID: professionalID,
			Date:           date,
			Start:          start,
			Type:           scheduling.AppointmentType(req.Type),
			Reason:         req.Reason,
			Notes:          req.Notes,
		})
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

// transitionHandler builds a handler for the four lifecycle transitions;
// they differ only in the service call.
func transitionHandler(fn func(r *http.Request, id uuid.UUID) (*scheduling.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := fn(r, id)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*scheduling.Appointment, error) {
		return svc.Confirm(r.Context(), GetActor(r.Context()), id)
	})
}

func cancelAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*scheduling.Appointment, error) {
		return svc.Cancel(r.Context(), GetActor(r.Context()), id)
	})
}

func completeAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*scheduling.Appointment, error) {
		return svc.Complete(r.Context(), GetActor(r.Context()), id)
	})
}

func noShowAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*scheduling.Appointment, error) {
		return svc.MarkNoShow(r.Context(), GetActor(r.Context()), id)
	})
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), GetActor(r.Context()), id)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts scheduling.ListOptions

		if v := r.URL.Query().Get("status"); v != "" {
			status := scheduling.AppointmentStatus(v)
			opts.Status = &status
		}
		if v := r.URL.Query().Get("date_from"); v != "" {
			d, err := scheduling.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date_from", err.Error())
				return
			}
			opts.DateFrom = &d
		}
		if v := r.URL.Query().Get("date_to"); v != "" {
			d, err := scheduling.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date_to", err.Error())
				return
			}
			opts.DateTo = &d
		}

		appts, err := svc.ListAppointments(r.Context(), GetActor(r.Context()), opts)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func upcomingAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.Upcoming(r.Context(), GetActor(r.Context()))
		if err != nil {
			writeSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func appointmentHistoryHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.History(r.Context(), GetActor(r.Context()))
		if err != nil {
			writeSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}
