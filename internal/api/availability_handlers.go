package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mindwell/clinic-scheduling/internal/scheduling"
)

func listAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var professionalID *uuid.UUID
		if v := r.URL.Query().Get("professional_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
				return
			}
			professionalID = &id
		}

		rules, err := svc.ListAvailability(r.Context(), GetActor(r.Context()), professionalID)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		out := make([]AvailabilityResponse, 0, len(rules))
		for i := range rules {
			out = append(out, toAvailabilityResponse(&rules[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func decodeAvailabilityInput(w http.ResponseWriter, r *http.Request) (scheduling.AvailabilityInput, bool) {
	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return scheduling.AvailabilityInput{}, false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return scheduling.AvailabilityInput{}, false
	}

	start, err := scheduling.ParseMinuteOfDay(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
		return scheduling.AvailabilityInput{}, false
	}
	end, err := scheduling.ParseMinuteOfDay(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
		return scheduling.AvailabilityInput{}, false
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return scheduling.AvailabilityInput{
		Weekday: *req.Weekday,
		Start:   start,
		End:     end,
		Active:  active,
	}, true
}

func createAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeAvailabilityInput(w, r)
		if !ok {
			return
		}

		rule, err := svc.CreateAvailabilityRule(r.Context(), GetActor(r.Context()), in)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAvailabilityResponse(rule))
	}
}

func updateAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", "id must be a valid UUID")
			return
		}

		in, ok := decodeAvailabilityInput(w, r)
		if !ok {
			return
		}

		rule, err := svc.UpdateAvailabilityRule(r.Context(), GetActor(r.Context()), id, in)
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(rule))
	}
}

func blockDateHandler(svc *scheduling.Service, block bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", "id must be a valid UUID")
			return
		}

		var req BlockDateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		date, err := scheduling.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		var changed bool
		if block {
			changed, err = svc.BlockDate(r.Context(), GetActor(r.Context()), id, date)
		} else {
			changed, err = svc.UnblockDate(r.Context(), GetActor(r.Context()), id, date)
		}
		if err != nil {
			writeSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, BlockDateResponse{
			RuleID:  id,
			Date:    scheduling.DateKey(date),
			Changed: changed,
		})
	}
}
