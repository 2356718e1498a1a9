/**
 * @description
 * HTTP handlers for recurring schedule management: create, list, fetch,
 * partial update, delete, and the pause/resume/stop status action.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/achpay/payments-service/internal/domain"
)

// scheduleListResponse pairs the schedule views with the pagination envelope.
type scheduleListResponse struct {
	Items      []domain.ScheduleView `json:"items"`
	Pagination domain.Pagination     `json:"pagination"`
}

// statusActionRequest is the body of the status action endpoint.
type statusActionRequest struct {
	Action string `json:"action"`
}

func (h *PaymentHandlers) scheduleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid schedule id")
		return 0, false
	}
	return id, true
}

// CreateScheduleHandler creates a recurring schedule.
func (h *PaymentHandlers) CreateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	var payload domain.CreateSchedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.service.CreateSchedule(r.Context(), rc, payload)
	if err != nil {
		h.handleServiceError(w, "create_schedule", rc, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, "Schedule created", view)
}

// ListSchedulesHandler returns one page of the user's schedules.
func (h *PaymentHandlers) ListSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	opts := domain.ScheduleListOptions{}
	opts.Page, opts.PerPage = parsePageParams(r)

	views, pagination, err := h.service.ListSchedules(r.Context(), rc, opts)
	if err != nil {
		h.handleServiceError(w, "list_schedules", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Schedules retrieved", scheduleListResponse{Items: views, Pagination: pagination})
}

// GetScheduleHandler returns one schedule.
func (h *PaymentHandlers) GetScheduleHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetSchedule(r.Context(), rc, scheduleID)
	if err != nil {
		h.handleServiceError(w, "get_schedule", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Schedule retrieved", view)
}

// UpdateScheduleHandler applies a partial update to a schedule.
func (h *PaymentHandlers) UpdateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	var payload domain.UpdateSchedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.service.UpdateSchedule(r.Context(), rc, scheduleID, payload)
	if err != nil {
		h.handleServiceError(w, "update_schedule", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Schedule updated", view)
}

// ScheduleStatusHandler applies a pause/resume/stop action.
func (h *PaymentHandlers) ScheduleStatusHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	var payload statusActionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.service.ChangeScheduleStatus(r.Context(), rc, scheduleID, payload.Action)
	if err != nil {
		h.handleServiceError(w, "schedule_status", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Schedule status updated", view)
}

// DeleteScheduleHandler removes a schedule.
func (h *PaymentHandlers) DeleteScheduleHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteSchedule(r.Context(), rc, scheduleID); err != nil {
		h.handleServiceError(w, "delete_schedule", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Schedule deleted", nil)
}
