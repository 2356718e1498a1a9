/**
 * @description
 * This file contains the HTTP handlers for the payment-record endpoints, plus
 * the response helpers shared by every handler in the package. Handlers are
 * responsible for parsing incoming requests, calling the appropriate methods
 * on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * Every response uses the same envelope: {"status": ..., "message": ...,
 * "data": ...}, matching what existing clients of the API expect.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/achpay/payments-service/internal/app"
	"github.com/achpay/payments-service/internal/domain"
	"github.com/achpay/payments-service/internal/store"
)

// defaultPerPage is applied when a listing request does not name a page size.
const defaultPerPage = 15

// PaymentHandlers holds the application service that handlers will use.
type PaymentHandlers struct {
	service *app.Service
}

// NewPaymentHandlers creates a new instance of PaymentHandlers.
func NewPaymentHandlers(service *app.Service) *PaymentHandlers {
	return &PaymentHandlers{service: service}
}

// apiResponse is the envelope for every JSON response.
type apiResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// writeJSON is a helper for writing JSON responses in the standard envelope.
func (h *PaymentHandlers) writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// writeError is a helper for writing JSON error responses.
func (h *PaymentHandlers) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{
		Status:  "error",
		Message: message,
	})
}

// requestContext pulls the authenticated caller out of the request, writing
// the failure response itself.
func (h *PaymentHandlers) requestContext(w http.ResponseWriter, r *http.Request) (domain.RequestContext, bool) {
	rc, ok := GetRequestContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user from context")
	}
	return rc, ok
}

// handleServiceError maps service and store errors to HTTP responses.
func (h *PaymentHandlers) handleServiceError(w http.ResponseWriter, endpoint string, rc domain.RequestContext, err error) {
	switch {
	case errors.Is(err, store.ErrRecordNotFound),
		errors.Is(err, store.ErrScheduleNotFound),
		errors.Is(err, store.ErrPayeeNotFound),
		errors.Is(err, store.ErrPayeeBankNotFound),
		errors.Is(err, store.ErrAdditionalBankNotFound),
		errors.Is(err, store.ErrBankAccountNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrRecordNotCancelable):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidDateRange),
		errors.Is(err, app.ErrConflictingFilters),
		errors.Is(err, app.ErrAccountNumberMismatch),
		errors.Is(err, app.ErrInvalidRecurrenceDefinition),
		errors.Is(err, app.ErrValidation):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s request_id=%s msg=\"unhandled service error\" err=%v", endpoint, rc.RequestID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parsePageParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}

func parseRecordListOptions(r *http.Request) domain.RecordListOptions {
	opts := domain.RecordListOptions{}
	opts.Page, opts.PerPage = parsePageParams(r)
	if raw := r.URL.Query().Get("payee_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			opts.PayeeID = &id
		}
	}
	if raw := r.URL.Query().Get("recurring_id"); raw != "" {
		recurringID := raw
		opts.RecurringID = &recurringID
	}
	return opts
}

// ListTransactionsHandler returns one page of the user's originated payments.
func (h *PaymentHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	page, err := h.service.ListTransactions(r.Context(), rc, parseRecordListOptions(r))
	if err != nil {
		h.handleServiceError(w, "list_transactions", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Transactions retrieved", page)
}

// ListReceivablesHandler returns one page of the user's incoming payments.
func (h *PaymentHandlers) ListReceivablesHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	page, err := h.service.ListReceivables(r.Context(), rc, parseRecordListOptions(r))
	if err != nil {
		h.handleServiceError(w, "list_receivables", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Receivables retrieved", page)
}

// GetRecordHandler resolves one confirmation number across both sources.
func (h *PaymentHandlers) GetRecordHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	confirmation := chi.URLParam(r, "confirmation")
	if confirmation == "" {
		h.writeError(w, http.StatusBadRequest, "Confirmation number is required")
		return
	}

	record, err := h.service.GetRecord(r.Context(), rc, confirmation)
	if err != nil {
		h.handleServiceError(w, "get_record", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Record retrieved", record)
}

// DateRangeHandler returns the combined transactions + receivables timeline
// between from and to (YYYY-MM-DD).
func (h *PaymentHandlers) DateRangeHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	from, errFrom := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	to, errTo := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if errFrom != nil || errTo != nil {
		h.writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD dates")
		return
	}

	opts := domain.DateRangeOptions{From: from, To: to}
	opts.Page, opts.PerPage = parsePageParams(r)

	page, err := h.service.ListByDateRange(r.Context(), rc, opts)
	if err != nil {
		h.handleServiceError(w, "date_range", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Records retrieved", page)
}

// CancelRecordHandler cancels one pending transaction by row id.
func (h *PaymentHandlers) CancelRecordHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	transactionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	record, err := h.service.CancelRecord(r.Context(), rc, transactionID)
	if err != nil {
		h.handleServiceError(w, "cancel_record", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Transaction cancelled", record)
}
