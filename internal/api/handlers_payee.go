/**
 * @description
 * HTTP handlers for payee management: CRUD on payees and linking bank
 * accounts to them. The first bank linked to a payee becomes its primary
 * account; later ones are stored as additional banks addressable by short id.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/achpay/payments-service/internal/domain"
)

type payeeListResponse struct {
	Items      []domain.PayeeWithBanks `json:"items"`
	Pagination domain.Pagination       `json:"pagination"`
}

func (h *PaymentHandlers) payeeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid payee id")
		return 0, false
	}
	return id, true
}

// CreatePayeeHandler creates a payee.
func (h *PaymentHandlers) CreatePayeeHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	var payload domain.CreatePayeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payee, err := h.service.CreatePayee(r.Context(), rc, payload)
	if err != nil {
		h.handleServiceError(w, "create_payee", rc, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, "Payee created", payee)
}

// ListPayeesHandler returns one page of payees with their linked banks.
func (h *PaymentHandlers) ListPayeesHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	opts := domain.PayeeListOptions{}
	opts.Page, opts.PerPage = parsePageParams(r)

	payees, pagination, err := h.service.ListPayees(r.Context(), rc, opts)
	if err != nil {
		h.handleServiceError(w, "list_payees", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Payees retrieved", payeeListResponse{Items: payees, Pagination: pagination})
}

// GetPayeeHandler returns one payee with its linked banks.
func (h *PaymentHandlers) GetPayeeHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	payeeID, ok := h.payeeID(w, r)
	if !ok {
		return
	}

	payee, err := h.service.GetPayee(r.Context(), rc, payeeID)
	if err != nil {
		h.handleServiceError(w, "get_payee", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Payee retrieved", payee)
}

// UpdatePayeeHandler applies a partial update to a payee.
func (h *PaymentHandlers) UpdatePayeeHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	payeeID, ok := h.payeeID(w, r)
	if !ok {
		return
	}

	var payload domain.UpdatePayeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payee, err := h.service.UpdatePayee(r.Context(), rc, payeeID, payload)
	if err != nil {
		h.handleServiceError(w, "update_payee", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Payee updated", payee)
}

// DeletePayeeHandler soft-deletes a payee.
func (h *PaymentHandlers) DeletePayeeHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	payeeID, ok := h.payeeID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePayee(r.Context(), rc, payeeID); err != nil {
		h.handleServiceError(w, "delete_payee", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Payee deleted", nil)
}

// LinkPayeeBankHandler attaches a bank account to a payee.
func (h *PaymentHandlers) LinkPayeeBankHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	payeeID, ok := h.payeeID(w, r)
	if !ok {
		return
	}

	var payload domain.LinkPayeeBankPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payee, err := h.service.LinkPayeeBank(r.Context(), rc, payeeID, payload)
	if err != nil {
		h.handleServiceError(w, "link_payee_bank", rc, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, "Payee bank linked", payee)
}
