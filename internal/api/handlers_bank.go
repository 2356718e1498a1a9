/**
 * @description
 * HTTP handlers for the user's own funding bank accounts. Creation stores the
 * account as pending while processor verification runs in the background;
 * account numbers are masked on every read path.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/achpay/payments-service/internal/domain"
)

type bankListResponse struct {
	Items      []domain.BankAccount `json:"items"`
	Pagination domain.Pagination    `json:"pagination"`
}

func (h *PaymentHandlers) bankAccountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid bank account id")
		return 0, false
	}
	return id, true
}

// CreateBankAccountHandler adds a funding account, pending verification.
func (h *PaymentHandlers) CreateBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	var payload domain.CreateBankPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.CreateBankAccount(r.Context(), rc, payload)
	if err != nil {
		h.handleServiceError(w, "create_bank_account", rc, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, "Bank account created, verification pending", account)
}

// ListBankAccountsHandler returns one page of funding accounts. Supports
// bank_name and account_type filters.
func (h *PaymentHandlers) ListBankAccountsHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	opts := domain.BankListOptions{
		BankName:    r.URL.Query().Get("bank_name"),
		AccountType: r.URL.Query().Get("account_type"),
	}
	opts.Page, opts.PerPage = parsePageParams(r)

	accounts, pagination, err := h.service.ListBankAccounts(r.Context(), rc, opts)
	if err != nil {
		h.handleServiceError(w, "list_bank_accounts", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Bank accounts retrieved", bankListResponse{Items: accounts, Pagination: pagination})
}

// GetBankAccountHandler returns one funding account.
func (h *PaymentHandlers) GetBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	accountID, ok := h.bankAccountID(w, r)
	if !ok {
		return
	}

	account, err := h.service.GetBankAccount(r.Context(), rc, accountID)
	if err != nil {
		h.handleServiceError(w, "get_bank_account", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Bank account retrieved", account)
}

// DeleteBankAccountHandler removes a funding account.
func (h *PaymentHandlers) DeleteBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	accountID, ok := h.bankAccountID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBankAccount(r.Context(), rc, accountID); err != nil {
		h.handleServiceError(w, "delete_bank_account", rc, err)
		return
	}
	h.writeJSON(w, http.StatusOK, "Bank account deleted", nil)
}
