/**
 * @description
 * This file defines the core domain models for the payments-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Transactions (money we originated) and receivables (money owed to us) share
 *   most of their lifecycle, so both are carried as a PaymentRecord tagged with
 *   a RecordSource. Display derivation differs only in the channel policy.
 * - Amounts are carried as decimal.Decimal to avoid floating-point drift on
 *   dollar-and-cent values.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordSource tags which collection a PaymentRecord was fetched from.
type RecordSource string

const (
	SourceTransaction RecordSource = "transactions"
	SourceReceivable  RecordSource = "receivables"
)

// Raw status codes as stored by the payment processor integration.
const (
	StatusCodeReturned  = 0
	StatusCodeCleared   = 1
	StatusCodeCancelled = 10
	StatusCodePending   = 101
)

// Transfer channels that settle the same day.
const (
	ChannelRealTimePayment = "Real Time Payment"
	ChannelWallet          = "Wallet"
	ChannelRTPBank         = "RTP Bank"
	ChannelWalletRTPBank   = "Wallet/RTP Bank"
)

// PaymentRecord unifies a transaction and a receivable row for lifecycle
// derivation. Source decides which channel policy applies.
type PaymentRecord struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Source         RecordSource    `json:"source"`
	Confirmation   string          `json:"confirmation"`
	PayeeID        *int64          `json:"payee_id,omitempty"`
	PayeeName      *string         `json:"payee_name,omitempty"`
	StatusCode     int             `json:"-"`
	Channel        string          `json:"-"` // transfer_mode for transactions, payment_from for receivables
	Memo           string          `json:"-"`
	Amount         decimal.Decimal `json:"amount"`
	PayeeAccountNo string          `json:"-"`
	RecurringID    *string         `json:"recurring_id,omitempty"`
	ReturnCode     *string         `json:"rtn_code,omitempty"`
	ReturnDate     *time.Time      `json:"-"`
	IsDeleted      bool            `json:"-"`
	Editable       bool            `json:"-"`
	CreatedAt      time.Time       `json:"-"`
	UpdatedAt      time.Time       `json:"-"`
}

// NormalizedRecord is the externally visible view of a PaymentRecord after
// status, lifecycle dates, memo split and masking have been derived. Internal
// bookkeeping fields (raw status, soft-delete flag, audit timestamps) are
// suppressed by construction: they simply have no slot here.
type NormalizedRecord struct {
	ID               int64           `json:"id"`
	Source           RecordSource    `json:"source"`
	Confirmation     string          `json:"confirmation"`
	StatusText       string          `json:"status_text"`
	PayeeName        *string         `json:"payee_name"`
	ScheduleName     string          `json:"schedule_name"`
	SchedulePurpose  string          `json:"schedule_purpose"`
	Amount           decimal.Decimal `json:"amount"`
	PayeeAccountNo   string          `json:"payee_account_no,omitempty"`
	RecurringID      *string         `json:"recurring_id,omitempty"`
	ReturnCode       *string         `json:"rtn_code,omitempty"`
	ReturnDate       *string         `json:"return_date"`
	DepositDate      *string         `json:"deposit_date"`
	SettlementDate   *string         `json:"settlement_date"`
	EffectiveDate    *string         `json:"effective_date"`
	OrganizationDate *string         `json:"organization_date"`

	// SortKey orders merged views by origination time without re-parsing the
	// formatted organization_date. Not serialized.
	SortKey time.Time `json:"-"`
}

// Pagination is the envelope metadata for paginated list responses. From and
// To are 1-based indices of the returned slice and are omitted when the page
// is empty.
type Pagination struct {
	Total       int  `json:"total"`
	PerPage     int  `json:"per_page"`
	CurrentPage int  `json:"current_page"`
	LastPage    int  `json:"last_page"`
	From        *int `json:"from"`
	To          *int `json:"to"`
}

// MergedPage is one page of a combined transactions + receivables view.
type MergedPage struct {
	Records    []NormalizedRecord `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// RecordListOptions controls filtering and pagination for per-source listings.
type RecordListOptions struct {
	PayeeID     *int64
	RecurringID *string
	Page        int
	PerPage     int
}

// DateRangeOptions selects the combined date-range view. The store widens the
// window by one day on each side before querying.
type DateRangeOptions struct {
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}
