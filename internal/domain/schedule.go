/**
 * @description
 * Domain models for recurring payment schedules. A schedule expands into a
 * concrete sequence of billing dates at creation and whenever its recurrence
 * definition changes; the scheduler job consumes next_bill_date to originate
 * payments.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleStatus is the lifecycle state of a recurring schedule.
type ScheduleStatus string

const (
	ScheduleActive  ScheduleStatus = "Active"
	SchedulePaused  ScheduleStatus = "Paused"
	ScheduleStopped ScheduleStatus = "Stopped"
)

// ScheduleAction is a requested status change keyed by API verb.
type ScheduleAction string

const (
	ActionPause  ScheduleAction = "pause"
	ActionResume ScheduleAction = "resume"
	ActionStop   ScheduleAction = "stop"
)

// Recurrence is the cadence of a schedule. Canonical spellings only; parsing
// of caller input is handled by app.ParseRecurrence.
type Recurrence string

const (
	RecurDaily     Recurrence = "Daily"
	RecurOnceAWeek Recurrence = "Once-a-Week"
	RecurBiWeekly  Recurrence = "Bi-Weekly"
	RecurMonthly   Recurrence = "Monthly"
	RecurYearly    Recurrence = "Yearly"
)

// AdditionalBankPrefix tags a schedule payer reference that points at an
// additional (non-primary) payee bank instead of a primary payee bank row.
const AdditionalBankPrefix = "abank_"

// RecurringSchedule is the stored definition of a recurring payment.
//
// Invariants: len(BillingDates) == NumberOfPayments once computed;
// LastBillDate equals the final element of BillingDates; Status never leaves
// ScheduleStopped.
type RecurringSchedule struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	Status           ScheduleStatus  `json:"status"`
	Recurrence       Recurrence      `json:"recurring"`
	FirstPaymentDate time.Time       `json:"first_payment_date"`
	NumberOfPayments int             `json:"number_of_payments"`
	Amount           decimal.Decimal `json:"amount"`
	Payer            string          `json:"payer"`      // payee bank id, or AdditionalBankPrefix+id
	PayableTo        int64           `json:"payable_to"` // destination bank account id
	Purpose          string          `json:"-"`          // composite "name - purpose"
	BillingDates     []time.Time     `json:"-"`
	LastBillDate     *time.Time      `json:"last_bill_date"`
	NextBillDate     *time.Time      `json:"next_bill_date"`
	CountPayments    int             `json:"count_payments"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ScheduleView is the API shape of a schedule: referenced parties resolved to
// display names, the composite purpose split, dates formatted.
type ScheduleView struct {
	ID               int64           `json:"id"`
	Status           ScheduleStatus  `json:"status"`
	UserID           int64           `json:"user_id"`
	Recurrence       Recurrence      `json:"recurring"`
	FirstPaymentDate *string         `json:"first_payment_date"`
	LastBillDate     *string         `json:"last_bill_date"`
	NextBillDate     *string         `json:"next_bill_date"`
	NumberOfPayments int             `json:"number_of_payments"`
	Amount           decimal.Decimal `json:"amount"`
	Payer            *string         `json:"payer"`
	PayerID          *string         `json:"payer_id"`
	PayableTo        *string         `json:"payable_to"`
	PayableToID      *int64          `json:"payable_to_id"`
	ScheduleName     string          `json:"schedule_name"`
	SchedulePurpose  string          `json:"schedule_purpose"`
	CountPayments    int             `json:"count_payments"`
	CreatedAt        *string         `json:"created_at"`
	UpdatedAt        *string         `json:"updated_at"`
}

// CreateSchedulePayload is the DTO for creating a recurring schedule.
type CreateSchedulePayload struct {
	Status           string          `json:"status"`
	Recurring        string          `json:"recurring"`
	FirstPaymentDate string          `json:"first_payment_date"` // YYYY-MM-DD
	NumberOfPayments int             `json:"number_of_payments"`
	Amount           decimal.Decimal `json:"amount"`
	ScheduleName     string          `json:"schedule_name"`
	SchedulePurpose  string          `json:"schedule_purpose"`
	Payer            string          `json:"payer"`
	PayableTo        int64           `json:"payable_to"`
}

// UpdateSchedulePayload is the DTO for a partial schedule update. Nil fields
// are left untouched; billing dates are recomputed when any of recurrence,
// first payment date or payment count changes.
type UpdateSchedulePayload struct {
	Recurring        *string          `json:"recurring,omitempty"`
	FirstPaymentDate *string          `json:"first_payment_date,omitempty"`
	NumberOfPayments *int             `json:"number_of_payments,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Payer            *string          `json:"payer,omitempty"`
	PayableTo        *int64           `json:"payable_to,omitempty"`
	ScheduleName     *string          `json:"schedule_name,omitempty"`
	SchedulePurpose  *string          `json:"schedule_purpose,omitempty"`
}

// ScheduleListOptions controls pagination for schedule listings.
type ScheduleListOptions struct {
	Page    int
	PerPage int
}
