package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordCancelledEvent is published when a transaction or receivable is
// cancelled through the API.
type RecordCancelledEvent struct {
	RequestID    uuid.UUID       `json:"request_id"`
	Source       RecordSource    `json:"source"`
	Confirmation string          `json:"confirmation"`
	UserID       int64           `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	CancelledAt  time.Time       `json:"cancelled_at"`
}

// SchedulePaymentOriginatedEvent is published by the due-schedule job each
// time a billing date produces a pending payment record.
type SchedulePaymentOriginatedEvent struct {
	ScheduleID   int64           `json:"schedule_id"`
	UserID       int64           `json:"user_id"`
	Confirmation string          `json:"confirmation"`
	Amount       decimal.Decimal `json:"amount"`
	BillDate     time.Time       `json:"bill_date"`
	OriginatedAt time.Time       `json:"originated_at"`
}

// ReturnPostedEvent is the message emitted by the banking-network integration
// when a payment is returned. The consumer applies the return code and date to
// the matching record.
type ReturnPostedEvent struct {
	EventID      string       `json:"event_id"`
	Source       RecordSource `json:"source"`
	Confirmation string       `json:"confirmation"`
	ReturnCode   string       `json:"rtn_code"`
	ReturnedAt   time.Time    `json:"returned_at"`
}
