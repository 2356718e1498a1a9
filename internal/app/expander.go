/**
 * @description
 * Expansion of a recurrence definition into the concrete sequence of billing
 * dates a schedule will draw on, together with the derived last and next bill
 * dates. This is the single source of truth for billing-date generation; both
 * the create and update paths of the schedules API go through it.
 */

package app

import (
	"errors"
	"time"

	"github.com/achpay/payments-service/internal/domain"
)

// ErrInvalidRecurrenceDefinition reports a recurrence definition the expander
// cannot honor (zero first payment date). Validation upstream should prevent
// this from ever reaching the expander.
var ErrInvalidRecurrenceDefinition = errors.New("invalid recurrence definition")

// ExpandSchedule generates the ordered billing dates for a schedule.
//
// The sequence starts at firstPaymentDate and steps by the recurrence
// interval. Daily schedules bill on weekdays only: weekend days are stepped
// over without consuming a payment slot. Every other kind accepts whatever
// date the interval lands on, weekend or not.
//
// numberOfPayments <= 0 yields an empty sequence and a nil last bill date.
// Termination is guaranteed: every loop iteration advances the cursor.
func ExpandSchedule(firstPaymentDate time.Time, kind domain.Recurrence, numberOfPayments int) ([]time.Time, *time.Time) {
	if numberOfPayments <= 0 {
		return nil, nil
	}

	dates := make([]time.Time, 0, numberOfPayments)
	cursor := firstPaymentDate
	for len(dates) < numberOfPayments {
		if kind == domain.RecurDaily && !IsBusinessDay(cursor) {
			cursor = Advance(cursor, kind)
			continue
		}
		dates = append(dates, cursor)
		cursor = Advance(cursor, kind)
	}

	last := dates[len(dates)-1]
	return dates, &last
}

// NextBillDate derives the first due date of a schedule: the first payment
// date rolled off a weekend onto the following Monday.
func NextBillDate(firstPaymentDate time.Time) time.Time {
	return RollToBusinessDay(firstPaymentDate)
}
