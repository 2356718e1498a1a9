/**
 * @description
 * Derivation of the externally visible view of a payment record: status text,
 * lifecycle dates (deposit, settlement, effective, organization, return),
 * memo splitting and account-number masking. Every read path — the
 * per-source listings, the single-record lookup, the combined date-range view
 * and the cancellation response — goes through NormalizeRecord, so the
 * derivation rules live in exactly one place.
 *
 * @notes
 * - Transactions and receivables differ only in how "settles same day" is
 *   decided: transactions match one channel string, receivables match a set
 *   of wallet-like payment sources. Both rules are expressed as a
 *   ChannelPolicy so the difference is data, not branching.
 * - A returned record never carries deposit or settlement dates; the return
 *   overrides everything downstream of origination.
 */

package app

import (
	"errors"
	"strings"
	"time"

	"github.com/achpay/payments-service/internal/domain"
)

// ErrMalformedRecord reports a record missing a field the derivation depends
// on (the creation timestamp).
var ErrMalformedRecord = errors.New("malformed payment record")

// dateLayout renders lifecycle dates as m-d-Y, the format the API has always
// emitted.
const dateLayout = "01-02-2006"

// depositLagDays is the standard ACH posting delay for channels that do not
// settle in real time.
const depositLagDays = 3

// maskRune replaces every masked digit of an account number.
const maskRune = "X"

// ChannelPolicy decides whether a record's channel settles the same day it
// is originated.
type ChannelPolicy struct {
	// SameDayChannels holds the channel values that settle same-day.
	SameDayChannels []string
}

// SettlesSameDay reports whether channel is one of the policy's same-day
// channels.
func (p ChannelPolicy) SettlesSameDay(channel string) bool {
	for _, c := range p.SameDayChannels {
		if channel == c {
			return true
		}
	}
	return false
}

// TransactionChannelPolicy matches outbound transactions: only the real-time
// payment rail settles same-day.
var TransactionChannelPolicy = ChannelPolicy{
	SameDayChannels: []string{domain.ChannelRealTimePayment},
}

// ReceivableChannelPolicy matches inbound receivables: wallet-like payment
// sources settle same-day.
var ReceivableChannelPolicy = ChannelPolicy{
	SameDayChannels: []string{domain.ChannelWallet, domain.ChannelRTPBank, domain.ChannelWalletRTPBank},
}

// policyForSource selects the channel policy for a record source.
func policyForSource(source domain.RecordSource) ChannelPolicy {
	if source == domain.SourceReceivable {
		return ReceivableChannelPolicy
	}
	return TransactionChannelPolicy
}

// StatusText maps the processor's raw status code to display text.
func StatusText(code int) string {
	switch code {
	case domain.StatusCodeReturned:
		return "Returned"
	case domain.StatusCodeCleared:
		return "Cleared"
	case domain.StatusCodeCancelled:
		return "Cancelled"
	case domain.StatusCodePending:
		return "Pending"
	default:
		return "Unknown"
	}
}

// SplitMemo splits a composite "name - purpose" memo at the first dash,
// trimming both parts. A memo without a dash is all name.
func SplitMemo(memo string) (name, purpose string) {
	before, after, found := strings.Cut(memo, "-")
	if !found {
		return strings.TrimSpace(memo), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// MaskAccountNumber hides all but the last four characters of an account
// number. Values of four characters or fewer are masked in full so no literal
// digit survives.
func MaskAccountNumber(accountNo string) string {
	if accountNo == "" {
		return ""
	}
	if len(accountNo) <= 4 {
		return strings.Repeat(maskRune, len(accountNo))
	}
	return strings.Repeat(maskRune, len(accountNo)-4) + accountNo[len(accountNo)-4:]
}

// NormalizeRecord derives the display view of a payment record. It is a pure
// transform: persistence of any mutation (cancellation, return posting)
// happens before normalization is invoked.
func NormalizeRecord(rec domain.PaymentRecord) (domain.NormalizedRecord, error) {
	if rec.CreatedAt.IsZero() {
		return domain.NormalizedRecord{}, ErrMalformedRecord
	}

	policy := policyForSource(rec.Source)
	name, purpose := SplitMemo(rec.Memo)

	view := domain.NormalizedRecord{
		ID:              rec.ID,
		Source:          rec.Source,
		Confirmation:    rec.Confirmation,
		StatusText:      StatusText(rec.StatusCode),
		PayeeName:       rec.PayeeName,
		ScheduleName:    name,
		SchedulePurpose: purpose,
		Amount:          rec.Amount,
		PayeeAccountNo:  MaskAccountNumber(rec.PayeeAccountNo),
		RecurringID:     rec.RecurringID,
		ReturnCode:      rec.ReturnCode,
		SortKey:         rec.CreatedAt,
	}

	created := formatDate(rec.CreatedAt)
	view.OrganizationDate = &created
	view.EffectiveDate = &created

	if rec.ReturnCode != nil && *rec.ReturnCode != "" {
		// Returned: the return date is authoritative, nothing posts downstream.
		if rec.ReturnDate != nil {
			returned := formatDate(*rec.ReturnDate)
			view.ReturnDate = &returned
		}
		return view, nil
	}

	if policy.SettlesSameDay(rec.Channel) {
		view.DepositDate = &created
		view.SettlementDate = &created
	} else {
		deposit := formatDate(rec.CreatedAt.AddDate(0, 0, depositLagDays))
		view.DepositDate = &deposit
	}

	return view, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}
