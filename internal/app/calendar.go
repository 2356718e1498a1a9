/**
 * @description
 * Calendar arithmetic for recurring schedules: business-day tests, recurrence
 * interval stepping and weekend roll-forward. Everything here is a pure
 * function over time.Time values; no clock, no I/O.
 *
 * @notes
 * - "Business day" means Monday through Friday. There is no holiday calendar.
 * - Monthly stepping clamps to the end of the shorter month (Jan 31 + 1 month
 *   is Feb 28/29, never March 3), matching the processor's billing rules.
 */

package app

import (
	"strings"
	"time"

	"github.com/achpay/payments-service/internal/domain"
)

// ParseRecurrence normalizes caller input ("bi-weekly", "Once-A-Week", ...)
// to a canonical recurrence kind. Unrecognized input falls back to Daily, the
// same permissive behavior the billing loop itself has.
func ParseRecurrence(raw string) domain.Recurrence {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "daily":
		return domain.RecurDaily
	case "once-a-week", "onceaweek", "weekly":
		return domain.RecurOnceAWeek
	case "bi-weekly", "biweekly":
		return domain.RecurBiWeekly
	case "monthly":
		return domain.RecurMonthly
	case "yearly":
		return domain.RecurYearly
	default:
		return domain.RecurDaily
	}
}

// IsBusinessDay reports whether date falls on a weekday.
func IsBusinessDay(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Advance steps date forward by one recurrence interval.
func Advance(date time.Time, kind domain.Recurrence) time.Time {
	switch kind {
	case domain.RecurOnceAWeek:
		return date.AddDate(0, 0, 7)
	case domain.RecurBiWeekly:
		return date.AddDate(0, 0, 14)
	case domain.RecurMonthly:
		return addMonthClamped(date)
	case domain.RecurYearly:
		return date.AddDate(1, 0, 0)
	default: // Daily, and anything unrecognized
		return date.AddDate(0, 0, 1)
	}
}

// addMonthClamped adds one month, clamping the day of month so the result
// never spills into the month after next. time.AddDate alone normalizes
// Jan 31 + 1 month to Mar 2/3.
func addMonthClamped(date time.Time) time.Time {
	year, month, day := date.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, date.Location())
	if last := daysInMonth(firstOfNext.Year(), firstOfNext.Month()); day > last {
		day = last
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// RollToBusinessDay moves a weekend date forward to the following Monday and
// leaves weekdays untouched. Applied to next_bill_date only; generated billing
// dates are not rolled.
func RollToBusinessDay(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, 2)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}
