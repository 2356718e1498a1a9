package app

import (
	"testing"
	"time"

	"github.com/achpay/payments-service/internal/domain"
)

func TestExpandSchedule_DailySkipsWeekends(t *testing.T) {
	// 2025-03-07 is a Friday; the next two business days are Mon and Tue.
	dates, last := ExpandSchedule(date(2025, time.March, 7), domain.RecurDaily, 3)
	want := []time.Time{
		date(2025, time.March, 7),
		date(2025, time.March, 10),
		date(2025, time.March, 11),
	}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(dates), dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Fatalf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
	if last == nil || !last.Equal(want[2]) {
		t.Fatalf("last bill date = %v, want %v", last, want[2])
	}
}

func TestExpandSchedule_DailyStartingOnWeekend(t *testing.T) {
	// A Saturday start slides to Monday without consuming a payment slot.
	dates, _ := ExpandSchedule(date(2025, time.March, 8), domain.RecurDaily, 2)
	want := []time.Time{
		date(2025, time.March, 10),
		date(2025, time.March, 11),
	}
	if len(dates) != 2 || !dates[0].Equal(want[0]) || !dates[1].Equal(want[1]) {
		t.Fatalf("dates = %v, want %v", dates, want)
	}
}

func TestExpandSchedule_WeeklyKeepsWeekends(t *testing.T) {
	// Non-daily kinds bill on whatever day the interval lands on.
	dates, _ := ExpandSchedule(date(2025, time.March, 8), domain.RecurOnceAWeek, 2)
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %v", dates)
	}
	if !dates[0].Equal(date(2025, time.March, 8)) || !dates[1].Equal(date(2025, time.March, 15)) {
		t.Fatalf("weekly dates = %v", dates)
	}
}

func TestExpandSchedule_MonthlyClampsEndOfMonth(t *testing.T) {
	dates, last := ExpandSchedule(date(2025, time.January, 31), domain.RecurMonthly, 2)
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %v", dates)
	}
	if !dates[0].Equal(date(2025, time.January, 31)) {
		t.Fatalf("dates[0] = %v", dates[0])
	}
	if !dates[1].Equal(date(2025, time.February, 28)) {
		t.Fatalf("dates[1] = %v, want Feb 28", dates[1])
	}
	if last == nil || !last.Equal(dates[1]) {
		t.Fatalf("last = %v, want %v", last, dates[1])
	}
}

func TestExpandSchedule_NonPositiveCount(t *testing.T) {
	dates, last := ExpandSchedule(date(2025, time.March, 10), domain.RecurDaily, 0)
	if dates != nil || last != nil {
		t.Fatalf("expected empty expansion, got dates=%v last=%v", dates, last)
	}
	dates, last = ExpandSchedule(date(2025, time.March, 10), domain.RecurDaily, -3)
	if dates != nil || last != nil {
		t.Fatalf("expected empty expansion for negative count, got dates=%v last=%v", dates, last)
	}
}

func TestNextBillDate(t *testing.T) {
	// Weekend first payments are due the following Monday.
	if got := NextBillDate(date(2025, time.March, 8)); !got.Equal(date(2025, time.March, 10)) {
		t.Fatalf("NextBillDate(Saturday) = %v", got)
	}
	if got := NextBillDate(date(2025, time.March, 12)); !got.Equal(date(2025, time.March, 12)) {
		t.Fatalf("NextBillDate(weekday) = %v, want unchanged", got)
	}
}
