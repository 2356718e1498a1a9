package app

import (
	"errors"
	"testing"

	"github.com/achpay/payments-service/internal/domain"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		name    string
		current domain.ScheduleStatus
		action  domain.ScheduleAction
		want    domain.ScheduleStatus
		wantErr bool
	}{
		{"active pause", domain.ScheduleActive, domain.ActionPause, domain.SchedulePaused, false},
		{"active stop", domain.ScheduleActive, domain.ActionStop, domain.ScheduleStopped, false},
		{"paused resume", domain.SchedulePaused, domain.ActionResume, domain.ScheduleActive, false},
		{"paused stop", domain.SchedulePaused, domain.ActionStop, domain.ScheduleStopped, false},
		{"active resume rejected", domain.ScheduleActive, domain.ActionResume, "", true},
		{"paused pause rejected", domain.SchedulePaused, domain.ActionPause, "", true},
		{"stopped pause rejected", domain.ScheduleStopped, domain.ActionPause, "", true},
		{"stopped resume rejected", domain.ScheduleStopped, domain.ActionResume, "", true},
		{"stopped stop rejected", domain.ScheduleStopped, domain.ActionStop, "", true},
		{"unknown action rejected", domain.ScheduleActive, domain.ScheduleAction("archive"), "", true},
	}
	for _, tc := range cases {
		got, err := Transition(tc.current, tc.action)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got status %q", tc.name, got)
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s: expected ErrInvalidTransition, got %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: Transition = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestParseScheduleAction(t *testing.T) {
	for raw, want := range map[string]domain.ScheduleAction{
		"pause":  domain.ActionPause,
		"Resume": domain.ActionResume,
		" STOP ": domain.ActionStop,
	} {
		got, err := ParseScheduleAction(raw)
		if err != nil {
			t.Fatalf("ParseScheduleAction(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseScheduleAction(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := ParseScheduleAction("restart"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestParseScheduleStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.ScheduleStatus
	}{
		{"paused", domain.SchedulePaused},
		{"Pause", domain.SchedulePaused},
		{"stopped", domain.ScheduleStopped},
		{"stop", domain.ScheduleStopped},
		{"active", domain.ScheduleActive},
		{"", domain.ScheduleActive},
		{"garbage", domain.ScheduleActive},
	}
	for _, tc := range cases {
		if got := ParseScheduleStatus(tc.raw); got != tc.want {
			t.Fatalf("ParseScheduleStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
