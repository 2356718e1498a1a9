/**
 * @description
 * Status lifecycle for recurring schedules. A schedule is Active, Paused or
 * Stopped; API actions (pause/resume/stop) move it between states. Stopped is
 * terminal: once a schedule stops it can only be deleted, never resumed.
 */

package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/achpay/payments-service/internal/domain"
)

// ErrInvalidTransition reports a status change the state machine does not
// allow: any action against a stopped schedule, or an action whose target
// equals the current status.
var ErrInvalidTransition = errors.New("invalid schedule status transition")

// actionTargets maps each API action to the status it requests.
var actionTargets = map[domain.ScheduleAction]domain.ScheduleStatus{
	domain.ActionPause:  domain.SchedulePaused,
	domain.ActionResume: domain.ScheduleActive,
	domain.ActionStop:   domain.ScheduleStopped,
}

// ParseScheduleAction normalizes a path segment to a schedule action.
func ParseScheduleAction(raw string) (domain.ScheduleAction, error) {
	action := domain.ScheduleAction(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := actionTargets[action]; !ok {
		return "", fmt.Errorf("unknown schedule action %q: allowed values are pause, resume, stop", raw)
	}
	return action, nil
}

// ParseScheduleStatus normalizes caller input to a canonical schedule status.
// Anything unrecognized (including the legacy "Pause" spelling) maps to the
// nearest status; empty input defaults to Active.
func ParseScheduleStatus(raw string) domain.ScheduleStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paused", "pause":
		return domain.SchedulePaused
	case "stopped", "stop":
		return domain.ScheduleStopped
	default:
		return domain.ScheduleActive
	}
}

// Transition validates and applies an action against the current status.
func Transition(current domain.ScheduleStatus, action domain.ScheduleAction) (domain.ScheduleStatus, error) {
	target, ok := actionTargets[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	if current == domain.ScheduleStopped {
		return "", fmt.Errorf("%w: schedule is already stopped", ErrInvalidTransition)
	}
	if current == target {
		return "", fmt.Errorf("%w: schedule is already %s", ErrInvalidTransition, strings.ToLower(string(target)))
	}
	return target, nil
}
