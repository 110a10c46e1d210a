package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// Transition names reported in errors, notes and metrics.
const (
	TransitionStartWorking = "start_working"
	TransitionPutOnHold    = "put_on_hold"
	TransitionResume       = "resume"
	TransitionResolve      = "resolve"
	TransitionClose        = "close"
	TransitionEscalate     = "escalate"
)

// StartWorking moves an Open ticket into In Progress and freezes the response time.
func (t *Ticket) StartWorking(now time.Time) error {
	if t.Status != TicketStatusOpen || t.StartedAt != nil {
		return apperrors.NewInvalidTransition(TransitionStartWorking, string(t.Status))
	}
	started := now
	t.StartedAt = &started
	if t.FirstResponseAt == nil {
		t.FirstResponseAt = &started
	}
	response := minutesBetween(t.CreatedAt, now)
	t.ResponseTimeMinutes = &response
	t.Status = TicketStatusInProgress
	return nil
}

// PutOnHold pauses the resolution timer.
func (t *Ticket) PutOnHold(now time.Time) error {
	if t.Status != TicketStatusInProgress {
		return apperrors.NewInvalidTransition(TransitionPutOnHold, string(t.Status))
	}
	paused := now
	t.PausedAt = &paused
	t.Status = TicketStatusOnHold
	return nil
}

// Resume restarts the resolution timer and returns the minutes spent on hold.
func (t *Ticket) Resume(now time.Time) (int, error) {
	if t.Status != TicketStatusOnHold || t.PausedAt == nil {
		return 0, apperrors.NewInvalidTransition(TransitionResume, string(t.Status))
	}
	held := t.releasePause(now)
	t.Status = TicketStatusInProgress
	return held, nil
}

// Resolve finalizes the active work time and returns it in minutes.
// A ticket on hold is resolved directly; the open pause counts as paused time.
func (t *Ticket) Resolve(now time.Time, summary string) (int, error) {
	if t.Status != TicketStatusInProgress && t.Status != TicketStatusOnHold {
		return 0, apperrors.NewInvalidTransition(TransitionResolve, string(t.Status))
	}
	if t.StartedAt == nil {
		return 0, apperrors.NewInvalidTransition(TransitionResolve, string(t.Status))
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return 0, apperrors.NewFieldError("resolution_summary", "resolution_summary is required to resolve a ticket")
	}

	if t.Status == TicketStatusOnHold {
		t.releasePause(now)
	}
	resolution := minutesBetween(*t.StartedAt, now) - t.TotalPausedMinutes
	if resolution < 0 {
		resolution = 0
	}
	resolved := now
	t.ResolvedAt = &resolved
	t.ResolutionTimeMinutes = &resolution
	t.ResolutionSummary = &summary
	t.Status = TicketStatusResolved
	return resolution, nil
}

// Close archives a resolved ticket.
func (t *Ticket) Close(now time.Time) error {
	if t.Status != TicketStatusResolved {
		return apperrors.NewInvalidTransition(TransitionClose, string(t.Status))
	}
	closed := now
	t.ClosedAt = &closed
	t.Status = TicketStatusClosed
	return nil
}

// Escalate changes the escalation level and returns the previous one.
// Reaching the highest level forces Critical priority. Status is untouched.
func (t *Ticket) Escalate(level EscalationLevel, reason string) (EscalationLevel, error) {
	if t.Status == TicketStatusClosed {
		return "", apperrors.NewInvalidTransition(TransitionEscalate, string(t.Status))
	}
	if _, ok := ParseEscalationLevel(string(level)); !ok {
		return "", apperrors.NewFieldError("escalation_level", "escalation_level must be one of Level 1, Level 2, Level 3")
	}
	if strings.TrimSpace(reason) == "" {
		return "", apperrors.NewFieldError("reason", "reason is required")
	}
	previous := t.EscalationLevel
	t.EscalationLevel = level
	if level == HighestEscalationLevel {
		t.Priority = TicketPriorityCritical
	}
	return previous, nil
}

// ActiveMinutes is the work time accrued since StartWorking, excluding every pause
// including one still open at now. Resolved and closed tickets report the frozen value.
func (t *Ticket) ActiveMinutes(now time.Time) int {
	if t.StartedAt == nil {
		return 0
	}
	if t.Status.IsDone() && t.ResolutionTimeMinutes != nil {
		return *t.ResolutionTimeMinutes
	}
	paused := t.TotalPausedMinutes
	if t.Status == TicketStatusOnHold && t.PausedAt != nil {
		paused += minutesBetween(*t.PausedAt, now)
	}
	active := minutesBetween(*t.StartedAt, now) - paused
	if active < 0 {
		return 0
	}
	return active
}

// AgeMinutes is the time since creation.
func (t *Ticket) AgeMinutes(now time.Time) int {
	return minutesBetween(t.CreatedAt, now)
}

func (t *Ticket) releasePause(now time.Time) int {
	held := minutesBetween(*t.PausedAt, now)
	t.TotalPausedMinutes += held
	t.PausedAt = nil
	return held
}
