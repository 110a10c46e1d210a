package sla

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/isp-support/internal/domain"
)

// Status is the compliance classification of one metric.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusOnTrack    Status = "on-track"
	StatusAtRisk     Status = "at-risk"
	StatusMet        Status = "met"
	StatusBreached   Status = "breached"
)

// atRiskRatio is the share of the target after which a live metric is at risk.
const atRiskRatio = 0.8

// Metric is one evaluated SLA dimension.
type Metric struct {
	Status         Status  `json:"status"`
	ElapsedMinutes int     `json:"elapsed_minutes"`
	TargetMinutes  int     `json:"target_minutes"`
	Percentage     float64 `json:"percentage"`
	Final          bool    `json:"final"`
}

// Evaluation bundles both metrics for a ticket.
type Evaluation struct {
	Priority   domain.TicketPriority `json:"priority"`
	Response   Metric                `json:"response"`
	Resolution Metric                `json:"resolution"`
}

// Evaluator classifies ticket snapshots against a policy.
type Evaluator struct {
	policy Policy
}

// NewEvaluator builds an evaluator; a nil policy means DefaultPolicy.
func NewEvaluator(policy Policy) *Evaluator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Evaluator{policy: policy}
}

// Policy exposes the table the evaluator was built with.
func (e *Evaluator) Policy() Policy {
	return e.policy
}

// Evaluate computes both metrics at now.
func (e *Evaluator) Evaluate(t *domain.Ticket, now time.Time) Evaluation {
	return Evaluation{
		Priority:   t.Priority,
		Response:   e.Response(t, now),
		Resolution: e.Resolution(t, now),
	}
}

// Response is frozen once work has started. Before that the live elapsed time
// since creation is classified, so an unstarted ticket can still breach.
func (e *Evaluator) Response(t *domain.Ticket, now time.Time) Metric {
	target := e.policy.Target(t.Priority).ResponseMinutes
	if t.StartedAt != nil && t.ResponseTimeMinutes != nil {
		return final(*t.ResponseTimeMinutes, target)
	}
	return live(t.AgeMinutes(now), target)
}

// Resolution is not-started until work begins and frozen once resolved.
func (e *Evaluator) Resolution(t *domain.Ticket, now time.Time) Metric {
	target := e.policy.Target(t.Priority).ResolutionMinutes
	if t.StartedAt == nil {
		return Metric{Status: StatusNotStarted, TargetMinutes: target}
	}
	if t.Status.IsDone() && t.ResolutionTimeMinutes != nil {
		return final(*t.ResolutionTimeMinutes, target)
	}
	return live(t.ActiveMinutes(now), target)
}

// IsOverdue reports whether an unresolved ticket is older than its breach threshold.
func (e *Evaluator) IsOverdue(t *domain.Ticket, now time.Time) bool {
	if t.Status.IsDone() {
		return false
	}
	return t.AgeMinutes(now) > e.policy.BreachThresholdMinutes(t.Priority)
}

func final(elapsed, target int) Metric {
	m := Metric{ElapsedMinutes: elapsed, TargetMinutes: target, Percentage: percentage(elapsed, target), Final: true}
	if elapsed <= target {
		m.Status = StatusMet
	} else {
		m.Status = StatusBreached
	}
	return m
}

func live(elapsed, target int) Metric {
	m := Metric{ElapsedMinutes: elapsed, TargetMinutes: target, Percentage: percentage(elapsed, target)}
	switch {
	case elapsed > target:
		m.Status = StatusBreached
	case target > 0 && float64(elapsed)/float64(target) > atRiskRatio:
		m.Status = StatusAtRisk
	default:
		m.Status = StatusOnTrack
	}
	return m
}

func percentage(elapsed, target int) float64 {
	if target <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(elapsed) * 100).
		Div(decimal.NewFromInt(int64(target))).
		Round(1).
		InexactFloat64()
}
