// Package sla holds the response and resolution targets per priority and
// classifies tickets against them.
package sla

import "github.com/spec-kit/isp-support/internal/domain"

// Target is the pair of time bounds for one priority, in minutes.
type Target struct {
	ResponseMinutes   int `json:"response_minutes"`
	ResolutionMinutes int `json:"resolution_minutes"`
}

// Policy maps priorities to targets. Treat it as read-only once built.
type Policy map[domain.TicketPriority]Target

// DefaultPolicy returns the canonical table used across the service.
func DefaultPolicy() Policy {
	return Policy{
		domain.TicketPriorityCritical: {ResponseMinutes: 60, ResolutionMinutes: 240},
		domain.TicketPriorityHigh:     {ResponseMinutes: 240, ResolutionMinutes: 1440},
		domain.TicketPriorityMedium:   {ResponseMinutes: 480, ResolutionMinutes: 4320},
		domain.TicketPriorityLow:      {ResponseMinutes: 1440, ResolutionMinutes: 10080},
	}
}

// Target returns the targets for p. Unknown priorities fall back to Low,
// the most lenient entry.
func (p Policy) Target(priority domain.TicketPriority) Target {
	if t, ok := p[priority]; ok {
		return t
	}
	return p[domain.TicketPriorityLow]
}

// BreachThresholdMinutes is the age after which an unresolved ticket counts as breached.
func (p Policy) BreachThresholdMinutes(priority domain.TicketPriority) int {
	return p.Target(priority).ResolutionMinutes
}
