package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/isp-support/internal/domain"
)

var created = time.Date(2025, 11, 28, 9, 0, 0, 0, time.UTC)

func minutes(n int) time.Time {
	return created.Add(time.Duration(n) * time.Minute)
}

func openTicket(priority domain.TicketPriority) *domain.Ticket {
	return &domain.Ticket{Priority: priority, Status: domain.TicketStatusOpen, EscalationLevel: domain.EscalationLevel1, CreatedAt: created}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, Target{60, 240}, p.Target(domain.TicketPriorityCritical))
	assert.Equal(t, Target{240, 1440}, p.Target(domain.TicketPriorityHigh))
	assert.Equal(t, Target{480, 4320}, p.Target(domain.TicketPriorityMedium))
	assert.Equal(t, Target{1440, 10080}, p.Target(domain.TicketPriorityLow))
	assert.Equal(t, 10080, p.Target("Whatever").ResolutionMinutes)
	assert.Equal(t, 240, p.BreachThresholdMinutes(domain.TicketPriorityCritical))
}

func TestExampleScenario(t *testing.T) {
	e := NewEvaluator(nil)
	ticket := openTicket(domain.TicketPriorityCritical)

	require.NoError(t, ticket.StartWorking(minutes(30)))
	resp := e.Response(ticket, minutes(31))
	assert.Equal(t, StatusMet, resp.Status)
	assert.Equal(t, 30, resp.ElapsedMinutes)
	assert.Equal(t, 60, resp.TargetMinutes)
	assert.True(t, resp.Final)

	require.NoError(t, ticket.PutOnHold(minutes(60)))
	_, err := ticket.Resume(minutes(80))
	require.NoError(t, err)
	_, err = ticket.Resolve(minutes(130), "Router replaced")
	require.NoError(t, err)

	res := e.Resolution(ticket, minutes(5000))
	assert.Equal(t, StatusMet, res.Status)
	assert.Equal(t, 80, res.ElapsedMinutes)
	assert.Equal(t, 240, res.TargetMinutes)
}

func TestResolvedAfterTargetIsBreached(t *testing.T) {
	e := NewEvaluator(nil)
	ticket := openTicket(domain.TicketPriorityCritical)
	require.NoError(t, ticket.StartWorking(minutes(90)))
	_, err := ticket.Resolve(minutes(90+241), "late fix")
	require.NoError(t, err)

	ev := e.Evaluate(ticket, minutes(400))
	assert.Equal(t, StatusBreached, ev.Response.Status)
	assert.Equal(t, StatusBreached, ev.Resolution.Status)
	assert.Equal(t, 241, ev.Resolution.ElapsedMinutes)
}

func TestResponseBeforeStartIsLive(t *testing.T) {
	e := NewEvaluator(nil)
	ticket := openTicket(domain.TicketPriorityCritical)

	tests := []struct {
		at   int
		want Status
	}{
		{0, StatusOnTrack},
		{48, StatusOnTrack},
		{49, StatusAtRisk},
		{60, StatusAtRisk},
		{61, StatusBreached},
	}
	for _, tt := range tests {
		m := e.Response(ticket, minutes(tt.at))
		assert.Equal(t, tt.want, m.Status, "elapsed %d", tt.at)
		assert.False(t, m.Final)
		assert.Equal(t, tt.at, m.ElapsedMinutes)
	}
}

func TestResolutionNotStarted(t *testing.T) {
	e := NewEvaluator(nil)
	m := e.Resolution(openTicket(domain.TicketPriorityHigh), minutes(10000))
	assert.Equal(t, StatusNotStarted, m.Status)
	assert.Equal(t, 0, m.ElapsedMinutes)
	assert.Equal(t, 1440, m.TargetMinutes)
}

func TestResolutionLiveExcludesOpenPause(t *testing.T) {
	e := NewEvaluator(nil)
	ticket := openTicket(domain.TicketPriorityCritical)
	require.NoError(t, ticket.StartWorking(minutes(0)))
	require.NoError(t, ticket.PutOnHold(minutes(100)))

	m := e.Resolution(ticket, minutes(1000))
	assert.Equal(t, 100, m.ElapsedMinutes)
	assert.Equal(t, StatusOnTrack, m.Status)

	_, err := ticket.Resume(minutes(1000))
	require.NoError(t, err)
	m = e.Resolution(ticket, minutes(1100))
	assert.Equal(t, 200, m.ElapsedMinutes)
	assert.Equal(t, StatusAtRisk, m.Status)
}

func TestInjectedPolicy(t *testing.T) {
	e := NewEvaluator(Policy{domain.TicketPriorityLow: {ResponseMinutes: 10, ResolutionMinutes: 20}})
	ticket := openTicket(domain.TicketPriorityLow)
	assert.Equal(t, StatusBreached, e.Response(ticket, minutes(11)).Status)
	assert.True(t, e.IsOverdue(ticket, minutes(21)))
	assert.False(t, e.IsOverdue(ticket, minutes(20)))
}

func TestIsOverdueIgnoresDoneTickets(t *testing.T) {
	e := NewEvaluator(nil)
	ticket := openTicket(domain.TicketPriorityCritical)
	require.NoError(t, ticket.StartWorking(minutes(1)))
	assert.True(t, e.IsOverdue(ticket, minutes(241)))

	_, err := ticket.Resolve(minutes(2), "ok")
	require.NoError(t, err)
	assert.False(t, e.IsOverdue(ticket, minutes(100000)))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 50.0, percentage(30, 60))
	assert.Equal(t, 33.3, percentage(1, 3))
	assert.Equal(t, 0.0, percentage(5, 0))
}
