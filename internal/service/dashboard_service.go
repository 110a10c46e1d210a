package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/isp-support/internal/analytics"
	"github.com/spec-kit/isp-support/internal/cache"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/repository"
	"github.com/spec-kit/isp-support/internal/sla"
)

const (
	recentTicketsOverview = 10
	recentTicketsLive     = 5
	topAgentCount         = 5
	insightRows           = 10
	volumeDays            = 7
)

// DashboardService builds the reporting views.
type DashboardService struct {
	repos     repository.Repositories
	evaluator *sla.Evaluator
	cache     *cache.Dashboard
	logger    *zap.Logger
	now       Clock
	location  *time.Location
}

// DashboardDependencies bundles collaborators for the dashboard service.
type DashboardDependencies struct {
	Repos     repository.Repositories
	Evaluator *sla.Evaluator
	Cache     *cache.Dashboard
	Logger    *zap.Logger
	Clock     Clock
	Location  *time.Location
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	s := &DashboardService{
		repos:     deps.Repos,
		evaluator: deps.Evaluator,
		cache:     deps.Cache,
		logger:    deps.Logger,
		now:       deps.Clock,
		location:  deps.Location,
	}
	if s.evaluator == nil {
		s.evaluator = sla.NewEvaluator(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.location == nil {
		s.location = time.UTC
	}
	return s
}

// KPIs are the headline figures of the overview.
type KPIs struct {
	TotalTickets     int     `json:"total_tickets"`
	TicketChange     float64 `json:"ticket_change"`
	TicketPositive   bool    `json:"ticket_positive"`
	OpenIssues       int     `json:"open_issues"`
	OpenChange       float64 `json:"open_change"`
	OpenPositive     bool    `json:"open_positive"`
	ResolutionRate   int     `json:"resolution_rate"`
	AvgResponseHours float64 `json:"avg_response_hours"`
	TotalCustomers   int     `json:"total_customers"`
	ActiveCustomers  int     `json:"active_customers"`
}

// RecentTicket is the compact ticket row shown on dashboards.
type RecentTicket struct {
	ID           int64                 `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	Subject      string                `json:"subject"`
	CustomerName string                `json:"customer_name"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	Category     domain.TicketCategory `json:"category"`
	AssignedTo   *string               `json:"assigned_to"`
	CreatedAt    time.Time             `json:"created_at"`
	AgeMinutes   int                   `json:"age_minutes"`
	IsOverdue    bool                  `json:"is_overdue"`
}

// Overview is the main dashboard payload.
type Overview struct {
	KPIs          KPIs                          `json:"kpis"`
	TicketVolume  []analytics.DayCount          `json:"ticket_volume"`
	RecentTickets []RecentTicket                `json:"recent_tickets"`
	ByPriority    map[domain.TicketPriority]int `json:"by_priority"`
	ByStatus      map[domain.TicketStatus]int   `json:"by_status"`
	ByCategory    []analytics.CategoryCount     `json:"by_category"`
	TopAgents     []analytics.AgentStats        `json:"agent_performance"`
	SLABreaches   analytics.BreachSummary       `json:"sla_breaches"`
}

// LiveStats are the status counters of the live view.
type LiveStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	OnHold     int `json:"on_hold"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
	Critical   int `json:"critical"`
}

// LiveData is the payload polled by the dashboard for refreshes.
type LiveData struct {
	Stats         LiveStats               `json:"stats"`
	SLABreaches   analytics.BreachSummary `json:"sla_breaches"`
	RecentTickets []RecentTicket          `json:"recent_tickets"`
}

// SLAReport is the per-priority compliance view.
type SLAReport struct {
	Priorities  []analytics.PriorityCompliance `json:"priorities"`
	GeneratedAt time.Time                      `json:"generated_at"`
}

// PerformanceReport lists every agent with the category breakdown.
type PerformanceReport struct {
	Agents            []analytics.AgentStats    `json:"agent_stats"`
	CategoryBreakdown []analytics.CategoryCount `json:"category_breakdown"`
}

// Insights is the customer-centric analytics view.
type Insights struct {
	TopByTickets            []analytics.CustomerVolume    `json:"top_by_tickets"`
	NeedsAttention          []analytics.CustomerVolume    `json:"needs_attention"`
	NewCustomersThisMonth   int                           `json:"new_customers_this_month"`
	CustomerStatusBreakdown map[domain.CustomerStatus]int `json:"customer_status_breakdown"`
}

type snapshot struct {
	tickets   []domain.Ticket
	customers []domain.Customer
	users     []domain.User
}

// load fetches the requested collections concurrently.
func (s *DashboardService) load(ctx context.Context, withCustomers, withUsers bool) (*snapshot, error) {
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tickets, err := s.repos.Tickets.ListAll(gctx, nil)
		snap.tickets = tickets
		return err
	})
	if withCustomers {
		g.Go(func() error {
			customers, err := s.repos.Customers.ListAll(gctx)
			snap.customers = customers
			return err
		})
	}
	if withUsers {
		g.Go(func() error {
			users, err := s.repos.Users.ListOperators(gctx)
			snap.users = users
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failure(s.logger, "load dashboard", err)
	}
	return snap, nil
}

// Overview builds the main dashboard.
func (s *DashboardService) Overview(ctx context.Context) (*Overview, error) {
	return cache.Remember(ctx, s.cache, cache.KeyDashboardOverview, func(ctx context.Context) (*Overview, error) {
		snap, err := s.load(ctx, true, true)
		if err != nil {
			return nil, err
		}
		now := s.now().In(s.location)
		weekAgo := now.AddDate(0, 0, -7)
		tickets := snap.tickets

		total := len(tickets)
		totalLastWeek := analytics.CreatedBetween(tickets, time.Time{}, weekAgo)
		open := analytics.CountActive(tickets)
		openLastWeek := analytics.ActiveCreatedBetween(tickets, time.Time{}, weekAgo)
		ticketChange := analytics.WeekOverWeekChange(total, totalLastWeek)
		openChange := analytics.WeekOverWeekChange(open, openLastWeek)

		avgResponse := 0.0
		if avg := analytics.AverageHours(analytics.ResponseSamples(tickets)); avg != nil {
			avgResponse = *avg
		}
		customersByStatus := analytics.CustomersByStatus(snap.customers)

		return &Overview{
			KPIs: KPIs{
				TotalTickets:     total,
				TicketChange:     ticketChange,
				TicketPositive:   ticketChange >= 0,
				OpenIssues:       open,
				OpenChange:       openChange,
				OpenPositive:     openChange <= 0,
				ResolutionRate:   analytics.ResolutionRate(analytics.CountDone(tickets), total),
				AvgResponseHours: avgResponse,
				TotalCustomers:   len(snap.customers),
				ActiveCustomers:  customersByStatus[domain.CustomerStatusActive],
			},
			TicketVolume:  analytics.DailyVolume(tickets, now, volumeDays),
			RecentTickets: s.recent(tickets, now, recentTicketsOverview),
			ByPriority:    analytics.CountByPriority(tickets),
			ByStatus:      analytics.CountByStatus(tickets),
			ByCategory:    analytics.CategoryBreakdown(tickets),
			TopAgents:     topAssigned(analytics.AgentPerformance(tickets, snap.users), topAgentCount),
			SLABreaches:   analytics.Breaches(tickets, s.evaluator.Policy(), now),
		}, nil
	})
}

// LiveData returns the counters polled for live refresh.
func (s *DashboardService) LiveData(ctx context.Context) (*LiveData, error) {
	return cache.Remember(ctx, s.cache, cache.KeyDashboardLive, func(ctx context.Context) (*LiveData, error) {
		snap, err := s.load(ctx, false, false)
		if err != nil {
			return nil, err
		}
		now := s.now().In(s.location)
		byStatus := analytics.CountByStatus(snap.tickets)
		return &LiveData{
			Stats: LiveStats{
				Total:      len(snap.tickets),
				Open:       byStatus[domain.TicketStatusOpen],
				InProgress: byStatus[domain.TicketStatusInProgress],
				OnHold:     byStatus[domain.TicketStatusOnHold],
				Resolved:   byStatus[domain.TicketStatusResolved],
				Closed:     byStatus[domain.TicketStatusClosed],
				Critical:   analytics.CountByPriority(snap.tickets)[domain.TicketPriorityCritical],
			},
			SLABreaches:   analytics.Breaches(snap.tickets, s.evaluator.Policy(), now),
			RecentTickets: s.recent(snap.tickets, now, recentTicketsLive),
		}, nil
	})
}

// SLAReport evaluates compliance per priority.
func (s *DashboardService) SLAReport(ctx context.Context) (*SLAReport, error) {
	return cache.Remember(ctx, s.cache, cache.KeyDashboardSLA, func(ctx context.Context) (*SLAReport, error) {
		snap, err := s.load(ctx, false, false)
		if err != nil {
			return nil, err
		}
		now := s.now()
		return &SLAReport{
			Priorities:  analytics.Compliance(snap.tickets, s.evaluator, now),
			GeneratedAt: now,
		}, nil
	})
}

// Performance reports every agent, including those with no assignments.
func (s *DashboardService) Performance(ctx context.Context) (*PerformanceReport, error) {
	return cache.Remember(ctx, s.cache, cache.KeyDashboardPerformance, func(ctx context.Context) (*PerformanceReport, error) {
		snap, err := s.load(ctx, false, true)
		if err != nil {
			return nil, err
		}
		return &PerformanceReport{
			Agents:            analytics.AgentPerformance(snap.tickets, snap.users),
			CategoryBreakdown: analytics.CategoryBreakdown(snap.tickets),
		}, nil
	})
}

// Insights summarises ticket volume per customer.
func (s *DashboardService) Insights(ctx context.Context) (*Insights, error) {
	return cache.Remember(ctx, s.cache, cache.KeyDashboardInsights, func(ctx context.Context) (*Insights, error) {
		snap, err := s.load(ctx, true, false)
		if err != nil {
			return nil, err
		}
		now := s.now().In(s.location)
		return &Insights{
			TopByTickets:            analytics.TopCustomers(snap.tickets, insightRows),
			NeedsAttention:          analytics.NeedsAttention(snap.tickets, insightRows),
			NewCustomersThisMonth:   analytics.CustomersCreatedInMonth(snap.customers, now),
			CustomerStatusBreakdown: analytics.CustomersByStatus(snap.customers),
		}, nil
	})
}

// InvalidateOnChanges drops cached dashboards whenever a ticket or customer changes.
func (s *DashboardService) InvalidateOnChanges(dispatcher events.Dispatcher) {
	invalidate := func(ctx context.Context, _ events.Event) error {
		return s.cache.Invalidate(ctx)
	}
	events.SubscribeTicketEvents(dispatcher, invalidate)
	events.SubscribeCustomerEvents(dispatcher, invalidate)
}

func (s *DashboardService) recent(tickets []domain.Ticket, now time.Time, n int) []RecentTicket {
	sorted := make([]domain.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]RecentTicket, 0, len(sorted))
	for i := range sorted {
		t := &sorted[i]
		out = append(out, RecentTicket{
			ID:           t.ID,
			TicketNumber: t.TicketNumber,
			Subject:      t.Subject,
			CustomerName: t.CustomerName,
			Status:       t.Status,
			Priority:     t.Priority,
			Category:     t.Category,
			AssignedTo:   t.AssignedTo,
			CreatedAt:    t.CreatedAt,
			AgeMinutes:   t.AgeMinutes(now),
			IsOverdue:    s.evaluator.IsOverdue(t, now),
		})
	}
	return out
}

// topAssigned keeps agents with at least one assignment.
func topAssigned(stats []analytics.AgentStats, n int) []analytics.AgentStats {
	out := make([]analytics.AgentStats, 0, n)
	for _, row := range stats {
		if row.TotalAssigned == 0 {
			break
		}
		out = append(out, row)
	}
	return analytics.TopAgents(out, n)
}
