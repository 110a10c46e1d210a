package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/isp-support/internal/cache"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/observability"
	"github.com/spec-kit/isp-support/internal/sla"
)

// Metric names used in breach events and markers.
const (
	MetricResponse   = "response"
	MetricResolution = "resolution"
)

// ActiveTicketLister is the slice of the ticket repository the monitor needs.
type ActiveTicketLister interface {
	ListActive(ctx context.Context) ([]domain.Ticket, error)
}

// SLAMonitorDependencies bundles collaborators for the monitor.
type SLAMonitorDependencies struct {
	Tickets    ActiveTicketLister
	Evaluator  *sla.Evaluator
	Ledger     *cache.BreachLedger
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// SLAMonitor periodically evaluates active tickets and publishes one
// ticket_sla_breached event per ticket and metric.
type SLAMonitor struct {
	tickets    ActiveTicketLister
	evaluator  *sla.Evaluator
	ledger     *cache.BreachLedger
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	timeout    time.Duration

	scheduler *cron.Cron
}

// NewSLAMonitor builds a monitor. Without a ledger, breaches are remembered in process memory.
func NewSLAMonitor(deps SLAMonitorDependencies) *SLAMonitor {
	m := &SLAMonitor{
		tickets:    deps.Tickets,
		evaluator:  deps.Evaluator,
		ledger:     deps.Ledger,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
		timeout:    time.Minute,
	}
	if m.evaluator == nil {
		m.evaluator = sla.NewEvaluator(nil)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.ledger == nil {
		m.ledger = cache.NewBreachLedger(cache.NewMemoryStore(m.now))
	}
	return m
}

// Start schedules the sweep using a cron spec such as "@every 5m".
func (m *SLAMonitor) Start(spec string) error {
	if m.scheduler != nil {
		return fmt.Errorf("sla monitor already started")
	}
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(spec, m.run); err != nil {
		return fmt.Errorf("invalid sla sweep schedule %q: %w", spec, err)
	}
	scheduler.Start()
	m.scheduler = scheduler
	m.logger.Info("sla monitor started", zap.String("schedule", spec))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (m *SLAMonitor) Stop() {
	if m.scheduler == nil {
		return
	}
	<-m.scheduler.Stop().Done()
	m.scheduler = nil
}

func (m *SLAMonitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if _, err := m.Sweep(ctx); err != nil {
		m.logger.Error("sla sweep failed", zap.Error(err))
	}
}

// Sweep evaluates every active ticket once and returns the number of newly reported breaches.
func (m *SLAMonitor) Sweep(ctx context.Context) (int, error) {
	tickets, err := m.tickets.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	reported := 0
	for i := range tickets {
		t := &tickets[i]
		eval := m.evaluator.Evaluate(t, now)
		for _, check := range []struct {
			name   string
			metric sla.Metric
		}{
			{MetricResponse, eval.Response},
			{MetricResolution, eval.Resolution},
		} {
			if check.metric.Status != sla.StatusBreached {
				continue
			}
			fresh, err := m.ledger.MarkBreached(ctx, t.ID, check.name)
			if err != nil {
				m.logger.Warn("breach ledger unavailable", zap.Int64("ticket_id", t.ID), zap.Error(err))
				continue
			}
			if !fresh {
				continue
			}
			reported++
			m.metrics.RecordSLABreach(string(t.Priority), check.name)
			m.publish(ctx, t, check.name, check.metric, now)
		}
	}
	if reported > 0 {
		m.logger.Info("sla sweep reported breaches", zap.Int("count", reported), zap.Int("evaluated", len(tickets)))
	}
	return reported, nil
}

func (m *SLAMonitor) publish(ctx context.Context, t *domain.Ticket, metric string, value sla.Metric, now time.Time) {
	if m.dispatcher == nil {
		return
	}
	event := events.NewTicketEvent(events.EventTicketSLABreached, t, events.Actor{Name: domain.SystemAuthor}, now, events.TicketSLABreachedPayload{
		Metric:         metric,
		Priority:       t.Priority,
		ElapsedMinutes: value.ElapsedMinutes,
		TargetMinutes:  value.TargetMinutes,
	})
	if err := m.dispatcher.Publish(ctx, event); err != nil {
		m.logger.Warn("publish breach event failed", zap.Int64("ticket_id", t.ID), zap.Error(err))
	}
}
