package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-support/internal/analytics"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/observability"
	"github.com/spec-kit/isp-support/internal/repository"
	"github.com/spec-kit/isp-support/internal/sla"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	repos      repository.Repositories
	tx         repository.TxRunner
	dispatcher events.Dispatcher
	evaluator  *sla.Evaluator
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
	location   *time.Location
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Repos      repository.Repositories
	Tx         repository.TxRunner
	Dispatcher events.Dispatcher
	Evaluator  *sla.Evaluator
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      Clock
	// Location is used when rendering export timestamps. Defaults to UTC.
	Location *time.Location
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerID      *int64
	CustomerName    string
	AccountNumber   string
	Phone           string
	Email           *string
	Subject         string
	TicketType      domain.TicketType
	EscalationLevel domain.EscalationLevel
	Priority        domain.TicketPriority
	Category        domain.TicketCategory
	Description     string
	AssignedTo      *string
	AssignedUserID  *int64
	InitialNote     *string
}

func (in *TicketCreateInput) validate() error {
	errs := fieldErrors{}
	errs.require("customer_name", in.CustomerName)
	errs.require("phone", in.Phone)
	errs.require("subject", in.Subject)
	errs.require("description", in.Description)
	if _, ok := domain.ParseTicketType(string(in.TicketType)); !ok {
		errs["ticket_type"] = "ticket_type is invalid"
	}
	if _, ok := domain.ParseTicketPriority(string(in.Priority)); !ok {
		errs["priority"] = "priority is invalid"
	}
	if _, ok := domain.ParseTicketCategory(string(in.Category)); !ok {
		errs["category"] = "category is invalid"
	}
	if in.EscalationLevel != "" {
		if _, ok := domain.ParseEscalationLevel(string(in.EscalationLevel)); !ok {
			errs["escalation_level"] = "escalation_level is invalid"
		}
	}
	return errs.err()
}

// TicketPatch carries the editable ticket fields. Nil means unchanged.
type TicketPatch struct {
	Subject     *string
	TicketType  *domain.TicketType
	Priority    *domain.TicketPriority
	Category    *domain.TicketCategory
	Description *string
	AssignedTo  *string
	Phone       *string
	Email       *string
}

// TicketListQuery is the list request after HTTP parsing.
type TicketListQuery struct {
	Filter  repository.TicketFilter
	Page    int
	PerPage int
}

// TicketList is a page of tickets plus the header counters.
type TicketList struct {
	Page[domain.Ticket]
	Stats repository.TicketHeaderStats `json:"stats"`
}

// TicketStatistics summarises every live ticket.
type TicketStatistics struct {
	Total                int                           `json:"total"`
	Open                 int                           `json:"open"`
	InProgress           int                           `json:"in_progress"`
	OnHold               int                           `json:"on_hold"`
	Resolved             int                           `json:"resolved"`
	Closed               int                           `json:"closed"`
	Critical             int                           `json:"critical"`
	ByStatus             map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority           map[domain.TicketPriority]int `json:"by_priority"`
	ByCategory           map[domain.TicketCategory]int `json:"by_category"`
	AvgResolutionMinutes *int                          `json:"avg_resolution_minutes"`
}

// TicketSLA is the evaluator output for one ticket.
type TicketSLA struct {
	TicketNumber string              `json:"ticket_number"`
	Status       domain.TicketStatus `json:"status"`
	IsOverdue    bool                `json:"is_overdue"`
	sla.Evaluation
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		repos:      deps.Repos,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
		evaluator:  deps.Evaluator,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
		location:   deps.Location,
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

// Create registers a ticket, links its customer and stores the optional
// initial note in the same transaction.
func (s *TicketService) Create(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		CustomerName:    strings.TrimSpace(input.CustomerName),
		AccountNumber:   strings.TrimSpace(input.AccountNumber),
		Phone:           strings.TrimSpace(input.Phone),
		Email:           trimmed(input.Email),
		Subject:         strings.TrimSpace(input.Subject),
		TicketType:      input.TicketType,
		EscalationLevel: input.EscalationLevel,
		Priority:        input.Priority,
		Category:        input.Category,
		Description:     strings.TrimSpace(input.Description),
		AssignedTo:      trimmed(input.AssignedTo),
		Status:          domain.TicketStatusOpen,
		CreatedAt:       now,
	}
	if ticket.EscalationLevel == "" {
		ticket.EscalationLevel = domain.EscalationLevel1
	}
	initialNote := trimmed(input.InitialNote)

	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := s.linkCustomer(ctx, r, ticket, input.CustomerID); err != nil {
			return err
		}
		if input.AssignedUserID != nil {
			user, err := activeAssignee(ctx, r, *input.AssignedUserID)
			if err != nil {
				return err
			}
			ticket.AssignedUserID = &user.ID
			ticket.AssignedTo = &user.Name
		}

		n, err := r.Sequences.Next(ctx, repository.TicketNumberSeq)
		if err != nil {
			return err
		}
		ticket.TicketNumber = domain.FormatTicketNumber(n)
		if err := r.Tickets.Create(ctx, ticket); err != nil {
			return err
		}

		if initialNote != nil {
			note := &domain.TicketNote{
				TicketID:   ticket.ID,
				UserID:     actor.UserID,
				AuthorName: actor.authorName(),
				Note:       *initialNote,
				IsInternal: false,
				CreatedAt:  now,
			}
			if err := r.Notes.Create(ctx, note); err != nil {
				return err
			}
			ticket.Notes = append(ticket.Notes, *note)
		}
		return nil
	})
	if err != nil {
		return nil, failure(s.logger, "create ticket", err)
	}

	s.publish(ctx, events.NewTicketEvent(events.EventTicketCreated, ticket, actor.eventActor(), now, events.TicketCreatedPayload{
		Priority:     ticket.Priority,
		Category:     ticket.Category,
		Subject:      ticket.Subject,
		CustomerName: ticket.CustomerName,
	}))
	return ticket, nil
}

// linkCustomer resolves the explicit customer id, or else the account number.
func (s *TicketService) linkCustomer(ctx context.Context, r repository.Repositories, ticket *domain.Ticket, customerID *int64) error {
	if customerID != nil {
		customer, err := r.Customers.GetByID(ctx, *customerID)
		if isNoRows(err) {
			return apperrors.NewFieldError("customer_id", "customer_id does not reference an existing customer")
		}
		if err != nil {
			return err
		}
		ticket.CustomerID = &customer.ID
		if ticket.AccountNumber == "" {
			ticket.AccountNumber = customer.AccountNumber
		}
		return nil
	}
	if ticket.AccountNumber == "" {
		return nil
	}
	customer, err := r.Customers.GetByAccountNumber(ctx, ticket.AccountNumber)
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return err
	}
	ticket.CustomerID = &customer.ID
	return nil
}

// GetByNumber returns the ticket with its notes in creation order and its customer.
func (s *TicketService) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	ticket, err := s.repos.Tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, failure(s.logger, "get ticket", notFound(err, "ticket", ticketRef(number)))
	}
	return s.hydrate(ctx, ticket)
}

// GetByID is GetByNumber keyed by the numeric id.
func (s *TicketService) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.logger, "get ticket", notFound(err, "ticket", map[string]any{"id": id}))
	}
	return s.hydrate(ctx, ticket)
}

func (s *TicketService) hydrate(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	notes, err := s.repos.Notes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, failure(s.logger, "list notes", err)
	}
	ticket.Notes = notes
	if ticket.CustomerID != nil {
		customer, err := s.repos.Customers.GetByID(ctx, *ticket.CustomerID)
		if err != nil && !isNoRows(err) {
			return nil, failure(s.logger, "get customer", err)
		}
		ticket.Customer = customer
	}
	return ticket, nil
}

// List returns one page of tickets with the header counters.
func (s *TicketService) List(ctx context.Context, query TicketListQuery) (*TicketList, error) {
	filter := query.Filter
	var page, perPage int
	filter.Page, page, perPage = Pagination(query.Page, query.PerPage)

	items, total, err := s.repos.Tickets.List(ctx, filter)
	if err != nil {
		return nil, failure(s.logger, "list tickets", err)
	}
	stats, err := s.repos.Tickets.HeaderStats(ctx)
	if err != nil {
		return nil, failure(s.logger, "ticket stats", err)
	}
	if items == nil {
		items = []domain.Ticket{}
	}
	return &TicketList{
		Page:  Page[domain.Ticket]{Items: items, Total: total, Page: page, PerPage: perPage},
		Stats: stats,
	}, nil
}

// Update applies a partial edit. Status changes go through the lifecycle operations.
func (s *TicketService) Update(ctx context.Context, number string, patch TicketPatch) (*domain.Ticket, error) {
	errs := fieldErrors{}
	if patch.TicketType != nil {
		if _, ok := domain.ParseTicketType(string(*patch.TicketType)); !ok {
			errs["ticket_type"] = "ticket_type is invalid"
		}
	}
	if patch.Priority != nil {
		if _, ok := domain.ParseTicketPriority(string(*patch.Priority)); !ok {
			errs["priority"] = "priority is invalid"
		}
	}
	if patch.Category != nil {
		if _, ok := domain.ParseTicketCategory(string(*patch.Category)); !ok {
			errs["category"] = "category is invalid"
		}
	}
	if patch.Subject != nil {
		errs.require("subject", *patch.Subject)
	}
	if patch.Description != nil {
		errs.require("description", *patch.Description)
	}
	if patch.Phone != nil {
		errs.require("phone", *patch.Phone)
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	ticket, err := s.repos.Tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, failure(s.logger, "get ticket", notFound(err, "ticket", ticketRef(number)))
	}
	if patch.Subject != nil {
		ticket.Subject = strings.TrimSpace(*patch.Subject)
	}
	if patch.TicketType != nil {
		ticket.TicketType = *patch.TicketType
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.Category != nil {
		ticket.Category = *patch.Category
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.AssignedTo != nil {
		name := trimmed(patch.AssignedTo)
		// A free-text assignee is not linked to a user; use Assign for that.
		if !sameName(ticket.AssignedTo, name) {
			ticket.AssignedUserID = nil
		}
		ticket.AssignedTo = name
	}
	if patch.Phone != nil {
		ticket.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Email != nil {
		ticket.Email = trimmed(patch.Email)
	}
	ticket.UpdatedAt = s.now()

	if err := s.repos.Tickets.Update(ctx, ticket); err != nil {
		return nil, failure(s.logger, "update ticket", err)
	}
	return ticket, nil
}

// Delete soft-deletes the ticket. Its notes are retained.
func (s *TicketService) Delete(ctx context.Context, number string) error {
	ticket, err := s.repos.Tickets.GetByNumber(ctx, number)
	if err != nil {
		return failure(s.logger, "get ticket", notFound(err, "ticket", ticketRef(number)))
	}
	if err := s.repos.Tickets.SoftDelete(ctx, ticket.ID, s.now()); err != nil {
		return failure(s.logger, "delete ticket", notFound(err, "ticket", ticketRef(number)))
	}
	return nil
}

// SLA evaluates the response and resolution metrics at the current time.
func (s *TicketService) SLA(ctx context.Context, number string) (*TicketSLA, error) {
	ticket, err := s.repos.Tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, failure(s.logger, "get ticket", notFound(err, "ticket", ticketRef(number)))
	}
	now := s.now()
	return &TicketSLA{
		TicketNumber: ticket.TicketNumber,
		Status:       ticket.Status,
		IsOverdue:    s.evaluator.IsOverdue(ticket, now),
		Evaluation:   s.evaluator.Evaluate(ticket, now),
	}, nil
}

// Evaluate classifies t against the SLA policy at the current time.
func (s *TicketService) Evaluate(t *domain.Ticket) sla.Evaluation {
	return s.evaluator.Evaluate(t, s.now())
}

// Statistics aggregates every live ticket.
func (s *TicketService) Statistics(ctx context.Context) (*TicketStatistics, error) {
	tickets, err := s.repos.Tickets.ListAll(ctx, nil)
	if err != nil {
		return nil, failure(s.logger, "ticket statistics", err)
	}
	byStatus := analytics.CountByStatus(tickets)
	byPriority := analytics.CountByPriority(tickets)
	stats := &TicketStatistics{
		Total:      len(tickets),
		Open:       byStatus[domain.TicketStatusOpen],
		InProgress: byStatus[domain.TicketStatusInProgress],
		OnHold:     byStatus[domain.TicketStatusOnHold],
		Resolved:   byStatus[domain.TicketStatusResolved],
		Closed:     byStatus[domain.TicketStatusClosed],
		Critical:   byPriority[domain.TicketPriorityCritical],
		ByStatus:   byStatus,
		ByPriority: byPriority,
		ByCategory: analytics.CountByCategory(tickets),
	}
	if samples := analytics.ResolutionSamples(tickets); len(samples) > 0 {
		avg := analytics.AverageMinutes(samples)
		stats.AvgResolutionMinutes = &avg
	}
	return stats, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func ticketRef(number string) map[string]any {
	return map[string]any{"ticket_number": number}
}

func sameName(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
