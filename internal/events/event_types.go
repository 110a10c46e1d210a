package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/isp-support/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketNoteAdded     EventType = "ticket_note_added"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketSLABreached   EventType = "ticket_sla_breached"

	EventCustomerCreated EventType = "customer_created"
	EventCustomerUpdated EventType = "customer_updated"
)

// TicketEventTypes lists every event a ticket mutation can emit.
var TicketEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketEscalated,
	EventTicketNoteAdded,
	EventTicketAssigned,
	EventTicketSLABreached,
}

// CustomerEventTypes lists the events emitted by customer writes.
var CustomerEventTypes = []EventType{EventCustomerCreated, EventCustomerUpdated}

// Actor identifies who triggered an event. A nil UserID means the system.
type Actor struct {
	UserID *int64 `json:"user_id,omitempty"`
	Name   string `json:"name"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	TicketID     int64     `json:"ticket_id,omitempty"`
	TicketNumber string    `json:"ticket_number,omitempty"`
	CustomerID   int64     `json:"customer_id,omitempty"`
	Actor        Actor     `json:"actor"`
	Timestamp    time.Time `json:"timestamp"`
	Payload      any       `json:"payload"`
}

// NewTicketEvent stamps an event for ticket with a fresh id.
func NewTicketEvent(eventType EventType, ticket *domain.Ticket, actor Actor, at time.Time, payload any) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Actor:        actor,
		Timestamp:    at,
		Payload:      payload,
	}
}

// NewCustomerEvent stamps an event for customer with a fresh id.
func NewCustomerEvent(eventType EventType, customer *domain.Customer, actor Actor, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		CustomerID: customer.ID,
		Actor:      actor,
		Timestamp:  at,
		Payload: CustomerChangedPayload{
			AccountNumber: customer.AccountNumber,
			Status:        customer.Status,
		},
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority     domain.TicketPriority `json:"priority"`
	Category     domain.TicketCategory `json:"category"`
	Subject      string                `json:"subject"`
	CustomerName string                `json:"customer_name"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Transition string              `json:"transition"`
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	OldLevel domain.EscalationLevel `json:"old_level"`
	NewLevel domain.EscalationLevel `json:"new_level"`
	Priority domain.TicketPriority  `json:"priority"`
	Reason   string                 `json:"reason"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	NoteID      int64  `json:"note_id"`
	AuthorName  string `json:"author_name"`
	IsInternal  bool   `json:"is_internal"`
	NotePreview string `json:"note_preview"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedUserID   int64   `json:"assigned_user_id"`
	AssignedTo       string  `json:"assigned_to"`
	PreviousAssignee *string `json:"previous_assignee,omitempty"`
}

// TicketSLABreachedPayload payload.
type TicketSLABreachedPayload struct {
	Metric         string                `json:"metric"`
	Priority       domain.TicketPriority `json:"priority"`
	ElapsedMinutes int                   `json:"elapsed_minutes"`
	TargetMinutes  int                   `json:"target_minutes"`
}

// CustomerChangedPayload payload.
type CustomerChangedPayload struct {
	AccountNumber string                `json:"account_number"`
	Status        domain.CustomerStatus `json:"status"`
}
