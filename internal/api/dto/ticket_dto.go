package dto

import (
	"time"

	"github.com/spec-kit/isp-support/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerID      *int64  `json:"customer_id"`
	CustomerName    string  `json:"customer_name" validate:"required,max=255"`
	AccountNumber   string  `json:"account_number" validate:"max=50"`
	Phone           string  `json:"phone" validate:"required,max=50"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Subject         string  `json:"subject" validate:"required,max=255"`
	TicketType      string  `json:"ticket_type" validate:"required,ticket_type"`
	EscalationLevel string  `json:"escalation_level" validate:"omitempty,escalation_level"`
	Priority        string  `json:"priority" validate:"required,ticket_priority"`
	Category        string  `json:"category" validate:"required,ticket_category"`
	Description     string  `json:"description" validate:"required"`
	AssignedTo      *string `json:"assigned_to" validate:"omitempty,max=255"`
	AssignedUserID  *int64  `json:"assigned_user_id"`
	InitialNote     *string `json:"initial_note"`
}

// UpdateTicketRequest payload. Status is changed through the status endpoints.
type UpdateTicketRequest struct {
	Subject     *string `json:"subject" validate:"omitempty,max=255"`
	TicketType  *string `json:"ticket_type" validate:"omitempty,ticket_type"`
	Priority    *string `json:"priority" validate:"omitempty,ticket_priority"`
	Category    *string `json:"category" validate:"omitempty,ticket_category"`
	Description *string `json:"description"`
	AssignedTo  *string `json:"assigned_to" validate:"omitempty,max=255"`
	Phone       *string `json:"phone" validate:"omitempty,max=50"`
	Email       *string `json:"email" validate:"omitempty,email"`
}

// UpdateStatusRequest payload for PATCH /tickets/:number/status.
type UpdateStatusRequest struct {
	Status            string `json:"status" validate:"required,ticket_status"`
	ResolutionSummary string `json:"resolution_summary"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	ResolutionSummary string `json:"resolution_summary" validate:"required"`
}

// AddNoteRequest payload. Notes are visible to the customer unless is_internal is set.
type AddNoteRequest struct {
	Note       string `json:"note" validate:"required"`
	IsInternal *bool  `json:"is_internal"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	EscalationLevel string `json:"escalation_level" validate:"required,escalation_level"`
	Reason          string `json:"reason" validate:"required"`
}

// AssignRequest payload. Auto picks the least loaded active operator.
type AssignRequest struct {
	AssignedUserID *int64 `json:"assigned_user_id" validate:"required_without=Auto"`
	Auto           bool   `json:"auto"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID                    int64                `json:"id"`
	TicketNumber          string               `json:"ticket_number"`
	CustomerID            *int64               `json:"customer_id"`
	CustomerName          string               `json:"customer_name"`
	AccountNumber         string               `json:"account_number"`
	Phone                 string               `json:"phone"`
	Email                 *string              `json:"email"`
	Subject               string               `json:"subject"`
	TicketType            string               `json:"ticket_type"`
	EscalationLevel       string               `json:"escalation_level"`
	Priority              string               `json:"priority"`
	Category              string               `json:"category"`
	Description           string               `json:"description"`
	AssignedTo            *string              `json:"assigned_to"`
	AssignedUserID        *int64               `json:"assigned_user_id"`
	Status                string               `json:"status"`
	StartedAt             *time.Time           `json:"started_at"`
	FirstResponseAt       *time.Time           `json:"first_response_at"`
	PausedAt              *time.Time           `json:"paused_at"`
	ResolvedAt            *time.Time           `json:"resolved_at"`
	ClosedAt              *time.Time           `json:"closed_at"`
	ResponseTimeMinutes   *int                 `json:"response_time_minutes"`
	ResolutionTimeMinutes *int                 `json:"resolution_time_minutes"`
	TotalPausedMinutes    int                  `json:"total_paused_minutes"`
	ResolutionSummary     *string              `json:"resolution_summary"`
	SatisfactionRating    *int                 `json:"satisfaction_rating"`
	Version               int                  `json:"version"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
	SLA                   *sla.Evaluation      `json:"sla,omitempty"`
	Notes                 []TicketNoteResponse `json:"notes,omitempty"`
	Customer              *CustomerResponse    `json:"customer,omitempty"`
}

// TicketNoteResponse represents one entry of the ticket thread.
type TicketNoteResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	UserID     *int64    `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Note       string    `json:"note"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}
