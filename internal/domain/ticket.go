package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusOnHold     TicketStatus = "On Hold"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ParseTicketStatus validates s against the closed status set.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	for _, st := range TicketStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsDone reports whether the ticket no longer accrues SLA time.
func (s TicketStatus) IsDone() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// IsActive reports whether the ticket counts as an open issue on the dashboard.
func (s TicketStatus) IsActive() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// TicketPriorities lists priorities from most to least urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityCritical,
	TicketPriorityHigh,
	TicketPriorityMedium,
	TicketPriorityLow,
}

func ParseTicketPriority(s string) (TicketPriority, bool) {
	for _, p := range TicketPriorities {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// TicketCategory is the closed set of problem areas.
type TicketCategory string

const (
	CategoryConnectivity   TicketCategory = "Connectivity"
	CategoryPerformance    TicketCategory = "Performance"
	CategoryBilling        TicketCategory = "Billing"
	CategoryEquipment      TicketCategory = "Equipment"
	CategoryServiceRequest TicketCategory = "Service Request"
	CategoryInstallation   TicketCategory = "Installation"
	CategoryTechnical      TicketCategory = "Technical"
)

var TicketCategories = []TicketCategory{
	CategoryConnectivity,
	CategoryPerformance,
	CategoryBilling,
	CategoryEquipment,
	CategoryServiceRequest,
	CategoryInstallation,
	CategoryTechnical,
}

func ParseTicketCategory(s string) (TicketCategory, bool) {
	for _, c := range TicketCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// TicketType classifies the nature of the request.
type TicketType string

const (
	TicketTypeTechnicalIssue TicketType = "Technical Issue"
	TicketTypeSupportRequest TicketType = "Support Request"
	TicketTypeServiceRequest TicketType = "Service Request"
	TicketTypeEscalation     TicketType = "Escalation"
	TicketTypeGeneralInquiry TicketType = "General Inquiry"
)

var TicketTypes = []TicketType{
	TicketTypeTechnicalIssue,
	TicketTypeSupportRequest,
	TicketTypeServiceRequest,
	TicketTypeEscalation,
	TicketTypeGeneralInquiry,
}

func ParseTicketType(s string) (TicketType, bool) {
	for _, tt := range TicketTypes {
		if string(tt) == s {
			return tt, true
		}
	}
	return "", false
}

// EscalationLevel is a routing tag orthogonal to status.
type EscalationLevel string

const (
	EscalationLevel1 EscalationLevel = "Level 1"
	EscalationLevel2 EscalationLevel = "Level 2"
	EscalationLevel3 EscalationLevel = "Level 3"
)

var EscalationLevels = []EscalationLevel{EscalationLevel1, EscalationLevel2, EscalationLevel3}

// HighestEscalationLevel forces Critical priority when reached.
const HighestEscalationLevel = EscalationLevel3

func ParseEscalationLevel(s string) (EscalationLevel, bool) {
	for _, l := range EscalationLevels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Ticket is the aggregate for customer support requests.
type Ticket struct {
	ID              int64
	TicketNumber    string
	CustomerID      *int64
	CustomerName    string
	AccountNumber   string
	Phone           string
	Email           *string
	Subject         string
	TicketType      TicketType
	EscalationLevel EscalationLevel
	Priority        TicketPriority
	Category        TicketCategory
	Description     string
	AssignedTo      *string
	AssignedUserID  *int64
	Status          TicketStatus

	StartedAt       *time.Time
	FirstResponseAt *time.Time
	PausedAt        *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time

	ResponseTimeMinutes   *int
	ResolutionTimeMinutes *int
	TotalPausedMinutes    int

	ResolutionSummary  *string
	SatisfactionRating *int

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time

	Notes    []TicketNote
	Customer *Customer
}

// FormatTicketNumber renders the public identifier for sequence value n.
func FormatTicketNumber(n int64) string {
	return fmt.Sprintf("TK-%04d", n)
}

// minutesBetween truncates to whole minutes and never goes negative.
func minutesBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}
