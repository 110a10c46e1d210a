package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// InstallationStatus enumerates field-work states.
type InstallationStatus string

const (
	InstallationStatusPending    InstallationStatus = "Pending"
	InstallationStatusScheduled  InstallationStatus = "Scheduled"
	InstallationStatusInProgress InstallationStatus = "In Progress"
	InstallationStatusCompleted  InstallationStatus = "Completed"
	InstallationStatusCancelled  InstallationStatus = "Cancelled"
)

var InstallationStatuses = []InstallationStatus{
	InstallationStatusPending,
	InstallationStatusScheduled,
	InstallationStatusInProgress,
	InstallationStatusCompleted,
	InstallationStatusCancelled,
}

func ParseInstallationStatus(s string) (InstallationStatus, bool) {
	for _, st := range InstallationStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed.
func (s InstallationStatus) IsTerminal() bool {
	return s == InstallationStatusCompleted || s == InstallationStatusCancelled
}

// UnassignedTechnician is stored when no technician is named.
const UnassignedTechnician = "Unassigned"

// Installation transition names.
const (
	TransitionSchedule = "schedule"
	TransitionStart    = "start"
	TransitionComplete = "complete"
	TransitionCancel   = "cancel"
)

// Installation is a scheduled field visit, distinct from a ticket.
type Installation struct {
	ID                   int64
	InstallationNumber   string
	CustomerID           *int64
	CustomerName         string
	Address              string
	ContactNumber        string
	ScheduledDate        time.Time
	Technician           string
	AssignedTechnicianID *int64
	Equipment            *string
	Status               InstallationStatus
	Notes                *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

// FormatInstallationNumber renders the public identifier for sequence value n.
func FormatInstallationNumber(n int64) string {
	return fmt.Sprintf("INS-%d", n)
}

// Schedule books a pending (or already scheduled) visit.
func (i *Installation) Schedule(at time.Time, technician string, technicianID *int64) error {
	if i.Status != InstallationStatusPending && i.Status != InstallationStatusScheduled {
		return apperrors.NewInvalidTransition(TransitionSchedule, string(i.Status))
	}
	i.ScheduledDate = at
	if name := strings.TrimSpace(technician); name != "" {
		i.Technician = name
	}
	if technicianID != nil {
		i.AssignedTechnicianID = technicianID
	}
	i.Status = InstallationStatusScheduled
	return nil
}

// Start marks the technician as on site.
func (i *Installation) Start() error {
	if i.Status != InstallationStatusScheduled {
		return apperrors.NewInvalidTransition(TransitionStart, string(i.Status))
	}
	i.Status = InstallationStatusInProgress
	return nil
}

// Complete closes out the field work.
func (i *Installation) Complete(notes string) error {
	if i.Status != InstallationStatusInProgress {
		return apperrors.NewInvalidTransition(TransitionComplete, string(i.Status))
	}
	i.appendNote(notes)
	i.Status = InstallationStatusCompleted
	return nil
}

// Cancel requires a reason, which is appended to the installation notes.
func (i *Installation) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.NewFieldError("reason", "reason is required")
	}
	if i.Status.IsTerminal() {
		return apperrors.NewInvalidTransition(TransitionCancel, string(i.Status))
	}
	i.appendNote("Cancelled: " + reason)
	i.Status = InstallationStatusCancelled
	return nil
}

func (i *Installation) appendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if i.Notes == nil || strings.TrimSpace(*i.Notes) == "" {
		i.Notes = &note
		return
	}
	joined := *i.Notes + "\n" + note
	i.Notes = &joined
}
