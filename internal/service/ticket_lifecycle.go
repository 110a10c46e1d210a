package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/repository"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// stepFunc applies one lifecycle step and returns the transition name and the
// internal note recorded with it.
type stepFunc func(t *domain.Ticket, now time.Time) (string, string, error)

// UpdateStatus moves the ticket towards status using the matching lifecycle step.
func (s *TicketService) UpdateStatus(ctx context.Context, actor Actor, number string, status domain.TicketStatus, summary string) (*domain.Ticket, error) {
	if _, ok := domain.ParseTicketStatus(string(status)); !ok {
		return nil, apperrors.NewFieldError("status", "status is invalid")
	}
	return s.transition(ctx, actor, number, func(t *domain.Ticket, now time.Time) (string, string, error) {
		switch status {
		case domain.TicketStatusInProgress:
			if t.Status == domain.TicketStatusOnHold {
				return resumeStep(t, now)
			}
			return startStep(t, now)
		case domain.TicketStatusOnHold:
			return holdStep(t, now)
		case domain.TicketStatusResolved:
			return resolveStep(summary)(t, now)
		case domain.TicketStatusClosed:
			return closeStep(t, now)
		default:
			return "", "", apperrors.NewInvalidTransition("reopen", string(t.Status))
		}
	})
}

// StartWorking moves an Open ticket to In Progress.
func (s *TicketService) StartWorking(ctx context.Context, actor Actor, number string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, number, startStep)
}

// PutOnHold pauses an In Progress ticket.
func (s *TicketService) PutOnHold(ctx context.Context, actor Actor, number string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, number, holdStep)
}

// Resume restarts work on a ticket that is On Hold.
func (s *TicketService) Resume(ctx context.Context, actor Actor, number string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, number, resumeStep)
}

// Resolve finalizes the ticket with a resolution summary.
func (s *TicketService) Resolve(ctx context.Context, actor Actor, number, summary string) (*domain.Ticket, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, apperrors.NewFieldError("resolution_summary", "resolution_summary is required to resolve a ticket")
	}
	return s.transition(ctx, actor, number, resolveStep(summary))
}

// Close archives a resolved ticket.
func (s *TicketService) Close(ctx context.Context, actor Actor, number string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, number, closeStep)
}

func startStep(t *domain.Ticket, now time.Time) (string, string, error) {
	if err := t.StartWorking(now); err != nil {
		return "", "", err
	}
	return domain.TransitionStartWorking, fmt.Sprintf("Work started. Response time: %d minutes", *t.ResponseTimeMinutes), nil
}

func holdStep(t *domain.Ticket, now time.Time) (string, string, error) {
	if err := t.PutOnHold(now); err != nil {
		return "", "", err
	}
	return domain.TransitionPutOnHold, "Ticket put on hold", nil
}

func resumeStep(t *domain.Ticket, now time.Time) (string, string, error) {
	held, err := t.Resume(now)
	if err != nil {
		return "", "", err
	}
	return domain.TransitionResume, fmt.Sprintf("Work resumed after %d minutes on hold", held), nil
}

func resolveStep(summary string) stepFunc {
	return func(t *domain.Ticket, now time.Time) (string, string, error) {
		active, err := t.Resolve(now, summary)
		if err != nil {
			return "", "", err
		}
		return domain.TransitionResolve, fmt.Sprintf("Ticket resolved. Total active work time: %d minutes", active), nil
	}
}

func closeStep(t *domain.Ticket, now time.Time) (string, string, error) {
	if err := t.Close(now); err != nil {
		return "", "", err
	}
	return domain.TransitionClose, "Ticket closed", nil
}

// transition loads the ticket, applies step, and persists the ticket and its
// system note in one transaction. A failed step leaves no trace.
func (s *TicketService) transition(ctx context.Context, actor Actor, number string, step stepFunc) (*domain.Ticket, error) {
	now := s.now()
	var (
		ticket    *domain.Ticket
		name      string
		oldStatus domain.TicketStatus
	)
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		t, err := r.Tickets.GetByNumber(ctx, number)
		if err != nil {
			return notFound(err, "ticket", ticketRef(number))
		}
		oldStatus = t.Status

		transition, text, err := step(t, now)
		if err != nil {
			return err
		}
		t.UpdatedAt = now
		if err := r.Tickets.Update(ctx, t); err != nil {
			return err
		}
		if err := r.Notes.Create(ctx, systemNote(t.ID, text, now)); err != nil {
			return err
		}
		ticket, name = t, transition
		return nil
	})
	if err != nil {
		return nil, failure(s.logger, "ticket transition", err)
	}

	s.metrics.RecordTransition(name)
	s.publish(ctx, events.NewTicketEvent(events.EventTicketStatusChanged, ticket, actor.eventActor(), now, events.TicketStatusChangedPayload{
		Transition: name,
		OldStatus:  oldStatus,
		NewStatus:  ticket.Status,
	}))
	return ticket, nil
}

// Escalate changes the escalation level without touching the status.
func (s *TicketService) Escalate(ctx context.Context, actor Actor, number string, level domain.EscalationLevel, reason string) (*domain.Ticket, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewFieldError("reason", "reason is required")
	}

	now := s.now()
	var (
		ticket   *domain.Ticket
		previous domain.EscalationLevel
	)
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		t, err := r.Tickets.GetByNumber(ctx, number)
		if err != nil {
			return notFound(err, "ticket", ticketRef(number))
		}
		previous, err = t.Escalate(level, reason)
		if err != nil {
			return err
		}
		t.UpdatedAt = now
		if err := r.Tickets.Update(ctx, t); err != nil {
			return err
		}
		note := &domain.TicketNote{
			TicketID:   t.ID,
			UserID:     actor.UserID,
			AuthorName: actor.authorName(),
			Note:       fmt.Sprintf("Escalated from %s to %s. Reason: %s", previous, level, reason),
			IsInternal: true,
			CreatedAt:  now,
		}
		if err := r.Notes.Create(ctx, note); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, failure(s.logger, "escalate ticket", err)
	}

	s.metrics.RecordTransition(domain.TransitionEscalate)
	s.publish(ctx, events.NewTicketEvent(events.EventTicketEscalated, ticket, actor.eventActor(), now, events.TicketEscalatedPayload{
		OldLevel: previous,
		NewLevel: ticket.EscalationLevel,
		Priority: ticket.Priority,
		Reason:   reason,
	}))
	return ticket, nil
}

// AddNote appends a note to the ticket thread. The ticket itself is not modified.
func (s *TicketService) AddNote(ctx context.Context, actor Actor, number, text string, internal bool) (*domain.TicketNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewFieldError("note", "note is required")
	}
	ticket, err := s.repos.Tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, failure(s.logger, "get ticket", notFound(err, "ticket", ticketRef(number)))
	}

	now := s.now()
	note := &domain.TicketNote{
		TicketID:   ticket.ID,
		UserID:     actor.UserID,
		AuthorName: actor.authorName(),
		Note:       text,
		IsInternal: internal,
		CreatedAt:  now,
	}
	if err := s.repos.Notes.Create(ctx, note); err != nil {
		return nil, failure(s.logger, "add note", err)
	}

	s.publish(ctx, events.NewTicketEvent(events.EventTicketNoteAdded, ticket, actor.eventActor(), now, events.TicketNoteAddedPayload{
		NoteID:      note.ID,
		AuthorName:  note.AuthorName,
		IsInternal:  note.IsInternal,
		NotePreview: preview(note.Note, 80),
	}))
	return note, nil
}

func systemNote(ticketID int64, text string, at time.Time) *domain.TicketNote {
	return &domain.TicketNote{
		TicketID:   ticketID,
		AuthorName: domain.SystemAuthor,
		Note:       text,
		IsInternal: true,
		CreatedAt:  at,
	}
}
