package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/repository"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// Assign hands the ticket to an active user and records the change as an internal note.
func (s *TicketService) Assign(ctx context.Context, actor Actor, number string, userID int64) (*domain.Ticket, error) {
	now := s.now()
	var (
		ticket   *domain.Ticket
		previous *string
	)
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		user, err := activeAssignee(ctx, r, userID)
		if err != nil {
			return err
		}
		t, err := r.Tickets.GetByNumber(ctx, number)
		if err != nil {
			return notFound(err, "ticket", ticketRef(number))
		}
		if t.Status == domain.TicketStatusClosed {
			return apperrors.NewInvalidTransition("assign", string(t.Status))
		}
		previous = t.AssignedTo
		t.AssignedUserID = &user.ID
		t.AssignedTo = &user.Name
		t.UpdatedAt = now
		if err := r.Tickets.Update(ctx, t); err != nil {
			return err
		}
		note := &domain.TicketNote{
			TicketID:   t.ID,
			UserID:     actor.UserID,
			AuthorName: actor.authorName(),
			Note:       fmt.Sprintf("Assigned to %s", user.Name),
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
		return nil, failure(s.logger, "assign ticket", err)
	}

	s.publish(ctx, events.NewTicketEvent(events.EventTicketAssigned, ticket, actor.eventActor(), now, events.TicketAssignedPayload{
		AssignedUserID:   *ticket.AssignedUserID,
		AssignedTo:       *ticket.AssignedTo,
		PreviousAssignee: previous,
	}))
	return ticket, nil
}

// AutoAssign picks the active agent or technician carrying the fewest active
// tickets. Ties go to the longest-registered user.
func (s *TicketService) AutoAssign(ctx context.Context, actor Actor, number string) (*domain.Ticket, error) {
	users, err := s.repos.Users.ListOperators(ctx)
	if err != nil {
		return nil, failure(s.logger, "list users", err)
	}
	active, err := s.repos.Tickets.ListActive(ctx)
	if err != nil {
		return nil, failure(s.logger, "list active tickets", err)
	}

	load := make(map[int64]int, len(users))
	for _, t := range active {
		if t.AssignedUserID != nil {
			load[*t.AssignedUserID]++
		}
	}
	candidates := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.IsActive() && (u.Role == domain.UserRoleAgent || u.Role == domain.UserRoleTechnician) {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewConflict("no eligible user for assignment", ticketRef(number))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := load[candidates[i].ID], load[candidates[j].ID]
		if li != lj {
			return li < lj
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return s.Assign(ctx, actor, number, candidates[0].ID)
}

func activeAssignee(ctx context.Context, r repository.Repositories, userID int64) (*domain.User, error) {
	user, err := r.Users.GetByID(ctx, userID)
	if isNoRows(err) {
		return nil, apperrors.NewFieldError("assigned_user_id", "assigned_user_id does not reference an existing user")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.NewFieldError("assigned_user_id", "assigned user is inactive")
	}
	return user, nil
}
