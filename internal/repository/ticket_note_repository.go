package repository

import (
	"context"

	"github.com/spec-kit/isp-support/internal/domain"
)

// TicketNoteRepository appends and reads ticket notes. Notes are never updated.
type TicketNoteRepository interface {
	Create(ctx context.Context, note *domain.TicketNote) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketNote, error)
}

type ticketNoteRepository struct {
	db Querier
}

func NewTicketNoteRepository(db Querier) TicketNoteRepository {
	return &ticketNoteRepository{db: db}
}

func (r *ticketNoteRepository) Create(ctx context.Context, note *domain.TicketNote) error {
	const query = `
        INSERT INTO ticket_notes (ticket_id, user_id, author_name, note, is_internal, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		note.TicketID,
		note.UserID,
		note.AuthorName,
		note.Note,
		note.IsInternal,
		note.CreatedAt,
	).Scan(&note.ID)
}

func (r *ticketNoteRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketNote, error) {
	const query = `
        SELECT id, ticket_id, user_id, author_name, note, is_internal, created_at
        FROM ticket_notes WHERE ticket_id=$1
        ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.TicketNote
	for rows.Next() {
		var n domain.TicketNote
		if err := rows.Scan(&n.ID, &n.TicketID, &n.UserID, &n.AuthorName, &n.Note, &n.IsInternal, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
