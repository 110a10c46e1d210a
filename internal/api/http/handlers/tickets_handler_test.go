package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/repository"
	"github.com/spec-kit/isp-support/internal/service"
)

// ticketLookup serves a single ticket; the embedded interface panics on anything else.
type ticketLookup struct {
	repository.TicketRepository
	ticket domain.Ticket
}

func (r *ticketLookup) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	if number != r.ticket.TicketNumber {
		return nil, pgx.ErrNoRows
	}
	t := r.ticket
	return &t, nil
}

type noteSink struct {
	notes []domain.TicketNote
}

func (r *noteSink) Create(_ context.Context, note *domain.TicketNote) error {
	note.ID = int64(len(r.notes) + 1)
	r.notes = append(r.notes, *note)
	return nil
}

func (r *noteSink) ListByTicket(context.Context, int64) ([]domain.TicketNote, error) {
	return r.notes, nil
}

func newNotesApp(notes *noteSink) *fiber.App {
	svc := service.NewTicketService(service.TicketDependencies{
		Repos: repository.Repositories{
			Tickets: &ticketLookup{ticket: domain.Ticket{ID: 7, TicketNumber: "TK-0007", Status: domain.TicketStatusOpen}},
			Notes:   notes,
		},
	})
	app := fiber.New()
	app.Post("/tickets/:number/notes", NewTicketsHandler(svc).AddNote)
	return app
}

func postNote(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/tickets/TK-0007/notes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAddNoteIsExternalByDefault(t *testing.T) {
	notes := &noteSink{}
	app := newNotesApp(notes)

	require.Equal(t, fiber.StatusCreated, postNote(t, app, `{"note":"Technician arrives at 10:00"}`))
	require.Len(t, notes.notes, 1)
	assert.False(t, notes.notes[0].IsInternal)
	assert.Equal(t, int64(7), notes.notes[0].TicketID)

	require.Equal(t, fiber.StatusCreated, postNote(t, app, `{"note":"Check line card","is_internal":true}`))
	require.Len(t, notes.notes, 2)
	assert.True(t, notes.notes[1].IsInternal)
}
