package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/isp-support/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestSequenceNext(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT nextval\(\$1::text::regclass\)`).
		WithArgs("ticket_number_seq").
		WillReturnRows(pgxmock.NewRows([]string{"nextval"}).AddRow(int64(42)))

	n, err := NewSequenceRepository(mock).Next(context.Background(), TicketNumberSeq)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, "TK-0042", domain.FormatTicketNumber(n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketUpdateBumpsVersion(t *testing.T) {
	mock := newMock(t)
	ticket := &domain.Ticket{ID: 7, Version: 3, Status: domain.TicketStatusInProgress, UpdatedAt: time.Now()}

	mock.ExpectExec(`UPDATE tickets SET (.+) WHERE id=\$26 AND version=\$27 AND deleted_at IS NULL`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewTicketRepository(mock).Update(context.Background(), ticket))
	assert.Equal(t, 4, ticket.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketUpdateDetectsStaleVersion(t *testing.T) {
	mock := newMock(t)
	ticket := &domain.Ticket{ID: 7, Version: 3}

	mock.ExpectExec(`UPDATE tickets SET`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewTicketRepository(mock).Update(context.Background(), ticket)
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.Equal(t, 3, ticket.Version)
}

func TestTicketSoftDelete(t *testing.T) {
	mock := newMock(t)
	at := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	repo := NewTicketRepository(mock)

	mock.ExpectExec(`UPDATE tickets SET deleted_at=\$1`).WithArgs(at, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SoftDelete(context.Background(), 5, at))

	mock.ExpectExec(`UPDATE tickets SET deleted_at=\$1`).WithArgs(at, int64(6)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.SoftDelete(context.Background(), 6, at), pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketHeaderStats(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(pgxmock.NewRows([]string{"total", "open", "in_progress", "resolved", "critical"}).
			AddRow(10, 4, 3, 2, 1))

	stats, err := NewTicketRepository(mock).HeaderStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TicketHeaderStats{Total: 10, Open: 4, InProgress: 3, Resolved: 2, Critical: 1}, stats)
}

func TestNoteCreate(t *testing.T) {
	mock := newMock(t)
	created := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	note := &domain.TicketNote{TicketID: 3, AuthorName: domain.SystemAuthor, Note: "Ticket put on hold", IsInternal: true, CreatedAt: created}

	mock.ExpectQuery(`INSERT INTO ticket_notes`).
		WithArgs(int64(3), pgxmock.AnyArg(), "System", "Ticket put on hold", true, created).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	require.NoError(t, NewTicketNoteRepository(mock).Create(context.Background(), note))
	assert.Equal(t, int64(11), note.ID)
}

func TestConditionsAndPage(t *testing.T) {
	c := conditions{}
	assert.Equal(t, "", c.sql())
	c.add("deleted_at IS NULL")
	c.add("status = " + c.bind("Open"))
	assert.Equal(t, " WHERE deleted_at IS NULL AND status = $1", c.sql())
	assert.Equal(t, []any{"Open"}, c.args)

	assert.Equal(t, " LIMIT 15 OFFSET 0", Page{}.clause(15))
	assert.Equal(t, " LIMIT 5 OFFSET 10", Page{Limit: 5, Offset: 10}.clause(15))
	assert.Equal(t, "%acc-00%", likePattern("  ACC-00 "))
}
