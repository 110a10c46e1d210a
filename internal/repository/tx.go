package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to one Querier.
type Repositories struct {
	Tickets       TicketRepository
	Notes         TicketNoteRepository
	Customers     CustomerRepository
	Installations InstallationRepository
	Users         UserRepository
	Sequences     SequenceRepository
}

// New binds all repositories to q.
func New(q Querier) Repositories {
	return Repositories{
		Tickets:       NewTicketRepository(q),
		Notes:         NewTicketNoteRepository(q),
		Customers:     NewCustomerRepository(q),
		Installations: NewInstallationRepository(q),
		Users:         NewUserRepository(q),
		Sequences:     NewSequenceRepository(q),
	}
}

// TxRunner executes fn inside one transaction. Returning an error rolls back.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// Beginner opens transactions.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgTxRunner struct {
	db Beginner
}

// NewTxRunner returns a TxRunner backed by pgx.BeginFunc.
func NewTxRunner(db Beginner) TxRunner {
	return &pgTxRunner{db: db}
}

func (r *pgTxRunner) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(New(tx))
	})
}
