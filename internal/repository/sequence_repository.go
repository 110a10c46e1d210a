package repository

import "context"

// Sequence names a Postgres sequence backing a public identifier.
type Sequence string

const (
	TicketNumberSeq       Sequence = "ticket_number_seq"
	AccountNumberSeq      Sequence = "account_number_seq"
	InstallationNumberSeq Sequence = "installation_number_seq"
)

// SequenceRepository claims identifier numbers atomically.
type SequenceRepository interface {
	Next(ctx context.Context, seq Sequence) (int64, error)
}

type sequenceRepository struct {
	db Querier
}

func NewSequenceRepository(db Querier) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, seq Sequence) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT nextval($1::text::regclass)`, string(seq)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
