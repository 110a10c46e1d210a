package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/isp-support/internal/domain"
)

// TicketFilter captures list parameters. Zero values mean "any".
type TicketFilter struct {
	Search          string
	Status          *domain.TicketStatus
	Priority        *domain.TicketPriority
	Category        *domain.TicketCategory
	EscalationLevel *domain.EscalationLevel
	AssignedUserID  *int64
	CustomerID      *int64
	SortBy          string
	SortDesc        bool
	Page            Page
}

// TicketHeaderStats are the counters shown above the ticket list.
type TicketHeaderStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Critical   int `json:"critical"`
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	HeaderStats(ctx context.Context) (TicketHeaderStats, error)
	ListAll(ctx context.Context, status *domain.TicketStatus) ([]domain.Ticket, error)
	ListActive(ctx context.Context) ([]domain.Ticket, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Ticket, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

const ticketColumns = `id, ticket_number, customer_id, customer_name, account_number, phone, email,
       subject, ticket_type, escalation_level, priority, category, description,
       assigned_to, assigned_user_id, status, started_at, first_response_at, paused_at,
       resolved_at, closed_at, response_time_minutes, resolution_time_minutes,
       total_paused_minutes, resolution_summary, satisfaction_rating, version,
       created_at, updated_at, deleted_at`

// ticketSortColumns whitelists the sortable columns.
var ticketSortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"ticket_number": "ticket_number",
	"status":        "status",
	"priority":      "CASE priority WHEN 'Critical' THEN 4 WHEN 'High' THEN 3 WHEN 'Medium' THEN 2 ELSE 1 END",
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, customer_id, customer_name, account_number, phone, email,
            subject, ticket_type, escalation_level, priority, category, description,
            assigned_to, assigned_user_id, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)
        RETURNING id, version`
	if err := r.db.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CustomerID,
		ticket.CustomerName,
		ticket.AccountNumber,
		ticket.Phone,
		ticket.Email,
		ticket.Subject,
		ticket.TicketType,
		ticket.EscalationLevel,
		ticket.Priority,
		ticket.Category,
		ticket.Description,
		ticket.AssignedTo,
		ticket.AssignedUserID,
		ticket.Status,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.Version); err != nil {
		return err
	}
	ticket.UpdatedAt = ticket.CreatedAt
	return nil
}

// Update writes every mutable column guarded by the version read earlier.
// ErrStaleVersion means another writer got there first.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET customer_id=$1, customer_name=$2, account_number=$3, phone=$4, email=$5,
            subject=$6, ticket_type=$7, escalation_level=$8, priority=$9, category=$10, description=$11,
            assigned_to=$12, assigned_user_id=$13, status=$14, started_at=$15, first_response_at=$16,
            paused_at=$17, resolved_at=$18, closed_at=$19, response_time_minutes=$20,
            resolution_time_minutes=$21, total_paused_minutes=$22, resolution_summary=$23,
            satisfaction_rating=$24, updated_at=$25, version=version+1
        WHERE id=$26 AND version=$27 AND deleted_at IS NULL`
	cmd, err := r.db.Exec(ctx, query,
		ticket.CustomerID,
		ticket.CustomerName,
		ticket.AccountNumber,
		ticket.Phone,
		ticket.Email,
		ticket.Subject,
		ticket.TicketType,
		ticket.EscalationLevel,
		ticket.Priority,
		ticket.Category,
		ticket.Description,
		ticket.AssignedTo,
		ticket.AssignedUserID,
		ticket.Status,
		ticket.StartedAt,
		ticket.FirstResponseAt,
		ticket.PausedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ResponseTimeMinutes,
		ticket.ResolutionTimeMinutes,
		ticket.TotalPausedMinutes,
		ticket.ResolutionSummary,
		ticket.SatisfactionRating,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleVersion
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND deleted_at IS NULL`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number=$1 AND deleted_at IS NULL`
	return scanTicket(r.db.QueryRow(ctx, query, number))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	conds := conditions{}
	conds.add("deleted_at IS NULL")
	if filter.Search != "" {
		p := conds.bind(likePattern(filter.Search))
		conds.add("(LOWER(ticket_number) LIKE " + p + " OR LOWER(subject) LIKE " + p +
			" OR LOWER(customer_name) LIKE " + p + " OR LOWER(account_number) LIKE " + p + ")")
	}
	if filter.Status != nil {
		conds.add("status = " + conds.bind(*filter.Status))
	}
	if filter.Priority != nil {
		conds.add("priority = " + conds.bind(*filter.Priority))
	}
	if filter.Category != nil {
		conds.add("category = " + conds.bind(*filter.Category))
	}
	if filter.EscalationLevel != nil {
		conds.add("escalation_level = " + conds.bind(*filter.EscalationLevel))
	}
	if filter.AssignedUserID != nil {
		conds.add("assigned_user_id = " + conds.bind(*filter.AssignedUserID))
	}
	if filter.CustomerID != nil {
		conds.add("customer_id = " + conds.bind(*filter.CustomerID))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`+conds.sql(), conds.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := ticketSortColumns["created_at"]
	if col, ok := ticketSortColumns[filter.SortBy]; ok {
		order = col
	}
	direction := " ASC"
	if filter.SortDesc {
		direction = " DESC"
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets` + conds.sql() +
		` ORDER BY ` + order + direction + `, id` + direction + filter.Page.clause(15)

	rows, err := r.db.Query(ctx, query, conds.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) HeaderStats(ctx context.Context) (TicketHeaderStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'Open'),
               COUNT(*) FILTER (WHERE status = 'In Progress'),
               COUNT(*) FILTER (WHERE status = 'Resolved'),
               COUNT(*) FILTER (WHERE priority = 'Critical')
        FROM tickets WHERE deleted_at IS NULL`
	var stats TicketHeaderStats
	err := r.db.QueryRow(ctx, query).Scan(&stats.Total, &stats.Open, &stats.InProgress, &stats.Resolved, &stats.Critical)
	return stats, err
}

func (r *ticketRepository) ListAll(ctx context.Context, status *domain.TicketStatus) ([]domain.Ticket, error) {
	conds := conditions{}
	conds.add("deleted_at IS NULL")
	if status != nil {
		conds.add("status = " + conds.bind(*status))
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets` + conds.sql() + ` ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query, conds.args...)
}

func (r *ticketRepository) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE deleted_at IS NULL AND status IN ('Open', 'In Progress', 'On Hold')
        ORDER BY created_at`
	return r.query(ctx, query)
}

func (r *ticketRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE deleted_at IS NULL AND customer_id=$1
        ORDER BY created_at DESC`
	return r.query(ctx, query, customerID)
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE tickets SET deleted_at=$1, updated_at=$1 WHERE id=$2 AND deleted_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) query(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(ticketDest(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketDest(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func ticketDest(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.TicketNumber,
		&t.CustomerID,
		&t.CustomerName,
		&t.AccountNumber,
		&t.Phone,
		&t.Email,
		&t.Subject,
		&t.TicketType,
		&t.EscalationLevel,
		&t.Priority,
		&t.Category,
		&t.Description,
		&t.AssignedTo,
		&t.AssignedUserID,
		&t.Status,
		&t.StartedAt,
		&t.FirstResponseAt,
		&t.PausedAt,
		&t.ResolvedAt,
		&t.ClosedAt,
		&t.ResponseTimeMinutes,
		&t.ResolutionTimeMinutes,
		&t.TotalPausedMinutes,
		&t.ResolutionSummary,
		&t.SatisfactionRating,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.DeletedAt,
	}
}
