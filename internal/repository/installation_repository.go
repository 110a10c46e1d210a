package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/isp-support/internal/domain"
)

// InstallationFilter captures list parameters.
type InstallationFilter struct {
	Search       string
	Status       *domain.InstallationStatus
	From         *time.Time
	To           *time.Time
	TechnicianID *int64
	Page         Page
}

// InstallationRepository encapsulates installation persistence.
type InstallationRepository interface {
	Create(ctx context.Context, inst *domain.Installation) error
	Update(ctx context.Context, inst *domain.Installation) error
	GetByID(ctx context.Context, id int64) (*domain.Installation, error)
	List(ctx context.Context, filter InstallationFilter) ([]domain.Installation, int, error)
	CountByStatus(ctx context.Context) (map[domain.InstallationStatus]int, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

const installationColumns = `id, installation_number, customer_id, customer_name, address, contact_number,
       scheduled_date, technician, assigned_technician_id, equipment, status, notes,
       created_at, updated_at, deleted_at`

type installationRepository struct {
	db Querier
}

func NewInstallationRepository(db Querier) InstallationRepository {
	return &installationRepository{db: db}
}

func (r *installationRepository) Create(ctx context.Context, inst *domain.Installation) error {
	const query = `
        INSERT INTO installations (installation_number, customer_id, customer_name, address, contact_number,
            scheduled_date, technician, assigned_technician_id, equipment, status, notes, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
        RETURNING id`
	if err := r.db.QueryRow(ctx, query,
		inst.InstallationNumber,
		inst.CustomerID,
		inst.CustomerName,
		inst.Address,
		inst.ContactNumber,
		inst.ScheduledDate,
		inst.Technician,
		inst.AssignedTechnicianID,
		inst.Equipment,
		inst.Status,
		inst.Notes,
		inst.CreatedAt,
	).Scan(&inst.ID); err != nil {
		return err
	}
	inst.UpdatedAt = inst.CreatedAt
	return nil
}

func (r *installationRepository) Update(ctx context.Context, inst *domain.Installation) error {
	const query = `
        UPDATE installations SET customer_id=$1, customer_name=$2, address=$3, contact_number=$4,
            scheduled_date=$5, technician=$6, assigned_technician_id=$7, equipment=$8, status=$9,
            notes=$10, updated_at=$11
        WHERE id=$12 AND deleted_at IS NULL`
	cmd, err := r.db.Exec(ctx, query,
		inst.CustomerID,
		inst.CustomerName,
		inst.Address,
		inst.ContactNumber,
		inst.ScheduledDate,
		inst.Technician,
		inst.AssignedTechnicianID,
		inst.Equipment,
		inst.Status,
		inst.Notes,
		inst.UpdatedAt,
		inst.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *installationRepository) GetByID(ctx context.Context, id int64) (*domain.Installation, error) {
	query := `SELECT ` + installationColumns + ` FROM installations WHERE id=$1 AND deleted_at IS NULL`
	var inst domain.Installation
	if err := r.db.QueryRow(ctx, query, id).Scan(installationDest(&inst)...); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *installationRepository) List(ctx context.Context, filter InstallationFilter) ([]domain.Installation, int, error) {
	conds := conditions{}
	conds.add("deleted_at IS NULL")
	if filter.Search != "" {
		p := conds.bind(likePattern(filter.Search))
		conds.add("(LOWER(installation_number) LIKE " + p + " OR LOWER(customer_name) LIKE " + p +
			" OR LOWER(address) LIKE " + p + ")")
	}
	if filter.Status != nil {
		conds.add("status = " + conds.bind(*filter.Status))
	}
	if filter.From != nil {
		conds.add("scheduled_date >= " + conds.bind(*filter.From))
	}
	if filter.To != nil {
		conds.add("scheduled_date < " + conds.bind(*filter.To))
	}
	if filter.TechnicianID != nil {
		conds.add("assigned_technician_id = " + conds.bind(*filter.TechnicianID))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM installations`+conds.sql(), conds.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + installationColumns + ` FROM installations` + conds.sql() +
		` ORDER BY scheduled_date ASC, id ASC` + filter.Page.clause(15)
	rows, err := r.db.Query(ctx, query, conds.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Installation
	for rows.Next() {
		var inst domain.Installation
		if err := rows.Scan(installationDest(&inst)...); err != nil {
			return nil, 0, err
		}
		result = append(result, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *installationRepository) CountByStatus(ctx context.Context) (map[domain.InstallationStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM installations WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.InstallationStatus]int, len(domain.InstallationStatuses))
	for _, s := range domain.InstallationStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.InstallationStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *installationRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE installations SET deleted_at=$1, updated_at=$1 WHERE id=$2 AND deleted_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func installationDest(i *domain.Installation) []any {
	return []any{
		&i.ID,
		&i.InstallationNumber,
		&i.CustomerID,
		&i.CustomerName,
		&i.Address,
		&i.ContactNumber,
		&i.ScheduledDate,
		&i.Technician,
		&i.AssignedTechnicianID,
		&i.Equipment,
		&i.Status,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	}
}
