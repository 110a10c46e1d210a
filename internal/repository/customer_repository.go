package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/isp-support/internal/domain"
)

// CustomerFilter captures list parameters.
type CustomerFilter struct {
	Search         string
	Status         *domain.CustomerStatus
	ServicePackage *domain.ServicePackage
	Page           Page
}

// CustomerRepository encapsulates customer persistence.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error)
	List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, int, error)
	ListAll(ctx context.Context) ([]domain.Customer, error)
}

const customerColumns = `id, customer_name, account_number, primary_phone, email_address, physical_address,
       service_package, status, installation_date, created_at, updated_at`

type customerRepository struct {
	db Querier
}

func NewCustomerRepository(db Querier) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	const query = `
        INSERT INTO customers (customer_name, account_number, primary_phone, email_address, physical_address,
            service_package, status, installation_date, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
        RETURNING id`
	if err := r.db.QueryRow(ctx, query,
		c.CustomerName,
		c.AccountNumber,
		c.PrimaryPhone,
		c.EmailAddress,
		c.PhysicalAddress,
		c.ServicePackage,
		c.Status,
		c.InstallationDate,
		c.CreatedAt,
	).Scan(&c.ID); err != nil {
		return err
	}
	c.UpdatedAt = c.CreatedAt
	return nil
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	const query = `
        UPDATE customers SET customer_name=$1, account_number=$2, primary_phone=$3, email_address=$4,
            physical_address=$5, service_package=$6, status=$7, installation_date=$8, updated_at=$9
        WHERE id=$10`
	cmd, err := r.db.Exec(ctx, query,
		c.CustomerName,
		c.AccountNumber,
		c.PrimaryPhone,
		c.EmailAddress,
		c.PhysicalAddress,
		c.ServicePackage,
		c.Status,
		c.InstallationDate,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
}

func (r *customerRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE account_number=$1`, accountNumber))
}

func (r *customerRepository) List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, int, error) {
	conds := conditions{}
	if filter.Search != "" {
		p := conds.bind(likePattern(filter.Search))
		conds.add("(LOWER(customer_name) LIKE " + p + " OR LOWER(account_number) LIKE " + p +
			" OR LOWER(COALESCE(email_address, '')) LIKE " + p + " OR LOWER(primary_phone) LIKE " + p + ")")
	}
	if filter.Status != nil {
		conds.add("status = " + conds.bind(*filter.Status))
	}
	if filter.ServicePackage != nil {
		conds.add("service_package = " + conds.bind(*filter.ServicePackage))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+conds.sql(), conds.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + customerColumns + ` FROM customers` + conds.sql() +
		` ORDER BY created_at DESC, id DESC` + filter.Page.clause(15)
	customers, err := r.query(ctx, query, conds.args...)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *customerRepository) ListAll(ctx context.Context) ([]domain.Customer, error) {
	return r.query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC, id DESC`)
}

func (r *customerRepository) query(ctx context.Context, query string, args ...any) ([]domain.Customer, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(customerDest(&c)...); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(customerDest(&c)...); err != nil {
		return nil, err
	}
	return &c, nil
}

func customerDest(c *domain.Customer) []any {
	return []any{
		&c.ID,
		&c.CustomerName,
		&c.AccountNumber,
		&c.PrimaryPhone,
		&c.EmailAddress,
		&c.PhysicalAddress,
		&c.ServicePackage,
		&c.Status,
		&c.InstallationDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}
