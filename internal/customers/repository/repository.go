package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("customer not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Customer struct {
	ID        uuid.UUID
	Name      string
	Company   string
	Email     string
	Phone     string
	Grade     string
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const customerColumns = `id, name, company, email, phone, grade, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var customer Customer
	err := row.Scan(
		&customer.ID, &customer.Name, &customer.Company, &customer.Email,
		&customer.Phone, &customer.Grade, &customer.Notes, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return customer, err
}

type CreateCustomerParams struct {
	Name    string
	Company string
	Email   string
	Phone   string
	Grade   string
	Notes   *string
}

func (r *Repository) Create(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, company, email, phone, grade, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+customerColumns,
		params.Name, params.Company, params.Email, params.Phone, params.Grade, params.Notes,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

type ListCustomersParams struct {
	Grade  *string
	Limit  int
	Offset int
}

func (r *Repository) List(ctx context.Context, params ListCustomersParams) ([]Customer, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE deleted_at IS NULL AND ($1::text IS NULL OR grade = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, params.Grade, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

type UpdateCustomerParams struct {
	Name    string
	Company string
	Email   string
	Phone   string
	Grade   string
	Notes   *string
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateCustomerParams) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, company = $3, email = $4, phone = $5, grade = $6, notes = $7, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+customerColumns,
		id, params.Name, params.Company, params.Email, params.Phone, params.Grade, params.Notes,
	))
}

func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
