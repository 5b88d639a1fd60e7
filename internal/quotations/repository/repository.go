package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("quotation not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Quotation struct {
	ID              uuid.UUID
	QuotationNumber string
	LeadID          *uuid.UUID
	CustomerID      *uuid.UUID
	ContractID      *uuid.UUID
	UserID          *uuid.UUID
	Status          string
	TotalAmount     float64
	Currency        string
	ValidUntil      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const quotationColumns = `id, quotation_number, lead_id, customer_id, contract_id, user_id, status,
		total_amount, currency, valid_until, created_at, updated_at`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.QuotationNumber, &q.LeadID, &q.CustomerID, &q.ContractID, &q.UserID,
		&q.Status, &q.TotalAmount, &q.Currency, &q.ValidUntil, &q.CreatedAt, &q.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, ErrNotFound
	}
	return q, err
}

// NextQuotationNumber issues the next Q-YYYY-NNNN number for the given year
// in a short transaction. The per-year row is upserted and locked by the
// update so concurrent issuers cannot collide.
func (r *Repository) NextQuotationNumber(ctx context.Context, year int) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var value int
	err = tx.QueryRow(ctx, `
		INSERT INTO quotation_sequences (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = quotation_sequences.last_value + 1
		RETURNING last_value
	`, year).Scan(&value)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Q-%d-%04d", year, value), nil
}

type CreateQuotationParams struct {
	QuotationNumber string
	LeadID          *uuid.UUID
	CustomerID      *uuid.UUID
	UserID          *uuid.UUID
	TotalAmount     float64
	Currency        string
	ValidUntil      *time.Time
}

func (r *Repository) Create(ctx context.Context, params CreateQuotationParams) (Quotation, error) {
	return scanQuotation(r.pool.QueryRow(ctx, `
		INSERT INTO quotations (quotation_number, lead_id, customer_id, user_id, status, total_amount, currency, valid_until)
		VALUES ($1, $2, $3, $4, 'DRAFT', $5, $6, $7)
		RETURNING `+quotationColumns,
		params.QuotationNumber, params.LeadID, params.CustomerID, params.UserID,
		params.TotalAmount, params.Currency, params.ValidUntil,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Quotation, error) {
	return scanQuotation(r.pool.QueryRow(ctx, `
		SELECT `+quotationColumns+` FROM quotations WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Quotation, error) {
	return r.list(ctx, `lead_id = $1`, leadID)
}

func (r *Repository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]Quotation, error) {
	return r.list(ctx, `contract_id = $1`, contractID)
}

func (r *Repository) list(ctx context.Context, where string, arg interface{}) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations
		WHERE `+where+` AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotations := make([]Quotation, 0)
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, q)
	}
	return quotations, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Quotation, error) {
	return scanQuotation(r.pool.QueryRow(ctx, `
		UPDATE quotations SET status = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+quotationColumns,
		id, status,
	))
}

// AttachToContract links the quotation to a contract.
func (r *Repository) AttachToContract(ctx context.Context, id uuid.UUID, contractID uuid.UUID) (Quotation, error) {
	return scanQuotation(r.pool.QueryRow(ctx, `
		UPDATE quotations SET contract_id = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+quotationColumns,
		id, contractID,
	))
}
