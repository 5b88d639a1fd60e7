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

var ErrNotFound = errors.New("contract not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Contract struct {
	ID             uuid.UUID
	ContractNumber string
	Title          string
	Status         string
	SignedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const contractColumns = `id, contract_number, title, status, signed_at, created_at, updated_at`

func scanContract(row pgx.Row) (Contract, error) {
	var contract Contract
	err := row.Scan(
		&contract.ID, &contract.ContractNumber, &contract.Title, &contract.Status,
		&contract.SignedAt, &contract.CreatedAt, &contract.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, ErrNotFound
	}
	return contract, err
}

// NextContractNumber issues the next C-YYYY-NNNN number for the year.
func (r *Repository) NextContractNumber(ctx context.Context, year int) (string, error) {
	var value int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contract_sequences (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = contract_sequences.last_value + 1
		RETURNING last_value
	`, year).Scan(&value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("C-%d-%04d", year, value), nil
}

func (r *Repository) Create(ctx context.Context, contractNumber, title string) (Contract, error) {
	return scanContract(r.pool.QueryRow(ctx, `
		INSERT INTO contracts (contract_number, title, status)
		VALUES ($1, $2, 'DRAFT')
		RETURNING `+contractColumns,
		contractNumber, title,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Contract, error) {
	return scanContract(r.pool.QueryRow(ctx, `
		SELECT `+contractColumns+` FROM contracts WHERE id = $1
	`, id))
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Contract, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contracts := make([]Contract, 0)
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	return contracts, rows.Err()
}

// Sign flips the contract to SIGNED and stamps signed_at. The status guard
// keeps a double sign from re-stamping.
func (r *Repository) Sign(ctx context.Context, id uuid.UUID) (Contract, error) {
	return scanContract(r.pool.QueryRow(ctx, `
		UPDATE contracts SET status = 'SIGNED', signed_at = now(), updated_at = now()
		WHERE id = $1 AND status <> 'SIGNED'
		RETURNING `+contractColumns,
		id,
	))
}

func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (Contract, error) {
	return scanContract(r.pool.QueryRow(ctx, `
		UPDATE contracts SET status = 'CANCELLED', updated_at = now()
		WHERE id = $1 AND status <> 'SIGNED'
		RETURNING `+contractColumns,
		id,
	))
}
