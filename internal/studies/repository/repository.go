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

var ErrNotFound = errors.New("record not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type TestReception struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	TestNumber *string
	Status     string
	ReceivedAt time.Time
	IssuedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const receptionColumns = `id, contract_id, test_number, status, received_at, issued_at, created_at, updated_at`

func scanReception(row pgx.Row) (TestReception, error) {
	var reception TestReception
	err := row.Scan(
		&reception.ID, &reception.ContractID, &reception.TestNumber, &reception.Status,
		&reception.ReceivedAt, &reception.IssuedAt, &reception.CreatedAt, &reception.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return TestReception{}, ErrNotFound
	}
	return reception, err
}

func (r *Repository) CreateReception(ctx context.Context, contractID uuid.UUID) (TestReception, error) {
	return scanReception(r.pool.QueryRow(ctx, `
		INSERT INTO test_receptions (contract_id, status)
		VALUES ($1, 'RECEIVED')
		RETURNING `+receptionColumns,
		contractID,
	))
}

func (r *Repository) GetReception(ctx context.Context, id uuid.UUID) (TestReception, error) {
	return scanReception(r.pool.QueryRow(ctx, `
		SELECT `+receptionColumns+` FROM test_receptions WHERE id = $1
	`, id))
}

// IssueTestNumber assigns the official T-YYYY-NNNN number in one statement.
// A reception that already has a number matches zero rows; the caller maps
// that to a conflict.
func (r *Repository) IssueTestNumber(ctx context.Context, id uuid.UUID, year int) (TestReception, error) {
	var value int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO test_number_sequences (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = test_number_sequences.last_value + 1
		RETURNING last_value
	`, year).Scan(&value)
	if err != nil {
		return TestReception{}, err
	}
	testNumber := fmt.Sprintf("T-%d-%04d", year, value)

	return scanReception(r.pool.QueryRow(ctx, `
		UPDATE test_receptions
		SET test_number = $2, status = 'NUMBERED', issued_at = now(), updated_at = now()
		WHERE id = $1 AND test_number IS NULL
		RETURNING `+receptionColumns,
		id, testNumber,
	))
}

type Study struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	Title       string
	Status      string
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const studyColumns = `id, contract_id, title, status, completed_at, created_at, updated_at`

func scanStudy(row pgx.Row) (Study, error) {
	var study Study
	err := row.Scan(
		&study.ID, &study.ContractID, &study.Title, &study.Status,
		&study.CompletedAt, &study.CreatedAt, &study.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Study{}, ErrNotFound
	}
	return study, err
}

func (r *Repository) CreateStudy(ctx context.Context, contractID uuid.UUID, title string) (Study, error) {
	return scanStudy(r.pool.QueryRow(ctx, `
		INSERT INTO studies (contract_id, title, status)
		VALUES ($1, $2, 'IN_PROGRESS')
		RETURNING `+studyColumns,
		contractID, title,
	))
}

func (r *Repository) GetStudy(ctx context.Context, id uuid.UUID) (Study, error) {
	return scanStudy(r.pool.QueryRow(ctx, `
		SELECT `+studyColumns+` FROM studies WHERE id = $1
	`, id))
}

// CompleteStudy flips the study to COMPLETED; an already completed study
// matches zero rows.
func (r *Repository) CompleteStudy(ctx context.Context, id uuid.UUID) (Study, error) {
	return scanStudy(r.pool.QueryRow(ctx, `
		UPDATE studies
		SET status = 'COMPLETED', completed_at = now(), updated_at = now()
		WHERE id = $1 AND status <> 'COMPLETED'
		RETURNING `+studyColumns,
		id,
	))
}
