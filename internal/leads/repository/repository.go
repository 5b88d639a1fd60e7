package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID           uuid.UUID
	LeadNumber   string
	ContactName  string
	CompanyName  string
	ContactEmail string
	ContactPhone string
	Status       string
	StageID      *uuid.UUID
	Source       *string
	Notes        *string
	OwnerID      *uuid.UUID
	CustomerID   *uuid.UUID
	ConvertedAt  *time.Time
	LastSyncAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const leadColumns = `id, lead_number, contact_name, company_name, contact_email, contact_phone, status, stage_id,
		source, notes, owner_id, customer_id, converted_at, last_sync_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.LeadNumber, &lead.ContactName, &lead.CompanyName, &lead.ContactEmail, &lead.ContactPhone,
		&lead.Status, &lead.StageID, &lead.Source, &lead.Notes, &lead.OwnerID,
		&lead.CustomerID, &lead.ConvertedAt, &lead.LastSyncAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

type CreateLeadParams struct {
	ContactName  string
	CompanyName  string
	ContactEmail string
	ContactPhone string
	Source       *string
	Notes        *string
	OwnerID      *uuid.UUID
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (contact_name, company_name, contact_email, contact_phone, status, source, notes, owner_id)
		VALUES ($1, $2, $3, $4, 'NEW', $5, $6, $7)
		RETURNING `+leadColumns,
		params.ContactName, params.CompanyName, params.ContactEmail, params.ContactPhone,
		params.Source, params.Notes, params.OwnerID,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

// ListByCustomerID returns every lead linked to a customer, newest
// conversion first.
func (r *Repository) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE customer_id = $1 AND deleted_at IS NULL
		ORDER BY converted_at DESC NULLS LAST
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

type ListLeadsParams struct {
	Status *string
	Limit  int
	Offset int
}

func (r *Repository) List(ctx context.Context, params ListLeadsParams) ([]Lead, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE deleted_at IS NULL AND ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, params.Status, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateStatus moves a lead to the given status and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+leadColumns,
		id, status,
	))
}

// UpdateStage sets the lead's pipeline stage, and optionally its status in the
// same write so automation advances both atomically.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, stageID uuid.UUID, status *string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET stage_id = $2,
			status = COALESCE($3, status),
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+leadColumns,
		id, stageID, status,
	))
}

type UpdateContactParams struct {
	ContactName  string
	CompanyName  string
	ContactEmail string
	ContactPhone string
}

// UpdateContactFields writes the mapped contact fields. touchUpdatedAt is
// false for sync writes so that copying the winner's data does not make the
// loser look newer than the winner.
func (r *Repository) UpdateContactFields(ctx context.Context, id uuid.UUID, params UpdateContactParams, touchUpdatedAt bool) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET contact_name = $2, company_name = $3, contact_email = $4, contact_phone = $5,
			updated_at = CASE WHEN $6 THEN now() ELSE updated_at END
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+leadColumns,
		id, params.ContactName, params.CompanyName, params.ContactEmail, params.ContactPhone, touchUpdatedAt,
	))
}

// MarkConverted performs the minimal CONVERTED flip used by the signed
// contract hook. The status guard makes re-fired events no-ops; zero rows
// affected surfaces as ErrNotFound.
func (r *Repository) MarkConverted(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'CONVERTED', converted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND status <> 'CONVERTED'
		RETURNING `+leadColumns,
		id,
	))
}

// TouchLastSyncAt records a completed sync pass without affecting updated_at.
func (r *Repository) TouchLastSyncAt(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET last_sync_at = now() WHERE id = $1
	`, id)
	return err
}

// ListConvertedForReconcile returns converted leads whose lead or customer row
// changed since the last sync pass, for the scheduled reconciliation job.
func (r *Repository) ListConvertedForReconcile(ctx context.Context, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 200
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumnsPrefixed("l")+`
		FROM leads l
		JOIN customers c ON c.id = l.customer_id
		WHERE l.status = 'CONVERTED'
		  AND l.deleted_at IS NULL
		  AND (l.last_sync_at IS NULL
			OR l.updated_at > l.last_sync_at
			OR c.updated_at > l.last_sync_at)
		ORDER BY l.updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func leadColumnsPrefixed(alias string) string {
	return alias + `.id, ` + alias + `.lead_number, ` + alias + `.contact_name, ` + alias + `.company_name, ` + alias + `.contact_email, ` + alias + `.contact_phone, ` +
		alias + `.status, ` + alias + `.stage_id, ` + alias + `.source, ` + alias + `.notes, ` + alias + `.owner_id, ` +
		alias + `.customer_id, ` + alias + `.converted_at, ` + alias + `.last_sync_at, ` + alias + `.created_at, ` + alias + `.updated_at`
}
