package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrAlreadyConverted is returned when a conversion races another and loses;
// the guarded update finds the lead no longer convertible.
var ErrAlreadyConverted = errors.New("lead already converted")

// Customer is the customers-table row as seen by the conversion and sync
// engines. The customers module owns its own richer representation.
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

// GetCustomer reads a customer row outside any transaction, for sync reads.
func (r *Repository) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE id = $1
	`, id))
}

// UpdateCustomerContactFields writes the mapped contact fields on the
// customer side. touchUpdatedAt false is used by sync writes.
func (r *Repository) UpdateCustomerContactFields(ctx context.Context, id uuid.UUID, params UpdateContactParams, touchUpdatedAt bool) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, company = $3, email = $4, phone = $5,
			updated_at = CASE WHEN $6 THEN now() ELSE updated_at END
		WHERE id = $1
		RETURNING `+customerColumns,
		id, params.ContactName, params.CompanyName, params.ContactEmail, params.ContactPhone, touchUpdatedAt,
	))
}

// ConversionTx is the unit of work for converting a lead into a customer.
// All reads and writes go through one database transaction; either the whole
// conversion commits or none of it does.
type ConversionTx struct {
	tx pgx.Tx
}

// BeginConversion opens the conversion transaction.
func (r *Repository) BeginConversion(ctx context.Context) (*ConversionTx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &ConversionTx{tx: tx}, nil
}

func (t *ConversionTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *ConversionTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// GetLeadForUpdate locks the lead row for the duration of the transaction so
// concurrent conversions serialize on it.
func (t *ConversionTx) GetLeadForUpdate(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(t.tx.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id))
}

// GetCustomerForUpdate locks the linked customer row for the conversion.
func (t *ConversionTx) GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scanCustomer(t.tx.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE
	`, id))
}

type CreateCustomerParams struct {
	Name    string
	Company string
	Email   string
	Phone   string
	Grade   string
	Notes   *string
}

func (t *ConversionTx) CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	return scanCustomer(t.tx.QueryRow(ctx, `
		INSERT INTO customers (name, company, email, phone, grade, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+customerColumns,
		params.Name, params.Company, params.Email, params.Phone, params.Grade, params.Notes,
	))
}

// UpdateCustomerForConversion refreshes an existing customer's contact data
// and grade from the converting lead.
func (t *ConversionTx) UpdateCustomerForConversion(ctx context.Context, id uuid.UUID, params CreateCustomerParams) (Customer, error) {
	return scanCustomer(t.tx.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, company = $3, email = $4, phone = $5, grade = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		id, params.Name, params.Company, params.Email, params.Phone, params.Grade,
	))
}

// MarkLeadConverted flips the lead to CONVERTED and links the customer. The
// guard makes the operation safe under concurrency: a lead that is already
// CONVERTED with a linked customer matches zero rows and the losing
// transaction gets ErrAlreadyConverted. A CONVERTED lead without a customer
// (minimal flip from the signed-contract hook) may still be completed here.
func (t *ConversionTx) MarkLeadConverted(ctx context.Context, leadID, customerID uuid.UUID) (Lead, error) {
	lead, err := scanLead(t.tx.QueryRow(ctx, `
		UPDATE leads
		SET status = 'CONVERTED', customer_id = $2, converted_at = COALESCE(converted_at, now()), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		  AND (status <> 'CONVERTED' OR customer_id IS NULL)
		RETURNING `+leadColumns,
		leadID, customerID,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrAlreadyConverted
	}
	return lead, err
}

// RelinkQuotations repoints the lead's non-deleted quotations at the
// customer so the quotation history follows the relationship. Returns the
// ids of the quotations that were relinked.
func (t *ConversionTx) RelinkQuotations(ctx context.Context, leadID, customerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := t.tx.Query(ctx, `
		UPDATE quotations
		SET customer_id = $2, updated_at = now()
		WHERE lead_id = $1 AND deleted_at IS NULL
		  AND (customer_id IS NULL OR customer_id <> $2)
		RETURNING id
	`, leadID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddActivity writes the conversion timeline entry inside the transaction so
// it commits with the rest of the conversion.
func (t *ConversionTx) AddActivity(ctx context.Context, params AddActivityParams) error {
	var metadata []byte
	if params.Metadata != nil {
		encoded, err := json.Marshal(params.Metadata)
		if err != nil {
			return err
		}
		metadata = encoded
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, activity_type, description, metadata, actor_id)
		VALUES ($1, $2, $3, $4, $5)
	`, params.LeadID, params.ActivityType, params.Description, metadata, params.ActorID)
	return err
}
