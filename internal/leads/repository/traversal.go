package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Traversal queries used by the pipeline automation engine. Dead-ends
// (missing linkage anywhere along the chain) surface as ErrNotFound; the
// engine treats that as "nothing to do".

// GetQuotationLeadID returns the lead linked to a quotation.
func (r *Repository) GetQuotationLeadID(ctx context.Context, quotationID uuid.UUID) (uuid.UUID, error) {
	var leadID *uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT lead_id FROM quotations WHERE id = $1 AND deleted_at IS NULL
	`, quotationID).Scan(&leadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	if leadID == nil {
		return uuid.Nil, ErrNotFound
	}
	return *leadID, nil
}

// ListContractLeadIDs returns the distinct leads linked through a contract's
// non-deleted quotations.
func (r *Repository) ListContractLeadIDs(ctx context.Context, contractID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT lead_id FROM quotations
		WHERE contract_id = $1 AND lead_id IS NOT NULL AND deleted_at IS NULL
	`, contractID)
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

// GetLeadIDByReception walks TestReception -> Contract -> first quotation
// with a linked lead.
func (r *Repository) GetLeadIDByReception(ctx context.Context, receptionID uuid.UUID) (uuid.UUID, error) {
	var leadID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT q.lead_id
		FROM test_receptions tr
		JOIN quotations q ON q.contract_id = tr.contract_id AND q.deleted_at IS NULL
		WHERE tr.id = $1 AND q.lead_id IS NOT NULL
		ORDER BY q.created_at ASC
		LIMIT 1
	`, receptionID).Scan(&leadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return leadID, err
}

// GetLeadIDByStudy walks Study -> Contract -> first quotation with a linked
// lead.
func (r *Repository) GetLeadIDByStudy(ctx context.Context, studyID uuid.UUID) (uuid.UUID, error) {
	var leadID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT q.lead_id
		FROM studies s
		JOIN quotations q ON q.contract_id = s.contract_id AND q.deleted_at IS NULL
		WHERE s.id = $1 AND q.lead_id IS NOT NULL
		ORDER BY q.created_at ASC
		LIMIT 1
	`, studyID).Scan(&leadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return leadID, err
}
