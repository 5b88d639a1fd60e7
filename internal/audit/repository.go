// Package audit provides the append-only activity log shared across
// bounded contexts.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Entry struct {
	ID         uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Detail     []byte
	CreatedAt  time.Time
}

type AppendParams struct {
	Action     string
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Detail     interface{}
}

// Append writes one log entry. Callers decide whether a failure is fatal;
// sync and automation treat it as best-effort.
func (r *Repository) Append(ctx context.Context, params AppendParams) error {
	var detail []byte
	if params.Detail != nil {
		encoded, err := json.Marshal(params.Detail)
		if err != nil {
			return err
		}
		detail = encoded
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_logs (action, entity_type, entity_id, actor_id, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, params.Action, params.EntityType, params.EntityID, params.ActorID, detail)
	return err
}

// ListByEntity returns an entity's log entries, newest first.
func (r *Repository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, action, entity_type, entity_id, actor_id, detail, created_at
		FROM activity_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.ID, &entry.Action, &entry.EntityType, &entry.EntityID,
			&entry.ActorID, &entry.Detail, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
