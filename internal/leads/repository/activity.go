package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity types recorded on the lead timeline.
const (
	ActivityStageChanged  = "STAGE_CHANGED"
	ActivityStatusChanged = "STATUS_CHANGED"
	ActivityTaskCompleted = "TASK_COMPLETED"
	ActivityConverted     = "CONVERTED"
	ActivityNote          = "NOTE"
)

type LeadActivity struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	ActivityType string
	Description  string
	Metadata     []byte
	ActorID      *uuid.UUID
	CreatedAt    time.Time
}

type AddActivityParams struct {
	LeadID       uuid.UUID
	ActivityType string
	Description  string
	Metadata     interface{}
	ActorID      *uuid.UUID
}

// AddActivity appends a timeline entry. Callers treat failures as
// best-effort: log and continue.
func (r *Repository) AddActivity(ctx context.Context, params AddActivityParams) error {
	var metadata []byte
	if params.Metadata != nil {
		encoded, err := json.Marshal(params.Metadata)
		if err != nil {
			return err
		}
		metadata = encoded
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, activity_type, description, metadata, actor_id)
		VALUES ($1, $2, $3, $4, $5)
	`, params.LeadID, params.ActivityType, params.Description, metadata, params.ActorID)
	return err
}

// HasStageActivity reports whether the lead already has an activity of the
// given type referencing the same stage, used to suppress duplicate
// automation entries when an event re-fires for an unchanged stage.
func (r *Repository) HasStageActivity(ctx context.Context, leadID uuid.UUID, stageID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM lead_activities
			WHERE lead_id = $1
			  AND activity_type = $2
			  AND metadata->>'stageId' = $3::text
		)
	`, leadID, ActivityStageChanged, stageID).Scan(&exists)
	return exists, err
}

func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]LeadActivity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, activity_type, description, metadata, actor_id, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]LeadActivity, 0)
	for rows.Next() {
		var activity LeadActivity
		if err := rows.Scan(
			&activity.ID, &activity.LeadID, &activity.ActivityType,
			&activity.Description, &activity.Metadata, &activity.ActorID, &activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}
