package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrStageNotFound = errors.New("pipeline stage not found")

type PipelineStage struct {
	ID        uuid.UUID
	Code      *string
	Name      string
	SortOrder int
	IsActive  bool
	CreatedAt time.Time
}

type StageTask struct {
	ID         uuid.UUID
	StageID    uuid.UUID
	Title      string
	SortOrder  int
	IsRequired bool
}

const stageColumns = `id, code, name, sort_order, is_active, created_at`

func scanStage(row pgx.Row) (PipelineStage, error) {
	var stage PipelineStage
	err := row.Scan(&stage.ID, &stage.Code, &stage.Name, &stage.SortOrder, &stage.IsActive, &stage.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PipelineStage{}, ErrStageNotFound
	}
	return stage, err
}

// GetStageByCode resolves a stage by its semantic code.
func (r *Repository) GetStageByCode(ctx context.Context, code string) (PipelineStage, error) {
	return scanStage(r.pool.QueryRow(ctx, `
		SELECT `+stageColumns+` FROM pipeline_stages
		WHERE code = $1 AND is_active = true
	`, code))
}

// GetStageByNameContains is the fallback for catalogs seeded before semantic
// codes existed; it matches on a name substring and prefers the earliest
// stage in pipeline order.
func (r *Repository) GetStageByNameContains(ctx context.Context, fragment string) (PipelineStage, error) {
	return scanStage(r.pool.QueryRow(ctx, `
		SELECT `+stageColumns+` FROM pipeline_stages
		WHERE name LIKE '%' || $1 || '%' AND is_active = true
		ORDER BY sort_order ASC
		LIMIT 1
	`, fragment))
}

func (r *Repository) GetStageByID(ctx context.Context, id uuid.UUID) (PipelineStage, error) {
	return scanStage(r.pool.QueryRow(ctx, `
		SELECT `+stageColumns+` FROM pipeline_stages WHERE id = $1
	`, id))
}

// ListStages returns the active stage catalog in pipeline order.
func (r *Repository) ListStages(ctx context.Context) ([]PipelineStage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+stageColumns+` FROM pipeline_stages
		WHERE is_active = true
		ORDER BY sort_order ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]PipelineStage, 0)
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

// ListStageTasks returns the task checklist for a stage in display order.
func (r *Repository) ListStageTasks(ctx context.Context, stageID uuid.UUID) ([]StageTask, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, stage_id, title, sort_order, is_required
		FROM stage_tasks
		WHERE stage_id = $1
		ORDER BY sort_order ASC
	`, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]StageTask, 0)
	for rows.Next() {
		var task StageTask
		if err := rows.Scan(&task.ID, &task.StageID, &task.Title, &task.SortOrder, &task.IsRequired); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *Repository) GetStageTask(ctx context.Context, taskID uuid.UUID) (StageTask, error) {
	var task StageTask
	err := r.pool.QueryRow(ctx, `
		SELECT id, stage_id, title, sort_order, is_required
		FROM stage_tasks WHERE id = $1
	`, taskID).Scan(&task.ID, &task.StageID, &task.Title, &task.SortOrder, &task.IsRequired)
	if errors.Is(err, pgx.ErrNoRows) {
		return StageTask{}, ErrStageNotFound
	}
	return task, err
}

type TaskCompletion struct {
	LeadID      uuid.UUID
	TaskID      uuid.UUID
	CompletedBy *uuid.UUID
	Notes       *string
	CompletedAt time.Time
}

// CompleteTask records a task completion for a lead. Completing an already
// completed task is a no-op; inserted reports whether this call was the one
// that recorded it.
func (r *Repository) CompleteTask(ctx context.Context, leadID, taskID uuid.UUID, actorID *uuid.UUID, notes *string) (inserted bool, err error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO lead_task_completions (lead_id, task_id, completed_by, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lead_id, task_id) DO NOTHING
	`, leadID, taskID, actorID, notes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListTaskCompletions returns the completions a lead has for a single stage.
func (r *Repository) ListTaskCompletions(ctx context.Context, leadID, stageID uuid.UUID) ([]TaskCompletion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tc.lead_id, tc.task_id, tc.completed_by, tc.notes, tc.completed_at
		FROM lead_task_completions tc
		JOIN stage_tasks st ON st.id = tc.task_id
		WHERE tc.lead_id = $1 AND st.stage_id = $2
	`, leadID, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := make([]TaskCompletion, 0)
	for rows.Next() {
		var tc TaskCompletion
		if err := rows.Scan(&tc.LeadID, &tc.TaskID, &tc.CompletedBy, &tc.Notes, &tc.CompletedAt); err != nil {
			return nil, err
		}
		completions = append(completions, tc)
	}
	return completions, rows.Err()
}
