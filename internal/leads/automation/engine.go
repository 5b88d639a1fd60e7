// Package automation advances leads through the pipeline in response to
// quotation, contract, and study lifecycle events. Hooks are best-effort:
// missing linkage or unresolvable stages mean "nothing to do", never an
// error back to the operation that fired the event.
package automation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"labcrm_backend/internal/leads/domain"
	"labcrm_backend/internal/leads/repository"
	"labcrm_backend/internal/leads/transport"
	"labcrm_backend/platform/apperr"
	"labcrm_backend/platform/logger"
)

// Quotation and contract status values the hooks react to.
const (
	quotationStatusSent  = "SENT"
	contractStatusSigned = "SIGNED"
)

// Store is the persistence surface the engine needs. The leads repository
// satisfies it; tests supply fakes.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (repository.Lead, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stageID uuid.UUID, status *string) (repository.Lead, error)
	MarkConverted(ctx context.Context, id uuid.UUID) (repository.Lead, error)

	GetStageByCode(ctx context.Context, code string) (repository.PipelineStage, error)
	GetStageByNameContains(ctx context.Context, fragment string) (repository.PipelineStage, error)
	ListStageTasks(ctx context.Context, stageID uuid.UUID) ([]repository.StageTask, error)
	GetStageTask(ctx context.Context, taskID uuid.UUID) (repository.StageTask, error)
	CompleteTask(ctx context.Context, leadID, taskID uuid.UUID, actorID *uuid.UUID, notes *string) (bool, error)
	ListTaskCompletions(ctx context.Context, leadID, stageID uuid.UUID) ([]repository.TaskCompletion, error)

	AddActivity(ctx context.Context, params repository.AddActivityParams) error

	GetQuotationLeadID(ctx context.Context, quotationID uuid.UUID) (uuid.UUID, error)
	ListContractLeadIDs(ctx context.Context, contractID uuid.UUID) ([]uuid.UUID, error)
	GetLeadIDByReception(ctx context.Context, receptionID uuid.UUID) (uuid.UUID, error)
	GetLeadIDByStudy(ctx context.Context, studyID uuid.UUID) (uuid.UUID, error)
}

type Engine struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// OnQuotationStatusChange advances the quotation's lead to PROPOSAL when the
// quotation is sent. Leads already at PROPOSAL or later, terminal leads, and
// quotations without a lead are silent no-ops.
func (e *Engine) OnQuotationStatusChange(ctx context.Context, quotationID uuid.UUID, newStatus string, actorID uuid.UUID) (*transport.LeadStageResult, error) {
	if newStatus != quotationStatusSent {
		return nil, nil
	}

	leadID, err := e.store.GetQuotationLeadID(ctx, quotationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	lead, err := e.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !domain.Status(lead.Status).Before(domain.StatusProposal) {
		return nil, nil
	}

	previousStatus := lead.Status
	newLeadStatus := string(domain.StatusProposal)

	// Stage resolution failure is non-fatal: the status still advances.
	stage, resolved, err := e.resolveStage(ctx, domain.StageCodeProposal, domain.StageLabelQuotationSent)
	if err != nil {
		return nil, err
	}

	var updated repository.Lead
	if resolved {
		updated, err = e.store.UpdateStage(ctx, lead.ID, stage.ID, &newLeadStatus)
	} else {
		updated, err = e.store.UpdateStatus(ctx, lead.ID, newLeadStatus)
	}
	if err != nil {
		return nil, err
	}

	e.recordActivity(ctx, repository.AddActivityParams{
		LeadID:       lead.ID,
		ActivityType: repository.ActivityStatusChanged,
		Description:  "quotation sent, lead advanced to proposal",
		Metadata: map[string]interface{}{
			"quotationId":    quotationID,
			"previousStatus": previousStatus,
			"newStatus":      newLeadStatus,
		},
		ActorID: actorPtr(actorID),
	})

	result := &transport.LeadStageResult{
		Lead:            transport.NewLeadResponse(updated),
		PreviousStatus:  previousStatus,
		NewStatus:       newLeadStatus,
		PreviousStageID: lead.StageID,
		NewStageID:      updated.StageID,
	}
	if resolved {
		result.StageName = stage.Name
	}
	return result, nil
}

// OnContractStatusChange flips every lead attached to a signed contract to
// CONVERTED. Customer materialization is the conversion engine's job; this
// hook only keeps lead state consistent with a signed contract.
func (e *Engine) OnContractStatusChange(ctx context.Context, contractID uuid.UUID, newStatus string) error {
	if newStatus != contractStatusSigned {
		return nil
	}

	leadIDs, err := e.store.ListContractLeadIDs(ctx, contractID)
	if err != nil {
		return err
	}

	for _, leadID := range leadIDs {
		lead, err := e.store.MarkConverted(ctx, leadID)
		if errors.Is(err, repository.ErrNotFound) {
			continue // already converted, or gone
		}
		if err != nil {
			e.log.Error("contract hook failed to convert lead",
				"lead_id", leadID.String(),
				"contract_id", contractID.String(),
				"error", err,
			)
			continue
		}

		e.recordActivity(ctx, repository.AddActivityParams{
			LeadID:       lead.ID,
			ActivityType: repository.ActivityConverted,
			Description:  "contract signed, lead marked converted",
			Metadata:     map[string]interface{}{"contractId": contractID},
		})
	}
	return nil
}

// OnTestNumberIssued moves the lead behind a test reception to the
// in-progress stage. Unlike the quotation hook, an unresolvable stage means
// no partial update at all.
func (e *Engine) OnTestNumberIssued(ctx context.Context, receptionID uuid.UUID, actorID uuid.UUID) (*transport.LeadStageResult, error) {
	leadID, err := e.store.GetLeadIDByReception(ctx, receptionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.advanceStage(ctx, leadID, domain.StageCodeInProgress, domain.StageLabelTestInProgress, actorID)
}

// OnStudyCompleted moves the lead behind a completed study to the completed
// stage.
func (e *Engine) OnStudyCompleted(ctx context.Context, studyID uuid.UUID, actorID uuid.UUID) (*transport.LeadStageResult, error) {
	leadID, err := e.store.GetLeadIDByStudy(ctx, studyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.advanceStage(ctx, leadID, domain.StageCodeCompleted, "", actorID)
}

// advanceStage is the shared body of the event-driven stage moves.
func (e *Engine) advanceStage(ctx context.Context, leadID uuid.UUID, stageCode, nameFragment string, actorID uuid.UUID) (*transport.LeadStageResult, error) {
	lead, err := e.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if domain.Status(lead.Status).IsTerminalException() {
		return nil, nil
	}

	stage, resolved, err := e.resolveStage(ctx, stageCode, nameFragment)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, nil
	}

	if lead.StageID != nil && *lead.StageID == stage.ID {
		return nil, nil
	}

	updated, err := e.store.UpdateStage(ctx, lead.ID, stage.ID, nil)
	if err != nil {
		return nil, err
	}

	e.recordActivity(ctx, repository.AddActivityParams{
		LeadID:       lead.ID,
		ActivityType: repository.ActivityStageChanged,
		Description:  "stage changed to " + stage.Name,
		Metadata: map[string]interface{}{
			"stageId":   stage.ID,
			"stageName": stage.Name,
		},
		ActorID: actorPtr(actorID),
	})

	return &transport.LeadStageResult{
		Lead:            transport.NewLeadResponse(updated),
		PreviousStatus:  lead.Status,
		NewStatus:       updated.Status,
		PreviousStageID: lead.StageID,
		NewStageID:      updated.StageID,
		StageName:       stage.Name,
	}, nil
}

// UpdateLeadStage is the direct, user-initiated stage change. Missing lead
// or stage is an explicit error, not a no-op.
func (e *Engine) UpdateLeadStage(ctx context.Context, leadID uuid.UUID, stageCode string, actorID uuid.UUID) (transport.LeadStageResult, error) {
	lead, err := e.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadStageResult{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return transport.LeadStageResult{}, err
	}

	stage, err := e.store.GetStageByCode(ctx, stageCode)
	if errors.Is(err, repository.ErrStageNotFound) {
		return transport.LeadStageResult{}, apperr.NotFound("pipeline stage not found")
	}
	if err != nil {
		return transport.LeadStageResult{}, err
	}

	sameStage := lead.StageID != nil && *lead.StageID == stage.ID

	updated, err := e.store.UpdateStage(ctx, lead.ID, stage.ID, nil)
	if err != nil {
		return transport.LeadStageResult{}, err
	}

	// A transition to the current stage must not produce a duplicate
	// activity record.
	if !sameStage {
		e.recordActivity(ctx, repository.AddActivityParams{
			LeadID:       lead.ID,
			ActivityType: repository.ActivityStageChanged,
			Description:  "stage changed to " + stage.Name,
			Metadata: map[string]interface{}{
				"stageId":   stage.ID,
				"stageName": stage.Name,
			},
			ActorID: actorPtr(actorID),
		})
	}

	return transport.LeadStageResult{
		Lead:            transport.NewLeadResponse(updated),
		PreviousStatus:  lead.Status,
		NewStatus:       updated.Status,
		PreviousStageID: lead.StageID,
		NewStageID:      updated.StageID,
		StageName:       stage.Name,
	}, nil
}

// CompleteTask records a task completion exactly once per (lead, task) pair.
// Re-completing is a silent no-op.
func (e *Engine) CompleteTask(ctx context.Context, leadID, taskID uuid.UUID, actorID uuid.UUID, notes *string) error {
	if _, err := e.store.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return err
	}

	task, err := e.store.GetStageTask(ctx, taskID)
	if errors.Is(err, repository.ErrStageNotFound) {
		return apperr.NotFound("stage task not found")
	}
	if err != nil {
		return err
	}

	inserted, err := e.store.CompleteTask(ctx, leadID, taskID, actorPtr(actorID), notes)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	e.recordActivity(ctx, repository.AddActivityParams{
		LeadID:       leadID,
		ActivityType: repository.ActivityTaskCompleted,
		Description:  "task completed: " + task.Title,
		Metadata: map[string]interface{}{
			"taskId": taskID,
			"title":  task.Title,
		},
		ActorID: actorPtr(actorID),
	})
	return nil
}

// GetLeadTaskProgress projects the lead's active stage checklist against its
// completion records.
func (e *Engine) GetLeadTaskProgress(ctx context.Context, leadID uuid.UUID) (transport.TaskProgressResponse, error) {
	lead, err := e.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.TaskProgressResponse{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return transport.TaskProgressResponse{}, err
	}

	progress := transport.TaskProgressResponse{
		LeadID:  lead.ID,
		StageID: lead.StageID,
		Tasks:   make([]transport.TaskProgressItem, 0),
	}
	if lead.StageID == nil {
		return progress, nil
	}

	tasks, err := e.store.ListStageTasks(ctx, *lead.StageID)
	if err != nil {
		return transport.TaskProgressResponse{}, err
	}
	completions, err := e.store.ListTaskCompletions(ctx, lead.ID, *lead.StageID)
	if err != nil {
		return transport.TaskProgressResponse{}, err
	}

	completedByTask := make(map[uuid.UUID]repository.TaskCompletion, len(completions))
	for _, completion := range completions {
		completedByTask[completion.TaskID] = completion
	}

	for _, task := range tasks {
		item := transport.TaskProgressItem{
			TaskID:     task.ID,
			Title:      task.Title,
			IsRequired: task.IsRequired,
		}
		if completion, ok := completedByTask[task.ID]; ok {
			completedAt := completion.CompletedAt
			item.Completed = true
			item.CompletedAt = &completedAt
			item.CompletedBy = completion.CompletedBy
			progress.CompletedTasks++
		}
		progress.Tasks = append(progress.Tasks, item)
	}
	progress.TotalTasks = len(tasks)

	return progress, nil
}

// resolveStage looks a stage up by semantic code, falling back to a name
// substring for catalogs seeded before codes existed.
func (e *Engine) resolveStage(ctx context.Context, code, nameFragment string) (repository.PipelineStage, bool, error) {
	stage, err := e.store.GetStageByCode(ctx, code)
	if err == nil {
		return stage, true, nil
	}
	if !errors.Is(err, repository.ErrStageNotFound) {
		return repository.PipelineStage{}, false, err
	}
	if nameFragment == "" {
		return repository.PipelineStage{}, false, nil
	}

	stage, err = e.store.GetStageByNameContains(ctx, nameFragment)
	if err == nil {
		return stage, true, nil
	}
	if !errors.Is(err, repository.ErrStageNotFound) {
		return repository.PipelineStage{}, false, err
	}
	return repository.PipelineStage{}, false, nil
}

// recordActivity is best-effort: a failed audit write is logged, never
// propagated.
func (e *Engine) recordActivity(ctx context.Context, params repository.AddActivityParams) {
	if err := e.store.AddActivity(ctx, params); err != nil {
		e.log.AuditWriteFailed("lead_activities", params.ActivityType, err)
	}
}

func actorPtr(actorID uuid.UUID) *uuid.UUID {
	if actorID == uuid.Nil {
		return nil
	}
	return &actorID
}
