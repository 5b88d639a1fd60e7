package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"labcrm_backend/internal/leads/domain"
	"labcrm_backend/internal/leads/repository"
	"labcrm_backend/platform/apperr"
	"labcrm_backend/platform/logger"
)

type completionKey struct {
	leadID uuid.UUID
	taskID uuid.UUID
}

type fakeStore struct {
	leads         map[uuid.UUID]repository.Lead
	stagesByCode  map[string]repository.PipelineStage
	stagesByName  []repository.PipelineStage
	tasks         map[uuid.UUID]repository.StageTask
	completions   map[completionKey]repository.TaskCompletion
	activities    []repository.AddActivityParams
	quotationLead map[uuid.UUID]uuid.UUID
	contractLeads map[uuid.UUID][]uuid.UUID
	receptionLead map[uuid.UUID]uuid.UUID
	studyLead     map[uuid.UUID]uuid.UUID
	failActivity  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:         make(map[uuid.UUID]repository.Lead),
		stagesByCode:  make(map[string]repository.PipelineStage),
		tasks:         make(map[uuid.UUID]repository.StageTask),
		completions:   make(map[completionKey]repository.TaskCompletion),
		quotationLead: make(map[uuid.UUID]uuid.UUID),
		contractLeads: make(map[uuid.UUID][]uuid.UUID),
		receptionLead: make(map[uuid.UUID]uuid.UUID),
		studyLead:     make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Status = status
	lead.UpdatedAt = time.Now()
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) UpdateStage(_ context.Context, id uuid.UUID, stageID uuid.UUID, status *string) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.StageID = &stageID
	if status != nil {
		lead.Status = *status
	}
	lead.UpdatedAt = time.Now()
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) MarkConverted(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.Status == string(domain.StatusConverted) {
		return repository.Lead{}, repository.ErrNotFound
	}
	now := time.Now()
	lead.Status = string(domain.StatusConverted)
	lead.ConvertedAt = &now
	lead.UpdatedAt = now
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) GetStageByCode(_ context.Context, code string) (repository.PipelineStage, error) {
	stage, ok := f.stagesByCode[code]
	if !ok {
		return repository.PipelineStage{}, repository.ErrStageNotFound
	}
	return stage, nil
}

func (f *fakeStore) GetStageByNameContains(_ context.Context, fragment string) (repository.PipelineStage, error) {
	for _, stage := range f.stagesByName {
		if fragment != "" && containsFragment(stage.Name, fragment) {
			return stage, nil
		}
	}
	return repository.PipelineStage{}, repository.ErrStageNotFound
}

func containsFragment(name, fragment string) bool {
	for i := 0; i+len(fragment) <= len(name); i++ {
		if name[i:i+len(fragment)] == fragment {
			return true
		}
	}
	return false
}

func (f *fakeStore) ListStageTasks(_ context.Context, stageID uuid.UUID) ([]repository.StageTask, error) {
	tasks := make([]repository.StageTask, 0)
	for _, task := range f.tasks {
		if task.StageID == stageID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (f *fakeStore) GetStageTask(_ context.Context, taskID uuid.UUID) (repository.StageTask, error) {
	task, ok := f.tasks[taskID]
	if !ok {
		return repository.StageTask{}, repository.ErrStageNotFound
	}
	return task, nil
}

func (f *fakeStore) CompleteTask(_ context.Context, leadID, taskID uuid.UUID, actorID *uuid.UUID, notes *string) (bool, error) {
	key := completionKey{leadID: leadID, taskID: taskID}
	if _, exists := f.completions[key]; exists {
		return false, nil
	}
	f.completions[key] = repository.TaskCompletion{
		LeadID:      leadID,
		TaskID:      taskID,
		CompletedBy: actorID,
		Notes:       notes,
		CompletedAt: time.Now(),
	}
	return true, nil
}

func (f *fakeStore) ListTaskCompletions(_ context.Context, leadID, stageID uuid.UUID) ([]repository.TaskCompletion, error) {
	completions := make([]repository.TaskCompletion, 0)
	for key, completion := range f.completions {
		if key.leadID != leadID {
			continue
		}
		if task, ok := f.tasks[key.taskID]; ok && task.StageID == stageID {
			completions = append(completions, completion)
		}
	}
	return completions, nil
}

func (f *fakeStore) AddActivity(_ context.Context, params repository.AddActivityParams) error {
	if f.failActivity {
		return errors.New("activity sink down")
	}
	f.activities = append(f.activities, params)
	return nil
}

func (f *fakeStore) GetQuotationLeadID(_ context.Context, quotationID uuid.UUID) (uuid.UUID, error) {
	leadID, ok := f.quotationLead[quotationID]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	return leadID, nil
}

func (f *fakeStore) ListContractLeadIDs(_ context.Context, contractID uuid.UUID) ([]uuid.UUID, error) {
	return f.contractLeads[contractID], nil
}

func (f *fakeStore) GetLeadIDByReception(_ context.Context, receptionID uuid.UUID) (uuid.UUID, error) {
	leadID, ok := f.receptionLead[receptionID]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	return leadID, nil
}

func (f *fakeStore) GetLeadIDByStudy(_ context.Context, studyID uuid.UUID) (uuid.UUID, error) {
	leadID, ok := f.studyLead[studyID]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	return leadID, nil
}

func (f *fakeStore) addLead(status domain.Status) uuid.UUID {
	id := uuid.New()
	f.leads[id] = repository.Lead{
		ID:         id,
		LeadNumber: "L-2026-0001",
		Status:     string(status),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	return id
}

func (f *fakeStore) addStage(code string, name string, order int) repository.PipelineStage {
	stage := repository.PipelineStage{
		ID:        uuid.New(),
		Code:      &code,
		Name:      name,
		SortOrder: order,
		IsActive:  true,
	}
	f.stagesByCode[code] = stage
	f.stagesByName = append(f.stagesByName, stage)
	return stage
}

func newEngine(store *fakeStore) *Engine {
	return New(store, logger.New("test"))
}

func TestOnQuotationStatusChangeAdvancesToProposal(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusNew, domain.StatusContacted, domain.StatusQualified} {
		t.Run(string(status), func(t *testing.T) {
			store := newFakeStore()
			stage := store.addStage(domain.StageCodeProposal, "견적 발송", 4)
			leadID := store.addLead(status)
			quotationID := uuid.New()
			store.quotationLead[quotationID] = leadID

			engine := newEngine(store)
			result, err := engine.OnQuotationStatusChange(context.Background(), quotationID, "SENT", uuid.New())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result == nil {
				t.Fatal("expected a stage result")
			}
			if result.NewStatus != string(domain.StatusProposal) {
				t.Errorf("NewStatus = %s, want PROPOSAL", result.NewStatus)
			}
			if result.NewStageID == nil || *result.NewStageID != stage.ID {
				t.Error("stage not set on lead")
			}
			if len(store.activities) != 1 {
				t.Errorf("activities = %d, want 1", len(store.activities))
			}

			// Re-firing on the now-PROPOSAL lead is a no-op.
			again, err := engine.OnQuotationStatusChange(context.Background(), quotationID, "SENT", uuid.New())
			if err != nil {
				t.Fatalf("unexpected error on refire: %v", err)
			}
			if again != nil {
				t.Error("second fire should be a no-op")
			}
			if len(store.activities) != 1 {
				t.Errorf("refire wrote an activity, total %d", len(store.activities))
			}
		})
	}
}

func TestOnQuotationStatusChangeNeverMovesBackward(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusProposal, domain.StatusNegotiation, domain.StatusConverted, domain.StatusLost, domain.StatusDormant} {
		t.Run(string(status), func(t *testing.T) {
			store := newFakeStore()
			store.addStage(domain.StageCodeProposal, "견적 발송", 4)
			leadID := store.addLead(status)
			quotationID := uuid.New()
			store.quotationLead[quotationID] = leadID

			result, err := newEngine(store).OnQuotationStatusChange(context.Background(), quotationID, "SENT", uuid.New())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != nil {
				t.Error("expected no-op")
			}
			if store.leads[leadID].Status != string(status) {
				t.Errorf("lead mutated to %s", store.leads[leadID].Status)
			}
		})
	}
}

func TestOnQuotationStatusChangeIgnoresOtherStatuses(t *testing.T) {
	store := newFakeStore()
	leadID := store.addLead(domain.StatusNew)
	quotationID := uuid.New()
	store.quotationLead[quotationID] = leadID

	result, err := newEngine(store).OnQuotationStatusChange(context.Background(), quotationID, "ACCEPTED", uuid.New())
	if err != nil || result != nil {
		t.Fatalf("expected silent no-op, got result=%v err=%v", result, err)
	}
}

func TestOnQuotationStatusChangeUnlinkedQuotation(t *testing.T) {
	store := newFakeStore()
	result, err := newEngine(store).OnQuotationStatusChange(context.Background(), uuid.New(), "SENT", uuid.New())
	if err != nil || result != nil {
		t.Fatalf("traversal dead-end must be (nil, nil), got result=%v err=%v", result, err)
	}
}

func TestOnQuotationStatusChangeStageResolutionNonFatal(t *testing.T) {
	store := newFakeStore() // no stages at all
	leadID := store.addLead(domain.StatusQualified)
	quotationID := uuid.New()
	store.quotationLead[quotationID] = leadID

	result, err := newEngine(store).OnQuotationStatusChange(context.Background(), quotationID, "SENT", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("status advance must survive stage resolution failure")
	}
	if result.NewStatus != string(domain.StatusProposal) {
		t.Errorf("NewStatus = %s", result.NewStatus)
	}
	if result.NewStageID != nil {
		t.Error("no stage should be set")
	}
}

func TestOnQuotationStatusChangeKoreanNameFallback(t *testing.T) {
	store := newFakeStore()
	code := "LEGACY"
	stage := repository.PipelineStage{ID: uuid.New(), Code: &code, Name: "견적 발송 완료", SortOrder: 4, IsActive: true}
	store.stagesByName = append(store.stagesByName, stage)
	leadID := store.addLead(domain.StatusNew)
	quotationID := uuid.New()
	store.quotationLead[quotationID] = leadID

	result, err := newEngine(store).OnQuotationStatusChange(context.Background(), quotationID, "SENT", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.NewStageID == nil || *result.NewStageID != stage.ID {
		t.Fatal("name-substring fallback did not resolve the stage")
	}
}

func TestOnQuotationStatusChangeActivityFailureSwallowed(t *testing.T) {
	store := newFakeStore()
	store.addStage(domain.StageCodeProposal, "견적 발송", 4)
	leadID := store.addLead(domain.StatusNew)
	quotationID := uuid.New()
	store.quotationLead[quotationID] = leadID
	store.failActivity = true

	result, err := newEngine(store).OnQuotationStatusChange(context.Background(), quotationID, "SENT", uuid.New())
	if err != nil {
		t.Fatalf("audit failure must not propagate: %v", err)
	}
	if result == nil || store.leads[leadID].Status != string(domain.StatusProposal) {
		t.Fatal("advance must survive audit failure")
	}
}

func TestOnContractStatusChange(t *testing.T) {
	store := newFakeStore()
	freshID := store.addLead(domain.StatusNegotiation)
	convertedID := store.addLead(domain.StatusConverted)
	contractID := uuid.New()
	store.contractLeads[contractID] = []uuid.UUID{freshID, convertedID}

	engine := newEngine(store)
	if err := engine.OnContractStatusChange(context.Background(), contractID, "SIGNED"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.leads[freshID].Status != string(domain.StatusConverted) {
		t.Error("fresh lead not converted")
	}
	if store.leads[freshID].ConvertedAt == nil {
		t.Error("convertedAt not stamped")
	}
	if len(store.activities) != 1 {
		t.Errorf("activities = %d, want 1 (converted lead skipped)", len(store.activities))
	}

	if err := engine.OnContractStatusChange(context.Background(), contractID, "CANCELLED"); err != nil {
		t.Fatalf("non-signed status must be a no-op: %v", err)
	}
}

func TestOnTestNumberIssued(t *testing.T) {
	store := newFakeStore()
	stage := store.addStage(domain.StageCodeInProgress, "시험진행", 5)
	leadID := store.addLead(domain.StatusConverted)
	receptionID := uuid.New()
	store.receptionLead[receptionID] = leadID

	result, err := newEngine(store).OnTestNumberIssued(context.Background(), receptionID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.NewStageID == nil || *result.NewStageID != stage.ID {
		t.Fatal("lead not moved to in-progress stage")
	}
}

func TestOnTestNumberIssuedNoPartialUpdate(t *testing.T) {
	store := newFakeStore() // stage catalog empty
	leadID := store.addLead(domain.StatusConverted)
	receptionID := uuid.New()
	store.receptionLead[receptionID] = leadID

	result, err := newEngine(store).OnTestNumberIssued(context.Background(), receptionID, uuid.New())
	if err != nil || result != nil {
		t.Fatalf("unresolvable stage must be (nil, nil), got result=%v err=%v", result, err)
	}
	if store.leads[leadID].StageID != nil {
		t.Error("stage written despite unresolvable target")
	}
}

func TestOnStudyCompleted(t *testing.T) {
	store := newFakeStore()
	stage := store.addStage(domain.StageCodeCompleted, "완료", 6)
	leadID := store.addLead(domain.StatusConverted)
	studyID := uuid.New()
	store.studyLead[studyID] = leadID

	result, err := newEngine(store).OnStudyCompleted(context.Background(), studyID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.NewStageID == nil || *result.NewStageID != stage.ID {
		t.Fatal("lead not moved to completed stage")
	}

	// Dead-end: study without a contract chain.
	result, err = newEngine(store).OnStudyCompleted(context.Background(), uuid.New(), uuid.New())
	if err != nil || result != nil {
		t.Fatalf("dead-end must be (nil, nil), got result=%v err=%v", result, err)
	}
}

func TestAdvanceStageSkipsTerminalLeads(t *testing.T) {
	store := newFakeStore()
	store.addStage(domain.StageCodeInProgress, "시험진행", 5)
	leadID := store.addLead(domain.StatusLost)
	receptionID := uuid.New()
	store.receptionLead[receptionID] = leadID

	result, err := newEngine(store).OnTestNumberIssued(context.Background(), receptionID, uuid.New())
	if err != nil || result != nil {
		t.Fatalf("terminal lead must not be touched, got result=%v err=%v", result, err)
	}
}

func TestUpdateLeadStage(t *testing.T) {
	store := newFakeStore()
	first := store.addStage("PROPOSAL", "견적 발송", 4)
	second := store.addStage("IN_PROGRESS", "시험진행", 5)
	leadID := store.addLead(domain.StatusProposal)

	engine := newEngine(store)

	result, err := engine.UpdateLeadStage(context.Background(), leadID, "PROPOSAL", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewStageID == nil || *result.NewStageID != first.ID {
		t.Fatal("stage not written")
	}
	if len(store.activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(store.activities))
	}

	// Same stage again: stage write is fine, but no duplicate activity.
	if _, err := engine.UpdateLeadStage(context.Background(), leadID, "PROPOSAL", uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.activities) != 1 {
		t.Errorf("same-stage transition wrote a duplicate activity, total %d", len(store.activities))
	}

	// Different stage: exactly one more.
	if _, err := engine.UpdateLeadStage(context.Background(), leadID, "IN_PROGRESS", uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.activities) != 2 {
		t.Errorf("activities = %d, want 2", len(store.activities))
	}
	if got := store.leads[leadID].StageID; got == nil || *got != second.ID {
		t.Error("lead not on second stage")
	}
}

func TestUpdateLeadStageNotFound(t *testing.T) {
	store := newFakeStore()
	store.addStage("PROPOSAL", "견적 발송", 4)

	_, err := newEngine(store).UpdateLeadStage(context.Background(), uuid.New(), "PROPOSAL", uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("missing lead: kind = %v, want NotFound", apperr.GetKind(err))
	}

	leadID := store.addLead(domain.StatusNew)
	_, err = newEngine(store).UpdateLeadStage(context.Background(), leadID, "NOPE", uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("missing stage: kind = %v, want NotFound", apperr.GetKind(err))
	}
}

func TestCompleteTaskIdempotent(t *testing.T) {
	store := newFakeStore()
	stage := store.addStage("PROPOSAL", "견적 발송", 4)
	leadID := store.addLead(domain.StatusProposal)
	taskID := uuid.New()
	store.tasks[taskID] = repository.StageTask{ID: taskID, StageID: stage.ID, Title: "샘플 접수"}

	engine := newEngine(store)
	actor := uuid.New()

	if err := engine.CompleteTask(context.Background(), leadID, taskID, actor, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.CompleteTask(context.Background(), leadID, taskID, actor, nil); err != nil {
		t.Fatalf("second completion must be silent: %v", err)
	}

	if len(store.completions) != 1 {
		t.Errorf("completions = %d, want 1", len(store.completions))
	}
	if len(store.activities) != 1 {
		t.Errorf("activities = %d, want 1", len(store.activities))
	}
}

func TestGetLeadTaskProgress(t *testing.T) {
	store := newFakeStore()
	stage := store.addStage("PROPOSAL", "견적 발송", 4)
	leadID := store.addLead(domain.StatusProposal)
	stageID := stage.ID
	lead := store.leads[leadID]
	lead.StageID = &stageID
	store.leads[leadID] = lead

	taskA := uuid.New()
	taskB := uuid.New()
	store.tasks[taskA] = repository.StageTask{ID: taskA, StageID: stage.ID, Title: "견적서 작성", IsRequired: true}
	store.tasks[taskB] = repository.StageTask{ID: taskB, StageID: stage.ID, Title: "승인 요청"}

	engine := newEngine(store)
	if err := engine.CompleteTask(context.Background(), leadID, taskA, uuid.New(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	progress, err := engine.GetLeadTaskProgress(context.Background(), leadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progress.TotalTasks != 2 || progress.CompletedTasks != 1 {
		t.Errorf("progress = %d/%d, want 1/2", progress.CompletedTasks, progress.TotalTasks)
	}

	for _, item := range progress.Tasks {
		if item.TaskID == taskA && !item.Completed {
			t.Error("completed task reported incomplete")
		}
		if item.TaskID == taskB && item.Completed {
			t.Error("open task reported completed")
		}
	}
}

func TestGetLeadTaskProgressNoStage(t *testing.T) {
	store := newFakeStore()
	leadID := store.addLead(domain.StatusNew)

	progress, err := newEngine(store).GetLeadTaskProgress(context.Background(), leadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progress.TotalTasks != 0 || len(progress.Tasks) != 0 {
		t.Errorf("stageless lead should report empty checklist, got %+v", progress)
	}
}
