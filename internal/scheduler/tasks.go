// Package scheduler runs the background reconciliation jobs over asynq.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSyncReconcile = "sync:reconcile"

// SyncReconcilePayload identifies one converted lead whose pair may have
// diverged since its last sync pass.
type SyncReconcilePayload struct {
	LeadID     string    `json:"leadId"`
	LastSyncAt time.Time `json:"lastSyncAt"`
}

func NewSyncReconcileTask(payload SyncReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncReconcile, data), nil
}

func ParseSyncReconcilePayload(task *asynq.Task) (SyncReconcilePayload, error) {
	var payload SyncReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SyncReconcilePayload{}, err
	}
	return payload, nil
}
