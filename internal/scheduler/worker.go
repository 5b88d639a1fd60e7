package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	leadstransport "labcrm_backend/internal/leads/transport"
	"labcrm_backend/platform/apperr"
	"labcrm_backend/platform/config"
	"labcrm_backend/platform/logger"
)

// PairSyncer reconciles one lead/customer pair with conflict resolution.
type PairSyncer interface {
	SyncWithConflictResolution(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID, lastSyncAt time.Time) (*leadstransport.SyncResult, error)
}

// SyncMarker stamps a lead's last completed sync pass.
type SyncMarker interface {
	TouchLastSyncAt(ctx context.Context, id uuid.UUID) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	syncer PairSyncer
	marker SyncMarker
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, syncer PairSyncer, marker SyncMarker, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		syncer: syncer,
		marker: marker,
		log:    log,
	}

	mux.HandleFunc(TaskSyncReconcile, w.handleSyncReconcile)

	return w, nil
}

func (w *Worker) handleSyncReconcile(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSyncReconcilePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	result, err := w.syncer.SyncWithConflictResolution(ctx, leadID, uuid.Nil, payload.LastSyncAt)
	if err != nil {
		// A lead deleted or unconverted since the scan is not a retryable failure.
		if apperr.GetKind(err) == apperr.KindNotFound {
			return nil
		}
		return err
	}

	if result != nil && result.ConflictResolved {
		w.log.Info("sync conflict resolved",
			"lead_id", leadID.String(),
			"direction", result.Direction,
		)
	}

	return w.marker.TouchLastSyncAt(ctx, leadID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
