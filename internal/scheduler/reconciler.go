package scheduler

import (
	"context"
	"time"

	leadsrepo "labcrm_backend/internal/leads/repository"
	"labcrm_backend/platform/config"
	"labcrm_backend/platform/logger"
)

// LeadSource lists the converted leads whose pair may need reconciling.
type LeadSource interface {
	ListConvertedForReconcile(ctx context.Context, limit int) ([]leadsrepo.Lead, error)
}

// SyncReconcileDispatcher periodically scans for converted leads whose lead
// or customer row changed after the last sync pass and enqueues one
// reconciliation task per lead.
type SyncReconcileDispatcher struct {
	client   *Client
	leads    LeadSource
	interval time.Duration
	log      *logger.Logger
}

func NewSyncReconcileDispatcher(cfg config.SchedulerConfig, client *Client, leads LeadSource, log *logger.Logger) *SyncReconcileDispatcher {
	interval := cfg.GetSyncReconcileInterval()
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &SyncReconcileDispatcher{
		client:   client,
		leads:    leads,
		interval: interval,
		log:      log,
	}
}

func (d *SyncReconcileDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.leads == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.dispatch(ctx)
	}
}

func (d *SyncReconcileDispatcher) dispatch(ctx context.Context) {
	leads, err := d.leads.ListConvertedForReconcile(ctx, 200)
	if err != nil {
		d.log.Warn("reconcile scan failed", "error", err)
		return
	}

	for _, lead := range leads {
		var lastSyncAt time.Time
		if lead.LastSyncAt != nil {
			lastSyncAt = *lead.LastSyncAt
		}

		err := d.client.EnqueueSyncReconcile(ctx, SyncReconcilePayload{
			LeadID:     lead.ID.String(),
			LastSyncAt: lastSyncAt,
		})
		if err != nil {
			d.log.Warn("reconcile enqueue failed", "lead_id", lead.ID.String(), "error", err)
		}
	}
}
