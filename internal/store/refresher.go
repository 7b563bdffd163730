package store

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// Refresher keeps the datasource list tracking remote state for
// long-running sessions by re-listing on a cron schedule. Failures are
// logged and retried on the next tick, never escalated.
type Refresher struct {
	store *DataSourceStore
	log   *zap.Logger
	spec  string
	cron  *cron.Cron
}

// NewRefresher creates a refresher with a cron spec such as "@every 1m".
func NewRefresher(store *DataSourceStore, spec string, log *zap.Logger) *Refresher {
	return &Refresher{store: store, log: log, spec: spec, cron: cron.New()}
}

// Start schedules the refresh and begins the cron loop.
func (r *Refresher) Start() error {
	if _, err := r.cron.AddFunc(r.spec, r.runOnce); err != nil {
		return fmt.Errorf("invalid refresh spec %q: %w", r.spec, err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the cron loop. In-flight refreshes run to completion.
func (r *Refresher) Stop() {
	r.cron.Stop()
}

func (r *Refresher) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
	defer cancel()
	if _, err := r.store.ListAll(ctx); err != nil {
		r.log.Warn("datasource refresh failed", zap.Error(err))
	}
}
