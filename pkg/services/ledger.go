package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/kerbaras/otakulog/pkg/data"
)

// Ledger records job lifecycle for operational inspection. Writes are
// best-effort: a failed ledger write is logged and never fails the job.
type Ledger struct {
	store *data.Store
	log   *zap.SugaredLogger
}

func NewLedger(store *data.Store, log *zap.SugaredLogger) *Ledger {
	return &Ledger{store: store, log: log}
}

// LogStart records the QUEUED row before a job is dispatched.
func (l *Ledger) LogStart(ctx context.Context, jobID, queue, payload string) {
	if err := l.store.LogJobStart(ctx, jobID, queue, payload); err != nil {
		l.log.Warnw("job ledger start write failed", "job", jobID, "queue", queue, "error", err)
	}
}

// Settle records the single terminal update for a job.
func (l *Ledger) Settle(ctx context.Context, jobID string, status data.JobStatus, result, errMsg string) {
	if err := l.store.SettleJob(ctx, jobID, status, result, errMsg); err != nil {
		l.log.Warnw("job ledger settle write failed", "job", jobID, "status", status, "error", err)
	}
}
