package purge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wheresmywater/backend/internal/setup/config"
	"github.com/wheresmywater/backend/pkg/utils"
	"go.uber.org/zap"
)

// VotePurger deletes expired votes.
type VotePurger interface {
	PurgeExpiredVotes(ctx context.Context, cutoff time.Time, limit int) (int, []uuid.UUID, error)
}

// FountainResyncer recomputes fountain filters.
type FountainResyncer interface {
	ResyncFountains(ctx context.Context, fountainIDs []uuid.UUID) (int, error)
}

// StatusReporter publishes worker heartbeats.
type StatusReporter interface {
	Start(ctx context.Context)
	Stop()
	UpdateStatus(task string, progress int)
	SetHealthy(healthy bool)
	GetWorkerID() string
}

// Result summarizes one purge run.
type Result struct {
	Deleted   int
	Fountains int
	Changed   int
}

// Worker expires votes older than the retention window and then resyncs
// the fountains that lost votes so their filter keeps matching live votes.
type Worker struct {
	votes     VotePurger
	fountains FountainResyncer
	reporter  StatusReporter
	retention time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a purge worker.
func New(
	votes VotePurger, fountains FountainResyncer, reporter StatusReporter, cfg *config.Voting, logger *zap.Logger,
) *Worker {
	return &Worker{
		votes:     votes,
		fountains: fountains,
		reporter:  reporter,
		retention: cfg.Retention(),
		interval:  cfg.PurgeInterval(),
		batchSize: cfg.BatchSize(),
		now:       time.Now,
		logger:    logger.Named("purge_worker"),
	}
}

// Start runs purges every interval until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Purge worker started",
		zap.String("workerID", w.reporter.GetWorkerID()),
		zap.Duration("retention", w.retention),
		zap.Duration("interval", w.interval))

	w.reporter.Start(ctx)
	defer w.reporter.Stop()

	for {
		w.reporter.UpdateStatus("Purging expired votes", 20)

		result, err := w.RunOnce(ctx)
		switch {
		case ctx.Err() != nil:
			w.logger.Info("Purge worker stopped")
			return
		case err != nil:
			w.logger.Error("Error purging votes", zap.Error(err))
			w.reporter.SetHealthy(false)
		default:
			w.reporter.SetHealthy(true)
			if result.Deleted > 0 {
				w.logger.Info("Purged expired votes",
					zap.Int("deleted", result.Deleted),
					zap.Int("fountains", result.Fountains),
					zap.Int("changed", result.Changed))
			}
		}

		w.reporter.UpdateStatus("Waiting for next purge", 0)

		if !utils.IntervalSleep(ctx, w.interval, w.logger, "purge worker") {
			return
		}
	}
}

// RunOnce deletes every vote past the retention window and resyncs the
// affected fountains.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	var result Result

	cutoff := w.now().Add(-w.retention)
	seen := make(map[uuid.UUID]struct{})
	affected := make([]uuid.UUID, 0)

	for {
		deleted, fountainIDs, err := w.votes.PurgeExpiredVotes(ctx, cutoff, w.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to purge votes: %w", err)
		}

		result.Deleted += deleted
		for _, id := range fountainIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				affected = append(affected, id)
			}
		}

		if deleted < w.batchSize {
			break
		}

		w.logger.Debug("Purged vote batch", zap.Int("deleted", deleted))
	}

	if len(affected) == 0 {
		return result, nil
	}

	w.reporter.UpdateStatus("Resyncing fountains", 60)

	changed, err := w.fountains.ResyncFountains(ctx, affected)
	result.Fountains = len(affected)
	result.Changed = changed
	if err != nil {
		return result, fmt.Errorf("failed to resync fountains: %w", err)
	}

	return result, nil
}
