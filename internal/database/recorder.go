package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sysdash/internal/monitoring"
)

// Recorder batches snapshots from a channel into the Store.
type Recorder struct {
	store         *Store
	logger        *zap.SugaredLogger
	retention     time.Duration
	flushInterval time.Duration
	pruneInterval time.Duration
	now           func() time.Time
}

// NewRecorder creates a Recorder. A positive retention prunes older samples
// periodically.
func NewRecorder(store *Store, retention time.Duration, logger *zap.SugaredLogger) *Recorder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Recorder{
		store:         store,
		logger:        logger,
		retention:     retention,
		flushInterval: time.Second,
		pruneInterval: 10 * time.Minute,
		now:           time.Now,
	}
}

// Run consumes snapshots until ctx is done or the channel is closed, writing
// the buffered batch on every flush tick and once more on exit.
func (r *Recorder) Run(ctx context.Context, snapshots <-chan *monitoring.Snapshot) {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	buffer := make([]*monitoring.Snapshot, 0, 10)
	var lastPrune time.Time

	flush := func(ctx context.Context) {
		if len(buffer) == 0 {
			return
		}
		n, err := r.store.InsertSnapshots(ctx, buffer)
		if err != nil {
			r.logger.Errorw("failed to store samples", "snapshots", len(buffer), "error", err)
		} else {
			r.logger.Debugw("stored samples", "snapshots", len(buffer), "samples", n)
		}
		// 버퍼 비우기
		buffer = buffer[:0]
	}

	prune := func() {
		if r.retention <= 0 || r.now().Sub(lastPrune) < r.pruneInterval {
			return
		}
		lastPrune = r.now()
		removed, err := r.store.Prune(ctx, r.now().Add(-r.retention))
		if err != nil {
			r.logger.Warnw("failed to prune samples", "error", err)
			return
		}
		if removed > 0 {
			r.logger.Infow("pruned old samples", "removed", removed, "retention", r.retention)
		}
	}

	prune()
	for {
		select {
		case <-ctx.Done():
			flush(context.Background())
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				flush(context.Background())
				return
			}
			if snapshot != nil {
				buffer = append(buffer, snapshot)
			}
		case <-ticker.C:
			flush(ctx)
			prune()
		}
	}
}
