// Package worker hosts the background goroutines that run beside the HTTP
// server. The sync worker is the other half of the offline-fallback
// contract: everything the gateway or the session engine parks locally is
// eventually replayed against the remote store from here.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/session"
)

const SyncBatchSize = 50

// SyncWorker drains the failed-writes and offline-results queues back into
// the remote store. Items that still cannot be written are requeued, so a
// long outage costs retries, never data.
type SyncWorker struct {
	gw    gateway.Gateway
	store cache.Store
	log   zerolog.Logger
}

func NewSyncWorker(gw gateway.Gateway, store cache.Store, log zerolog.Logger) *SyncWorker {
	return &SyncWorker{
		gw:    gw,
		store: store,
		log:   log.With().Str("component", "sync_worker").Logger(),
	}
}

// Start runs the replay loop until ctx is cancelled, then makes one final
// drain attempt so a clean shutdown flushes whatever it can.
func (w *SyncWorker) Start(ctx context.Context, interval time.Duration) {
	w.log.Info().Dur("interval", interval).Msg("SyncWorker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Draining queues...")
			w.DrainOnce(context.Background())
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce replays both queues a single time. A connectivity probe runs
// first: with the remote store down, replaying would only shuffle items
// off and back onto the queues.
func (w *SyncWorker) DrainOnce(ctx context.Context) {
	if !w.gw.CheckConnectivity(ctx) {
		w.log.Debug().Msg("Remote store unreachable, skipping sync cycle")
		return
	}
	w.drainFailedWrites(ctx)
	w.drainOfflineResults(ctx)
}

func (w *SyncWorker) drainFailedWrites(ctx context.Context) {
	replayed, requeued := 0, 0
	for {
		items := w.store.DrainQueue(ctx, config.QueueKey.FailedWrites, SyncBatchSize)
		if len(items) == 0 {
			break
		}
		for _, raw := range items {
			var qw gateway.QueuedWrite
			if err := json.Unmarshal(raw, &qw); err != nil {
				w.log.Error().Err(err).Msg("Dropping malformed queued write")
				continue
			}
			if err := w.gw.Upsert(ctx, qw.Collection, qw.Records, qw.ConflictKey); err != nil {
				// Upsert already requeued the batch through its own
				// exhaustion hook; do not requeue a second copy.
				requeued++
				continue
			}
			replayed++
		}
		if requeued > 0 {
			break
		}
	}
	if replayed > 0 || requeued > 0 {
		w.log.Info().
			Int("replayed", replayed).
			Int("requeued", requeued).
			Msg("Failed-writes queue drained")
	}
}

func (w *SyncWorker) drainOfflineResults(ctx context.Context) {
	replayed, requeued := 0, 0
	for {
		items := w.store.DrainQueue(ctx, config.QueueKey.OfflineResults, SyncBatchSize)
		if len(items) == 0 {
			break
		}
		for _, raw := range items {
			var r model.ExamResult
			if err := json.Unmarshal(raw, &r); err != nil {
				w.log.Error().Err(err).Msg("Dropping malformed offline result")
				continue
			}
			rec := session.ResultRecord(&r)
			if err := w.gw.Upsert(ctx, "test_results", []gateway.Record{rec}, "session_id"); err != nil {
				// The gateway parks exhausted batches on the failed-writes
				// queue itself; requeueing here would double the item.
				requeued++
				continue
			}
			replayed++
		}
		if requeued > 0 {
			break
		}
	}
	if replayed > 0 || requeued > 0 {
		w.log.Info().
			Int("replayed", replayed).
			Int("requeued", requeued).
			Msg("Offline-results queue drained")
	}
}
