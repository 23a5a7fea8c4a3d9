package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/repository"
)

const (
	CompletionBatchSize    = 50
	CompletionBatchTimeout = 2 * time.Second
	CompletionPollTimeout  = 1 * time.Second
)

// CompletionWriter stamps completed_at on finished sessions.
type CompletionWriter interface {
	MarkCompleted(ctx context.Context, ids []uuid.UUID, completedAt []time.Time) error
}

// CompletionWorker batches session completions and writes them with one
// UPDATE ... FROM UNNEST per batch.
type CompletionWorker struct {
	sessions CompletionWriter
	queue    Queue
	log      zerolog.Logger
}

func NewCompletionWorker(sessions CompletionWriter, queue Queue, log zerolog.Logger) *CompletionWorker {
	return &CompletionWorker{
		sessions: sessions,
		queue:    queue,
		log:      logger.Component(log, "completion_worker"),
	}
}

func (w *CompletionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CompletionWorker started")

	batch := make([]repository.CompletionPayload, 0, CompletionBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= CompletionBatchSize || time.Since(lastFlush) >= CompletionBatchTimeout) {
			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return

		default:
			raw, ok, err := pop(ctx, w.queue, config.WorkerKey.PersistCompletionsQueue, CompletionPollTimeout)
			if err != nil {
				w.log.Error().Err(err).Msg("BLPop error")
				continue
			}
			if !ok {
				continue
			}

			var p repository.CompletionPayload
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, p)
		}
	}
}

// flush writes the batch, falling back to one row at a time and requeueing
// rows that still fail.
func (w *CompletionWorker) flush(ctx context.Context, batch []repository.CompletionPayload) {
	if len(batch) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(batch))
	times := make([]time.Time, len(batch))
	for i, p := range batch {
		ids[i] = p.SessionID
		times[i] = p.CompletedAt
	}

	err := w.sessions.MarkCompleted(ctx, ids, times)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Completions flushed")
		return
	}
	w.log.Warn().Err(err).Msg("Bulk completion update failed, using fallback")

	for _, p := range batch {
		if err := w.sessions.MarkCompleted(ctx, []uuid.UUID{p.SessionID}, []time.Time{p.CompletedAt}); err != nil {
			w.log.Error().Err(err).Str("session_id", p.SessionID.String()).Msg("Completion update failed, requeueing")
			raw, _ := json.Marshal(p)
			w.queue.RPush(context.Background(), config.WorkerKey.PersistCompletionsQueue, raw)
		}
	}
}
