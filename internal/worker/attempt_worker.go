package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/model"
)

const (
	AttemptPollTimeout = 1 * time.Second
	AttemptRetryDelay  = 5 * time.Second
)

// AttemptWriter persists submission attempts.
type AttemptWriter interface {
	Insert(ctx context.Context, a model.Attempt) error
}

// AttemptWorker consumes the attempts queue and appends each attempt to the
// submission log in PostgreSQL.
type AttemptWorker struct {
	attempts AttemptWriter
	queue    Queue
	log      zerolog.Logger

	retryDelay time.Duration
}

// NewAttemptWorker creates a new AttemptWorker.
func NewAttemptWorker(attempts AttemptWriter, queue Queue, log zerolog.Logger) *AttemptWorker {
	return &AttemptWorker{
		attempts:   attempts,
		queue:      queue,
		log:        logger.Component(log, "attempt_worker"),
		retryDelay: AttemptRetryDelay,
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AttemptWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AttemptWorker) processNext(ctx context.Context) {
	raw, ok, err := pop(ctx, w.queue, config.WorkerKey.PersistAttemptsQueue, AttemptPollTimeout)
	if err != nil {
		w.log.Error().Err(err).Msg("BLPop error")
		return
	}
	if !ok {
		return
	}

	var attempt model.Attempt
	if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error, dropping payload")
		return
	}

	if err := w.attempts.Insert(ctx, attempt); err != nil {
		w.log.Error().Err(err).
			Str("session_id", attempt.SessionID.String()).
			Dur("retry_in", w.retryDelay).
			Msg("Persist error, requeueing")
		w.queue.RPush(context.Background(), config.WorkerKey.PersistAttemptsQueue, raw)

		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

// drain persists whatever is still queued before shutdown.
func (w *AttemptWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.LPop(ctx, config.WorkerKey.PersistAttemptsQueue).Result()
		if err != nil {
			break
		}

		var attempt model.Attempt
		if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.attempts.Insert(ctx, attempt); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.queue.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
