package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/repository"
)

// Session service errors.
var (
	ErrSubmissionInProgress = errors.New("another submission for this session is in progress")
	ErrNoQuestions          = errors.New("question set is empty")
)

// SessionStore is the persistence gateway the session service relies on.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	SaveProgress(ctx context.Context, s *model.Session, expectedVersion int) error
}

// ProgressCache is the Redis side of session progress.
type ProgressCache interface {
	AcquireSubmitLock(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) (string, error)
	ReleaseSubmitLock(ctx context.Context, sessionID uuid.UUID, token string) error
	GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*model.Snapshot, error)
	SetSnapshot(ctx context.Context, snap model.Snapshot, ttl time.Duration) error
	DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error
	EnqueueAttempt(ctx context.Context, a model.Attempt) error
	EnqueueCompletion(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	PublishProgress(ctx context.Context, event model.ProgressEvent) error
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// SessionService starts sessions from the active question set and applies
// submissions to them. Every call rebuilds the session from storage.
type SessionService struct {
	store     SessionStore
	cache     ProgressCache
	questions *config.QuestionSet
	rng       model.Float64Source
	lockTTL   time.Duration
	cacheTTL  time.Duration
	log       zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(store SessionStore, cache ProgressCache, questions *config.QuestionSet, cfg *config.Config, log zerolog.Logger) *SessionService {
	return &SessionService{
		store:     store,
		cache:     cache,
		questions: questions,
		rng:       globalRand{},
		lockTTL:   cfg.SubmissionLockTTL,
		cacheTTL:  cfg.SnapshotCacheTTL,
		log:       logger.Component(log, "session_service"),
	}
}

// QuestionSet returns the recipes new sessions are generated from.
func (s *SessionService) QuestionSet() *config.QuestionSet {
	return s.questions
}

// StartSession generates a fresh question for every recipe, activates the
// first and persists everything before returning.
func (s *SessionService) StartSession(ctx context.Context, login model.LoginInfo) (*model.Session, error) {
	if s.questions == nil || len(s.questions.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	questions := make([]*model.Question, 0, len(s.questions.Questions))
	for i, qc := range s.questions.Questions {
		q, err := qc.Generate(s.rng)
		if err != nil {
			return nil, fmt.Errorf("generate question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}

	session := model.NewSession(login, questions)
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.cacheSnapshot(ctx, session.Snapshot())
	return session, nil
}

// GetSnapshot returns the student view of a session, from cache when possible.
func (s *SessionService) GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*model.Snapshot, error) {
	snap, err := s.cache.GetSnapshot(ctx, sessionID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Snapshot cache read failed, using database")
	}

	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	fresh := session.Snapshot()
	s.cacheSnapshot(ctx, fresh)
	return &fresh, nil
}

// GetSession loads the full session, answers included. Admin use only.
func (s *SessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	return s.store.GetByID(ctx, sessionID)
}

// Submit applies one submission to the session's active question and
// flushes the resulting progress in a single transaction. A concurrent
// submission is rejected with ErrSubmissionInProgress or, if it slipped past
// the lock, with repository.ErrConflict.
func (s *SessionService) Submit(ctx context.Context, sessionID uuid.UUID, raw string) (model.Attempt, model.Snapshot, error) {
	token, err := s.cache.AcquireSubmitLock(ctx, sessionID, s.lockTTL)
	switch {
	case err != nil:
		// the version check still guards the write
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Submit lock unavailable")
	case token == "":
		return model.Attempt{}, model.Snapshot{}, ErrSubmissionInProgress
	default:
		defer func() {
			if err := s.cache.ReleaseSubmitLock(context.Background(), sessionID, token); err != nil {
				s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Submit lock release failed")
			}
		}()
	}

	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return model.Attempt{}, model.Snapshot{}, err
	}

	expected := session.Version
	attempt, err := session.Update(raw)
	if err != nil {
		return model.Attempt{}, session.Snapshot(), err
	}

	if err := s.store.SaveProgress(ctx, session, expected); err != nil {
		return model.Attempt{}, model.Snapshot{}, fmt.Errorf("save progress: %w", err)
	}

	snap := session.Snapshot()
	s.afterSubmit(ctx, session, attempt, snap)
	return attempt, snap, nil
}

// afterSubmit feeds the cache, the persistence queues and live monitors.
// Failures here never undo an accepted submission.
func (s *SessionService) afterSubmit(ctx context.Context, session *model.Session, attempt model.Attempt, snap model.Snapshot) {
	log := s.log.With().Str("session_id", session.ID.String()).Logger()
	now := time.Now()

	// a stale cached snapshot would show a question that no longer takes answers
	if err := s.cache.SetSnapshot(ctx, snap, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("Snapshot cache write failed, invalidating")
		if err := s.cache.DeleteSnapshot(context.WithoutCancel(ctx), session.ID); err != nil {
			log.Error().Err(err).Msg("Snapshot invalidation failed")
		}
	}

	if err := s.cache.EnqueueAttempt(ctx, attempt); err != nil {
		log.Warn().Err(err).Msg("Attempt enqueue failed")
	}
	if attempt.Finished {
		if err := s.cache.EnqueueCompletion(ctx, session.ID, now); err != nil {
			log.Warn().Err(err).Msg("Completion enqueue failed")
		}
	}

	eventType := "attempt"
	if attempt.Finished {
		eventType = "completed"
	}
	event := model.ProgressEvent{
		Type:           eventType,
		SessionID:      session.ID,
		Student:        session.Login.String(),
		QuestionID:     attempt.QuestionID,
		Correct:        attempt.Correct,
		CompletedCount: snap.CompletedCount,
		TotalQuestions: snap.TotalQuestions,
		Timestamp:      now,
	}
	if err := s.cache.PublishProgress(ctx, event); err != nil {
		log.Warn().Err(err).Msg("Progress publish failed")
	}
}

func (s *SessionService) cacheSnapshot(ctx context.Context, snap model.Snapshot) {
	if err := s.cache.SetSnapshot(ctx, snap, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("session_id", snap.SessionID.String()).Msg("Snapshot cache write failed")
	}
}
