package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/physqgen-backend/internal/model"
)

// AttemptRepository stores the log of every parsed submission.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// InsertBatch writes many attempts with a single statement.
func (r *AttemptRepository) InsertBatch(ctx context.Context, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	sessionIDs := make([]uuid.UUID, len(attempts))
	questionIDs := make([]uuid.UUID, len(attempts))
	submitted := make([]float64, len(attempts))
	correct := make([]bool, len(attempts))
	for i, a := range attempts {
		sessionIDs[i] = a.SessionID
		questionIDs[i] = a.QuestionID
		submitted[i] = a.Submitted
		correct[i] = a.Correct
	}

	// sessions cleared in the meantime drop their attempts silently
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submission_attempts (session_id, question_id, submitted, correct)
		 SELECT data.session_id, data.question_id, data.submitted, data.correct
		 FROM UNNEST($1::uuid[], $2::uuid[], $3::float8[], $4::bool[])
		      AS data(session_id, question_id, submitted, correct)
		 WHERE EXISTS (SELECT 1 FROM questions q WHERE q.id = data.question_id)`,
		sessionIDs, questionIDs, submitted, correct,
	)
	return err
}

// Insert writes a single attempt.
func (r *AttemptRepository) Insert(ctx context.Context, a model.Attempt) error {
	return r.InsertBatch(ctx, []model.Attempt{a})
}
