package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/physqgen-backend/internal/model"
)

// SessionRepository persists sessions with their questions and variables.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts the session, all of its questions and all of their
// variables in one transaction. An existing id yields ErrConflict.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO sessions (id, first_name, last_name, email, version, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			s.ID, s.Login.FirstName, s.Login.LastName, s.Login.Email, s.Version, s.CreatedAt,
		)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, q := range s.Questions {
			batch.Queue(
				`INSERT INTO questions (id, session_id, position, question_type, answer_variable, text,
				                        image_filename, correct_leeway, number_tries, correct, active)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				q.ID, s.ID, q.Position, q.Kind, q.AnswerVariableName, q.Text,
				q.ImageFilename, q.CorrectLeeway, q.NumberTries, q.Correct, q.Active,
			)
			for _, v := range q.Variables {
				batch.Queue(
					`INSERT INTO variables (id, question_id, variable_name, value, units, display_name, decimal_places)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					v.ID, q.ID, v.Name, v.Value, v.Units, v.DisplayName, v.DecimalPlaces,
				)
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	return translate(err)
}

// GetByID reconstructs a session with its questions in their stored order.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s := &model.Session{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT first_name, last_name, email, version, created_at, completed_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.Login.FirstName, &s.Login.LastName, &s.Login.Email, &s.Version, &s.CreatedAt, &s.CompletedAt)
	if err != nil {
		return nil, translate(err)
	}

	questions, err := r.listQuestions(ctx, `WHERE q.session_id = $1`, id)
	if err != nil {
		return nil, err
	}
	s.Questions = questions
	return s, nil
}

// GetQuestion loads one question together with its variables.
func (r *SessionRepository) GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	questions, err := r.listQuestions(ctx, `WHERE q.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNotFound
	}
	return questions[0], nil
}

// GetVariable loads a single variable.
func (r *SessionRepository) GetVariable(ctx context.Context, id uuid.UUID) (*model.Variable, error) {
	v := &model.Variable{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT variable_name, value, units, display_name, decimal_places
		 FROM variables WHERE id = $1`, id,
	).Scan(&v.Name, &v.Value, &v.Units, &v.DisplayName, &v.DecimalPlaces)
	if err != nil {
		return nil, translate(err)
	}
	return v, nil
}

func (r *SessionRepository) listQuestions(ctx context.Context, where string, arg any) ([]*model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.position, q.question_type, q.answer_variable, q.text, q.image_filename,
		        q.correct_leeway, q.number_tries, q.correct, q.active,
		        v.id, v.variable_name, v.value, v.units, v.display_name, v.decimal_places
		 FROM questions q
		 JOIN variables v ON v.question_id = q.id `+where+`
		 ORDER BY q.position ASC, v.variable_name ASC`, arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*model.Question
	var current *model.Question
	for rows.Next() {
		var q model.Question
		var v model.Variable
		if err := rows.Scan(
			&q.ID, &q.Position, &q.Kind, &q.AnswerVariableName, &q.Text, &q.ImageFilename,
			&q.CorrectLeeway, &q.NumberTries, &q.Correct, &q.Active,
			&v.ID, &v.Name, &v.Value, &v.Units, &v.DisplayName, &v.DecimalPlaces,
		); err != nil {
			return nil, err
		}

		if current == nil || current.ID != q.ID {
			q.Variables = make(map[string]model.Variable)
			current = &q
			questions = append(questions, current)
		}
		current.Variables[v.Name] = v
	}
	return questions, rows.Err()
}

// UpdateQuestionProgress persists tries, correctness and activity of one question.
func (r *SessionRepository) UpdateQuestionProgress(ctx context.Context, q *model.Question) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET number_tries = $1, correct = $2, active = $3 WHERE id = $4`,
		q.NumberTries, q.Correct, q.Active, q.ID,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveProgress writes the progress of every question and bumps the session
// version in one transaction. It fails with ErrConflict when the stored
// version is no longer expectedVersion, leaving storage untouched.
func (r *SessionRepository) SaveProgress(ctx context.Context, s *model.Session, expectedVersion int) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var version int
		err := tx.QueryRow(ctx,
			`UPDATE sessions SET version = version + 1
			 WHERE id = $1 AND version = $2
			 RETURNING version`, s.ID, expectedVersion,
		).Scan(&version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: session %s is past version %d", ErrConflict, s.ID, expectedVersion)
			}
			return err
		}

		// deactivate before activating so the one-active index holds per row
		for _, pass := range []bool{false, true} {
			for _, q := range s.Questions {
				if q.Active != pass {
					continue
				}
				if _, err := tx.Exec(ctx,
					`UPDATE questions SET number_tries = $1, correct = $2, active = $3
					 WHERE id = $4 AND session_id = $5`,
					q.NumberTries, q.Correct, q.Active, q.ID, s.ID,
				); err != nil {
					return err
				}
			}
		}

		s.Version = version
		return nil
	})
	return translate(err)
}

// MarkCompleted stamps completed_at on many sessions at once.
func (r *SessionRepository) MarkCompleted(ctx context.Context, ids []uuid.UUID, completedAt []time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions AS s
		 SET completed_at = data.completed_at
		 FROM (SELECT UNNEST($1::uuid[]) AS id, UNNEST($2::timestamptz[]) AS completed_at) AS data
		 WHERE s.id = data.id AND s.completed_at IS NULL`,
		ids, completedAt,
	)
	return err
}

// DeleteAll clears every session; questions, variables and attempts cascade.
func (r *SessionRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
