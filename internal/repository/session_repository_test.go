package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/physqgen-backend/internal/model"
)

// testPool connects to TEST_DATABASE_URL and migrates it. Tests are skipped
// when it is unset. The database is wiped between tests.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	m, err := migrate.New("file://../../migrations", url)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
	m.Close()

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), `DELETE FROM sessions`)
	require.NoError(t, err)
	return pool
}

func storedSession(t *testing.T) *model.Session {
	t.Helper()
	questions := make([]*model.Question, 0, 2)
	for i := 0; i < 2; i++ {
		q := &model.Question{
			ID:                 uuid.New(),
			Kind:               model.KinematicsKind,
			AnswerVariableName: "acceleration",
			CorrectLeeway:      0.1,
			Text:               "Find a.",
			Variables:          map[string]model.Variable{},
		}
		for name, value := range map[string]float64{
			"initial_velocity": 2, "final_velocity": 10, "time": 4, "acceleration": 2,
		} {
			q.Variables[name] = model.Variable{ID: uuid.New(), Name: name, Value: value, Units: "u", DisplayName: name, DecimalPlaces: 1}
		}
		questions = append(questions, q)
	}
	return model.NewSession(model.LoginInfo{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, questions)
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	s := storedSession(t)
	require.NoError(t, repo.Create(ctx, s))
	assert.ErrorIs(t, repo.Create(ctx, s), ErrConflict)

	loaded, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Login, loaded.Login)
	require.Len(t, loaded.Questions, 2)
	for i, q := range loaded.Questions {
		assert.Equal(t, s.Questions[i].ID, q.ID)
		assert.Equal(t, i, q.Position)
		assert.Equal(t, s.Questions[i].Variables, q.Variables)
	}
	assert.True(t, loaded.Questions[0].Active)

	q, err := repo.GetQuestion(ctx, s.Questions[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Position)

	v := s.Questions[0].Variables["time"]
	got, err := repo.GetVariable(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v, *got)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetQuestion(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetVariable(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepositoryProgress(t *testing.T) {
	pool := testPool(t)
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	s := storedSession(t)
	require.NoError(t, repo.Create(ctx, s))

	// correct answer moves the active flag to the second question
	_, err := s.Update("2")
	require.NoError(t, err)
	require.NoError(t, repo.SaveProgress(ctx, s, 0))
	assert.Equal(t, 1, s.Version)

	loaded, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Version)
	assert.True(t, loaded.Questions[0].Correct)
	assert.False(t, loaded.Questions[0].Active)
	assert.True(t, loaded.Questions[1].Active)

	// a writer holding version 0 is now stale
	err = repo.SaveProgress(ctx, s, 0)
	assert.ErrorIs(t, err, ErrConflict)

	q := loaded.Questions[1]
	q.NumberTries = 7
	require.NoError(t, repo.UpdateQuestionProgress(ctx, q))
	again, err := repo.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, again.NumberTries)

	q.ID = uuid.New()
	assert.ErrorIs(t, repo.UpdateQuestionProgress(ctx, q), ErrNotFound)
}

func TestSessionRepositoryCompletionAndAttempts(t *testing.T) {
	pool := testPool(t)
	repo := NewSessionRepository(pool)
	attempts := NewAttemptRepository(pool)
	dashboard := NewDashboardRepository(pool)
	ctx := context.Background()

	s := storedSession(t)
	require.NoError(t, repo.Create(ctx, s))

	require.NoError(t, attempts.InsertBatch(ctx, []model.Attempt{
		{SessionID: s.ID, QuestionID: s.Questions[0].ID, Submitted: 5, Correct: false},
		{SessionID: s.ID, QuestionID: s.Questions[0].ID, Submitted: 2, Correct: true},
		// unknown question is dropped
		{SessionID: s.ID, QuestionID: uuid.New(), Submitted: 1, Correct: false},
	}))

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.MarkCompleted(ctx, []uuid.UUID{s.ID}, []time.Time{at}))

	loaded, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.CompletedAt)
	assert.True(t, at.Equal(*loaded.CompletedAt))

	summary, err := dashboard.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalSessions)
	assert.Equal(t, 1, summary.CompletedSessions)
	assert.Equal(t, 2, summary.TotalAttempts)

	students, total, err := dashboard.ListStudentProgress(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "Ada Lovelace (ada@example.com)", students[0].Student)
	assert.Len(t, students[0].Questions, 2)

	deleted, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
