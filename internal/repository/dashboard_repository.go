package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/physqgen-backend/internal/model"
)

// DashboardRepository handles admin dashboard and student data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummary retrieves the high-level counts for the dashboard.
func (r *DashboardRepository) GetSummary(ctx context.Context) (*model.DashboardSummary, error) {
	s := &model.DashboardSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM sessions WHERE completed_at IS NOT NULL),
			(SELECT COUNT(*) FROM questions WHERE correct),
			(SELECT COUNT(*) FROM submission_attempts),
			(SELECT COALESCE(AVG(number_tries), 0)::float8 FROM questions WHERE correct)`,
	).Scan(&s.TotalSessions, &s.CompletedSessions, &s.QuestionsAnswered, &s.TotalAttempts, &s.AverageTriesToPass)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListStudentProgress returns one entry per session, newest first, with the
// (tries, correct) pair of every question in order.
func (r *DashboardRepository) ListStudentProgress(ctx context.Context, page, perPage int) ([]model.StudentProgress, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`WITH page AS (
			SELECT id, first_name, last_name, email, created_at, completed_at
			FROM sessions
			ORDER BY created_at DESC, id
			LIMIT $1 OFFSET $2
		 )
		 SELECT p.id, p.first_name, p.last_name, p.email, p.created_at, p.completed_at,
		        q.position, q.number_tries, q.correct
		 FROM page p
		 JOIN questions q ON q.session_id = p.id
		 ORDER BY p.created_at DESC, p.id, q.position ASC`,
		perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := []model.StudentProgress{}
	for rows.Next() {
		var sp model.StudentProgress
		var login model.LoginInfo
		var qp model.QuestionProgress
		if err := rows.Scan(
			&sp.SessionID, &login.FirstName, &login.LastName, &login.Email, &sp.CreatedAt, &sp.CompletedAt,
			&qp.Position, &qp.NumberTries, &qp.Correct,
		); err != nil {
			return nil, 0, err
		}

		if n := len(results); n == 0 || results[n-1].SessionID != sp.SessionID {
			sp.Student = login.String()
			results = append(results, sp)
		}
		last := &results[len(results)-1]
		last.Questions = append(last.Questions, qp)
	}
	return results, total, rows.Err()
}
