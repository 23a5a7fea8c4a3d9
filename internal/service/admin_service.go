package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/repository"
)

// ClearResult reports what a data wipe removed.
type ClearResult struct {
	SessionsDeleted  int64 `json:"sessions_deleted"`
	SnapshotsCleared int   `json:"snapshots_cleared"`
}

// AdminService backs the admin console: student data, dashboard counts,
// live progress and clearing stored sessions.
type AdminService struct {
	dashboardRepo *repository.DashboardRepository
	sessionRepo   *repository.SessionRepository
	progress      *repository.ProgressStore
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	dashboardRepo *repository.DashboardRepository,
	sessionRepo *repository.SessionRepository,
	progress *repository.ProgressStore,
) *AdminService {
	return &AdminService{
		dashboardRepo: dashboardRepo,
		sessionRepo:   sessionRepo,
		progress:      progress,
	}
}

// GetDashboard returns aggregate counts across every session.
func (s *AdminService) GetDashboard(ctx context.Context) (*model.DashboardSummary, error) {
	return s.dashboardRepo.GetSummary(ctx)
}

// ListStudents returns per-student question progress, newest sessions first.
func (s *AdminService) ListStudents(ctx context.Context, page, perPage int) ([]model.StudentProgress, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	return s.dashboardRepo.ListStudentProgress(ctx, page, perPage)
}

// GetSession loads a full session, answers included.
func (s *AdminService) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

// ClearAll deletes every stored session and drops cached snapshots. Students
// holding old tokens get NotFound and must log in again.
func (s *AdminService) ClearAll(ctx context.Context) (*ClearResult, error) {
	deleted, err := s.sessionRepo.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}

	cleared, err := s.progress.ClearSnapshots(ctx)
	return &ClearResult{SessionsDeleted: deleted, SnapshotsCleared: cleared}, err
}

// SubscribeProgress attaches to the live progress channel. The caller closes it.
func (s *AdminService) SubscribeProgress(ctx context.Context) *redis.PubSub {
	return s.progress.SubscribeProgress(ctx)
}
