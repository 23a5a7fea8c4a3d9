package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/repository"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
	"github.com/stemsi/physqgen-backend/internal/validator"
)

// AdminHandler handles admin student data and session management.
type AdminHandler struct {
	adminService   *service.AdminService
	sessionService *service.SessionService
	mediaService   *service.MediaService
	log            zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	adminService *service.AdminService,
	sessionService *service.SessionService,
	mediaService *service.MediaService,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		sessionService: sessionService,
		mediaService:   mediaService,
		log:            logger.Component(log, "admin_handler"),
	}
}

// ListStudents godoc
// GET /api/v1/admin/students
// Lists every session with the tries and correctness of each question.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	var q model.ListStudentsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = 50
	}

	students, total, err := h.adminService.ListStudents(c.Request.Context(), q.Page, q.PerPage)
	if err != nil {
		h.log.Error().Err(err).Msg("List students failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students},
		response.NewPagination(q.Page, q.PerPage, total))
}

// GetSession godoc
// GET /api/v1/admin/sessions/:id
// Returns a full session including resolved answers.
func (h *AdminHandler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.adminService.GetSession(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		h.log.Error().Err(err).Str("session_id", id.String()).Msg("Get session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// ClearSessions godoc
// DELETE /api/v1/admin/sessions
// Deletes all stored student data. Students must log in again afterwards.
func (h *AdminHandler) ClearSessions(c *gin.Context) {
	result, err := h.adminService.ClearAll(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Clear sessions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Warn().
		Int64("sessions", result.SessionsDeleted).
		Int("snapshots", result.SnapshotsCleared).
		Msg("All student data cleared")
	response.Success(c, http.StatusOK, result)
}

// GetQuestionSet godoc
// GET /api/v1/admin/question-set
// Returns the active recipes and any image they reference that is not uploaded yet.
func (h *AdminHandler) GetQuestionSet(c *gin.Context) {
	set := h.sessionService.QuestionSet()
	if set == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrNoQuestions)
		return
	}

	missing := h.mediaService.MissingImages(set)
	if missing == nil {
		missing = []string{}
	}
	response.Success(c, http.StatusOK, gin.H{
		"question_set":   set,
		"missing_images": missing,
	})
}
