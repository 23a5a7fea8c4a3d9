package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/middleware"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
	"github.com/stemsi/physqgen-backend/internal/validator"
)

// SessionHandler serves the student's own question session.
type SessionHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		log:            logger.Component(log, "session_handler"),
	}
}

// GetSession godoc
// GET /api/v1/student/session
// Returns the active question and progress counts. The answer is never included.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)

	snap, err := h.sessionService.GetSnapshot(c.Request.Context(), sessionID)
	if err != nil {
		failSession(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// SubmitAnswer godoc
// POST /api/v1/student/session/submit
// Checks the answer against the active question and returns the refreshed session.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, snap, err := h.sessionService.Submit(c.Request.Context(), middleware.GetSessionID(c), req.Answer)
	if err != nil {
		failSession(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, model.SubmitAnswerResponse{
		Correct:  attempt.Correct,
		Snapshot: snap,
	})
}
