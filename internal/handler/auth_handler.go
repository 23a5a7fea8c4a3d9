package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
	"github.com/stemsi/physqgen-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	sessionService *service.SessionService,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		log:            logger.Component(log, "auth_handler"),
	}
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Generates a new question session for the student and returns a token bound to it.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	login := model.LoginInfo{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
	}

	session, err := h.sessionService.StartSession(c.Request.Context(), login)
	if err != nil {
		failSession(c, h.log, err)
		return
	}

	token, err := h.authService.GenerateStudentToken(session.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("Student token signing failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Info().Str("session_id", session.ID.String()).Str("student", login.String()).Msg("Session started")

	response.Success(c, http.StatusCreated, model.StudentLoginResponse{
		Token:   token,
		Session: session.Snapshot(),
	})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Checks the admin password against the configured bcrypt hash and returns a token.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.CheckAdminPassword(req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrAdminLoginDisabled):
			response.Fail(c, http.StatusForbidden, response.ErrAdminDisabled)
		case errors.Is(err, service.ErrInvalidCredentials):
			h.log.Warn().Str("ip", c.ClientIP()).Msg("Failed admin login")
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	token, err := h.authService.GenerateAdminToken()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.AdminLoginResponse{Token: token})
}
