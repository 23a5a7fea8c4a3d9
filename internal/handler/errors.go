package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/repository"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
)

// sessionError maps a session service error to an HTTP status and code.
func sessionError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, model.ErrInvalidSubmission):
		return http.StatusBadRequest, response.ErrInvalidSubmission
	case errors.Is(err, model.ErrNoActiveQuestion):
		return http.StatusGone, response.ErrSessionComplete
	case errors.Is(err, service.ErrSubmissionInProgress):
		return http.StatusConflict, response.ErrSubmissionInProgress
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, response.ErrStaleSession
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.ErrSessionNotFound
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusServiceUnavailable, response.ErrNoQuestions
	case errors.Is(err, model.ErrConfiguration), errors.Is(err, model.ErrResolution):
		return http.StatusInternalServerError, response.ErrQuestionGeneration
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

func failSession(c *gin.Context, log zerolog.Logger, err error) {
	status, code := sessionError(err)
	if status >= http.StatusInternalServerError {
		l := response.Logger(c, log)
		l.Error().Err(err).Str("path", c.FullPath()).Msg("Session request failed")
	}
	response.Fail(c, status, code)
}
