package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/repository"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
)

func TestSessionErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{fmt.Errorf("parse: %w", model.ErrInvalidSubmission), http.StatusBadRequest, response.ErrInvalidSubmission},
		{model.ErrNoActiveQuestion, http.StatusGone, response.ErrSessionComplete},
		{service.ErrSubmissionInProgress, http.StatusConflict, response.ErrSubmissionInProgress},
		{fmt.Errorf("save progress: %w", repository.ErrConflict), http.StatusConflict, response.ErrStaleSession},
		{fmt.Errorf("load: %w", repository.ErrNotFound), http.StatusNotFound, response.ErrSessionNotFound},
		{service.ErrNoQuestions, http.StatusServiceUnavailable, response.ErrNoQuestions},
		{fmt.Errorf("generate question 1: %w", model.ErrConfiguration), http.StatusInternalServerError, response.ErrQuestionGeneration},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			status, code := sessionError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
