package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/middleware"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/repository"
	"github.com/stemsi/physqgen-backend/internal/service"
	"github.com/stemsi/physqgen-backend/internal/validator"
)

type mapStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID][]byte
}

func (m *mapStore) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(s)
	m.sessions[s.ID] = data
	return err
}

func (m *mapStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var s model.Session
	return &s, json.Unmarshal(data, &s)
}

func (m *mapStore) SaveProgress(_ context.Context, s *model.Session, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Version = expectedVersion + 1
	data, err := json.Marshal(s)
	m.sessions[s.ID] = data
	return err
}

// nopCache always misses and always grants the lock.
type nopCache struct{}

func (nopCache) AcquireSubmitLock(context.Context, uuid.UUID, time.Duration) (string, error) {
	return "token", nil
}
func (nopCache) ReleaseSubmitLock(context.Context, uuid.UUID, string) error { return nil }
func (nopCache) GetSnapshot(context.Context, uuid.UUID) (*model.Snapshot, error) {
	return nil, repository.ErrCacheMiss
}
func (nopCache) SetSnapshot(context.Context, model.Snapshot, time.Duration) error { return nil }
func (nopCache) DeleteSnapshot(context.Context, uuid.UUID) error { return nil }
func (nopCache) EnqueueAttempt(context.Context, model.Attempt) error { return nil }
func (nopCache) EnqueueCompletion(context.Context, uuid.UUID, time.Time) error { return nil }
func (nopCache) PublishProgress(context.Context, model.ProgressEvent) error { return nil }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func setupStudentRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	cfg := &config.Config{JWTSecret: "handler-secret", JWTExpiry: time.Hour}
	set := &config.QuestionSet{Name: "test", Questions: []model.QuestionConfig{{
		Kind:               model.KinematicsKind,
		AnswerVariableName: "acceleration",
		Text:               "How quickly does the cart speed up?",
		Variables: []model.VariableConfig{
			{Name: "time", Range: model.Range{4, 4}, Units: "s", DisplayName: "t", DecimalPlaces: 1},
			{Name: "initial_velocity", Range: model.Range{2, 2}, Units: "m/s", DisplayName: "v1", DecimalPlaces: 1},
			{Name: "final_velocity", Range: model.Range{10, 10}, Units: "m/s", DisplayName: "v2", DecimalPlaces: 1},
		},
	}}}

	auth := service.NewAuthService(cfg)
	sessions := service.NewSessionService(&mapStore{sessions: map[uuid.UUID][]byte{}}, nopCache{}, set, cfg, zerolog.Nop())

	authHandler := NewAuthHandler(auth, sessions, zerolog.Nop())
	sessionHandler := NewSessionHandler(sessions, zerolog.Nop())

	r := gin.New()
	r.POST("/login", authHandler.StudentLogin)
	student := r.Group("/session", middleware.RequireStudentJWT(auth))
	student.GET("", sessionHandler.GetSession)
	student.POST("/submit", sessionHandler.SubmitAnswer)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestStudentLoginAndSubmit(t *testing.T) {
	r := setupStudentRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/login", "", gin.H{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var login model.StudentLoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	require.NotNil(t, login.Session.Active)
	assert.Equal(t, 1, login.Session.TotalQuestions)
	assert.NotContains(t, string(env.Data), "acceleration")

	w, env = doJSON(t, r, http.MethodPost, "/session/submit", login.Token, gin.H{"answer": "two"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SUBMISSION", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, "/session/submit", login.Token, gin.H{"answer": "3"})
	require.Equal(t, http.StatusOK, w.Code)
	var result model.SubmitAnswerResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Correct)

	w, env = doJSON(t, r, http.MethodPost, "/session/submit", login.Token, gin.H{"answer": " 2.01 "})
	require.Equal(t, http.StatusOK, w.Code)
	result = model.SubmitAnswerResponse{}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Correct)
	assert.True(t, result.Snapshot.SessionComplete)
	assert.Nil(t, result.Snapshot.Active)

	w, env = doJSON(t, r, http.MethodPost, "/session/submit", login.Token, gin.H{"answer": "2"})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "SESSION_COMPLETE", env.Error.Code)

	w, env = doJSON(t, r, http.MethodGet, "/session", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 1, snap.CompletedCount)
}

func TestStudentLoginValidation(t *testing.T) {
	r := setupStudentRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/login", "", gin.H{"first_name": "Ada", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "last_name")
	assert.Contains(t, env.Error.Fields, "email")
}

func TestSubmitRequiresAnswer(t *testing.T) {
	r := setupStudentRouter(t)
	_, env := doJSON(t, r, http.MethodPost, "/login", "", gin.H{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
	})
	var login model.StudentLoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))

	w, env := doJSON(t, r, http.MethodPost, "/session/submit", login.Token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	r := setupStudentRouter(t)
	auth := service.NewAuthService(&config.Config{JWTSecret: "handler-secret", JWTExpiry: time.Hour})
	token, err := auth.GenerateStudentToken(uuid.New())
	require.NoError(t, err)

	w, env := doJSON(t, r, http.MethodGet, "/session", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}
