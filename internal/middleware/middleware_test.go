package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth() *service.AuthService {
	return service.NewAuthService(&config.Config{JWTSecret: "middleware-secret", JWTExpiry: time.Hour})
}

func protected(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c).String())
	})
	return r
}

func TestRequireStudentJWT(t *testing.T) {
	auth := newAuth()
	sessionID := uuid.New()
	studentToken, err := auth.GenerateStudentToken(sessionID)
	require.NoError(t, err)
	adminToken, err := auth.GenerateAdminToken()
	require.NoError(t, err)

	r := protected(RequireStudentJWT(auth))

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "bearer header", header: "Bearer " + studentToken, status: http.StatusOK, body: sessionID.String()},
		{name: "query fallback", query: studentToken, status: http.StatusOK, body: sessionID.String()},
		{name: "missing", status: http.StatusUnauthorized, body: "TOKEN_REQUIRED"},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized, body: "TOKEN_INVALID"},
		{name: "admin token", header: "Bearer " + adminToken, status: http.StatusForbidden, body: "STUDENT_ACCESS_ONLY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestStudentJWTTagsSessionForLogs(t *testing.T) {
	auth := newAuth()
	sessionID := uuid.New()
	token, err := auth.GenerateStudentToken(sessionID)
	require.NoError(t, err)

	for name, mw := range map[string]gin.HandlerFunc{
		"http": RequireStudentJWT(auth),
		"ws":   RequireStudentWSAuth(auth),
	} {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", mw, func(c *gin.Context) {
				c.String(http.StatusOK, c.GetString(response.ContextKeySessionID))
			})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?token="+token, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, sessionID.String(), w.Body.String())
		})
	}
}

func TestRequireAdminJWTRejectsExpired(t *testing.T) {
	expired := service.NewAuthService(&config.Config{JWTSecret: "middleware-secret", JWTExpiry: -time.Minute})
	token, err := expired.GenerateAdminToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protected(RequireAdminJWT(newAuth())).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestRateLimiterRefills(t *testing.T) {
	rl := &RateLimiter{visitors: map[string]*visitor{}, rate: 2, interval: time.Second, key: ByClientIP}
	now := time.Now()

	assert.True(t, rl.Allow("a", now))
	assert.True(t, rl.Allow("a", now))
	assert.False(t, rl.Allow("a", now))
	assert.True(t, rl.Allow("b", now))

	assert.True(t, rl.Allow("a", now.Add(time.Second)))

	rl.cleanup(now.Add(time.Hour))
	assert.Empty(t, rl.visitors)
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	large := strings.Repeat("velocity ", 400)

	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 64, SkipPrefixes: []string{"/images/"}}))
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/images/a.png", func(c *gin.Context) { c.String(http.StatusOK, large) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/large")
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.Equal(t, large, string(body))

	w = get("/small")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	w = get("/images/a.png")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())
}
