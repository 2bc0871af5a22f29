package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserFromContext(r.Context())))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"secret-1": "user-1"})(echoUser())

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"bearer", "Bearer secret-1", http.StatusOK, "user-1"},
		{"raw key", "secret-1", http.StatusOK, "user-1"},
		{"missing", "", http.StatusUnauthorized, "missing Authorization header"},
		{"wrong", "Bearer nope", http.StatusUnauthorized, "invalid API key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestAPIKeyAuthSkipsProbes(t *testing.T) {
	h := APIKeyAuth(map[string]string{"secret-1": "user-1"})(echoUser())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuthDisabledUsesHeader(t *testing.T) {
	h := APIKeyAuth(nil)(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("X-User-ID", "dev-user")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "dev-user", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/profile", nil))
	assert.Equal(t, AnonymousUser, rec.Body.String())
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1, Burst: 2})
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:a"))
	assert.False(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:b"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("user:a"))
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(RateLimitConfig{RequestsPerMinute: 30, Burst: 1})(echoUser())

	req := httptest.NewRequest(http.MethodPost, "/v1/analysis", nil)
	req = req.WithContext(WithUser(req.Context(), "user-1"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimitMiddleware(RateLimitConfig{})(echoUser())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/profile", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestLoggingWritesOneEntryPerRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/analysis/x", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.EqualValues(t, 404, fields["status"])
	assert.EqualValues(t, 4, fields["bytes"])
	assert.Equal(t, "/v1/analysis/x", fields["path"])
}

func TestMetricsUseRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/analysis/{id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/analysis/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/v1/analysis/{id}", http.MethodGet, "200")))
	assert.NotPanics(t, func() { MustNewMetrics(reg) })
}

func TestHealthHandler(t *testing.T) {
	checks := map[string]HealthChecker{
		"database": CheckFunc(func(context.Context) error { return nil }),
		"storage":  CheckFunc(func(context.Context) error { return errors.New("bucket missing") }),
	}

	rec := httptest.NewRecorder()
	HealthHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "bucket missing")

	rec = httptest.NewRecorder()
	ReadinessHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	delete(checks, "storage")
	rec = httptest.NewRecorder()
	ReadinessHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
}

type sampleRequest struct {
	AnalysisID string `json:"analysisId" validate:"required"`
	Rating     int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Detail     string `json:"analysisDetail" validate:"omitempty,oneof=quick standard comprehensive"`
	Message    string `json:"message" validate:"maxrunes=5"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(sampleRequest{AnalysisID: "a", Rating: 5, Message: "héllo"}))

	cases := map[string]sampleRequest{
		"analysisId is required":        {},
		"rating must satisfy max=5":     {AnalysisID: "a", Rating: 9},
		"analysisDetail must be one of": {AnalysisID: "a", Detail: "deep"},
		"message exceeds 5 characters":  {AnalysisID: "a", Message: "too long"},
	}
	for want, req := range cases {
		err := Validate(req)
		require.Error(t, err)
		assert.Equal(t, failure.KindValidation, failure.KindOf(err))
		assert.True(t, strings.HasPrefix(failure.Message(err), want), failure.Message(err))
	}
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("user_1@example.com"))
	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID("a b"))
	assert.Equal(t, "ab", SanitizeString(" a\x00b\x07 "))
}
