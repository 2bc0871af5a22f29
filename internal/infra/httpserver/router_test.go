package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/ingredient-copilot/internal/application"
	appanalysis "github.com/bryanwahyu/ingredient-copilot/internal/application/analysis"
	appchat "github.com/bryanwahyu/ingredient-copilot/internal/application/chat"
	appusers "github.com/bryanwahyu/ingredient-copilot/internal/application/users"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/response"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/db/memory"
	"github.com/bryanwahyu/ingredient-copilot/internal/middleware"
)

const analysisReply = `{"summary": {"verdict": "concerning", "score": 35, "oneLineSummary": "Mostly sugar"},
 "healthImpact": {"positives": [], "concerns": ["Added sugar"], "tradeoffs": []},
 "reasoningSteps": [{"step": 1, "thought": "Sugar first", "evidence": ["listed first"], "conclusion": "high sugar"}],
 "personalizedAdvice": {"relevant": true, "specificConcerns": [], "alternatives": ["Plain oats"], "whyRelevant": "goal"},
 "ingredients": [{"name": "Sugar", "category": "sweetener", "analysis": "main"}]}`

type stubAI struct {
	mu  sync.Mutex
	err error
}

func (s *stubAI) Generate(_ context.Context, _ string, opts ai.GenerateOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	switch opts.Purpose {
	case "intent":
		return `{"primaryGoal": "weight-loss", "confidence": 0.7}`, nil
	case "chat":
		return "Sugar is the first ingredient, so it dominates.", nil
	}
	return analysisReply, nil
}

func (s *stubAI) Model() string { return "stub-model" }

func (s *stubAI) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type apiFixture struct {
	ai      *stubAI
	handler http.Handler
}

func newAPI(t *testing.T, apiKeys map[string]string) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	stub := &stubAI{}
	clock := application.FixedClock{T: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	parser := response.NewParser(false, nil)

	reg := prometheus.NewRegistry()
	h := NewRouter(Deps{
		Analysis: &appanalysis.Service{
			Repo:    store.Analyses,
			AI:      stub,
			Parser:  parser,
			Context: appanalysis.NewUserContextAssembler(store.Users, store.Analyses, nil),
			Intent:  appanalysis.NewIntentInferencer(stub, parser, clock, ai.GenerateOptions{}, nil),
			Clock:   clock,
		},
		Chat: &appchat.Service{
			Conversations: store.Conversations,
			Analyses:      store.Analyses,
			Tracker:       appchat.NewTracker(stub, parser, clock, ai.GenerateOptions{}, nil),
			Clock:         clock,
		},
		Users:    &appusers.Service{Repo: store.Users},
		APIKeys:  apiKeys,
		Checks:   map[string]middleware.HealthChecker{"database": store},
		Metrics:  middleware.MustNewMetrics(reg),
		Gatherer: reg,
	})
	return &apiFixture{ai: stub, handler: h}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (int, apiResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (f *apiFixture) analyze(t *testing.T) string {
	t.Helper()
	code, res := f.do(t, http.MethodPost, "/v1/analysis", `{"text": "Sugar, Salt, Citric Acid, Red 40"}`)
	require.Equal(t, http.StatusOK, code, res.Message)
	var data struct {
		AnalysisID string `json:"analysisId"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	require.NotEmpty(t, data.AnalysisID)
	return data.AnalysisID
}

func TestAnalyzeThenReadBack(t *testing.T) {
	api := newAPI(t, nil)
	id := api.analyze(t)

	code, res := api.do(t, http.MethodGet, "/v1/analysis/"+id, "")
	require.Equal(t, http.StatusOK, code)
	var a struct {
		ID       string `json:"id"`
		UserID   string `json:"userId"`
		Insights struct {
			Verdict     string `json:"verdict"`
			ProductType string `json:"productType"`
		} `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &a))
	assert.Equal(t, id, a.ID)
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "concerning", a.Insights.Verdict)

	code, res = api.do(t, http.MethodGet, "/v1/analysis/history?page=1&limit=5", "")
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Total int64 `json:"total"`
		Limit int   `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &page))
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 5, page.Limit)
}

func TestErrorStatusMapping(t *testing.T) {
	api := newAPI(t, nil)

	code, res := api.do(t, http.MethodPost, "/v1/analysis", `{"text": "ab"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "too short")

	code, res = api.do(t, http.MethodPost, "/v1/analysis", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "imageData or text is required", res.Message)

	code, _ = api.do(t, http.MethodPost, "/v1/analysis", `{"text": `)
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = api.do(t, http.MethodGet, "/v1/analysis/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "analysis not found", res.Message)

	api.ai.fail(failure.AIService(fmt.Errorf("dial tcp: refused")))
	code, _ = api.do(t, http.MethodPost, "/v1/analysis", `{"text": "Sugar, Salt, Citric Acid"}`)
	assert.Equal(t, http.StatusBadGateway, code)

	api.ai.fail(failure.AIService(fmt.Errorf("status 429: %w", ai.ErrQuotaExceeded)))
	code, _ = api.do(t, http.MethodPost, "/v1/analysis", `{"text": "Sugar, Salt, Citric Acid"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestFeedbackEndpoint(t *testing.T) {
	api := newAPI(t, nil)
	id := api.analyze(t)

	code, res := api.do(t, http.MethodPost, "/v1/analysis/"+id+"/feedback", `{"rating": 4}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "helpful is required", res.Message)

	code, res = api.do(t, http.MethodPost, "/v1/analysis/"+id+"/feedback", `{"helpful": true, "rating": 9}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Message, "rating")

	code, _ = api.do(t, http.MethodPost, "/v1/analysis/"+id+"/feedback", `{"helpful": false, "rating": 2, "comments": "meh"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do(t, http.MethodPost, "/v1/analysis/nope/feedback", `{"helpful": true}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConversationFlow(t *testing.T) {
	api := newAPI(t, nil)
	id := api.analyze(t)

	code, res := api.do(t, http.MethodPost, "/v1/conversations", `{"analysisId": "`+id+`"}`)
	require.Equal(t, http.StatusCreated, code, res.Message)
	var conv struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &conv))

	code, res = api.do(t, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", `{"message": "Is there an alternative?"}`)
	require.Equal(t, http.StatusOK, code, res.Message)
	var turn struct {
		Message string `json:"message"`
		Context struct {
			UserIntent string `json:"userIntent"`
		} `json:"context"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &turn))
	assert.Equal(t, "Sugar is the first ingredient, so it dominates.", turn.Message)
	assert.Equal(t, "seeking-alternatives", turn.Context.UserIntent)

	code, res = api.do(t, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Message cannot be empty", res.Message)

	code, res = api.do(t, http.MethodGet, "/v1/conversations/"+conv.ID, "")
	require.Equal(t, http.StatusOK, code)
	var full struct {
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &full))
	assert.Len(t, full.Messages, 3)

	code, _ = api.do(t, http.MethodGet, "/v1/conversations", "")
	assert.Equal(t, http.StatusOK, code)

	code, res = api.do(t, http.MethodPost, "/v1/conversations", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "analysisId is required", res.Message)
}

func TestProfileEndpoints(t *testing.T) {
	api := newAPI(t, nil)

	code, res := api.do(t, http.MethodPut, "/v1/profile/preferences", `{"healthGoals": ["weight-loss"], "allergens": ["peanuts"]}`)
	require.Equal(t, http.StatusOK, code, res.Message)

	code, res = api.do(t, http.MethodGet, "/v1/profile", "")
	require.Equal(t, http.StatusOK, code)
	var u struct {
		Preferences struct {
			HealthGoals []string `json:"healthGoals"`
		} `json:"preferences"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &u))
	assert.Equal(t, []string{"weight-loss"}, u.Preferences.HealthGoals)

	code, _ = api.do(t, http.MethodPut, "/v1/profile/preferences", `{"analysisDetail": "verbose"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuthRequiredWhenKeysConfigured(t *testing.T) {
	api := newAPI(t, map[string]string{"k-1": "u1"})

	code, _ := api.do(t, http.MethodGet, "/v1/profile", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer k-1")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProbesAndMetrics(t *testing.T) {
	api := newAPI(t, nil)
	api.analyze(t)

	for _, path := range []string{"/health", "/readyz", "/livez"} {
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ingredient_copilot_http_requests_total{code="200",method="POST",route="/v1/analysis"} 1`)
}
