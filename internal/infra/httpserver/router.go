package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/ingredient-copilot/internal/application/analysis"
	appchat "github.com/bryanwahyu/ingredient-copilot/internal/application/chat"
	appusers "github.com/bryanwahyu/ingredient-copilot/internal/application/users"
	domai "github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
	"github.com/bryanwahyu/ingredient-copilot/internal/middleware"
)

// base64 of a 10MB image plus JSON overhead
const maxBodyBytes = 16 << 20

// Deps is everything the HTTP surface needs.
type Deps struct {
	Analysis *appanalysis.Service
	Chat     *appchat.Service
	Users    *appusers.Service

	APIKeys        map[string]string
	AllowedOrigins []string
	RateLimit      middleware.RateLimitConfig
	Checks         map[string]middleware.HealthChecker
	Metrics        *middleware.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *zap.Logger
}

type Router struct {
	analysisSvc *appanalysis.Service
	chatSvc     *appchat.Service
	usersSvc    *appusers.Service
	logger      *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{analysisSvc: d.Analysis, chatSvc: d.Chat, usersSvc: d.Users, logger: logger}

	metrics := d.Metrics
	if metrics == nil {
		metrics = middleware.DefaultMetrics()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-User-ID", "X-Request-Id"},
		MaxAge:         300,
	}))
	mux.Use(metrics.Middleware)
	mux.Use(middleware.Logging(logger))

	mux.Get("/health", middleware.HealthHandler(d.Checks))
	mux.Get("/readyz", middleware.ReadinessHandler(d.Checks))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(d.APIKeys))
		rt.Use(middleware.RateLimitMiddleware(d.RateLimit))

		rt.Post("/analysis", r.wrap(r.handleAnalyze))
		rt.Get("/analysis/history", r.wrap(r.handleHistory))
		rt.Get("/analysis/{id}", r.wrap(r.handleGetAnalysis))
		rt.Post("/analysis/{id}/feedback", r.wrap(r.handleFeedback))

		rt.Post("/conversations", r.wrap(r.handleStartConversation))
		rt.Get("/conversations", r.wrap(r.handleListConversations))
		rt.Get("/conversations/{id}", r.wrap(r.handleGetConversation))
		rt.Post("/conversations/{id}/messages", r.wrap(r.handleSendMessage))

		rt.Get("/profile", r.wrap(r.handleGetProfile))
		rt.Put("/profile/preferences", r.wrap(r.handleUpdatePreferences))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, msg := statusFor(err)
			if status >= http.StatusInternalServerError {
				r.logger.Error("request failed",
					zap.String("path", req.URL.Path),
					zap.String("kind", failure.KindOf(err).String()),
					zap.Error(err))
			}
			writeJSON(w, status, envelope{Success: false, Message: msg})
		}
	}
}

// statusFor maps an error to its HTTP status and client-facing message.
func statusFor(err error) (int, string) {
	if errors.Is(err, domai.ErrQuotaExceeded) {
		return http.StatusTooManyRequests, "AI service quota exceeded, please try again later"
	}
	switch failure.KindOf(err) {
	case failure.KindValidation, failure.KindInsufficientText:
		return http.StatusBadRequest, failure.Message(err)
	case failure.KindNotFound:
		return http.StatusNotFound, failure.Message(err)
	case failure.KindOCR, failure.KindAIService:
		return http.StatusBadGateway, failure.Message(err)
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, data any) error {
	writeJSON(w, status, envelope{Success: true, Data: data})
	return nil
}

// decode reads a JSON body and runs its validate tags.
func decode(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return failure.Validation("request body too large")
		}
		return failure.Validation("invalid JSON body")
	}
	return middleware.Validate(v)
}

func user(req *http.Request) string {
	return middleware.GetUserFromContext(req.Context())
}

func pageParams(req *http.Request) (int, int) {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	return page, limit
}
