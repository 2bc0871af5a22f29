package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/bryanwahyu/ingredient-copilot/internal/application/analysis"
	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/middleware"
)

type analyzeRequest struct {
	ImageData string `json:"imageData"`
	Text      string `json:"text" validate:"maxrunes=20000"`
}

// POST /v1/analysis
// Body: {"imageData": "<base64 or data URL>"} or {"text": "<ingredient list>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body analyzeRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	res, err := r.analysisSvc.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		UserID:    user(req),
		ImageData: body.ImageData,
		Text:      body.Text,
	})
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, res)
}

// GET /v1/analysis/history?page=&limit=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, limit := pageParams(req)
	list, err := r.analysisSvc.History(req.Context(), user(req), page, limit)
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, list)
}

// GET /v1/analysis/{id}
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	a, err := r.analysisSvc.Get(req.Context(), user(req), domain.AnalysisID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, a)
}

type feedbackRequest struct {
	Helpful  *bool  `json:"helpful" validate:"required"`
	Rating   int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comments string `json:"comments" validate:"maxrunes=1000"`
}

// POST /v1/analysis/{id}/feedback
func (r *Router) handleFeedback(w http.ResponseWriter, req *http.Request) error {
	var body feedbackRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	fb, err := r.analysisSvc.SubmitFeedback(req.Context(), user(req), domain.AnalysisID(chi.URLParam(req, "id")),
		appanalysis.FeedbackCommand{
			Helpful:  body.Helpful,
			Rating:   body.Rating,
			Comments: middleware.SanitizeString(body.Comments),
		})
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, fb)
}
