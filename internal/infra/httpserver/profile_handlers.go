package httpserver

import (
	"net/http"

	appusers "github.com/bryanwahyu/ingredient-copilot/internal/application/users"
)

// GET /v1/profile
func (r *Router) handleGetProfile(w http.ResponseWriter, req *http.Request) error {
	u, err := r.usersSvc.Get(req.Context(), user(req))
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, u)
}

type preferencesRequest struct {
	DietaryRestrictions []string `json:"dietaryRestrictions" validate:"max=20"`
	HealthGoals         []string `json:"healthGoals" validate:"max=10"`
	Allergens           []string `json:"allergens" validate:"max=50,dive,maxrunes=50"`
	AnalysisDetail      string   `json:"analysisDetail" validate:"omitempty,oneof=quick standard comprehensive"`
}

// PUT /v1/profile/preferences
func (r *Router) handleUpdatePreferences(w http.ResponseWriter, req *http.Request) error {
	var body preferencesRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	u, err := r.usersSvc.UpdatePreferences(req.Context(), user(req), appusers.UpdatePreferencesCommand{
		DietaryRestrictions: body.DietaryRestrictions,
		HealthGoals:         body.HealthGoals,
		Allergens:           body.Allergens,
		AnalysisDetail:      body.AnalysisDetail,
	})
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, u)
}
