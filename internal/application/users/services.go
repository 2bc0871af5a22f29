package users

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
)

const DefaultAnalysisDetail = "standard"

var (
	DietaryRestrictions = []string{"vegetarian", "vegan", "gluten-free", "dairy-free", "nut-free", "halal", "kosher"}
	HealthGoals         = []string{"weight-loss", "muscle-gain", "heart-health", "diabetes-management", "general-wellness"}
	AnalysisDetails     = []string{"quick", "standard", "comprehensive"}
)

// Service exposes the profile use-cases.
type Service struct {
	Repo   domain.Repository
	Logger *zap.Logger
}

// Get returns the stored profile, or an empty one when the user never saved anything.
func (s *Service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.Repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return emptyProfile(userID), nil
	}
	if err != nil {
		return nil, failure.Persistence("load profile", err)
	}
	fillDefaults(u)
	return u, nil
}

// UpdatePreferencesCommand replaces the user's preferences as a whole.
type UpdatePreferencesCommand struct {
	DietaryRestrictions []string
	HealthGoals         []string
	Allergens           []string
	AnalysisDetail      string
}

// UpdatePreferences validates, normalizes and stores the preferences.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, cmd UpdatePreferencesCommand) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, failure.Validation("user is required")
	}
	prefs := domain.Preferences{
		DietaryRestrictions: normalizeList(cmd.DietaryRestrictions, true),
		HealthGoals:         normalizeList(cmd.HealthGoals, true),
		Allergens:           normalizeList(cmd.Allergens, false),
		AnalysisDetail:      strings.ToLower(strings.TrimSpace(cmd.AnalysisDetail)),
	}
	if prefs.AnalysisDetail == "" {
		prefs.AnalysisDetail = DefaultAnalysisDetail
	}
	if err := checkAllowed("dietaryRestrictions", prefs.DietaryRestrictions, DietaryRestrictions); err != nil {
		return nil, err
	}
	if err := checkAllowed("healthGoals", prefs.HealthGoals, HealthGoals); err != nil {
		return nil, err
	}
	if !slices.Contains(AnalysisDetails, prefs.AnalysisDetail) {
		return nil, failure.Validation(fmt.Sprintf("analysisDetail must be one of %s", strings.Join(AnalysisDetails, ", ")))
	}

	u, err := s.Repo.UpsertPreferences(ctx, userID, prefs)
	if err != nil {
		return nil, failure.Persistence("save preferences", err)
	}
	s.logger().Info("preferences updated",
		zap.String("user_id", userID),
		zap.Int("restrictions", len(prefs.DietaryRestrictions)),
		zap.Int("goals", len(prefs.HealthGoals)))
	fillDefaults(u)
	return u, nil
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func emptyProfile(userID string) *domain.User {
	u := &domain.User{ID: userID}
	fillDefaults(u)
	return u
}

// fillDefaults supaya JSON keluar [] bukan null
func fillDefaults(u *domain.User) {
	p := &u.Preferences
	if p.DietaryRestrictions == nil {
		p.DietaryRestrictions = []string{}
	}
	if p.HealthGoals == nil {
		p.HealthGoals = []string{}
	}
	if p.Allergens == nil {
		p.Allergens = []string{}
	}
	if p.AnalysisDetail == "" {
		p.AnalysisDetail = DefaultAnalysisDetail
	}
	b := &u.BehaviorProfile
	if b.FrequentCategories == nil {
		b.FrequentCategories = []domain.CategoryCount{}
	}
	if b.CommonConcerns == nil {
		b.CommonConcerns = []string{}
	}
}

// normalizeList trims, drops blanks and duplicates, keeping first-seen order.
func normalizeList(in []string, lower bool) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func checkAllowed(field string, values, allowed []string) error {
	for _, v := range values {
		if !slices.Contains(allowed, v) {
			return failure.Validation(fmt.Sprintf("%s: unsupported value %q", field, v))
		}
	}
	return nil
}
