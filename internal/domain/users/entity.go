package users

import "time"

// Preferences are the dietary/health settings a user maintains.
type Preferences struct {
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	HealthGoals         []string `json:"healthGoals"`
	Allergens           []string `json:"allergens"`
	AnalysisDetail      string   `json:"analysisDetail,omitempty"`
}

// ScanPatterns is the scan time-of-day histogram.
type ScanPatterns struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Evening   int `json:"evening"`
	Night     int `json:"night"`
}

// CategoryCount counts scans per product type.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// BehaviorProfile holds passive personalization counters.
type BehaviorProfile struct {
	FrequentCategories []CategoryCount `json:"frequentCategories"`
	CommonConcerns     []string        `json:"commonConcerns"`
	ScanPatterns       ScanPatterns    `json:"scanPatterns"`
}

// User is the stored user record. Authentication lives elsewhere; only the
// personalization fields are read here.
type User struct {
	ID              string          `json:"id"`
	Name            string          `json:"name,omitempty"`
	Preferences     Preferences     `json:"preferences"`
	BehaviorProfile BehaviorProfile `json:"behaviorProfile"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Context is the read-only personalization snapshot used for one request.
type Context struct {
	Preferences     Preferences     `json:"preferences"`
	BehaviorProfile BehaviorProfile `json:"behaviorProfile"`
	// RecentProducts are product types of the user's latest analyses, newest first.
	RecentProducts []string `json:"recentProducts,omitempty"`
}

// Empty reports whether the snapshot carries no personalization facts.
func (c Context) Empty() bool {
	p := c.Preferences
	return len(p.DietaryRestrictions) == 0 && len(p.HealthGoals) == 0 && len(p.Allergens) == 0 &&
		len(c.BehaviorProfile.CommonConcerns) == 0 && len(c.RecentProducts) == 0
}
