package analysis

import "time"

// AnalysisID identifier type
type AnalysisID string

// Verdict is the categorical health judgment of a product.
type Verdict string

const (
	VerdictHealthy    Verdict = "healthy"
	VerdictModerate   Verdict = "moderate"
	VerdictConcerning Verdict = "concerning"
	VerdictAvoid      Verdict = "avoid"
)

// Valid reports whether v is one of the four verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictHealthy, VerdictModerate, VerdictConcerning, VerdictAvoid:
		return true
	}
	return false
}

// RiskLevel tier derived from verdict and score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// DefaultScore is used when the AI reply carries no score.
const DefaultScore = 50

type ReasoningStep struct {
	Step       int      `json:"step"`
	Thought    string   `json:"thought"`
	Evidence   []string `json:"evidence"`
	Conclusion string   `json:"conclusion"`
}

type PersonalizedAdvice struct {
	Relevant         bool     `json:"relevant"`
	SpecificConcerns []string `json:"specificConcerns"`
	Alternatives     []string `json:"alternatives"`
	WhyRelevant      string   `json:"whyRelevant"`
}

type Ingredient struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Analysis string `json:"analysis"`
}

// Result is the structured, explainable assessment of one label.
type Result struct {
	Verdict              Verdict            `json:"verdict"`
	Score                int                `json:"score"`
	OneLineSummary       string             `json:"oneLineSummary"`
	Positives            []string           `json:"positives"`
	Concerns             []string           `json:"concerns"`
	Tradeoffs            []string           `json:"tradeoffs"`
	ReasoningSteps       []ReasoningStep    `json:"reasoningSteps"`
	PersonalizedAdvice   PersonalizedAdvice `json:"personalizedAdvice"`
	Ingredients          []Ingredient       `json:"ingredients"`
	ProductType          string             `json:"productType"`
	RiskLevel            RiskLevel          `json:"riskLevel"`
	IntendedUse          string             `json:"intendedUse"`
	ConsumptionFrequency string             `json:"consumptionFrequency"`
	Confidence           float64            `json:"confidence"`
	// Fallback is true when the AI reply could not be parsed.
	Fallback    bool   `json:"fallback"`
	RawResponse string `json:"rawResponse,omitempty"`
}

// Intent is the inferred goal behind a scan.
type Intent struct {
	PrimaryGoal      string   `json:"primaryGoal"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	SpecificConcerns []string `json:"specificConcerns,omitempty"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
}

// DefaultIntent is used whenever inference fails.
func DefaultIntent() Intent {
	return Intent{
		PrimaryGoal:      "general-inquiry",
		Confidence:       0.3,
		Reasoning:        "Unable to infer specific intent",
		SuggestedActions: []string{"analyze-ingredients", "ask-question"},
	}
}

type ExtractedText struct {
	Raw              string  `json:"raw,omitempty"`
	Cleaned          string  `json:"cleaned"`
	Confidence       float64 `json:"confidence"`
	DetectedLanguage string  `json:"detectedLanguage"`
}

type ImageRef struct {
	URL    string `json:"url,omitempty"`
	Format string `json:"format,omitempty"`
}

type ProcessingTime struct {
	OCRMS   int64 `json:"ocr"`
	AIMS    int64 `json:"ai"`
	TotalMS int64 `json:"total"`
}

type Feedback struct {
	Helpful     bool      `json:"helpful"`
	Rating      int       `json:"rating,omitempty"`
	Comments    string    `json:"comments,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Analysis is the persisted record of one analyze request.
type Analysis struct {
	ID             AnalysisID     `json:"id"`
	UserID         string         `json:"userId"`
	Image          ImageRef       `json:"image"`
	ExtractedText  ExtractedText  `json:"extractedText"`
	Result         Result         `json:"insights"`
	Intent         Intent         `json:"inferredIntent"`
	ProcessingTime ProcessingTime `json:"processingTime"`
	Model          string         `json:"model"`
	PromptVersion  string         `json:"promptVersion"`
	Feedback       *Feedback      `json:"userFeedback,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}
