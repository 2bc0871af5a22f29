package response

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
)

// maxEvidenceRunes caps the raw-text excerpt kept in a fallback reasoning step.
const maxEvidenceRunes = 200

// AnalysisPayload mirrors the JSON schema the analysis prompt asks for.
type AnalysisPayload struct {
	Summary struct {
		Verdict        string   `json:"verdict"`
		Score          Score    `json:"score"`
		OneLineSummary string   `json:"oneLineSummary"`
	} `json:"summary"`
	HealthImpact struct {
		Positives []string `json:"positives"`
		Concerns  []string `json:"concerns"`
		Tradeoffs []string `json:"tradeoffs"`
	} `json:"healthImpact"`
	ReasoningSteps     []domain.ReasoningStep    `json:"reasoningSteps"`
	PersonalizedAdvice domain.PersonalizedAdvice `json:"personalizedAdvice"`
	Ingredients        []domain.Ingredient       `json:"ingredients"`
}

// Score is a model-supplied score. It accepts a JSON number or a numeric
// string; anything else leaves it unset instead of failing the whole decode.
type Score struct {
	Value float64
	Set   bool
}

func (s *Score) UnmarshalJSON(b []byte) error {
	*s = Score{}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var str string
		if json.Unmarshal(b, &str) != nil {
			return nil
		}
		n = json.Number(strings.TrimSpace(str))
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*s = Score{Value: v, Set: true}
	return nil
}

// ParseAnalysis decodes the analysis payload embedded in an AI reply.
func (p *Parser) ParseAnalysis(text string) (AnalysisPayload, error) {
	var out AnalysisPayload
	if err := p.Decode(text, &out); err != nil {
		return AnalysisPayload{}, err
	}
	return out, nil
}

// AnalysisOrFallback returns the parsed result, or the fallback result and the
// parse error when the reply is unusable. The result is always well-formed.
func (p *Parser) AnalysisOrFallback(text string) (domain.Result, error) {
	payload, err := p.ParseAnalysis(text)
	if err != nil {
		return Fallback(text), err
	}
	return payload.Result(), nil
}

// Result converts the payload, defaulting missing score and unknown verdicts.
func (ap AnalysisPayload) Result() domain.Result {
	verdict := domain.Verdict(strings.ToLower(strings.TrimSpace(ap.Summary.Verdict)))
	if !verdict.Valid() {
		verdict = domain.VerdictModerate
	}
	score := domain.DefaultScore
	if ap.Summary.Score.Set {
		score = int(math.Round(ap.Summary.Score.Value))
	}
	score = min(max(score, 0), 100)

	steps := ap.ReasoningSteps
	for i := range steps {
		if steps[i].Step == 0 {
			steps[i].Step = i + 1
		}
		steps[i].Evidence = nonNil(steps[i].Evidence)
	}
	advice := ap.PersonalizedAdvice
	advice.SpecificConcerns = nonNil(advice.SpecificConcerns)
	advice.Alternatives = nonNil(advice.Alternatives)

	ingredients := ap.Ingredients
	if ingredients == nil {
		ingredients = []domain.Ingredient{}
	}
	if steps == nil {
		steps = []domain.ReasoningStep{}
	}

	return domain.Result{
		Verdict:            verdict,
		Score:              score,
		OneLineSummary:     ap.Summary.OneLineSummary,
		Positives:          nonNil(ap.HealthImpact.Positives),
		Concerns:           nonNil(ap.HealthImpact.Concerns),
		Tradeoffs:          nonNil(ap.HealthImpact.Tradeoffs),
		ReasoningSteps:     steps,
		PersonalizedAdvice: advice,
		Ingredients:        ingredients,
	}
}

// Fallback builds a structurally valid, content-generic result from an
// unusable reply.
func Fallback(text string) domain.Result {
	return domain.Result{
		Verdict:        domain.VerdictModerate,
		Score:          domain.DefaultScore,
		OneLineSummary: "Analysis completed - see details below",
		Positives:      []string{"Natural ingredients present"},
		Concerns:       []string{"Further analysis recommended"},
		Tradeoffs:      []string{"Balance needed in consumption"},
		ReasoningSteps: []domain.ReasoningStep{{
			Step:       1,
			Thought:    "Analyzed ingredient composition",
			Evidence:   []string{Excerpt(text, maxEvidenceRunes)},
			Conclusion: "Detailed analysis provided",
		}},
		PersonalizedAdvice: domain.PersonalizedAdvice{
			Relevant:         true,
			SpecificConcerns: []string{},
			Alternatives:     []string{},
			WhyRelevant:      "General health guidance",
		},
		Ingredients: []domain.Ingredient{},
		Fallback:    true,
		RawResponse: text,
	}
}

// Excerpt returns at most n runes of s.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
