package analysis

import (
	"regexp"
	"strings"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
)

// ProductGeneral is returned when no category rule matches.
const ProductGeneral = "general"

type productRule struct {
	category string
	match    *regexp.Regexp
}

// keywords are matched as whole words. Ingredient names such as "baking soda"
// or "cream of tartar" must not pull a label into a category.
func rule(category string, keywords ...string) productRule {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return productRule{category, regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

// productRules are evaluated top to bottom and the first match wins, so
// "milk chocolate cereal" is breakfast and "chocolate milk drink" is beverage.
var productRules = []productRule{
	rule("breakfast", "cereal", "oats", "granola", "muesli"),
	rule("snack", "snack", "chips", "crisps", "cracker", "crackers", "cookie", "cookies"),
	rule("condiment", "sauce", "dressing", "ketchup", "mayonnaise", "mustard"),
	rule("beverage", "drink", "beverage", "juice", "soft drink", "soda water", "carbonated water"),
	rule("dairy", "milk", "cheese", "yogurt", "whey", "ice cream"),
	rule("confectionery", "chocolate", "candy"),
}

// ClassifyProduct maps normalized label text to a product category.
func ClassifyProduct(text string) string {
	lower := strings.ToLower(text)
	for _, r := range productRules {
		if r.match.MatchString(lower) {
			return r.category
		}
	}
	return ProductGeneral
}

// RiskThresholds are the score cut-offs used when the verdict is not decisive.
type RiskThresholds struct {
	Low    int `yaml:"low"`
	Medium int `yaml:"medium"`
}

func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{Low: 80, Medium: 50}
}

// RiskClassifier derives the risk tier from a verdict and score.
type RiskClassifier struct {
	Thresholds RiskThresholds
}

// Classify gives avoid and concerning verdicts precedence over the score.
func (c RiskClassifier) Classify(r domain.Result) domain.RiskLevel {
	switch r.Verdict {
	case domain.VerdictAvoid:
		return domain.RiskHigh
	case domain.VerdictConcerning:
		return domain.RiskMedium
	}
	t := c.Thresholds
	if t == (RiskThresholds{}) {
		t = DefaultRiskThresholds()
	}
	switch {
	case r.Score >= t.Low:
		return domain.RiskLow
	case r.Score >= t.Medium:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// Confidence scores how much of the structured answer the model filled in.
func Confidence(r domain.Result) float64 {
	c := 0.5
	if len(r.ReasoningSteps) > 0 {
		c += 0.2
	}
	if len(r.Concerns) > 0 {
		c += 0.15
	}
	if r.PersonalizedAdvice.Relevant {
		c += 0.15
	}
	return min(c, 1.0)
}
