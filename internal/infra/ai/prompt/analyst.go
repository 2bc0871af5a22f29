package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
)

// Version is stored with every analysis so results can be tied to a template revision.
const Version = "v1.0"

// GetSystemPrompt is the fixed framing for ingredient analysis.
func GetSystemPrompt() string {
	return `You are an expert nutritionist and food scientist with deep knowledge of ingredient safety, health impacts, and dietary considerations.

Your role is to analyze food ingredients with:
1. TRANSPARENCY: Show your reasoning process
2. BALANCE: Acknowledge both benefits and concerns
3. CONTEXT: Consider real-world usage patterns
4. PERSONALIZATION: Adapt to the user's specific needs

DO NOT:
- Make absolute claims without evidence
- Ignore context and dosage
- Provide generic database regurgitation
- Skip the reasoning process

Instead:
- Explain WHY something matters
- Discuss tradeoffs thoughtfully
- Provide actionable insights
- Show uncertainty when appropriate`
}

// GetAnalysisSchema describes the one JSON object the model must return.
func GetAnalysisSchema() string {
	return `RESPONSE FORMAT:
Respond with one valid JSON object only (no markdown, no commentary) with this structure:
{
  "summary": {
    "verdict": "healthy|moderate|concerning|avoid",
    "score": 0-100,
    "oneLineSummary": "brief takeaway"
  },
  "healthImpact": {
    "positives": ["positive aspect 1", "positive aspect 2"],
    "concerns": ["concern 1", "concern 2"],
    "tradeoffs": ["tradeoff 1", "tradeoff 2"]
  },
  "reasoningSteps": [
    {
      "step": 1,
      "thought": "what I'm analyzing",
      "evidence": ["fact 1", "fact 2"],
      "conclusion": "what this means"
    }
  ],
  "personalizedAdvice": {
    "relevant": true,
    "specificConcerns": ["concern 1"],
    "alternatives": ["alternative 1"],
    "whyRelevant": "explanation"
  },
  "ingredients": [
    {
      "name": "ingredient name",
      "category": "category",
      "analysis": "brief analysis"
    }
  ]
}`
}

// GetAnalysisPrompt renders the full analysis prompt. Only non-empty user
// context categories are listed; the intent section is omitted when intent is nil.
func GetAnalysisPrompt(ingredientText string, uc users.Context, intent *analysis.Intent) string {
	var b strings.Builder
	b.WriteString(GetSystemPrompt())
	b.WriteString("\n\nINGREDIENT TEXT TO ANALYZE:\n")
	b.WriteString(ingredientText)
	b.WriteString("\n")

	facts := userFacts(uc)
	if len(facts) > 0 {
		b.WriteString("\nUSER CONTEXT:\n")
		for _, f := range facts {
			b.WriteString(f)
			b.WriteString("\n")
		}
	}

	if intent != nil && intent.PrimaryGoal != "" {
		b.WriteString("\nINFERRED USER INTENT:\n")
		fmt.Fprintf(&b, "- Primary Goal: %s (confidence %.2f)\n", intent.PrimaryGoal, intent.Confidence)
		if len(intent.SpecificConcerns) > 0 {
			fmt.Fprintf(&b, "- Specific Concerns: %s\n", strings.Join(intent.SpecificConcerns, ", "))
		}
		b.WriteString("Focus the analysis on what matters most for this goal.\n")
	}

	b.WriteString("\n")
	b.WriteString(GetAnalysisSchema())
	return b.String()
}

func userFacts(uc users.Context) []string {
	if uc.Empty() {
		return nil
	}
	var out []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			out = append(out, fmt.Sprintf("- %s: %s", label, strings.Join(values, ", ")))
		}
	}
	add("Dietary Restrictions", uc.Preferences.DietaryRestrictions)
	add("Health Goals", uc.Preferences.HealthGoals)
	add("Known Allergens", uc.Preferences.Allergens)
	add("Common Concerns", uc.BehaviorProfile.CommonConcerns)
	add("Recently Scanned", uc.RecentProducts)
	return out
}
