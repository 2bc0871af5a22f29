package prompt

import (
	"fmt"
	"strings"
)

// IntentContext holds the optional facts rendered into the intent prompt.
type IntentContext struct {
	RecentAnalyses []string
	UserGoals      []string
	TimeOfDay      string
}

// GetIntentPrompt asks the model to classify the goal behind a scan or question.
func GetIntentPrompt(query string, ic IntentContext) string {
	var b strings.Builder
	b.WriteString("Analyze this user query to understand their underlying intent and needs.\n\n")
	fmt.Fprintf(&b, "USER QUERY: %q\n", query)

	var ctx []string
	if len(ic.RecentAnalyses) > 0 {
		ctx = append(ctx, "- Recently analyzed: "+strings.Join(ic.RecentAnalyses, ", "))
	}
	if len(ic.UserGoals) > 0 {
		ctx = append(ctx, "- User goals: "+strings.Join(ic.UserGoals, ", "))
	}
	if ic.TimeOfDay != "" {
		ctx = append(ctx, "- Time of day: "+ic.TimeOfDay)
	}
	if len(ctx) > 0 {
		b.WriteString("\nCONTEXT:\n")
		b.WriteString(strings.Join(ctx, "\n"))
		b.WriteString("\n")
	}

	b.WriteString(`
Determine:
1. Primary goal (what they really want to know)
2. Underlying concerns
3. Best way to help them

Respond with only a JSON object, no other text:
{
  "primaryGoal": "specific goal",
  "confidence": 0.0-1.0,
  "reasoning": "why you think this",
  "specificConcerns": ["concern1"],
  "suggestedActions": ["action1", "action2"]
}`)
	return b.String()
}
