package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
)

// HistoryWindow is how many of the latest messages go into a chat prompt.
const HistoryWindow = 10

// ChatContext is the condensed analysis shown to the model during chat.
type ChatContext struct {
	Verdict        string
	Score          int
	OneLineSummary string
	KeyIngredients []string
	MainConcerns   []string
}

// RecentHistory returns the last n messages, oldest first.
func RecentHistory(msgs []conversation.Message, n int) []conversation.Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// GetChatPrompt renders one conversational turn. history should already be
// windowed with RecentHistory.
func GetChatPrompt(message string, history []conversation.Message, ac ChatContext) string {
	var b strings.Builder
	b.WriteString("You are an AI nutrition co-pilot helping users understand food ingredients.\n")

	if len(history) > 0 {
		b.WriteString("\nCONVERSATION HISTORY:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	var ctx []string
	if ac.Verdict != "" {
		ctx = append(ctx, fmt.Sprintf("Product verdict: %s (score %d/100)", ac.Verdict, ac.Score))
	}
	if ac.OneLineSummary != "" {
		ctx = append(ctx, "Summary: "+ac.OneLineSummary)
	}
	if len(ac.KeyIngredients) > 0 {
		ctx = append(ctx, "Key ingredients: "+strings.Join(ac.KeyIngredients, ", "))
	}
	if len(ac.MainConcerns) > 0 {
		ctx = append(ctx, "Concerns discussed: "+strings.Join(ac.MainConcerns, "; "))
	}
	if len(ctx) > 0 {
		b.WriteString("\nCURRENT ANALYSIS CONTEXT:\n")
		b.WriteString(strings.Join(ctx, "\n"))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nUSER MESSAGE: %q\n", message)
	b.WriteString(`
Respond in a conversational, helpful way. Focus on:
1. Directly answering their question
2. Providing context and reasoning
3. Offering actionable guidance
4. Maintaining a supportive tone

Keep responses concise but informative (2-4 sentences unless more detail is needed).`)
	return b.String()
}
