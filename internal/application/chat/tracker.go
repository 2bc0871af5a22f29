package chat

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/application"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/prompt"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/response"
)

const (
	concernExcerptRunes = 50
	productNameRunes    = 50
	keyIngredientCount  = 5
)

var (
	concernTerms     = []string{"concern", "worried"}
	alternativeTerms = []string{"alternative", "instead"}
)

// ApplyDrift updates the tracked context from the user's raw message. A
// concern-bearing message adds a deduplicated excerpt and keeps the latest
// MaxConcerns entries; asking for alternatives switches the intent.
func ApplyDrift(c conversation.Context, userMessage string) conversation.Context {
	lower := strings.ToLower(userMessage)

	if containsAny(lower, concernTerms) {
		excerpt := response.Excerpt(strings.TrimSpace(userMessage), concernExcerptRunes)
		if !slices.Contains(c.MainConcerns, excerpt) {
			concerns := append(slices.Clone(c.MainConcerns), excerpt)
			c.MainConcerns = lastN(concerns, conversation.MaxConcerns)
		}
	}
	if containsAny(lower, alternativeTerms) {
		c.UserIntent = conversation.IntentSeekingAlternatives
	}
	return c
}

// SeedContext derives the starting context of a conversation from its analysis.
func SeedContext(a *analysis.Analysis) conversation.Context {
	c := conversation.Context{
		ProductName:    response.Excerpt(a.ExtractedText.Cleaned, productNameRunes),
		MainConcerns:   lastN(slices.Clone(a.Result.Concerns), conversation.MaxConcerns),
		UserIntent:     a.Intent.PrimaryGoal,
		KeyIngredients: []string{},
	}
	if c.MainConcerns == nil {
		c.MainConcerns = []string{}
	}
	for _, in := range a.Result.Ingredients {
		if len(c.KeyIngredients) == keyIngredientCount {
			break
		}
		c.KeyIngredients = append(c.KeyIngredients, in.Name)
	}
	return c
}

// Tracker runs one conversational turn against the AI service.
type Tracker struct {
	AI      ai.Client
	Parser  *response.Parser
	Clock   application.Clock
	Options ai.GenerateOptions
	// Window is how many messages are replayed into the prompt.
	Window int
	logger *zap.Logger
}

func NewTracker(client ai.Client, parser *response.Parser, clock application.Clock, opts ai.GenerateOptions, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = response.NewParser(false, logger)
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	opts.Purpose = "chat"
	return &Tracker{AI: client, Parser: parser, Clock: clock, Options: opts, Window: prompt.HistoryWindow, logger: logger}
}

// Turn is the outcome of one exchange.
type Turn struct {
	User      conversation.Message
	Assistant conversation.Message
	Context   conversation.Context
}

// Reply returns the assistant text and reasoning.
func (t Turn) Reply() response.ChatReply {
	var r conversation.Reasoning
	if t.Assistant.Reasoning != nil {
		r = *t.Assistant.Reasoning
	}
	return response.ChatReply{Message: t.Assistant.Content, Reasoning: r}
}

// Run computes the turn without touching conv. The caller persists the two
// messages and the new context; conv is left unchanged when the AI call fails.
func (t *Tracker) Run(ctx context.Context, conv *conversation.Conversation, parent *analysis.Analysis, message string) (Turn, error) {
	userMsg := conversation.Message{
		Role:      conversation.RoleUser,
		Content:   message,
		Timestamp: t.Clock.Now(),
	}
	history := make([]conversation.Message, 0, len(conv.Messages)+1)
	history = append(history, conv.Messages...)
	history = append(history, userMsg)
	history = prompt.RecentHistory(history, t.window())

	p := prompt.GetChatPrompt(message, history, chatContext(conv.Context, parent))

	start := time.Now()
	raw, err := t.AI.Generate(ctx, p, t.Options)
	elapsed := time.Since(start)
	if err != nil {
		if failure.KindOf(err) != failure.KindAIService {
			err = failure.AIService(err)
		}
		return Turn{}, err
	}
	reply, perr := t.Parser.ParseChat(raw)
	if perr != nil {
		t.logger.Warn("chat reply unusable, sending fallback", zap.String("conversation_id", string(conv.ID)), zap.Error(perr))
	}

	reasoning := reply.Reasoning
	return Turn{
		User: userMsg,
		Assistant: conversation.Message{
			Role:      conversation.RoleAssistant,
			Content:   reply.Message,
			Timestamp: t.Clock.Now(),
			Reasoning: &reasoning,
			Metadata: &conversation.MessageMetadata{
				Model:            t.AI.Model(),
				ProcessingTimeMS: elapsed.Milliseconds(),
			},
		},
		Context: ApplyDrift(conv.Context, message),
	}, nil
}

func (t *Tracker) window() int {
	if t.Window > 0 {
		return t.Window
	}
	return prompt.HistoryWindow
}

func chatContext(c conversation.Context, parent *analysis.Analysis) prompt.ChatContext {
	cc := prompt.ChatContext{
		KeyIngredients: c.KeyIngredients,
		MainConcerns:   c.MainConcerns,
	}
	if parent != nil {
		cc.Verdict = string(parent.Result.Verdict)
		cc.Score = parent.Result.Score
		cc.OneLineSummary = parent.Result.OneLineSummary
	}
	return cc
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

func lastN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
