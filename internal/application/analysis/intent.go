package analysis

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/application"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/prompt"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/response"
)

const intentCueRunes = 100

// IntentInferencer asks the AI service what the user is after. It is best
// effort: every failure yields domain.DefaultIntent.
type IntentInferencer struct {
	AI      ai.Client
	Parser  *response.Parser
	Clock   application.Clock
	Options ai.GenerateOptions
	logger  *zap.Logger
}

func NewIntentInferencer(client ai.Client, parser *response.Parser, clock application.Clock, opts ai.GenerateOptions, logger *zap.Logger) *IntentInferencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = response.NewParser(false, logger)
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	opts.Purpose = "intent"
	return &IntentInferencer{AI: client, Parser: parser, Clock: clock, Options: opts, logger: logger}
}

// IntentCue is the short description of a label sent for intent inference.
func IntentCue(cleaned string) string {
	return "Analyzing ingredient list: " + response.Excerpt(cleaned, intentCueRunes)
}

// Infer classifies the goal behind cue.
func (i *IntentInferencer) Infer(ctx context.Context, cue string, uc users.Context) domain.Intent {
	ic := prompt.IntentContext{
		RecentAnalyses: uc.RecentProducts,
		UserGoals:      uc.Preferences.HealthGoals,
		TimeOfDay:      string(users.SlotForHour(i.Clock.Now().Hour())),
	}

	reply, err := i.AI.Generate(ctx, prompt.GetIntentPrompt(cue, ic), i.Options)
	if err != nil {
		i.logger.Warn("intent inference failed, using default", zap.Error(err))
		return domain.DefaultIntent()
	}
	intent, err := i.Parser.ParseIntent(reply)
	if err != nil {
		i.logger.Warn("intent reply unusable, using default",
			zap.Error(err),
			zap.String("reply", response.Excerpt(strings.TrimSpace(reply), 200)))
		return domain.DefaultIntent()
	}
	return intent
}
