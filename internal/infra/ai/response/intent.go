package response

import (
	"errors"
	"strings"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

// ErrNoGoal means the intent payload decoded but named no primary goal.
var ErrNoGoal = errors.New("intent has no primaryGoal")

// ParseIntent decodes the intent payload embedded in an AI reply.
func (p *Parser) ParseIntent(text string) (domain.Intent, error) {
	var out domain.Intent
	if err := p.Decode(text, &out); err != nil {
		return domain.Intent{}, err
	}
	out.PrimaryGoal = strings.TrimSpace(out.PrimaryGoal)
	if out.PrimaryGoal == "" {
		return domain.Intent{}, failure.New(failure.KindParse, "decode intent", ErrNoGoal)
	}
	out.Confidence = min(max(out.Confidence, 0), 1)
	return out, nil
}
