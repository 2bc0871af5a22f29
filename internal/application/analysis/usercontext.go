package analysis

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
)

// recentProductWindow is how many past analyses feed RecentProducts.
const recentProductWindow = 3

// UserContextAssembler builds the personalization snapshot for one request.
type UserContextAssembler struct {
	Users    users.Repository
	Analyses domain.Repository
	logger   *zap.Logger
}

func NewUserContextAssembler(u users.Repository, a domain.Repository, logger *zap.Logger) *UserContextAssembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserContextAssembler{Users: u, Analyses: a, logger: logger}
}

// Assemble never fails: a missing user gives an empty context and lookup
// errors are logged and degrade to whatever was already collected.
func (a *UserContextAssembler) Assemble(ctx context.Context, userID string) users.Context {
	var uc users.Context
	if userID == "" {
		return uc
	}

	if a.Users != nil {
		u, err := a.Users.Get(ctx, userID)
		switch {
		case errors.Is(err, users.ErrNotFound):
			// anonymous, lanjut tanpa preferensi
		case err != nil:
			a.logger.Warn("load user context", zap.String("user_id", userID), zap.Error(err))
		case u != nil:
			uc.Preferences = u.Preferences
			uc.BehaviorProfile = u.BehaviorProfile
		}
	}

	if a.Analyses != nil {
		recent, _, err := a.Analyses.ListByUser(ctx, userID, 1, recentProductWindow)
		if err != nil {
			a.logger.Warn("load recent analyses", zap.String("user_id", userID), zap.Error(err))
		}
		for _, r := range recent {
			if r.Result.ProductType != "" {
				uc.RecentProducts = append(uc.RecentProducts, r.Result.ProductType)
			}
		}
	}
	return uc
}
