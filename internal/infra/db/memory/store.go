package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
)

// Store keeps every record in process memory. Records are copied on the way
// in and out so callers never share state with the store.
type Store struct {
	Analyses      *AnalysisRepo
	Conversations *ConversationRepo
	Users         *UserRepo
}

func NewStore() *Store {
	return &Store{
		Analyses:      &AnalysisRepo{items: make(map[analysis.AnalysisID]*analysis.Analysis)},
		Conversations: &ConversationRepo{items: make(map[conversation.ConversationID]*conversation.Conversation)},
		Users:         &UserRepo{items: make(map[string]*users.User), now: time.Now},
	}
}

// Check always succeeds; it lets the store sit behind the readiness probe.
func (s *Store) Check(context.Context) error { return nil }

func pageBounds(n, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	from := (page - 1) * limit
	if limit <= 0 || from >= n {
		return n, n
	}
	return from, min(from+limit, n)
}

// ==== analyses ====

type AnalysisRepo struct {
	mu    sync.RWMutex
	items map[analysis.AnalysisID]*analysis.Analysis
}

func (r *AnalysisRepo) Create(_ context.Context, a *analysis.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = cloneAnalysis(a)
	return nil
}

func (r *AnalysisRepo) Get(_ context.Context, userID string, id analysis.AnalysisID) (*analysis.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return nil, analysis.ErrNotFound
	}
	return cloneAnalysis(a), nil
}

func (r *AnalysisRepo) ListByUser(_ context.Context, userID string, page, limit int) ([]*analysis.Analysis, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var owned []*analysis.Analysis
	for _, a := range r.items {
		if a.UserID == userID {
			owned = append(owned, a)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	from, to := pageBounds(len(owned), page, limit)
	out := make([]*analysis.Analysis, 0, to-from)
	for _, a := range owned[from:to] {
		out = append(out, cloneAnalysis(a))
	}
	return out, int64(len(owned)), nil
}

func (r *AnalysisRepo) SetFeedback(_ context.Context, userID string, id analysis.AnalysisID, fb analysis.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.UserID != userID {
		return analysis.ErrNotFound
	}
	a.Feedback = &fb
	return nil
}

func cloneAnalysis(a *analysis.Analysis) *analysis.Analysis {
	c := *a
	c.Result.Positives = slices.Clone(a.Result.Positives)
	c.Result.Concerns = slices.Clone(a.Result.Concerns)
	c.Result.Tradeoffs = slices.Clone(a.Result.Tradeoffs)
	c.Result.ReasoningSteps = slices.Clone(a.Result.ReasoningSteps)
	for i := range c.Result.ReasoningSteps {
		c.Result.ReasoningSteps[i].Evidence = slices.Clone(a.Result.ReasoningSteps[i].Evidence)
	}
	c.Result.PersonalizedAdvice.SpecificConcerns = slices.Clone(a.Result.PersonalizedAdvice.SpecificConcerns)
	c.Result.PersonalizedAdvice.Alternatives = slices.Clone(a.Result.PersonalizedAdvice.Alternatives)
	c.Result.Ingredients = slices.Clone(a.Result.Ingredients)
	c.Intent.SpecificConcerns = slices.Clone(a.Intent.SpecificConcerns)
	c.Intent.SuggestedActions = slices.Clone(a.Intent.SuggestedActions)
	if a.Feedback != nil {
		fb := *a.Feedback
		c.Feedback = &fb
	}
	return &c
}

// ==== conversations ====

type ConversationRepo struct {
	mu    sync.RWMutex
	items map[conversation.ConversationID]*conversation.Conversation
}

func (r *ConversationRepo) Create(_ context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = cloneConversation(c)
	return nil
}

func (r *ConversationRepo) Get(_ context.Context, userID string, id conversation.ConversationID) (*conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok || c.UserID != userID {
		return nil, conversation.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (r *ConversationRepo) ListByUser(_ context.Context, userID string, page, limit int) ([]*conversation.Summary, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var owned []*conversation.Conversation
	for _, c := range r.items {
		if c.UserID == userID {
			owned = append(owned, c)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].LastMessageAt.After(owned[j].LastMessageAt) })
	from, to := pageBounds(len(owned), page, limit)
	out := make([]*conversation.Summary, 0, to-from)
	for _, c := range owned[from:to] {
		out = append(out, &conversation.Summary{
			ID:            c.ID,
			AnalysisID:    c.AnalysisID,
			ProductName:   c.Context.ProductName,
			Status:        c.Status,
			MessageCount:  len(c.Messages),
			CreatedAt:     c.CreatedAt,
			LastMessageAt: c.LastMessageAt,
		})
	}
	return out, int64(len(owned)), nil
}

func (r *ConversationRepo) AppendTurn(_ context.Context, userID string, id conversation.ConversationID, ctx conversation.Context, lastMessageAt time.Time, msgs ...conversation.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.UserID != userID {
		return conversation.ErrNotFound
	}
	c.Messages = append(c.Messages, msgs...)
	c.Context = cloneContext(ctx)
	c.LastMessageAt = lastMessageAt
	return nil
}

// SetStatus moves a conversation out of (or back to) active.
func (r *ConversationRepo) SetStatus(_ context.Context, userID string, id conversation.ConversationID, status conversation.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.UserID != userID {
		return conversation.ErrNotFound
	}
	c.Status = status
	return nil
}

func cloneConversation(c *conversation.Conversation) *conversation.Conversation {
	out := *c
	out.Messages = slices.Clone(c.Messages)
	out.Context = cloneContext(c.Context)
	return &out
}

func cloneContext(c conversation.Context) conversation.Context {
	c.MainConcerns = slices.Clone(c.MainConcerns)
	c.KeyIngredients = slices.Clone(c.KeyIngredients)
	return c
}

// ==== users ====

type UserRepo struct {
	mu    sync.RWMutex
	items map[string]*users.User
	now   func() time.Time
}

func (r *UserRepo) Get(_ context.Context, id string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepo) UpsertPreferences(_ context.Context, id string, prefs users.Preferences) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	u, ok := r.items[id]
	if !ok {
		u = &users.User{ID: id, CreatedAt: now}
		r.items[id] = u
	}
	u.Preferences = prefs
	u.UpdatedAt = now
	return cloneUser(u), nil
}

func (r *UserRepo) IncrementScanSlot(_ context.Context, id string, slot users.TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		now := r.now()
		u = &users.User{ID: id, CreatedAt: now, UpdatedAt: now}
		r.items[id] = u
	}
	p := &u.BehaviorProfile.ScanPatterns
	switch slot {
	case users.SlotMorning:
		p.Morning++
	case users.SlotAfternoon:
		p.Afternoon++
	case users.SlotEvening:
		p.Evening++
	case users.SlotNight:
		p.Night++
	}
	return nil
}

func cloneUser(u *users.User) *users.User {
	c := *u
	c.Preferences.DietaryRestrictions = slices.Clone(u.Preferences.DietaryRestrictions)
	c.Preferences.HealthGoals = slices.Clone(u.Preferences.HealthGoals)
	c.Preferences.Allergens = slices.Clone(u.Preferences.Allergens)
	c.BehaviorProfile.CommonConcerns = slices.Clone(u.BehaviorProfile.CommonConcerns)
	c.BehaviorProfile.FrequentCategories = slices.Clone(u.BehaviorProfile.FrequentCategories)
	return &c
}
