package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/ingredient-copilot/internal/application"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/db/memory"
)

type scriptedAI struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	opts    []ai.GenerateOptions
}

func (s *scriptedAI) Generate(_ context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	s.opts = append(s.opts, opts)
	return s.reply, s.err
}

func (s *scriptedAI) Model() string { return "chat-model" }

type chatFixture struct {
	svc   *Service
	ai    *scriptedAI
	store *memory.Store
}

var chatNow = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Analyses.Create(context.Background(), &analysis.Analysis{
		ID:            "an-1",
		UserID:        "u1",
		ExtractedText: analysis.ExtractedText{Cleaned: "Sugar, Salt, Citric Acid, Red 40"},
		Result: analysis.Result{
			Verdict:        analysis.VerdictConcerning,
			Score:          35,
			OneLineSummary: "Mostly sugar",
			Concerns:       []string{"Added sugar"},
			Ingredients:    []analysis.Ingredient{{Name: "Sugar"}, {Name: "Red 40"}},
		},
		Intent: analysis.Intent{PrimaryGoal: "weight-loss"},
	}))
	fake := &scriptedAI{reply: "Red 40 is a synthetic dye approved in small amounts."}
	clock := application.FixedClock{T: chatNow}
	return &chatFixture{
		ai:    fake,
		store: store,
		svc: &Service{
			Conversations: store.Conversations,
			Analyses:      store.Analyses,
			Tracker:       NewTracker(fake, nil, clock, ai.GenerateOptions{Temperature: 0.8}, nil),
			Clock:         clock,
		},
	}
}

func TestStartSeedsConversation(t *testing.T) {
	f := newChatFixture(t)

	conv, err := f.svc.Start(context.Background(), "u1", "an-1")
	require.NoError(t, err)

	assert.Equal(t, conversation.StatusActive, conv.Status)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, conversation.RoleSystem, conv.Messages[0].Role)
	assert.Equal(t, "Conversation started for analysis an-1", conv.Messages[0].Content)
	assert.Equal(t, "weight-loss", conv.Context.UserIntent)
	assert.Equal(t, []string{"Sugar", "Red 40"}, conv.Context.KeyIngredients)
	assert.Equal(t, chatNow, conv.LastMessageAt)
}

func TestStartUnknownAnalysis(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.Start(context.Background(), "u2", "an-1")
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))

	_, err = f.svc.Start(context.Background(), "u1", "")
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))
}

func TestSendMessageAppendsExactlyTwo(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	conv, err := f.svc.Start(ctx, "u1", "an-1")
	require.NoError(t, err)

	turn, err := f.svc.SendMessage(ctx, "u1", conv.ID, "  I'm worried about Red 40, any alternative?  ")
	require.NoError(t, err)

	assert.Equal(t, "Red 40 is a synthetic dye approved in small amounts.", turn.Reply().Message)
	assert.Equal(t, 0.85, turn.Reply().Reasoning.Confidence)
	assert.Equal(t, "chat", f.ai.opts[0].Purpose)
	assert.Equal(t, float32(0.8), f.ai.opts[0].Temperature)
	assert.Contains(t, f.ai.prompts[0], "Product verdict: concerning (score 35/100)")
	assert.Contains(t, f.ai.prompts[0], "user: I'm worried about Red 40, any alternative?")

	stored, err := f.svc.Get(ctx, "u1", conv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 3)
	assert.Equal(t, conversation.RoleUser, stored.Messages[1].Role)
	assert.Equal(t, conversation.RoleAssistant, stored.Messages[2].Role)
	require.NotNil(t, stored.Messages[2].Metadata)
	assert.Equal(t, "chat-model", stored.Messages[2].Metadata.Model)
	assert.Equal(t, conversation.IntentSeekingAlternatives, stored.Context.UserIntent)
	assert.Equal(t, []string{"Added sugar", "I'm worried about Red 40, any alternative?"}, stored.Context.MainConcerns)
}

func TestSendMessageAIFailureLeavesStateUntouched(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	conv, err := f.svc.Start(ctx, "u1", "an-1")
	require.NoError(t, err)
	f.ai.err = errors.New("upstream 503")

	_, err = f.svc.SendMessage(ctx, "u1", conv.ID, "is this worrying? any concern?")

	assert.Equal(t, failure.KindAIService, failure.KindOf(err))
	stored, err := f.svc.Get(ctx, "u1", conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 1)
	assert.Equal(t, []string{"Added sugar"}, stored.Context.MainConcerns)
}

// flakyTurns fails the first AppendTurn before touching the wrapped store.
type flakyTurns struct {
	conversation.Repository
	fails int
	calls int
}

func (f *flakyTurns) AppendTurn(ctx context.Context, userID string, id conversation.ConversationID, c conversation.Context, at time.Time, msgs ...conversation.Message) error {
	f.calls++
	if f.calls <= f.fails {
		return errors.New("connection reset")
	}
	return f.Repository.AppendTurn(ctx, userID, id, c, at, msgs...)
}

func TestSendMessageRetryAfterWriteFailureStoresOneTurn(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	repo := &flakyTurns{Repository: f.store.Conversations, fails: 1}
	f.svc.Conversations = repo
	conv, err := f.svc.Start(ctx, "u1", "an-1")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, "u1", conv.ID, "any alternative?")
	assert.Equal(t, failure.KindPersistence, failure.KindOf(err))

	_, err = f.svc.SendMessage(ctx, "u1", conv.ID, "any alternative?")
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, "u1", conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 3)
	assert.Equal(t, 2, repo.calls)
}

func TestSendMessageEmptyReplyUsesFallbackText(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	conv, err := f.svc.Start(ctx, "u1", "an-1")
	require.NoError(t, err)
	f.ai.reply = "   "

	turn, err := f.svc.SendMessage(ctx, "u1", conv.ID, "hello?")

	require.NoError(t, err)
	assert.NotEmpty(t, turn.Assistant.Content)
}

func TestSendMessageHistoryWindow(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	conv, err := f.svc.Start(ctx, "u1", "an-1")
	require.NoError(t, err)

	for i := 1; i <= 6; i++ {
		f.ai.reply = fmt.Sprintf("answer-%02d", i)
		_, err := f.svc.SendMessage(ctx, "u1", conv.ID, fmt.Sprintf("question-%02d", i))
		require.NoError(t, err)
	}

	last := f.ai.prompts[len(f.ai.prompts)-1]
	// 1 system + 10 turn messages exist before the 6th question; the window is
	// the latest 10 including the new question, so it starts at answer-01.
	assert.NotContains(t, last, "Conversation started")
	assert.NotContains(t, last, "question-01")
	assert.Contains(t, last, "assistant: answer-01")
	assert.Contains(t, last, "user: question-02")
	assert.Less(t, strings.Index(last, "answer-01"), strings.Index(last, "answer-05"))
}

func TestSendMessageRejections(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	conv, err := f.svc.Start(ctx, "u1", "an-1")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, "u1", conv.ID, "   ")
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))

	_, err = f.svc.SendMessage(ctx, "u2", conv.ID, "hi")
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))

	require.NoError(t, f.store.Conversations.SetStatus(ctx, "u1", conv.ID, conversation.StatusResolved))
	_, err = f.svc.SendMessage(ctx, "u1", conv.ID, "hi")
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))
	assert.Empty(t, f.ai.prompts)
}

func TestListConversations(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	for range 3 {
		_, err := f.svc.Start(ctx, "u1", "an-1")
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, 1, page.Data[0].MessageCount)
}
