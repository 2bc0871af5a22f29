package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/application"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxMessageRunes  = 2000
)

// Service implements the conversation use-cases.
type Service struct {
	Conversations conversation.Repository
	Analyses      analysis.Repository
	Tracker       *Tracker
	Clock         application.Clock
	Logger        *zap.Logger
}

// Start membuat percakapan baru dari satu analisis milik user
func (s *Service) Start(ctx context.Context, userID string, analysisID analysis.AnalysisID) (*conversation.Conversation, error) {
	if strings.TrimSpace(string(analysisID)) == "" {
		return nil, failure.Validation("analysisId is required")
	}
	parent, err := s.loadAnalysis(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	conv := &conversation.Conversation{
		ID:         conversation.ConversationID(uuid.New().String()),
		UserID:     userID,
		AnalysisID: string(analysisID),
		Messages: []conversation.Message{{
			Role:      conversation.RoleSystem,
			Content:   fmt.Sprintf("Conversation started for analysis %s", analysisID),
			Timestamp: now,
		}},
		Context:       SeedContext(parent),
		Status:        conversation.StatusActive,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	if err := s.Conversations.Create(ctx, conv); err != nil {
		return nil, failure.Persistence("create conversation", err)
	}
	s.logger().Info("conversation started",
		zap.String("user_id", userID),
		zap.String("conversation_id", string(conv.ID)),
		zap.String("analysis_id", string(analysisID)))
	return conv, nil
}

// SendMessage jalanin satu giliran chat: dua pesan ditambahkan hanya kalau AI berhasil
func (s *Service) SendMessage(ctx context.Context, userID string, id conversation.ConversationID, message string) (Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Turn{}, failure.Validation("Message cannot be empty")
	}
	if len([]rune(message)) > maxMessageRunes {
		return Turn{}, failure.Validation("message is too long")
	}

	conv, err := s.Get(ctx, userID, id)
	if err != nil {
		return Turn{}, err
	}
	if conv.Status != conversation.StatusActive {
		return Turn{}, failure.Validation(fmt.Sprintf("conversation is %s", conv.Status))
	}
	parent, err := s.loadAnalysis(ctx, userID, analysis.AnalysisID(conv.AnalysisID))
	if err != nil {
		return Turn{}, err
	}

	turn, err := s.Tracker.Run(ctx, conv, parent, message)
	if err != nil {
		s.logger().Error("chat turn failed", zap.String("conversation_id", string(id)), zap.Error(err))
		return Turn{}, err
	}

	if err := s.Conversations.AppendTurn(ctx, userID, id, turn.Context, turn.Assistant.Timestamp, turn.User, turn.Assistant); err != nil {
		return Turn{}, failure.Persistence("append chat turn", err)
	}
	return turn, nil
}

// Get ambil percakapan lengkap milik user
func (s *Service) Get(ctx context.Context, userID string, id conversation.ConversationID) (*conversation.Conversation, error) {
	conv, err := s.Conversations.Get(ctx, userID, id)
	if errors.Is(err, conversation.ErrNotFound) || (err == nil && conv == nil) {
		return nil, failure.NotFound("conversation")
	}
	if err != nil {
		return nil, failure.Persistence("get conversation", err)
	}
	return conv, nil
}

// List ringkasan percakapan user, yang terakhir aktif dulu
func (s *Service) List(ctx context.Context, userID string, page, limit int) (conversation.PaginatedResult, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	items, total, err := s.Conversations.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return conversation.PaginatedResult{}, failure.Persistence("list conversations", err)
	}
	return conversation.NewPage(items, page, limit, total), nil
}

func (s *Service) loadAnalysis(ctx context.Context, userID string, id analysis.AnalysisID) (*analysis.Analysis, error) {
	a, err := s.Analyses.Get(ctx, userID, id)
	if errors.Is(err, analysis.ErrNotFound) || (err == nil && a == nil) {
		return nil, failure.NotFound("analysis")
	}
	if err != nil {
		return nil, failure.Persistence("get analysis", err)
	}
	return a, nil
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
