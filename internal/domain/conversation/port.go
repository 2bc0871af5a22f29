package conversation

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no conversation matches id and owner.
var ErrNotFound = errors.New("conversation not found")

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, c *Conversation) error
	Get(ctx context.Context, userID string, id ConversationID) (*Conversation, error)
	// ListByUser returns summaries ordered by LastMessageAt desc.
	ListByUser(ctx context.Context, userID string, page, limit int) ([]*Summary, int64, error)
	// AppendTurn appends msgs and replaces the tracked context in one atomic
	// write. Either both land or neither does.
	AppendTurn(ctx context.Context, userID string, id ConversationID, c Context, lastMessageAt time.Time, msgs ...Message) error
}
