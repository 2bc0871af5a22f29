package analysis

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no analysis matches id and owner.
var ErrNotFound = errors.New("analysis not found")

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, userID string, id AnalysisID) (*Analysis, error)
	// ListByUser returns the user's analyses newest first.
	ListByUser(ctx context.Context, userID string, page, limit int) ([]*Analysis, int64, error)
	SetFeedback(ctx context.Context, userID string, id AnalysisID, fb Feedback) error
}

// ImageStore port (interface untuk penyimpanan gambar label)
type ImageStore interface {
	PutImage(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
