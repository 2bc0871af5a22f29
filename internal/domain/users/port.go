package users

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Repository.Get when the user has no record.
var ErrNotFound = errors.New("user not found")

// Repository port for user personalization data.
type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	// UpsertPreferences creates the user record if needed.
	UpsertPreferences(ctx context.Context, id string, prefs Preferences) (*User, error)
	// IncrementScanSlot atomically adds one to the slot's counter.
	IncrementScanSlot(ctx context.Context, id string, slot TimeSlot) error
}
