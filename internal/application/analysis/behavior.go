package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
)

const (
	behaviorQueueSize = 256
	behaviorTimeout   = 5 * time.Second
)

type behaviorEvent struct {
	userID string
	slot   users.TimeSlot
}

// BehaviorRecorder applies scan-time histogram increments off the request
// path. Failures are logged and dropped.
type BehaviorRecorder struct {
	repo   users.Repository
	logger *zap.Logger
	queue  chan behaviorEvent
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewBehaviorRecorder(repo users.Repository, logger *zap.Logger) *BehaviorRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &BehaviorRecorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan behaviorEvent, behaviorQueueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Enqueue never blocks. It reports false when the event was dropped.
func (r *BehaviorRecorder) Enqueue(userID string, slot users.TimeSlot) bool {
	if userID == "" || !slot.Valid() {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- behaviorEvent{userID: userID, slot: slot}:
		return true
	default:
		r.logger.Warn("behavior queue full, dropping update", zap.String("user_id", userID))
		return false
	}
}

// Close stops accepting events and waits until queued ones are applied.
func (r *BehaviorRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *BehaviorRecorder) run() {
	defer r.wg.Done()
	for ev := range r.queue {
		r.apply(ev)
	}
}

func (r *BehaviorRecorder) apply(ev behaviorEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("behavior update panicked", zap.Any("panic", p))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), behaviorTimeout)
	defer cancel()
	if err := r.repo.IncrementScanSlot(ctx, ev.userID, ev.slot); err != nil {
		r.logger.Warn("behavior update failed",
			zap.String("user_id", ev.userID),
			zap.String("slot", string(ev.slot)),
			zap.Error(err))
	}
}
