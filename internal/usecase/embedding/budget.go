package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/domain"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore is the persistence interface for budget counters.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// budgetKeyTTL expires daily counters two days after creation, long enough
// to survive a restart on the same day without accumulating forever.
const budgetKeyTTL = 48 * time.Hour

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
}

// BudgetTracker is an in-memory daily token budget with optional write-behind
// persistence. Check is in-memory only, no round-trip on the hot path.
type BudgetTracker struct {
	mu        sync.Mutex
	used      int64
	limit     int64
	action    BudgetAction
	provider  string
	lastReset time.Time
	store     BudgetStore
	logger    *zap.Logger
}

// NewBudgetTracker creates a daily budget tracker. limit=0 means unlimited.
func NewBudgetTracker(provider string, limit int64, action BudgetAction, logger *zap.Logger) *BudgetTracker {
	return &BudgetTracker{
		limit:     limit,
		action:    action,
		provider:  provider,
		lastReset: truncateToDay(time.Now().UTC()),
		logger:    logger,
	}
}

// WithStore attaches a persistence store and loads today's counter.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	if data, err := store.Get(ctx, b.key(time.Now().UTC())); err == nil {
		var used int64
		if _, scanErr := fmt.Sscanf(string(data), "%d", &used); scanErr == nil {
			b.used = used
		}
	}
	b.logger.Info("Budget loaded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.used),
	)
	return b
}

func (b *BudgetTracker) key(t time.Time) string {
	return "budget:" + b.provider + ":daily:" + t.Format("2006-01-02")
}

// Check verifies the budget allows a new request.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	if b.limit == 0 || b.used < b.limit {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("used", b.used),
		zap.Int64("limit", b.limit),
	)
	return nil
}

// Record registers consumed tokens, then write-behind to the store.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.resetIfNeeded()
	b.used += tokens
	store := b.store
	key := b.key(time.Now().UTC())
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Fire-and-forget so store writes don't block the caller.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.IncrBy(ctx, key, tokens); err != nil {
		b.logger.Warn("Failed to persist budget", zap.String("key", key), zap.Error(err))
		return
	}
	// NX so the expiry set on the key's first increment is never extended.
	if err := store.Expire(ctx, key, budgetKeyTTL, true); err != nil {
		b.logger.Warn("Failed to expire budget key", zap.String("key", key), zap.Error(err))
	}
}

// RemainingDaily returns tokens left today (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	if b.limit == 0 {
		return -1
	}
	remaining := b.limit - b.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (b *BudgetTracker) resetIfNeeded() {
	today := truncateToDay(time.Now().UTC())
	if today.After(b.lastReset) {
		b.used = 0
		b.lastReset = today
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
