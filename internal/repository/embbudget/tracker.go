// Package embbudget enforces a token budget on the embedding pipeline: an
// in-memory daily/monthly tracker with optional write-behind persistence,
// and an embedder decorator that consults it around every provider call.
package embbudget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

// Action defines behavior when the token budget is exceeded.
type Action string

const (
	// ActionWarn logs a warning but allows the request.
	ActionWarn Action = "warn"
	// ActionReject blocks the request.
	ActionReject Action = "reject"
)

// counters is the persistence contract for budget counters. Increments must
// be safe to repeat.
type counters interface {
	IncrBy(ctx context.Context, key string, delta int64) error
	GetInt64(ctx context.Context, key string) (int64, error)
}

// Tracker counts embedding tokens against daily and monthly limits.
// The hot path (Check) is in-memory only; Record updates memory first and
// then writes behind to the attached store, so counters survive restarts
// without a round-trip per request. A zero limit means unlimited.
type Tracker struct {
	mu             sync.Mutex
	dailyUsed      int64
	monthlyUsed    int64
	dailyLimit     int64
	monthlyLimit   int64
	action         Action
	provider       string
	lastDayReset   time.Time
	lastMonthReset time.Time
	store          counters
	logger         *zap.Logger
	now            func() time.Time
}

// NewTracker creates a budget tracker with the given limits.
func NewTracker(provider string, dailyLimit, monthlyLimit int64, action Action, logger *zap.Logger) *Tracker {
	t := &Tracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		provider:     provider,
		logger:       logger,
		now:          time.Now,
	}
	now := t.now().UTC()
	t.lastDayReset = truncateToDay(now)
	t.lastMonthReset = truncateToMonth(now)
	return t
}

// WithStore attaches a persistence store and loads the current counters.
func (t *Tracker) WithStore(ctx context.Context, store counters) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store = store
	now := t.now().UTC()

	if val, err := store.GetInt64(ctx, t.dailyKey(now)); err == nil {
		t.dailyUsed = val
	} else {
		t.logger.Warn("Failed to load daily budget from store", zap.Error(err))
	}
	if val, err := store.GetInt64(ctx, t.monthlyKey(now)); err == nil {
		t.monthlyUsed = val
	} else {
		t.logger.Warn("Failed to load monthly budget from store", zap.Error(err))
	}

	t.logger.Info("Token budget loaded from store",
		zap.String("provider", t.provider),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("monthly_used", t.monthlyUsed),
	)
	return t
}

func (t *Tracker) dailyKey(now time.Time) string {
	return fmt.Sprintf("budget:%s:daily:%s", t.provider, now.Format("2006-01-02"))
}

func (t *Tracker) monthlyKey(now time.Time) string {
	return fmt.Sprintf("budget:%s:monthly:%s", t.provider, now.Format("2006-01"))
}

// Check verifies the budget allows a new request. In-memory only.
func (t *Tracker) Check(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNeeded()

	dailyExceeded := t.dailyLimit > 0 && t.dailyUsed >= t.dailyLimit
	monthlyExceeded := t.monthlyLimit > 0 && t.monthlyUsed >= t.monthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if t.action == ActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	t.logger.Warn("Token budget exceeded",
		zap.String("provider", t.provider),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("daily_limit", t.dailyLimit),
		zap.Int64("monthly_used", t.monthlyUsed),
		zap.Int64("monthly_limit", t.monthlyLimit),
	)
	return nil
}

// Record registers consumed tokens: in-memory counters first, then a
// fire-and-forget write-behind to the store when one is attached.
func (t *Tracker) Record(tokens int64) {
	t.mu.Lock()
	t.resetIfNeeded()
	t.dailyUsed += tokens
	t.monthlyUsed += tokens
	store := t.store
	now := t.now().UTC()
	dailyKey := t.dailyKey(now)
	monthlyKey := t.monthlyKey(now)
	t.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.IncrBy(ctx, dailyKey, tokens); err != nil {
		t.logger.Warn("Failed to persist daily budget", zap.String("key", dailyKey), zap.Error(err))
	}
	if err := store.IncrBy(ctx, monthlyKey, tokens); err != nil {
		t.logger.Warn("Failed to persist monthly budget", zap.String("key", monthlyKey), zap.Error(err))
	}
}

// RemainingDaily returns tokens left in the daily budget (-1 if unlimited).
func (t *Tracker) RemainingDaily() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNeeded()
	if t.dailyLimit == 0 {
		return -1
	}
	if remaining := t.dailyLimit - t.dailyUsed; remaining > 0 {
		return remaining
	}
	return 0
}

// RemainingMonthly returns tokens left in the monthly budget (-1 if unlimited).
func (t *Tracker) RemainingMonthly() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNeeded()
	if t.monthlyLimit == 0 {
		return -1
	}
	if remaining := t.monthlyLimit - t.monthlyUsed; remaining > 0 {
		return remaining
	}
	return 0
}

// DailyUsed returns tokens consumed today.
func (t *Tracker) DailyUsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeeded()
	return t.dailyUsed
}

// MonthlyUsed returns tokens consumed this month.
func (t *Tracker) MonthlyUsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeeded()
	return t.monthlyUsed
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (t *Tracker) resetIfNeeded() {
	now := t.now().UTC()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(t.lastDayReset) {
		t.dailyUsed = 0
		t.lastDayReset = today
	}
	if thisMonth.After(t.lastMonthReset) {
		t.monthlyUsed = 0
		t.lastMonthReset = thisMonth
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
