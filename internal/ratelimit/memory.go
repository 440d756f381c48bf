package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/flashmarket/internal/clock"
	"golang.org/x/time/rate"
)

// MemoryBucket keeps one x/time/rate limiter per key. Limits are per
// process, so it only fits single-instance deployments.
type MemoryBucket struct {
	clock clock.Clock

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewMemoryBucket(c clock.Clock) *MemoryBucket {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &MemoryBucket{clock: c, limiters: make(map[string]*rate.Limiter)}
}

func (m *MemoryBucket) Allow(_ context.Context, key string, r float64, burst int) (Result, error) {
	if err := validateBucket(key, r, burst); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	limiter, ok := m.limiters[key]
	if !ok || limiter.Burst() != burst || float64(limiter.Limit()) != r {
		limiter = rate.NewLimiter(rate.Limit(r), burst)
		m.limiters[key] = limiter
	}
	m.mu.Unlock()

	now := m.clock.Now()
	allowed := limiter.AllowN(now, 1)
	remaining := limiter.TokensAt(now)
	return Result{
		Allowed:    allowed,
		Remaining:  int(remaining),
		RetryAfter: retryAfter(allowed, remaining, r),
	}, nil
}

type memoryLock struct {
	token   string
	expires time.Time
}

// MemoryLocker is the in-process counterpart of Locker.
type MemoryLocker struct {
	clock clock.Clock

	mu    sync.Mutex
	locks map[string]memoryLock
}

func NewMemoryLocker(c clock.Clock) *MemoryLocker {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &MemoryLocker{clock: c, locks: make(map[string]memoryLock)}
}

func (m *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := validateLock(key, ttl); err != nil {
		return "", false, err
	}

	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.locks[key]; ok && now.Before(held.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	m.locks[key] = memoryLock{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (m *MemoryLocker) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.locks[key]; ok && held.token == token {
		delete(m.locks, key)
	}
	return nil
}
