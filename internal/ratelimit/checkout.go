package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/flashmarket/internal/clock"
	"github.com/smallbiznis/flashmarket/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyCheckoutBuyer    = "checkout:buyer:%s"
	keyCheckoutEndpoint = "checkout:endpoint"
	keyCheckoutLock     = "checkout:lock:%s:%s"
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    config.Config
	Clock     clock.Clock
	Log       *zap.Logger
}

// CheckoutLimiter throttles session creation per buyer and overall, and
// keeps a buyer from opening two sessions for the same listing at once.
type CheckoutLimiter struct {
	enabled bool

	bucket Bucket
	lock   Lock

	buyerRate     float64
	buyerBurst    int
	endpointRate  float64
	endpointBurst int
	lockTTL       time.Duration
}

func NewCheckoutLimiter(p Params) (*CheckoutLimiter, error) {
	limitCfg := p.Config.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if limitCfg.CheckoutBuyerRate <= 0 || limitCfg.CheckoutBuyerBurst <= 0 {
		return nil, errors.New("checkout buyer rate limit must be positive")
	}
	if limitCfg.CheckoutEndpointRate <= 0 || limitCfg.CheckoutEndpointBurst <= 0 {
		return nil, errors.New("checkout endpoint rate limit must be positive")
	}
	lockTTL := time.Duration(limitCfg.CheckoutLockTTLSecond) * time.Second
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}

	l := &CheckoutLimiter{
		enabled:       true,
		buyerRate:     limitCfg.CheckoutBuyerRate,
		buyerBurst:    limitCfg.CheckoutBuyerBurst,
		endpointRate:  limitCfg.CheckoutEndpointRate,
		endpointBurst: limitCfg.CheckoutEndpointBurst,
		lockTTL:       lockTTL,
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		p.Log.Named("rate.limit").Info("redis not configured, using in-process checkout limiter")
		l.bucket = NewMemoryBucket(p.Clock)
		l.lock = NewMemoryLocker(p.Clock)
		return l, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
	}
	l.bucket = NewTokenBucket(client)
	l.lock = NewLocker(client)
	return l, nil
}

// NewInMemoryCheckoutLimiter is used by single-node tooling and tests.
func NewInMemoryCheckoutLimiter(cfg config.RateLimitConfig, c clock.Clock) *CheckoutLimiter {
	return &CheckoutLimiter{
		enabled:       true,
		bucket:        NewMemoryBucket(c),
		lock:          NewMemoryLocker(c),
		buyerRate:     cfg.CheckoutBuyerRate,
		buyerBurst:    cfg.CheckoutBuyerBurst,
		endpointRate:  cfg.CheckoutEndpointRate,
		endpointBurst: cfg.CheckoutEndpointBurst,
		lockTTL:       time.Duration(cfg.CheckoutLockTTLSecond) * time.Second,
	}
}

func (l *CheckoutLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *CheckoutLimiter) AllowEndpoint(ctx context.Context) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, keyCheckoutEndpoint, l.endpointRate, l.endpointBurst)
}

func (l *CheckoutLimiter) AllowBuyer(ctx context.Context, buyerUID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutBuyer, strings.TrimSpace(buyerUID)), l.buyerRate, l.buyerBurst)
}

func (l *CheckoutLimiter) TryLockBuyerListing(ctx context.Context, buyerUID, listingKey string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lock.TryLock(ctx, lockKey(buyerUID, listingKey), l.lockTTL)
}

func (l *CheckoutLimiter) ReleaseBuyerListing(ctx context.Context, buyerUID, listingKey, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.lock.Release(ctx, lockKey(buyerUID, listingKey), token)
}

func lockKey(buyerUID, listingKey string) string {
	return fmt.Sprintf(keyCheckoutLock, strings.TrimSpace(buyerUID), strings.TrimSpace(listingKey))
}
