package server

import (
	"bytes"
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	obscontext "github.com/smallbiznis/flashmarket/internal/observability/context"
	"github.com/smallbiznis/flashmarket/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/flashmarket/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	rateLimitReasonEndpointRate = "endpoint-rate"
	rateLimitReasonBuyerRate    = "buyer-rate"
	rateLimitReasonInFlight     = "buyer-listing-in-flight"

	maxCheckoutBodyBytes = 64 << 10
)

type checkoutRateLimitKey struct {
	ListingID string `json:"listingId"`
	DeckID    string `json:"deckId"`
	BuyerUID  string `json:"buyerUid"`
}

// CheckoutRateLimit throttles session creation and rejects a second click
// while the first session for the same buyer and listing is being created.
func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.checkoutLimiter == nil || !s.checkoutLimiter.Enabled() {
			c.Next()
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		res, err := s.checkoutLimiter.AllowEndpoint(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("checkout endpoint rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			denyCheckoutRateLimit(c, endpoint, rateLimitReasonEndpointRate, res.RetryAfter, s.obsMetrics)
			return
		}

		key, err := readCheckoutKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("checkout rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}
		// missing buyer is reported by the handler
		if key.BuyerUID == "" {
			c.Next()
			return
		}
		ctx = obscontext.WithBuyerUID(ctx, key.BuyerUID)
		c.Request = c.Request.WithContext(ctx)

		res, err = s.checkoutLimiter.AllowBuyer(ctx, key.BuyerUID)
		if err != nil {
			logger.FromContext(ctx).Warn("checkout buyer rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			denyCheckoutRateLimit(c, endpoint, rateLimitReasonBuyerRate, res.RetryAfter, s.obsMetrics)
			return
		}

		listingKey := key.ListingID
		if listingKey == "" {
			listingKey = "deck:" + key.DeckID
		}
		token, locked, err := s.checkoutLimiter.TryLockBuyerListing(ctx, key.BuyerUID, listingKey)
		if err != nil {
			logger.FromContext(ctx).Warn("checkout in-flight lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !locked {
			denyCheckoutRateLimit(c, endpoint, rateLimitReasonInFlight, time.Second, s.obsMetrics)
			return
		}
		defer func() {
			if err := s.checkoutLimiter.ReleaseBuyerListing(context.WithoutCancel(ctx), key.BuyerUID, listingKey, token); err != nil {
				logger.FromContext(ctx).Warn("checkout in-flight unlock failed", zap.Error(err))
			}
		}()

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyCheckoutRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("checkout rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

// readCheckoutKey peeks at the JSON body and puts it back for the handler.
func readCheckoutKey(c *gin.Context) (checkoutRateLimitKey, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCheckoutBodyBytes))
	if err != nil {
		return checkoutRateLimitKey{}, err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return checkoutRateLimitKey{}, nil
	}

	var payload checkoutRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return checkoutRateLimitKey{}, nil
	}

	return checkoutRateLimitKey{
		ListingID: strings.TrimSpace(payload.ListingID),
		DeckID:    strings.TrimSpace(payload.DeckID),
		BuyerUID:  strings.TrimSpace(payload.BuyerUID),
	}, nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
