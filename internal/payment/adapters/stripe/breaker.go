package stripe

import (
	"errors"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// newBreaker opens after 60% failures over at least 10 requests in a
// minute and probes again after 30s with up to 3 requests.
func newBreaker(log *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "stripe-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				log.Warn("opening stripe circuit",
					zap.Uint32("failures", counts.TotalFailures),
					zap.Float64("failure_rate", failureRatio),
				)
			}
			return shouldTrip
		},
		IsSuccessful: isHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("stripe circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// isHealthy treats request errors the processor answered deliberately
// (card declined, bad parameter) as healthy responses.
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status < http.StatusInternalServerError && apiErr.status != http.StatusTooManyRequests
	}
	return false
}
