package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/checkout"),
		attribute.Int("http.status_code", 200),
		attribute.String("buyer.email", "a@example.com"),
		attribute.String("stripe.signature", "t=1,v1=abc"),
	)
	keys := []string{}
	for _, a := range attrs {
		keys = append(keys, string(a.Key))
	}
	assert.Equal(t, []string{"http.route", "http.status_code"}, keys)
}

func TestSafeErrorKeepsOuterMessage(t *testing.T) {
	err := fmt.Errorf("persistence_failed: %w", errors.New("insert buyer@example.com"))
	assert.EqualError(t, SafeError(err), "persistence_failed")
	assert.Nil(t, SafeError(nil))
}
