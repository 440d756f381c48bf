package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "created"),
		attribute.String("buyer_uid", "u_123"),
		attribute.String("listing_id", "seller__deck"),
		attribute.String("currency", "sgd"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "buyer_uid" || attr.Key == "listing_id" {
			t.Fatalf("high-cardinality label %q retained", attr.Key)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordCheckoutSession(context.Background(), OutcomeCreated, "", "sgd", 1000, 120)
	m.RecordWebhookEvent(context.Background(), "checkout.session.completed", OutcomeRecorded)
	m.RecordPurchase(context.Background(), "sgd")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordCheckoutSession(context.Background(), OutcomeCreated, "", "sgd", 1000, 120)
	m.RecordRateLimitDenied(context.Background(), "checkout", "buyer")
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{ServiceName: "test", Environment: "test"})

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/listings/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"a__1", "b__2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings/"+id, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	count := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/listings/:id", "204"))
	assert.Equal(t, float64(2), count)
}
