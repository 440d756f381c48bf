package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentLookup(t *testing.T) {
	doc := Document{
		"customer_details": map[string]any{"email": " buyer@example.com "},
		"amount_total":     float64(1500),
	}

	assert.Equal(t, "buyer@example.com", doc.LookupString("customer_details.email"))
	assert.Equal(t, "", doc.LookupString("customer_details.name"))
	assert.Equal(t, "", doc.LookupString("amount_total.value"))
	assert.Equal(t, "1500", doc.String("amount_total"))
	assert.Equal(t, int64(1500), doc.Int64("amount_total"))
}

func TestNormalizeFormatsTimes(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC)
	at := time.Date(2024, 12, 31, 23, 0, 0, 0, time.FixedZone("SGT", 8*3600))

	out := Normalize(Document{
		"updatedAt": ServerTimestamp,
		"createdAt": at,
		"nested":    Document{"at": ServerTimestamp},
	}, now)

	assert.Equal(t, "2025-01-02T03:04:05.000000006Z", out["updatedAt"])
	assert.Equal(t, "2024-12-31T15:00:00.000000000Z", out["createdAt"])
	assert.Equal(t, FormatTime(now), out["nested"].(Document)["at"])
}

func TestMatchesRequiresStringEquality(t *testing.T) {
	doc := Document{"status": "active", "priceCents": float64(500)}

	assert.True(t, Matches(doc, []Filter{Where("status", "active")}))
	assert.False(t, Matches(doc, []Filter{Where("status", "draft")}))
	assert.False(t, Matches(doc, []Filter{Where("priceCents", "500")}))
	assert.False(t, Matches(doc, []Filter{Where("missing", "")}))
}
