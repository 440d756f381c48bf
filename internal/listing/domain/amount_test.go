package domain

import (
	"math"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
	"github.com/stretchr/testify/assert"
)

func TestResolveUnitAmount(t *testing.T) {
	tests := []struct {
		name string
		doc  docstore.Document
		want int64
	}{
		{"cents integer", docstore.Document{"priceCents": float64(490)}, 490},
		{"cents preferred over dollars", docstore.Document{"priceCents": float64(490), "price": "9.99"}, 490},
		{"legacy snake case", docstore.Document{"price_cents": int64(250)}, 250},
		{"legacy currency suffixed", docstore.Document{"priceCentsSGD": "1200"}, 1200},
		{"priority order", docstore.Document{"price_cents": 300, "priceCentsSGD": 400}, 300},
		{"cents rounded", docstore.Document{"priceCents": 490.5}, 491},
		{"zero skipped", docstore.Document{"priceCents": 0, "price_cents": 120}, 120},
		{"negative skipped", docstore.Document{"priceCents": -5, "price": 4.9}, 490},
		{"non numeric skipped", docstore.Document{"priceCents": "free", "price": "4.90"}, 490},
		{"boolean skipped", docstore.Document{"priceCents": true}, 0},
		{"nan skipped", docstore.Document{"priceCents": math.NaN(), "price": 5}, 500},
		{"inf skipped", docstore.Document{"priceCents": math.Inf(1)}, 0},
		{"dollars number", docstore.Document{"price": 4.9}, 490},
		{"dollars string", docstore.Document{"price": " 12.35 "}, 1235},
		{"dollars too small", docstore.Document{"price": 0.004}, 0},
		{"json number", docstore.Document{"priceCents": json.Number("799")}, 799},
		{"above processor max", docstore.Document{"priceCents": float64(MaxUnitAmount + 1), "price": 3}, 300},
		{"empty string", docstore.Document{"priceCents": "", "price": ""}, 0},
		{"nothing", docstore.Document{}, 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveUnitAmount(tt.doc)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ResolveUnitAmount(tt.doc), "deterministic")
		})
	}
}

func TestParseMajorUnits(t *testing.T) {
	cents, ok := ParseMajorUnits("4.90")
	assert.True(t, ok)
	assert.Equal(t, int64(490), cents)

	for _, raw := range []string{"", "abc", "-1", "0", "NaN", "Inf"} {
		_, ok := ParseMajorUnits(raw)
		assert.False(t, ok, raw)
	}
}

func TestFromSnapshot(t *testing.T) {
	assert.Nil(t, FromSnapshot(docstore.Snapshot{ID: "x"}))

	l := FromSnapshot(docstore.Snapshot{ID: "S1__D1", Exists: true, Data: docstore.Document{
		"deckId":    "D1",
		"sellerUid": "S1",
		"status":    "active",
		"currency":  "SGD",
		"price":     "4.90",
		"preview":   map[string]any{"coverEmoji": "🧪", "cardCount": float64(42)},
		"updatedAt": "2025-03-14T09:26:53.000000000Z",
	}})
	assert.True(t, l.IsActive())
	assert.Equal(t, int64(490), l.UnitAmount)
	assert.Equal(t, "sgd", l.Currency)
	assert.Equal(t, "🧪", l.CoverEmoji)
	assert.Equal(t, int64(42), l.CardCount)
	assert.Equal(t, 2025, l.UpdatedAt.Year())
	assert.Equal(t, "S1__D1", ListingID("S1", "D1"))
}
