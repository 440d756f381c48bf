package domain

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

// MaxUnitAmount is the largest single charge the processor accepts, in
// minor units.
const MaxUnitAmount int64 = 99_999_999

// centsFields hold an amount already in minor units, in priority order.
// The later names come from older listing documents.
var centsFields = []string{"priceCents", "price_cents", "priceCentsSGD"}

// dollarsField holds a major-unit decimal, as a number or a string.
const dollarsField = "price"

// ResolveUnitAmount returns the listing price in minor units, or 0 when no
// field carries a usable positive amount.
func ResolveUnitAmount(doc docstore.Document) int64 {
	for _, field := range centsFields {
		if v, ok := positiveNumber(doc[field]); ok {
			if cents, ok := toMinorUnits(v); ok {
				return cents
			}
		}
	}
	if v, ok := positiveNumber(doc[dollarsField]); ok {
		if cents, ok := toMinorUnits(v * 100); ok {
			return cents
		}
	}
	return 0
}

// ParseMajorUnits converts a price typed by a seller ("4.90", "5") into
// minor units.
func ParseMajorUnits(raw string) (int64, bool) {
	v, ok := positiveNumber(raw)
	if !ok {
		return 0, false
	}
	return toMinorUnits(v * 100)
}

func toMinorUnits(v float64) (int64, bool) {
	// math.Round is half away from zero
	rounded := math.Round(v)
	if rounded <= 0 || rounded > float64(MaxUnitAmount) {
		return 0, false
	}
	return int64(rounded), true
}

func positiveNumber(value any) (float64, bool) {
	var v float64
	switch cast := value.(type) {
	case float64:
		v = cast
	case float32:
		v = float64(cast)
	case int:
		v = float64(cast)
	case int32:
		v = float64(cast)
	case int64:
		v = float64(cast)
	case json.Number:
		parsed, err := cast.Float64()
		if err != nil {
			return 0, false
		}
		v = parsed
	case string:
		trimmed := strings.TrimSpace(cast)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		// nil, booleans, nested objects
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
