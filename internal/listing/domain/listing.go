package domain

import (
	"strings"
	"time"

	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

const Collection = "listings"

type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
)

const (
	DefaultTitle      = "Untitled Deck"
	DefaultCoverEmoji = "📚"
)

// Listing is the canonical view of a listings document. Raw keeps the
// stored shape for the amount resolver.
type Listing struct {
	ID          string            `json:"id"`
	DeckID      string            `json:"deck_id"`
	SellerUID   string            `json:"seller_uid"`
	SellerEmail string            `json:"seller_email,omitempty"`
	Title       string            `json:"title"`
	SubjectID   string            `json:"subject_id,omitempty"`
	CoverEmoji  string            `json:"cover_emoji,omitempty"`
	CardCount   int64             `json:"card_count,omitempty"`
	Currency    string            `json:"currency"`
	Status      Status            `json:"status"`
	UnitAmount  int64             `json:"price_cents"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Raw         docstore.Document `json:"-"`
}

// ListingID is the natural key of a seller's listing for one deck.
func ListingID(sellerUID, deckID string) string {
	return sellerUID + "__" + deckID
}

func (l *Listing) IsActive() bool {
	return l != nil && l.Status == StatusActive
}

// FromSnapshot returns nil for a missing document.
func FromSnapshot(snap docstore.Snapshot) *Listing {
	if !snap.Exists {
		return nil
	}
	doc := snap.Data
	preview, _ := doc["preview"].(map[string]any)
	previewDoc := docstore.Document(preview)

	return &Listing{
		ID:          snap.ID,
		DeckID:      doc.String("deckId"),
		SellerUID:   doc.String("sellerUid"),
		SellerEmail: doc.String("sellerEmail"),
		Title:       doc.String("title"),
		SubjectID:   doc.String("subjectId"),
		CoverEmoji:  previewDoc.String("coverEmoji"),
		CardCount:   previewDoc.Int64("cardCount"),
		Currency:    strings.ToLower(doc.String("currency")),
		Status:      Status(doc.String("status")),
		UnitAmount:  ResolveUnitAmount(doc),
		CreatedAt:   doc.Time("createdAt"),
		UpdatedAt:   doc.Time("updatedAt"),
		Raw:         doc,
	}
}
