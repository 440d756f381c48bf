package domain

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

// Synonym paths per field, in priority order, into the checkout session
// object. Older sessions carry the later names.
var (
	deckIDPaths        = []string{"metadata.deckDocId", "metadata.deckId"}
	buyerUIDPaths      = []string{"metadata.buyerUid", "metadata.uid"}
	buyerEmailPaths    = []string{"metadata.buyerEmail", "customer_details.email", "customer_email"}
	deckNamePaths      = []string{"metadata.deckName", "metadata.title"}
	sellerAccountPaths = []string{"metadata.sellerAccountId"}
	listingIDPaths     = []string{"metadata.listingId"}
)

// Confirmation is a completed checkout resolved into canonical fields.
type Confirmation struct {
	EventID         string
	EventType       string
	SessionID       string
	BuyerEmail      string
	BuyerUID        string
	DeckID          string
	DeckName        string
	ListingID       string
	SellerAccountID string
	AmountTotal     *int64
	Currency        string
	// CreatedAt comes from the event so redelivery writes identical
	// documents.
	CreatedAt time.Time
}

// Complete reports whether the confirmation identifies a sale.
func (c Confirmation) Complete() bool {
	return c.SessionID != "" && c.BuyerEmail != "" && c.DeckID != ""
}

func ExtractConfirmation(event paymentdomain.Event) (Confirmation, error) {
	var session docstore.Document
	if len(event.Data.Object) > 0 {
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return Confirmation{}, paymentdomain.ErrInvalidPayload
		}
	}

	c := Confirmation{
		EventID:         event.ID,
		EventType:       event.Type,
		SessionID:       session.String("id"),
		BuyerEmail:      firstOf(session, buyerEmailPaths),
		BuyerUID:        firstOf(session, buyerUIDPaths),
		DeckID:          firstOf(session, deckIDPaths),
		DeckName:        firstOf(session, deckNamePaths),
		ListingID:       firstOf(session, listingIDPaths),
		SellerAccountID: firstOf(session, sellerAccountPaths),
		Currency:        strings.ToLower(session.String("currency")),
		CreatedAt:       eventTime(event.Created, session.Int64("created")),
	}
	if c.SellerAccountID == "" {
		c.SellerAccountID = strings.TrimSpace(event.Account)
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if v, ok := session["amount_total"]; ok && v != nil {
		amount := session.Int64("amount_total")
		c.AmountTotal = &amount
	}
	return c, nil
}

func firstOf(doc docstore.Document, paths []string) string {
	for _, path := range paths {
		if v := doc.LookupString(path); v != "" {
			return v
		}
	}
	return ""
}

func eventTime(primary, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}
