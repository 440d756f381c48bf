package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

const (
	PurchasesCollection = "purchases"
	IndexCollection     = "purchasesIndex"
	EventsCollection    = "webhookEvents"

	SourceStripe    = "stripe"
	DefaultCurrency = "sgd"
)

type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeSkipped   Outcome = "skipped"
)

// Ack tells the processor to stop redelivering. Outcome says why.
type Ack struct {
	Outcome   Outcome
	EventID   string
	EventType string
	SessionID string
}

// Purchase is the durable fact that a buyer paid for a deck. It is keyed
// by the checkout session id and never changes after it is written.
type Purchase struct {
	ID              string    `json:"id"`
	BuyerEmail      string    `json:"buyer_email"`
	BuyerUID        string    `json:"buyer_uid,omitempty"`
	DeckID          string    `json:"deck_id"`
	DeckName        string    `json:"deck_name,omitempty"`
	ListingID       string    `json:"listing_id,omitempty"`
	SellerAccountID string    `json:"seller_account_id,omitempty"`
	SessionID       string    `json:"stripe_session_id"`
	AmountTotal     *int64    `json:"amount_total"`
	Currency        string    `json:"currency"`
	Source          string    `json:"source"`
	CreatedAt       time.Time `json:"created_at"`
}

// Ownership is one purchasesIndex entry.
type Ownership struct {
	ID         string    `json:"id"`
	BuyerUID   string    `json:"buyer_uid"`
	DeckID     string    `json:"deck_id"`
	DeckName   string    `json:"deck_name,omitempty"`
	PurchaseID string    `json:"purchase_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// IndexID is the idempotency key of an ownership entry.
func IndexID(buyerUID, deckID string) string {
	return buyerUID + "__" + deckID
}

func OwnershipFromSnapshot(snap docstore.Snapshot) *Ownership {
	if !snap.Exists {
		return nil
	}
	return &Ownership{
		ID:         snap.ID,
		BuyerUID:   snap.Data.String("buyerUid"),
		DeckID:     snap.Data.String("deckId"),
		DeckName:   snap.Data.String("deckName"),
		PurchaseID: snap.Data.String("purchaseId"),
		CreatedAt:  snap.Data.Time("createdAt"),
	}
}

type Service interface {
	HandleConfirmationEvent(ctx context.Context, payload []byte, signatureHeader string, secrets []string) (Ack, error)
	HasPurchase(ctx context.Context, buyerUID, deckID string) (bool, error)
	ListByBuyer(ctx context.Context, buyerUID string) ([]Ownership, error)
}

type Repository interface {
	// Record writes the purchase, its ownership entry and the event marker
	// in one commit. It reports whether the purchase was new.
	Record(ctx context.Context, c Confirmation) (bool, error)
	FindOwnership(ctx context.Context, id string) (*Ownership, error)
	ListOwnership(ctx context.Context, buyerUID string) ([]Ownership, error)
}

// PersistenceError means the confirmation was not stored and must be
// redelivered.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist purchase: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

var (
	ErrInvalidBuyer = errors.New("invalid_buyer")
	ErrInvalidDeck  = errors.New("invalid_deck")
)
