package domain

import (
	"context"
	"errors"
)

type CreateSessionRequest struct {
	ListingID  string
	DeckID     string
	BuyerUID   string
	BuyerEmail string
	// OriginHeader is only used when no site URL is configured.
	OriginHeader string
}

type CreateSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id,omitempty"`
}

type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResponse, error)
}

var (
	ErrValidation         = errors.New("missing_fields")
	ErrNotFound           = errors.New("listing_not_found")
	ErrInvalidState       = errors.New("listing_not_active")
	ErrMalformedRecord    = errors.New("listing_malformed")
	ErrConflict           = errors.New("listing_deck_mismatch")
	ErrSellerNotOnboarded = errors.New("seller_not_onboarded")
	ErrInvalidPrice       = errors.New("invalid_price")
)
