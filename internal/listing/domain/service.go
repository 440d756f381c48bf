package domain

import (
	"context"
	"errors"
)

type PublishRequest struct {
	SellerUID   string
	SellerEmail string
	DeckID      string
	Title       string
	SubjectID   string
	CoverEmoji  string
	CardCount   int64
	// Price is a major-unit decimal such as "4.90". Empty keeps the stored
	// price.
	Price string
}

type UpdatePriceRequest struct {
	SellerUID string
	DeckID    string
	Price     string
}

type ListActiveRequest struct {
	PageToken string
	PageSize  int
}

type ListActiveResponse struct {
	Listings      []Listing `json:"listings"`
	NextPageToken string    `json:"next_page_token,omitempty"`
	HasMore       bool      `json:"has_more"`
}

// SellerListing pairs a listing with the seller's earnings preview.
type SellerListing struct {
	Listing
	PlatformFee  int64 `json:"platform_fee_cents"`
	ProcessorFee int64 `json:"processor_fee_cents"`
	Net          int64 `json:"net_cents"`
}

type Service interface {
	Publish(ctx context.Context, req PublishRequest) (*Listing, error)
	Unpublish(ctx context.Context, sellerUID, deckID string) (*Listing, error)
	UpdatePrice(ctx context.Context, req UpdatePriceRequest) (*Listing, error)
	Get(ctx context.Context, id string) (*Listing, error)
	FindActiveByDeck(ctx context.Context, deckID string) (*Listing, error)
	ListActive(ctx context.Context, req ListActiveRequest) (ListActiveResponse, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]SellerListing, error)
}

var (
	ErrNotFound           = errors.New("listing_not_found")
	ErrInvalidSeller      = errors.New("invalid_seller")
	ErrInvalidDeck        = errors.New("invalid_deck")
	ErrInvalidID          = errors.New("invalid_listing_id")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrMissingPrice       = errors.New("missing_price")
	ErrPriceLocked        = errors.New("price_locked")
	ErrSellerNotConnected = errors.New("seller_not_connected")
)
