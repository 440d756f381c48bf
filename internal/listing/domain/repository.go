package domain

import (
	"context"

	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

type Repository interface {
	// FindByID returns nil, nil when the listing does not exist.
	FindByID(ctx context.Context, id string) (*Listing, error)
	FindActiveByDeck(ctx context.Context, deckID string) (*Listing, error)
	// ListActive returns up to limit active listings, most recently
	// updated first.
	ListActive(ctx context.Context, limit int) ([]*Listing, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]*Listing, error)
	// Apply commits the writes atomically. A missing listing in an update
	// is ErrNotFound.
	Apply(ctx context.Context, writes ...docstore.Write) error
}
