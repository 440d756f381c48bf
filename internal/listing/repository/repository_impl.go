package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/flashmarket/internal/listing/domain"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

type repo struct {
	store docstore.Store
}

func Provide(store docstore.Store) domain.Repository {
	return &repo{store: store}
}

func (r *repo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	snap, err := r.store.Get(ctx, domain.Collection, id)
	if err != nil {
		return nil, err
	}
	return domain.FromSnapshot(snap), nil
}

func (r *repo) FindActiveByDeck(ctx context.Context, deckID string) (*domain.Listing, error) {
	snaps, err := r.store.Query(ctx, domain.Collection, docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("deckId", deckID),
			docstore.Where("status", string(domain.StatusActive)),
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return domain.FromSnapshot(snaps[0]), nil
}

func (r *repo) ListActive(ctx context.Context, limit int) ([]*domain.Listing, error) {
	snaps, err := r.store.Query(ctx, domain.Collection, docstore.Query{
		Filters:    []docstore.Filter{docstore.Where("status", string(domain.StatusActive))},
		OrderBy:    "updatedAt",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return fromSnapshots(snaps), nil
}

func (r *repo) ListBySeller(ctx context.Context, sellerUID string) ([]*domain.Listing, error) {
	snaps, err := r.store.Query(ctx, domain.Collection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("sellerUid", sellerUID)},
		OrderBy: "deckId",
	})
	if err != nil {
		return nil, err
	}
	return fromSnapshots(snaps), nil
}

func (r *repo) Apply(ctx context.Context, writes ...docstore.Write) error {
	_, err := r.store.Commit(ctx, writes...)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func fromSnapshots(snaps []docstore.Snapshot) []*domain.Listing {
	items := make([]*domain.Listing, 0, len(snaps))
	for _, snap := range snaps {
		if l := domain.FromSnapshot(snap); l != nil {
			items = append(items, l)
		}
	}
	return items
}
