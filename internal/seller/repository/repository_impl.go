package repository

import (
	"context"

	"github.com/smallbiznis/flashmarket/internal/seller/domain"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

type repo struct {
	store docstore.Store
}

func Provide(store docstore.Store) domain.Repository {
	return &repo{store: store}
}

func (r *repo) FindByUID(ctx context.Context, uid string) (*domain.PayoutAccount, error) {
	snap, err := r.store.Get(ctx, domain.Collection, uid)
	if err != nil {
		return nil, err
	}
	return domain.PayoutAccountFromSnapshot(snap), nil
}

// LinkAccount merges so the rest of the user profile is left alone.
func (r *repo) LinkAccount(ctx context.Context, uid, accountID string) error {
	return r.store.Merge(ctx, domain.Collection, uid, docstore.Document{
		"stripeAccountId":   accountID,
		"stripeConnectedAt": docstore.ServerTimestamp,
		"updatedAt":         docstore.ServerTimestamp,
	})
}
