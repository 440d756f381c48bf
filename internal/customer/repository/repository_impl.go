package repository

import (
	"context"

	"github.com/smallbiznis/flashmarket/internal/customer/domain"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

type repo struct {
	store docstore.Store
}

func Provide(store docstore.Store) domain.Repository {
	return &repo{store: store}
}

func (r *repo) FindByUID(ctx context.Context, uid string) (*domain.Customer, error) {
	snap, err := r.store.Get(ctx, domain.Collection, uid)
	if err != nil {
		return nil, err
	}
	return domain.FromSnapshot(snap), nil
}

func (r *repo) Link(ctx context.Context, uid, email, customerID string) error {
	return r.store.Merge(ctx, domain.Collection, uid, docstore.Document{
		"stripeCustomerId":       customerID,
		"stripeCustomerEmail":    email,
		"stripeCustomerLinkedAt": docstore.ServerTimestamp,
		"updatedAt":              docstore.ServerTimestamp,
	})
}
