package domain

import "context"

type Repository interface {
	// FindByUID returns nil, nil when the user has no linked customer.
	FindByUID(ctx context.Context, uid string) (*Customer, error)
	Link(ctx context.Context, uid, email, customerID string) error
}
