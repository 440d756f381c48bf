package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

// Collection holds user profiles; sellers keep their payout linkage there.
const Collection = "users"

type PayoutAccount struct {
	UID             string    `json:"uid"`
	StripeAccountID string    `json:"stripe_account_id,omitempty"`
	ConnectedAt     time.Time `json:"connected_at,omitempty"`
}

// Onboarded reports whether funds can be routed to the seller.
func (a *PayoutAccount) Onboarded() bool {
	return a != nil && a.StripeAccountID != ""
}

func PayoutAccountFromSnapshot(snap docstore.Snapshot) *PayoutAccount {
	if !snap.Exists {
		return nil
	}
	return &PayoutAccount{
		UID:             snap.ID,
		StripeAccountID: snap.Data.String("stripeAccountId"),
		ConnectedAt:     snap.Data.Time("stripeConnectedAt"),
	}
}

type AuthorizeRequest struct {
	UID         string
	Email       string
	RedirectURI string
}

type Service interface {
	AuthorizeURL(ctx context.Context, req AuthorizeRequest) (string, error)
	// CompleteOAuth links the connected account to the seller named by state.
	CompleteOAuth(ctx context.Context, code, state string) (*PayoutAccount, error)
	// GetPayoutAccount returns nil, nil for an unknown seller.
	GetPayoutAccount(ctx context.Context, uid string) (*PayoutAccount, error)
}

type Repository interface {
	FindByUID(ctx context.Context, uid string) (*PayoutAccount, error)
	LinkAccount(ctx context.Context, uid, accountID string) error
}

var (
	ErrInvalidUID  = errors.New("invalid_uid")
	ErrMissingCode = errors.New("missing_code")
)
