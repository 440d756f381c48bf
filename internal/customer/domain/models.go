package domain

import (
	"time"

	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

// Collection is shared with seller payout linkage; both live on the user
// profile.
const Collection = "users"

// Customer links a buyer to a processor customer record.
type Customer struct {
	UID        string    `json:"uid"`
	Email      string    `json:"email"`
	CustomerID string    `json:"customer_id"`
	LinkedAt   time.Time `json:"linked_at"`
}

func FromSnapshot(snap docstore.Snapshot) *Customer {
	if !snap.Exists {
		return nil
	}
	id := snap.Data.String("stripeCustomerId")
	if id == "" {
		return nil
	}
	return &Customer{
		UID:        snap.ID,
		Email:      snap.Data.String("stripeCustomerEmail"),
		CustomerID: id,
		LinkedAt:   snap.Data.Time("stripeCustomerLinkedAt"),
	}
}
