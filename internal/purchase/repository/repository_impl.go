package repository

import (
	"context"

	"github.com/smallbiznis/flashmarket/internal/purchase/domain"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

type repo struct {
	store docstore.Store
}

func Provide(store docstore.Store) domain.Repository {
	return &repo{store: store}
}

func (r *repo) Record(ctx context.Context, c domain.Confirmation) (bool, error) {
	createdAt := any(docstore.ServerTimestamp)
	if !c.CreatedAt.IsZero() {
		createdAt = c.CreatedAt
	}

	writes := []docstore.Write{
		docstore.CreateOp(domain.PurchasesCollection, c.SessionID, purchaseDocument(c, createdAt)),
	}
	if c.BuyerUID != "" {
		writes = append(writes, docstore.MergeOp(domain.IndexCollection, domain.IndexID(c.BuyerUID, c.DeckID), docstore.Document{
			"buyerUid":   c.BuyerUID,
			"deckId":     c.DeckID,
			"deckName":   nullable(c.DeckName),
			"purchaseId": c.SessionID,
			"createdAt":  createdAt,
		}))
	}
	if c.EventID != "" {
		writes = append(writes, docstore.CreateOp(domain.EventsCollection, c.EventID, docstore.Document{
			"type":       c.EventType,
			"purchaseId": c.SessionID,
			"receivedAt": docstore.ServerTimestamp,
		}))
	}

	results, err := r.store.Commit(ctx, writes...)
	if err != nil {
		return false, err
	}
	return results[0].Applied, nil
}

func (r *repo) FindOwnership(ctx context.Context, id string) (*domain.Ownership, error) {
	snap, err := r.store.Get(ctx, domain.IndexCollection, id)
	if err != nil {
		return nil, err
	}
	return domain.OwnershipFromSnapshot(snap), nil
}

func (r *repo) ListOwnership(ctx context.Context, buyerUID string) ([]domain.Ownership, error) {
	snaps, err := r.store.Query(ctx, domain.IndexCollection, docstore.Query{
		Filters:    []docstore.Filter{docstore.Where("buyerUid", buyerUID)},
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.Ownership, 0, len(snaps))
	for _, snap := range snaps {
		if o := domain.OwnershipFromSnapshot(snap); o != nil {
			items = append(items, *o)
		}
	}
	return items, nil
}

func purchaseDocument(c domain.Confirmation, createdAt any) docstore.Document {
	doc := docstore.Document{
		"buyerEmail":      c.BuyerEmail,
		"buyerUid":        nullable(c.BuyerUID),
		"deckId":          c.DeckID,
		"deckName":        nullable(c.DeckName),
		"sellerAccountId": nullable(c.SellerAccountID),
		"stripeSessionId": c.SessionID,
		"currency":        c.Currency,
		"createdAt":       createdAt,
		"source":          domain.SourceStripe,
	}
	if c.ListingID != "" {
		doc["listingId"] = c.ListingID
	}
	if c.AmountTotal != nil {
		doc["amount_total"] = *c.AmountTotal
	} else {
		doc["amount_total"] = nil
	}
	return doc
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
