// Package docstoretest holds the behaviour every docstore backend must share.
package docstoretest

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/flashmarket/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FixedNow is the clock backends under contract test should be built with.
var FixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		snap, err := s.Get(context.Background(), "users", "nobody")
		require.NoError(t, err)
		assert.False(t, snap.Exists)
		assert.Equal(t, "nobody", snap.ID)
	})

	t.Run("create is write-once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.Create(ctx, "purchases", "cs_1", docstore.Document{"amount_total": 1000})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = s.Create(ctx, "purchases", "cs_1", docstore.Document{"amount_total": 5})
		require.NoError(t, err)
		assert.False(t, created)

		snap, err := s.Get(ctx, "purchases", "cs_1")
		require.NoError(t, err)
		require.True(t, snap.Exists)
		assert.Equal(t, int64(1000), snap.Data.Int64("amount_total"))
	})

	t.Run("merge creates then keeps untouched fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Merge(ctx, "users", "u1", docstore.Document{"email": "a@example.com"}))
		require.NoError(t, s.Merge(ctx, "users", "u1", docstore.Document{"stripeAccountId": "acct_1"}))

		snap, err := s.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", snap.Data.String("email"))
		assert.Equal(t, "acct_1", snap.Data.String("stripeAccountId"))
	})

	t.Run("set replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "users", "u1", docstore.Document{"a": "1", "b": "2"}))
		require.NoError(t, s.Set(ctx, "users", "u1", docstore.Document{"a": "3"}))

		snap, err := s.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, "3", snap.Data.String("a"))
		assert.False(t, snap.Data.Has("b"))
	})

	t.Run("update requires existing document", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(context.Background(), "listings", "missing", docstore.Document{"status": "active"})
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("server timestamp resolves to commit time", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "users", "u1", docstore.Document{"updatedAt": docstore.ServerTimestamp}))

		snap, err := s.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, FixedNow, snap.Data.Time("updatedAt"))
	})

	t.Run("commit is all or nothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Commit(ctx,
			docstore.CreateOp("purchases", "cs_1", docstore.Document{"deckId": "d1"}),
			docstore.UpdateOp("listings", "missing", docstore.Document{"status": "active"}),
		)
		require.ErrorIs(t, err, docstore.ErrNotFound)

		snap, err := s.Get(ctx, "purchases", "cs_1")
		require.NoError(t, err)
		assert.False(t, snap.Exists)
	})

	t.Run("commit reports applied per write", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Create(ctx, "purchases", "cs_1", docstore.Document{"deckId": "d1"})
		require.NoError(t, err)

		results, err := s.Commit(ctx,
			docstore.CreateOp("purchases", "cs_1", docstore.Document{"deckId": "d1"}),
			docstore.MergeOp("purchasesIndex", "b1__d1", docstore.Document{"deckId": "d1"}),
		)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.False(t, results[0].Applied)
		assert.True(t, results[1].Applied)
	})

	t.Run("query filters orders and limits", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed := []struct {
			id      string
			status  string
			created string
		}{
			{"l1", "active", "2025-01-01"},
			{"l2", "draft", "2025-01-02"},
			{"l3", "active", "2025-01-03"},
			{"l4", "active", "2025-01-04"},
		}
		for _, item := range seed {
			require.NoError(t, s.Set(ctx, "listings", item.id, docstore.Document{
				"status":    item.status,
				"createdAt": item.created,
			}))
		}

		snaps, err := s.Query(ctx, "listings", docstore.Query{
			Filters:    []docstore.Filter{docstore.Where("status", "active")},
			OrderBy:    "createdAt",
			Descending: true,
			Limit:      2,
		})
		require.NoError(t, err)
		require.Len(t, snaps, 2)
		assert.Equal(t, "l4", snaps[0].ID)
		assert.Equal(t, "l3", snaps[1].ID)
	})

	t.Run("query rejects unsafe field names", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Query(context.Background(), "listings", docstore.Query{
			Filters: []docstore.Filter{docstore.Where("status') OR 1=1 --", "x")},
		})
		assert.ErrorIs(t, err, docstore.ErrInvalidField)
	})

	t.Run("invalid path", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(context.Background(), "purchases", "a/b", docstore.Document{})
		assert.ErrorIs(t, err, docstore.ErrInvalidPath)
	})
}
