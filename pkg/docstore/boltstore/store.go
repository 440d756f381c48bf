// Package boltstore is an embedded docstore backend. Each collection is a
// bolt bucket and each document a JSON value keyed by id, so a deployment
// needs no database process.
package boltstore

import (
	"context"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
	json "github.com/goccy/go-json"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

type Store struct {
	db  *bolt.DB
	now func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// Open opens (or creates) the database file at path.
func Open(path string, now func() time.Time) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	if err := docstore.ValidatePath(collection, id); err != nil {
		return docstore.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return docstore.Snapshot{}, err
	}
	snap := docstore.Snapshot{ID: id}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return nil
		}
		data, err := decode(raw)
		if err != nil {
			return err
		}
		snap.Data = data
		snap.Exists = true
		return nil
	})
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := docstore.ValidateQuery(q); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []docstore.Snapshot{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			data, err := decode(v)
			if err != nil {
				return err
			}
			if !docstore.Matches(data, q.Filters) {
				return nil
			}
			out = append(out, docstore.Snapshot{ID: string(k), Data: data, Exists: true})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docstore.Apply(out, q), nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data docstore.Document) (bool, error) {
	results, err := s.Commit(ctx, docstore.CreateOp(collection, id, data))
	if err != nil {
		return false, err
	}
	return results[0].Applied, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data docstore.Document) error {
	_, err := s.Commit(ctx, docstore.SetOp(collection, id, data))
	return err
}

func (s *Store) Merge(ctx context.Context, collection, id string, data docstore.Document) error {
	_, err := s.Commit(ctx, docstore.MergeOp(collection, id, data))
	return err
}

func (s *Store) Update(ctx context.Context, collection, id string, data docstore.Document) error {
	_, err := s.Commit(ctx, docstore.UpdateOp(collection, id, data))
	return err
}

// Commit runs every write inside one bolt read-write transaction.
func (s *Store) Commit(ctx context.Context, writes ...docstore.Write) ([]docstore.WriteResult, error) {
	if err := docstore.ValidateWrites(writes); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var results []docstore.WriteResult
	err := s.db.Update(func(tx *bolt.Tx) error {
		results = make([]docstore.WriteResult, 0, len(writes))
		for _, w := range writes {
			applied, err := apply(tx, w, now)
			if err != nil {
				return fmt.Errorf("%s %s/%s: %w", w.Op, w.Collection, w.ID, err)
			}
			results = append(results, docstore.WriteResult{
				Collection: w.Collection,
				ID:         w.ID,
				Op:         w.Op,
				Applied:    applied,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func apply(tx *bolt.Tx, w docstore.Write, now time.Time) (bool, error) {
	b, err := tx.CreateBucketIfNotExists([]byte(w.Collection))
	if err != nil {
		return false, err
	}
	key := []byte(w.ID)
	data := docstore.Normalize(w.Data, now)
	existing := b.Get(key)

	switch w.Op {
	case docstore.OpCreate:
		if existing != nil {
			return false, nil
		}
	case docstore.OpSet:
	case docstore.OpMerge, docstore.OpUpdate:
		if existing == nil {
			if w.Op == docstore.OpUpdate {
				return false, docstore.ErrNotFound
			}
			break
		}
		current, err := decode(existing)
		if err != nil {
			return false, err
		}
		data = docstore.MergeInto(current, data)
	default:
		return false, docstore.ErrUnsupportedOp
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return false, err
	}
	if existing != nil && string(existing) == string(raw) {
		// identical content, skip the page write
		return true, nil
	}
	return true, b.Put(key, raw)
}

func decode(raw []byte) (docstore.Document, error) {
	doc := docstore.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
