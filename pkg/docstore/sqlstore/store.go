// Package sqlstore keeps docstore documents in a single gorm-managed table,
// one JSON column per document.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/smallbiznis/flashmarket/pkg/db"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Document struct {
	Collection string         `gorm:"primaryKey;size:128"`
	ID         string         `gorm:"primaryKey;size:255"`
	Data       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (Document) TableName() string { return "documents" }

// AutoMigrate creates the documents table for dialects without SQL migrations.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(&Document{})
}

// maxCommitAttempts bounds replays of a transaction that lost a
// serialization or lock conflict.
const maxCommitAttempts = 3

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(conn *gorm.DB, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: conn, now: now}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	if err := docstore.ValidatePath(collection, id); err != nil {
		return docstore.Snapshot{}, err
	}
	row, err := findRow(s.db.WithContext(ctx), collection, id, false)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	if row == nil {
		return docstore.Snapshot{ID: id}, nil
	}
	data, err := decode(row.Data)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return docstore.Snapshot{ID: id, Data: data, Exists: true}, nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := docstore.ValidateQuery(q); err != nil {
		return nil, err
	}
	dialect := s.db.Dialector.Name()
	stmt := s.db.WithContext(ctx).
		Model(&Document{}).
		Where("collection = ?", collection)
	for _, f := range q.Filters {
		stmt = stmt.Where(jsonField(dialect, f.Field)+" = ?", f.Value)
	}
	if q.OrderBy != "" {
		direction := "ASC"
		if q.Descending {
			direction = "DESC"
		}
		stmt = stmt.Order(jsonField(dialect, q.OrderBy) + " " + direction).Order("id ASC")
	} else {
		stmt = stmt.Order("id ASC")
	}
	if q.Limit > 0 {
		stmt = stmt.Limit(q.Limit)
	}

	var rows []Document
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]docstore.Snapshot, 0, len(rows))
	for _, row := range rows {
		data, err := decode(row.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, docstore.Snapshot{ID: row.ID, Data: data, Exists: true})
	}
	return out, nil
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

func (s *Store) Commit(ctx context.Context, writes ...docstore.Write) ([]docstore.WriteResult, error) {
	if err := docstore.ValidateWrites(writes); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var (
		results []docstore.WriteResult
		err     error
	)
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		results, err = s.commit(ctx, writes, now)
		if !db.IsRetryableErr(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) commit(ctx context.Context, writes []docstore.Write, now time.Time) ([]docstore.WriteResult, error) {
	var results []docstore.WriteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

// Close is a no-op; the *gorm.DB is owned by the db module.
func (s *Store) Close() error {
	return nil
}

func apply(tx *gorm.DB, w docstore.Write, now time.Time) (bool, error) {
	data := docstore.Normalize(w.Data, now)
	switch w.Op {
	case docstore.OpCreate:
		return insertIfAbsent(tx, w.Collection, w.ID, data, now)
	case docstore.OpSet:
		payload, err := encode(data)
		if err != nil {
			return false, err
		}
		row := Document{
			Collection: w.Collection,
			ID:         w.ID,
			Data:       payload,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).Create(&row).Error
		return err == nil, err
	case docstore.OpMerge, docstore.OpUpdate:
		existing, err := findRow(tx, w.Collection, w.ID, true)
		if err != nil {
			return false, err
		}
		if existing == nil {
			if w.Op == docstore.OpUpdate {
				return false, docstore.ErrNotFound
			}
			created, err := insertIfAbsent(tx, w.Collection, w.ID, data, now)
			if err != nil || created {
				return created, err
			}
			// A concurrent writer inserted first; merge into its version.
			existing, err = findRow(tx, w.Collection, w.ID, true)
			if err != nil {
				return false, err
			}
			if existing == nil {
				return false, docstore.ErrNotFound
			}
		}
		current, err := decode(existing.Data)
		if err != nil {
			return false, err
		}
		payload, err := encode(docstore.MergeInto(current, data))
		if err != nil {
			return false, err
		}
		err = tx.Model(&Document{}).
			Where("collection = ? AND id = ?", w.Collection, w.ID).
			Updates(map[string]any{
				"data":       datatypes.JSON(payload),
				"updated_at": now,
			}).Error
		return err == nil, err
	default:
		return false, docstore.ErrUnsupportedOp
	}
}

func insertIfAbsent(tx *gorm.DB, collection, id string, data docstore.Document, now time.Time) (bool, error) {
	payload, err := encode(data)
	if err != nil {
		return false, err
	}
	row := Document{
		Collection: collection,
		ID:         id,
		Data:       payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if db.IsDuplicateKeyErr(res.Error) {
		return false, nil
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func findRow(tx *gorm.DB, collection, id string, lock bool) (*Document, error) {
	stmt := tx.Where("collection = ? AND id = ?", collection, id)
	if lock && tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []Document
	if err := stmt.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// jsonField renders a text extraction of a top-level field. field must have
// passed docstore.ValidateField.
func jsonField(dialect, field string) string {
	switch dialect {
	case "postgres":
		return fmt.Sprintf("data->>'%s'", field)
	case "mysql":
		return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(data, '$.%s'))", field)
	default:
		return fmt.Sprintf("json_extract(data, '$.%s')", field)
	}
}

func encode(data docstore.Document) (datatypes.JSON, error) {
	if data == nil {
		data = docstore.Document{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decode(raw datatypes.JSON) (docstore.Document, error) {
	doc := docstore.Document{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
