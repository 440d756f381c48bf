// Package docstore is a small document-store abstraction: collections of
// JSON documents addressed by string id, with create-if-absent, merge and
// atomic multi-document commits. Backends live in sub packages.
package docstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("document_not_found")
	ErrInvalidPath   = errors.New("invalid_document_path")
	ErrInvalidField  = errors.New("invalid_field_name")
	ErrEmptyCommit   = errors.New("empty_commit")
	ErrUnsupportedOp = errors.New("unsupported_write_op")
)

// TimeLayout is fixed width so stored timestamps sort lexicographically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

type Op int

const (
	// OpCreate writes only when the document is absent.
	OpCreate Op = iota + 1
	// OpSet replaces the whole document.
	OpSet
	// OpMerge shallow-merges top-level fields, creating the document if absent.
	OpMerge
	// OpUpdate shallow-merges into an existing document.
	OpUpdate
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpSet:
		return "set"
	case OpMerge:
		return "merge"
	case OpUpdate:
		return "update"
	default:
		return "unknown"
	}
}

type Write struct {
	Op         Op
	Collection string
	ID         string
	Data       Document
}

type WriteResult struct {
	Collection string
	ID         string
	Op         Op
	// Applied is false for an OpCreate that found an existing document.
	Applied bool
}

func CreateOp(collection, id string, data Document) Write {
	return Write{Op: OpCreate, Collection: collection, ID: id, Data: data}
}

func SetOp(collection, id string, data Document) Write {
	return Write{Op: OpSet, Collection: collection, ID: id, Data: data}
}

func MergeOp(collection, id string, data Document) Write {
	return Write{Op: OpMerge, Collection: collection, ID: id, Data: data}
}

func UpdateOp(collection, id string, data Document) Write {
	return Write{Op: OpUpdate, Collection: collection, ID: id, Data: data}
}

type Snapshot struct {
	ID     string
	Data   Document
	Exists bool
}

// Filter is an equality predicate on a top-level string field.
type Filter struct {
	Field string
	Value string
}

type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

func Where(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// Store is implemented by every backend.
type Store interface {
	// Get returns a snapshot with Exists=false when the document is missing.
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	// Create reports whether the document was written.
	Create(ctx context.Context, collection, id string, data Document) (bool, error)
	Set(ctx context.Context, collection, id string, data Document) error
	Merge(ctx context.Context, collection, id string, data Document) error
	// Update returns ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, data Document) error
	// Commit applies every write or none of them.
	Commit(ctx context.Context, writes ...Write) ([]WriteResult, error)
	Close() error
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func ValidateField(field string) error {
	if !fieldPattern.MatchString(field) {
		return ErrInvalidField
	}
	return nil
}

func ValidatePath(collection, id string) error {
	collection = strings.TrimSpace(collection)
	id = strings.TrimSpace(id)
	if collection == "" || id == "" {
		return ErrInvalidPath
	}
	if strings.Contains(collection, "/") || strings.Contains(id, "/") {
		return ErrInvalidPath
	}
	return nil
}

func ValidateWrites(writes []Write) error {
	if len(writes) == 0 {
		return ErrEmptyCommit
	}
	for _, w := range writes {
		if err := ValidatePath(w.Collection, w.ID); err != nil {
			return err
		}
		switch w.Op {
		case OpCreate, OpSet, OpMerge, OpUpdate:
		default:
			return ErrUnsupportedOp
		}
	}
	return nil
}

// ValidateQuery checks every field referenced by q.
func ValidateQuery(q Query) error {
	for _, f := range q.Filters {
		if err := ValidateField(f.Field); err != nil {
			return err
		}
	}
	if q.OrderBy != "" {
		if err := ValidateField(q.OrderBy); err != nil {
			return err
		}
	}
	return nil
}

// Normalize copies data, resolving ServerTimestamp and formatting times with
// TimeLayout.
func Normalize(data Document, now time.Time) Document {
	out := make(Document, len(data))
	for k, v := range data {
		out[k] = normalizeValue(v, now)
	}
	return out
}

func normalizeValue(v any, now time.Time) any {
	switch cast := v.(type) {
	case serverTimestamp:
		return FormatTime(now)
	case time.Time:
		return FormatTime(cast)
	case *time.Time:
		if cast == nil {
			return nil
		}
		return FormatTime(*cast)
	case Document:
		return Normalize(cast, now)
	case map[string]any:
		return Normalize(Document(cast), now)
	default:
		return v
	}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// MergeInto shallow-merges patch over base without mutating either.
func MergeInto(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
