// Package docstore is a small key/collection document persistence contract
// with memory, MongoDB and PostgreSQL (JSONB) backends.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// VersionField is the document field compared by Replace.
const VersionField = "version"

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document version conflict")
)

// Document is a JSON-shaped document: strings, float64 numbers, bools, nil,
// nested Documents and []interface{}.
type Document map[string]interface{}

// Snapshot is a document read back from a collection.
type Snapshot struct {
	ID   string
	Data Document
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value interface{}
}

// Query selects documents of one collection.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where returns a copy of q with an extra equality filter.
func (q Query) Where(field string, value interface{}) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// OrderByDesc returns a copy of q ordered by field, newest first.
func (q Query) OrderByDesc(field string) Query {
	q.OrderBy = field
	q.Descending = true
	return q
}

// Store persists documents keyed by (collection, id).
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Put creates or overwrites the whole document.
	Put(ctx context.Context, collection, id string, doc Document) error
	// Replace overwrites the document only if its stored version equals
	// expectedVersion. Missing documents and documents without a version
	// field count as version 0.
	Replace(ctx context.Context, collection, id string, doc Document, expectedVersion int64) error
	// Merge sets the given top-level fields of an existing document.
	Merge(ctx context.Context, collection, id string, fields Document) error
	// Delete removes the document; deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Indexer is implemented by backends that can prepare collections.
type Indexer interface {
	EnsureIndexes(ctx context.Context, specs []IndexSpec) error
}

// IndexSpec names a compound index: equality field then ordering field.
type IndexSpec struct {
	Collection string
	Fields     []string
}

// Normalize converts any JSON-encodable value into its JSON-shaped form.
func Normalize(doc Document) (Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// VersionOf reads the version field of a stored document.
func VersionOf(doc Document) int64 {
	switch v := doc[VersionField].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}
