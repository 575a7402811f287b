// Package docstore defines the document-database primitives the application is
// written against: point get, equality query with ordering and limit, create,
// set/merge, field update with atomic increment, and delete. Backends live
// under internal/infra.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Store is implemented by every document backend.
type Store interface {
	// Get returns the document or an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Create stores data under a generated id and returns it.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set overwrites the document, or deep-merges into it with Merge().
	Set(ctx context.Context, collection, id string, data map[string]any, opts ...SetOption) error
	// Update applies field updates atomically. It fails with domain.ErrNotFound
	// when the document does not exist.
	Update(ctx context.Context, collection, id string, updates []Update) error
	Delete(ctx context.Context, collection, id string) error
}

// Document is a stored record and its key.
type Document struct {
	ID   string
	Data map[string]any
}

// Decode unmarshals the document data into v.
func (d Document) Decode(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.ID, err)
	}
	return nil
}

// Filter is an equality predicate on a (possibly dotted) field path.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Query selects documents of one collection. Without OrderBy results are
// ordered by document id. Limit <= 0 means unlimited.
type Query struct {
	Where   []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Update sets the field at Path (dotted for nested maps) to Value. A Value of
// type Increment adds to the current numeric value, treating absent as zero.
type Update struct {
	Path  string
	Value any
}

// Increment is an atomic numeric add used as an Update value.
type Increment int64

type setOptions struct {
	merge bool
}

// SetOption configures Set.
type SetOption func(*setOptions)

// Merge makes Set deep-merge maps into the existing document instead of replacing it.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// IsMerge reports whether the options request a merge.
func IsMerge(opts []SetOption) bool {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o.merge
}

// Path joins collection segments, e.g. Path("users", uid, "favorites").
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// Encode converts a value with JSON tags into document data.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}
