// Package memory is an in-process docstore backend. Documents are normalized
// through JSON on the way in, so reads look exactly like the remote backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sigmarp/medical-api/pkg/docstore"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
}

var _ docstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{collections: make(map[string]map[string]docstore.Document)}
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return copyDoc(doc)
}

func (s *Store) Put(_ context.Context, collection, id string, doc docstore.Document) error {
	normalized, err := docstore.Normalize(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[id] = normalized
	return nil
}

func (s *Store) Replace(_ context.Context, collection, id string, doc docstore.Document, expectedVersion int64) error {
	normalized, err := docstore.Normalize(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	var current int64
	if stored, ok := coll[id]; ok {
		current = docstore.VersionOf(stored)
	}
	if current != expectedVersion {
		return fmt.Errorf("%w: %s/%s stored version %d, expected %d", docstore.ErrConflict, collection, id, current, expectedVersion)
	}
	coll[id] = normalized
	return nil
}

func (s *Store) Merge(_ context.Context, collection, id string, fields docstore.Document) error {
	normalized, err := docstore.Normalize(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return docstore.ErrNotFound
	}
	for k, v := range normalized {
		doc[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *Store) Find(_ context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	filters, err := normalizeFilters(q.Filters)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []docstore.Snapshot
	for id, doc := range s.collections[collection] {
		if !matches(doc, filters) {
			continue
		}
		cp, err := copyDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, docstore.Snapshot{ID: id, Data: cp})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy == "" {
			return out[i].ID < out[j].ID
		}
		a := fmt.Sprint(out[i].Data[q.OrderBy])
		b := fmt.Sprint(out[j].Data[q.OrderBy])
		if a == b {
			return out[i].ID < out[j].ID
		}
		if q.Descending {
			return a > b
		}
		return a < b
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

// Len reports how many documents a collection holds.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// PutRaw stores doc without normalization. Tests use it to plant documents
// that the JSON codec would never produce.
func (s *Store) PutRaw(collection, id string, doc docstore.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[id] = doc
}

func (s *Store) collection(name string) map[string]docstore.Document {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]docstore.Document)
		s.collections[name] = coll
	}
	return coll
}

func copyDoc(doc docstore.Document) (docstore.Document, error) {
	return docstore.Normalize(doc)
}

func normalizeFilters(filters []docstore.Filter) ([]docstore.Filter, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	probe := docstore.Document{}
	for i, f := range filters {
		probe[fmt.Sprintf("f%d", i)] = f.Value
	}
	normalized, err := docstore.Normalize(probe)
	if err != nil {
		return nil, err
	}
	out := make([]docstore.Filter, len(filters))
	for i, f := range filters {
		out[i] = docstore.Filter{Field: f.Field, Value: normalized[fmt.Sprintf("f%d", i)]}
	}
	return out, nil
}

func matches(doc docstore.Document, filters []docstore.Filter) bool {
	for _, f := range filters {
		v, ok := doc[f.Field]
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}
