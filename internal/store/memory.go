package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/club-portal/internal/domain"
	"github.com/google/uuid"
)

// Memory is a process-local DocumentStore used for development and tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]map[string]any)}
}

// Get returns a copy of one document.
func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return Document{ID: id, Fields: copyFields(fields)}, nil
}

// Query filters, orders and limits one collection. Documents missing the
// order field are excluded, as with Firestore.
func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	docs := make([]Document, 0, len(m.collections[q.Collection]))
	for id, fields := range m.collections[q.Collection] {
		if matches(fields, q) {
			docs = append(docs, Document{ID: id, Fields: copyFields(fields)})
		}
	}
	m.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if q.OrderBy != nil {
			a, _ := Lookup(docs[i].Fields, q.OrderBy.Field)
			b, _ := Lookup(docs[j].Fields, q.OrderBy.Field)
			if c := Compare(a, b); c != 0 {
				if q.OrderBy.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return docs[i].ID < docs[j].ID
	})

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// Add stores a new document under a generated id.
func (m *Memory) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()
	if err := m.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces a document under a caller-chosen id.
func (m *Memory) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][id] = normalizeFields(fields)
	return nil
}

// Update merges fields into an existing document.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	for k, v := range normalizeFields(fields) {
		existing[k] = v
	}
	return nil
}

// Delete removes a document. Deleting a missing id is not an error.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

func matches(fields map[string]any, q Query) bool {
	for _, f := range q.Filters {
		v, ok := Lookup(fields, f.Field)
		if !ok {
			return false
		}
		want := NormalizeValue(f.Value)
		if f.Op != Eq && f.Op != Neq && !sameKind(v, want) {
			return false
		}
		c := Compare(v, want)
		switch f.Op {
		case Eq:
			if c != 0 {
				return false
			}
		case Neq:
			if c == 0 {
				return false
			}
		case Lt:
			if c >= 0 {
				return false
			}
		case Lte:
			if c > 0 {
				return false
			}
		case Gt:
			if c <= 0 {
				return false
			}
		case Gte:
			if c < 0 {
				return false
			}
		}
	}
	if q.OrderBy != nil {
		if _, ok := Lookup(fields, q.OrderBy.Field); !ok {
			return false
		}
	}
	return true
}

func normalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		out[k] = NormalizeValue(v)
	}
	return copyFields(out)
}

func copyFields(fields map[string]any) map[string]any {
	return copyValue(fields).(map[string]any)
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = copyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = copyValue(val)
		}
		return out
	default:
		return v
	}
}
