// Package store defines the document store used by every screen and the admin console.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/club-portal/internal/domain"
)

// DocumentStore is a collection of schemaless JSON-like documents.
type DocumentStore interface {
	// Get returns domain.ErrNotFound when the id does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update merges the top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// Setter writes a document under a caller-chosen id, replacing any existing one.
// Documents keyed by an identity id (users) are created through it.
type Setter interface {
	Set(ctx context.Context, collection, id string, fields map[string]any) error
}

// Document is a stored record
type Document struct {
	ID     string
	Fields map[string]any
}

// Op is a comparison operator
type Op string

const (
	Eq  Op = "=="
	Neq Op = "!="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

// Filter restricts a query to documents whose field compares true against Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order sorts query results by one field.
type Order struct {
	Field string
	Desc  bool
}

// Query selects documents from one collection. A zero Limit means no limit.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    *Order
	Limit      int
}

// From starts a query on collection.
func From(collection string) Query {
	return Query{Collection: collection}
}

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: NormalizeValue(value)})
	return q
}

// Asc orders ascending by field.
func (q Query) Asc(field string) Query {
	q.OrderBy = &Order{Field: field}
	return q
}

// Desc orders descending by field.
func (q Query) Desc(field string) Query {
	q.OrderBy = &Order{Field: field, Desc: true}
	return q
}

// Take limits the result size.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate checks operators and field paths.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: query without collection", domain.ErrInvalidRequest)
	}
	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("%w: bad field %q", domain.ErrInvalidRequest, f.Field)
		}
		switch f.Op {
		case Eq, Neq, Lt, Lte, Gt, Gte:
		default:
			return fmt.Errorf("%w: bad operator %q", domain.ErrInvalidRequest, f.Op)
		}
	}
	if q.OrderBy != nil && !fieldPattern.MatchString(q.OrderBy.Field) {
		return fmt.Errorf("%w: bad order field %q", domain.ErrInvalidRequest, q.OrderBy.Field)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", domain.ErrInvalidRequest)
	}
	return nil
}

// NormalizeValue converts Go values to the representation documents hold:
// timestamps become fixed-width strings and integers become float64.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case domain.Timestamp:
		return x.String()
	case *domain.Timestamp:
		if x == nil {
			return nil
		}
		return x.String()
	case time.Time:
		return domain.NewTimestamp(x).String()
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = NormalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = NormalizeValue(val)
		}
		return out
	default:
		return v
	}
}

// Encode converts a typed entity to document fields. The id field is dropped.
func Encode(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	delete(fields, "id")
	return NormalizeValue(fields).(map[string]any), nil
}

// Decode fills v from doc, setting its id field from the document id.
func Decode(doc Document, v any) error {
	fields := make(map[string]any, len(doc.Fields)+1)
	for k, val := range doc.Fields {
		fields[k] = NormalizeValue(val)
	}
	fields["id"] = doc.ID
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decoding document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding document %s: %w", doc.ID, err)
	}
	return nil
}

// DecodeAll decodes every document, stopping at the first failure.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := Decode(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Lookup resolves a dotted field path.
func Lookup(fields map[string]any, path string) (any, bool) {
	cur := any(fields)
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '.' {
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[path[start:i]]
		if !ok {
			return nil, false
		}
		start = i + 1
	}
	return cur, true
}
