package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Get retrieves one document
func (r *Repository) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return store.Document{}, fmt.Errorf("getting document: %w", err)
	}
	return decodeRow(id, data)
}

// Query runs a filtered, ordered, limited query over one collection
func (r *Repository) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	sql, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Collection, err)
	}
	defer rows.Close()

	docs := make([]store.Document, 0)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc, err := decodeRow(id, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Collection, err)
	}
	return docs, nil
}

// Add inserts a document under a new id
func (r *Repository) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()
	if err := r.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces a document under a known id
func (r *Repository) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, collection, id, data)
	if err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

// Update merges top-level fields into an existing document
func (r *Repository) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}
	result, err := r.pool.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`, collection, id, data)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a document
func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

func encodeFields(fields map[string]any) (string, error) {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		clean[k] = store.NormalizeValue(v)
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("marshaling document: %w", err)
	}
	return string(data), nil
}

func decodeRow(id string, data []byte) (store.Document, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return store.Document{}, fmt.Errorf("unmarshaling document %s: %w", id, err)
	}
	return store.Document{ID: id, Fields: fields}, nil
}

var sqlOps = map[store.Op]string{
	store.Eq:  "=",
	store.Neq: "<>",
	store.Lt:  "<",
	store.Lte: "<=",
	store.Gt:  ">",
	store.Gte: ">=",
}

// buildQuery translates a store query into SQL over the JSONB column.
// jsonb comparison orders numbers numerically and strings lexically, so
// typed ordering needs no casts.
func buildQuery(q store.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	param := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	for _, f := range q.Filters {
		value, err := json.Marshal(store.NormalizeValue(f.Value))
		if err != nil {
			return "", nil, fmt.Errorf("%w: filter value for %s: %v", domain.ErrInvalidRequest, f.Field, err)
		}
		path := param(strings.Split(f.Field, "."))
		fmt.Fprintf(&sb, ` AND (data #> %s::text[]) %s %s::jsonb`, path, sqlOps[f.Op], param(string(value)))
	}

	if q.OrderBy != nil {
		path := param(strings.Split(q.OrderBy.Field, "."))
		fmt.Fprintf(&sb, ` AND (data #> %s::text[]) IS NOT NULL`, path)
		direction := "ASC"
		if q.OrderBy.Desc {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY (data #> %s::text[]) %s, id ASC`, path, direction)
	} else {
		sb.WriteString(` ORDER BY id ASC`)
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, ` LIMIT %s`, param(q.Limit))
	}

	return sb.String(), args, nil
}
