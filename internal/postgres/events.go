package postgres

import (
	"context"
	"fmt"

	"github.com/club-portal/internal/domain"
	"github.com/jackc/pgx/v5"
)

// RecordChanges stores a batch of change events in the audit trail
func (r *Repository) RecordChanges(ctx context.Context, events []domain.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO change_events (collection, document_id, action, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, event := range events {
		batch.Queue(query, event.Collection, event.DocumentID, string(event.Action), event.Actor, event.Timestamp)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("recording change events: %w", err)
		}
	}
	return nil
}

// RecentChanges lists the latest audit entries for one document, newest first
func (r *Repository) RecentChanges(ctx context.Context, collection, documentID string, limit int) ([]domain.ChangeEvent, error) {
	query := `
		SELECT collection, document_id, action, actor, occurred_at
		FROM change_events
		WHERE collection = $1 AND document_id = $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, collection, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting change events: %w", err)
	}
	defer rows.Close()

	var events []domain.ChangeEvent
	for rows.Next() {
		var e domain.ChangeEvent
		var action string
		if err := rows.Scan(&e.Collection, &e.DocumentID, &action, &e.Actor, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning change event: %w", err)
		}
		e.Action = domain.ChangeAction(action)
		events = append(events, e)
	}
	return events, rows.Err()
}
