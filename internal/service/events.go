package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/club-portal/internal/domain"
)

// EventPublisher forwards change events to the audit stream
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	return nil
}

// publishChange sends an event. Failures are logged; the write already succeeded.
func publishChange(ctx context.Context, pub EventPublisher, logger *slog.Logger, collection, id string, action domain.ChangeAction, actor string) {
	ev := domain.ChangeEvent{
		Collection: collection,
		DocumentID: id,
		Action:     action,
		Actor:      actor,
		Timestamp:  time.Now().UTC(),
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish change event",
			"collection", collection,
			"document_id", id,
			"action", action,
			"error", err,
		)
	}
}
