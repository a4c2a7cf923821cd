package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/tactics"
	"github.com/redis/go-redis/v9"
)

// DraftStore keeps tactics drafts with a sliding TTL. Mutations run under
// WATCH so concurrent requests never overwrite each other's result.
type DraftStore struct {
	c          *Client
	ttl        time.Duration
	maxRetries int
}

// Drafts returns the draft store
func (c *Client) Drafts(ttl time.Duration, maxRetries int) *DraftStore {
	return &DraftStore{c: c, ttl: ttl, maxRetries: maxRetries}
}

// Create stores a new draft
func (d *DraftStore) Create(ctx context.Context, draft tactics.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshaling draft: %w", err)
	}
	if err := d.c.client.Set(ctx, draftKey(draft.ID), data, d.ttl).Err(); err != nil {
		return fmt.Errorf("creating draft: %w", err)
	}
	return nil
}

// Get reads a draft
func (d *DraftStore) Get(ctx context.Context, id string) (tactics.Draft, error) {
	data, err := d.c.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return tactics.Draft{}, domain.ErrNotFound
		}
		return tactics.Draft{}, fmt.Errorf("getting draft: %w", err)
	}
	return decodeDraft(data)
}

// Mutate applies fn inside an optimistic transaction, retrying when another
// writer commits first.
func (d *DraftStore) Mutate(ctx context.Context, id string, expectGeneration int64, fn func(*tactics.Draft) error) (tactics.Draft, error) {
	return d.apply(ctx, id, expectGeneration, true, fn)
}

// Attach is Mutate without a generation check or bump. fn may run more
// than once, so it must only touch the draft.
func (d *DraftStore) Attach(ctx context.Context, id string, fn func(*tactics.Draft) error) (tactics.Draft, error) {
	return d.apply(ctx, id, 0, false, fn)
}

func (d *DraftStore) apply(ctx context.Context, id string, expectGeneration int64, advance bool, fn func(*tactics.Draft) error) (tactics.Draft, error) {
	key := draftKey(id)
	var result tactics.Draft

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("getting draft: %w", err)
		}
		draft, err := decodeDraft(data)
		if err != nil {
			return err
		}
		if expectGeneration != 0 && draft.Generation != expectGeneration {
			return domain.ErrDraftConflict
		}

		if err := fn(&draft); err != nil {
			return err
		}
		if advance {
			draft.Generation++
		}
		draft.UpdatedAt = time.Now()

		updated, err := json.Marshal(draft)
		if err != nil {
			return fmt.Errorf("marshaling draft: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, d.ttl)
			return nil
		})
		if err == nil {
			result = draft
		}
		return err
	}

	for i := 0; i < d.maxRetries; i++ {
		err := d.c.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			d.c.logger.Debug("draft changed during update, retrying", "draft_id", id, "attempt", i+1)
			continue
		}
		return tactics.Draft{}, err
	}
	return tactics.Draft{}, domain.ErrDraftConflict
}

// Delete drops a draft
func (d *DraftStore) Delete(ctx context.Context, id string) error {
	if err := d.c.client.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}

func decodeDraft(data []byte) (tactics.Draft, error) {
	var draft tactics.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return tactics.Draft{}, fmt.Errorf("unmarshaling draft: %w", err)
	}
	draft.Working = draft.Working.Normalize()
	return draft, nil
}
