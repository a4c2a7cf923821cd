package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps session payloads under their token with a TTL and a
// per-user whitelist of live tokens.
type SessionStore struct {
	c *Client
}

// Sessions returns the session store
func (c *Client) Sessions() *SessionStore {
	return &SessionStore{c: c}
}

// Save stores s until it expires and whitelists its token
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	listKey := sessionListKey(session.Identity.ID)
	pipe := s.c.client.TxPipeline()
	pipe.Set(ctx, tokenKey(session.Token), data, ttl)
	pipe.RPush(ctx, listKey, session.Token)
	pipe.ExpireGT(ctx, listKey, ttl)
	pipe.ExpireNX(ctx, listKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load returns the session for a whitelisted, unexpired token
func (s *SessionStore) Load(ctx context.Context, token string) (domain.Session, error) {
	data, err := s.c.client.Get(ctx, tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("getting session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshaling session: %w", err)
	}

	_, err = s.c.client.LPos(ctx, sessionListKey(session.Identity.ID), token, redis.LPosArgs{}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("checking session whitelist: %w", err)
	}
	return session, nil
}

// Revoke removes the token from the whitelist and drops its payload and cached role
func (s *SessionStore) Revoke(ctx context.Context, session domain.Session) error {
	pipe := s.c.client.TxPipeline()
	pipe.LRem(ctx, sessionListKey(session.Identity.ID), 0, session.Token)
	pipe.Del(ctx, tokenKey(session.Token), roleKey(session.Token))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// SweepExpired removes whitelisted tokens whose payload has expired and
// returns them.
func (s *SessionStore) SweepExpired(ctx context.Context) ([]string, error) {
	var swept []string
	iter := s.c.client.Scan(ctx, 0, sessionListKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		listKey := iter.Val()
		tokens, err := s.c.client.LRange(ctx, listKey, 0, -1).Result()
		if err != nil {
			return swept, fmt.Errorf("listing tokens: %w", err)
		}
		for _, token := range tokens {
			n, err := s.c.client.Exists(ctx, tokenKey(token)).Result()
			if err != nil {
				return swept, fmt.Errorf("checking token: %w", err)
			}
			if n > 0 {
				continue
			}
			pipe := s.c.client.Pipeline()
			pipe.LRem(ctx, listKey, 0, token)
			pipe.Del(ctx, roleKey(token))
			if _, err := pipe.Exec(ctx); err != nil {
				return swept, fmt.Errorf("removing expired token: %w", err)
			}
			swept = append(swept, token)
		}
	}
	if err := iter.Err(); err != nil {
		return swept, fmt.Errorf("scanning sessions: %w", err)
	}
	return swept, nil
}
