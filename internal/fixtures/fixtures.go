// Package fixtures holds the schedule queries shared by several screens.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
)

// Next returns the earliest match not yet played, or nil.
func Next(ctx context.Context, docs store.DocumentStore) (*domain.Match, error) {
	found, err := docs.Query(ctx, store.From(domain.CollectionMatches).Where("isPast", store.Eq, false).Asc("date").Take(1))
	if err != nil {
		return nil, fmt.Errorf("loading next match: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	var m domain.Match
	if err := store.Decode(found[0], &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LatestNews returns the most recent article, or nil.
func LatestNews(ctx context.Context, docs store.DocumentStore) (*domain.NewsArticle, error) {
	found, err := docs.Query(ctx, store.From(domain.CollectionNews).Desc("date").Take(1))
	if err != nil {
		return nil, fmt.Errorf("loading latest news: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	var n domain.NewsArticle
	if err := store.Decode(found[0], &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// NextTraining returns the first session scheduled after now, or nil.
func NextTraining(ctx context.Context, docs store.DocumentStore, now time.Time) (*domain.TrainingSession, error) {
	found, err := docs.Query(ctx, store.From(domain.CollectionTraining).Where("date", store.Gt, now).Asc("date").Take(1))
	if err != nil {
		return nil, fmt.Errorf("loading next training: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	var s domain.TrainingSession
	if err := store.Decode(found[0], &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Countdown is the time left until kickoff
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// CountdownTo splits the time until kickoff. It returns nil once kickoff has passed.
func CountdownTo(kickoff, now time.Time) *Countdown {
	d := kickoff.Sub(now)
	if d <= 0 {
		return nil
	}
	total := int(d / time.Second)
	return &Countdown{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}
