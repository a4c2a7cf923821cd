package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
)

func put(t *testing.T, m *store.Memory, collection, id string, v any) {
	t.Helper()
	fields, err := store.Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Set(context.Background(), collection, id, fields); err != nil {
		t.Fatal(err)
	}
}

func TestNextIgnoresPastMatches(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemory()
	day := func(d int) domain.Timestamp {
		return domain.NewTimestamp(time.Date(2024, 9, d, 15, 0, 0, 0, time.UTC))
	}
	put(t, docs, domain.CollectionMatches, "old", domain.Match{Opponent: "A", Date: day(1), IsPast: true})
	put(t, docs, domain.CollectionMatches, "later", domain.Match{Opponent: "B", Date: day(20)})
	put(t, docs, domain.CollectionMatches, "soon", domain.Match{Opponent: "C", Date: day(10)})

	m, err := Next(ctx, docs)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if m == nil || m.ID != "soon" {
		t.Fatalf("Next = %+v, want soon", m)
	}

	empty, err := Next(ctx, store.NewMemory())
	if err != nil || empty != nil {
		t.Errorf("empty store = %+v, %v", empty, err)
	}
}

func TestLatestNewsAndNextTraining(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemory()
	at := func(d int) domain.Timestamp {
		return domain.NewTimestamp(time.Date(2024, 9, d, 18, 0, 0, 0, time.UTC))
	}
	put(t, docs, domain.CollectionNews, "n1", domain.NewsArticle{Title: "Old", Date: at(1)})
	put(t, docs, domain.CollectionNews, "n2", domain.NewsArticle{Title: "New", Date: at(5)})
	put(t, docs, domain.CollectionTraining, "t1", domain.TrainingSession{Focus: "Fitness", Date: at(2)})
	put(t, docs, domain.CollectionTraining, "t2", domain.TrainingSession{Focus: "Set pieces", Date: at(6)})
	put(t, docs, domain.CollectionTraining, "t3", domain.TrainingSession{Focus: "Recovery", Date: at(9)})

	n, err := LatestNews(ctx, docs)
	if err != nil || n == nil || n.Title != "New" {
		t.Fatalf("LatestNews = %+v, %v", n, err)
	}

	s, err := NextTraining(ctx, docs, time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC))
	if err != nil || s == nil || s.ID != "t2" {
		t.Fatalf("NextTraining = %+v, %v", s, err)
	}
}

func TestCountdownTo(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	kickoff := now.Add(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second)

	c := CountdownTo(kickoff, now)
	if c == nil || *c != (Countdown{Days: 2, Hours: 3, Minutes: 4, Seconds: 5}) {
		t.Fatalf("CountdownTo = %+v", c)
	}
	if CountdownTo(now, now) != nil || CountdownTo(now.Add(-time.Second), now) != nil {
		t.Errorf("countdown should be nil once kickoff has passed")
	}
}
