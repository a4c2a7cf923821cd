package tactics

import (
	"context"
	"sync"
	"time"

	"github.com/club-portal/internal/domain"
)

// Draft is an editor working copy kept between requests. Generation grows
// by one on every change.
type Draft struct {
	ID         string    `json:"id"`
	CoachID    string    `json:"coachId"`
	Generation int64     `json:"generation"`
	Working    Tactics   `json:"working"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DraftStore persists drafts
type DraftStore interface {
	Create(ctx context.Context, d Draft) error
	// Get returns domain.ErrNotFound for unknown or expired drafts.
	Get(ctx context.Context, id string) (Draft, error)
	// Mutate applies fn atomically. If the stored generation differs from
	// expectGeneration (when non-zero) it returns domain.ErrDraftConflict.
	Mutate(ctx context.Context, id string, expectGeneration int64, fn func(*Draft) error) (Draft, error)
	// Attach applies fn atomically without advancing the generation. It is
	// for bookkeeping that leaves the line-up as the coach last saw it.
	Attach(ctx context.Context, id string, fn func(*Draft) error) (Draft, error)
	Delete(ctx context.Context, id string) error
}

// MemoryDrafts keeps drafts in process memory
type MemoryDrafts struct {
	mu     sync.Mutex
	drafts map[string]memoryDraft
	ttl    time.Duration
	now    func() time.Time
}

type memoryDraft struct {
	draft   Draft
	expires time.Time
}

// NewMemoryDrafts creates a draft store whose entries expire after ttl
func NewMemoryDrafts(ttl time.Duration) *MemoryDrafts {
	return &MemoryDrafts{drafts: make(map[string]memoryDraft), ttl: ttl, now: time.Now}
}

// Create stores a new draft
func (m *MemoryDrafts) Create(ctx context.Context, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.ID] = memoryDraft{draft: cloneDraft(d), expires: m.now().Add(m.ttl)}
	return nil
}

// Get returns a live draft
func (m *MemoryDrafts) Get(ctx context.Context, id string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.drafts[id]
	if !ok || !m.now().Before(entry.expires) {
		delete(m.drafts, id)
		return Draft{}, domain.ErrNotFound
	}
	return cloneDraft(entry.draft), nil
}

// Mutate applies fn under the store lock
func (m *MemoryDrafts) Mutate(ctx context.Context, id string, expectGeneration int64, fn func(*Draft) error) (Draft, error) {
	return m.apply(id, expectGeneration, true, fn)
}

// Attach applies fn under the store lock, keeping the generation
func (m *MemoryDrafts) Attach(ctx context.Context, id string, fn func(*Draft) error) (Draft, error) {
	return m.apply(id, 0, false, fn)
}

func (m *MemoryDrafts) apply(id string, expectGeneration int64, advance bool, fn func(*Draft) error) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.drafts[id]
	if !ok || !m.now().Before(entry.expires) {
		return Draft{}, domain.ErrNotFound
	}
	if expectGeneration != 0 && entry.draft.Generation != expectGeneration {
		return Draft{}, domain.ErrDraftConflict
	}

	d := cloneDraft(entry.draft)
	if err := fn(&d); err != nil {
		return Draft{}, err
	}
	d.Generation = entry.draft.Generation
	if advance {
		d.Generation++
	}
	d.UpdatedAt = m.now()
	m.drafts[id] = memoryDraft{draft: cloneDraft(d), expires: m.now().Add(m.ttl)}
	return d, nil
}

// Delete drops a draft
func (m *MemoryDrafts) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

func cloneDraft(d Draft) Draft {
	d.Working = d.Working.Clone()
	return d
}
