package repository

import (
	"context"
	"sync"
	"time"

	"sessionsnap/internal/models"
)

type memoryDraft struct {
	draft     models.Draft
	expiresAt time.Time
}

// MemoryDraftRepository keeps drafts in process memory. It backs the Redis repository
// when Redis is unavailable and is used directly in tests.
type MemoryDraftRepository struct {
	drafts     sync.Map
	rateLimits sync.Map
	rateMu     sync.Mutex
	ttl        time.Duration
	now        func() time.Time
}

func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemoryDraftRepository) GetDraft(_ context.Context, operatorID string) (*models.Draft, error) {
	val, ok := r.drafts.Load(operatorID)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryDraft)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.drafts.Delete(operatorID)
		return nil, nil
	}
	draft := entry.draft
	draft.Slots = append([]time.Time(nil), entry.draft.Slots...)
	return &draft, nil
}

func (r *MemoryDraftRepository) SetDraft(_ context.Context, draft *models.Draft) error {
	stored := *draft
	stored.Slots = append([]time.Time(nil), draft.Slots...)
	r.drafts.Store(draft.OperatorID, memoryDraft{draft: stored, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemoryDraftRepository) ClearDraft(_ context.Context, operatorID string) error {
	r.drafts.Delete(operatorID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryDraftRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.rateMu.Lock()
	defer r.rateMu.Unlock()

	now := r.now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
