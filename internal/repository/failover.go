package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sessionsnap/internal/domain"
	"sessionsnap/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverDraftRepository uses primary until it fails, then serves from fallback and
// probes primary again once recoveryInterval has passed.
type FailoverDraftRepository struct {
	primary  domain.DraftRepository
	fallback domain.DraftRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverDraftRepository(primary, fallback domain.DraftRepository, logger *zerolog.Logger) *FailoverDraftRepository {
	return &FailoverDraftRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverDraftRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary draft repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the call should go to primary, either because it is healthy
// or because it is time for a recovery probe.
func (r *FailoverDraftRepository) usePrimary() (probe bool, ok bool) {
	if !r.isDown.Load() {
		return false, true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true, true
	}
	return false, false
}

func (r *FailoverDraftRepository) recovered() {
	r.isDown.Store(false)
	r.logger.Info().Msg("Primary draft repository recovered")
}

func (r *FailoverDraftRepository) GetDraft(ctx context.Context, operatorID string) (*models.Draft, error) {
	if probe, ok := r.usePrimary(); ok {
		draft, err := r.primary.GetDraft(ctx, operatorID)
		if err == nil {
			if probe {
				r.recovered()
			}
			return draft, nil
		}
		r.markDown(err)
	}

	return r.fallback.GetDraft(ctx, operatorID)
}

func (r *FailoverDraftRepository) SetDraft(ctx context.Context, draft *models.Draft) error {
	if probe, ok := r.usePrimary(); ok {
		err := r.primary.SetDraft(ctx, draft)
		if err == nil {
			if probe {
				r.recovered()
			}
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetDraft(ctx, draft)
}

func (r *FailoverDraftRepository) ClearDraft(ctx context.Context, operatorID string) error {
	if probe, ok := r.usePrimary(); ok {
		err := r.primary.ClearDraft(ctx, operatorID)
		if err == nil {
			if probe {
				r.recovered()
			}
			// the fallback may still hold a draft written during an outage
			return r.fallback.ClearDraft(ctx, operatorID)
		}
		r.markDown(err)
	}

	return r.fallback.ClearDraft(ctx, operatorID)
}

func (r *FailoverDraftRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if probe, ok := r.usePrimary(); ok {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			if probe {
				r.recovered()
			}
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
