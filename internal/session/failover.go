package session

import (
	"context"
	"sync/atomic"
	"time"

	"smartstock/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStateRepository serves state from the primary store and degrades
// to the fallback when the primary errors out. It probes the primary again
// after a minute so a recovered Redis takes over without a restart.
type FailoverStateRepository struct {
	primary   StateRepository
	fallback  StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) GetState(ctx context.Context, operatorID string) (*models.FlowState, error) {
	if !r.isDown.Load() {
		state, err := r.primary.GetState(ctx, operatorID)
		if err == nil {
			return state, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		state, err := r.primary.GetState(ctx, operatorID)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetState(ctx, operatorID)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.FlowState) error {
	if !r.isDown.Load() {
		err := r.primary.SetState(ctx, state)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetState(ctx, state)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, operatorID string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearState(ctx, operatorID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearState(ctx, operatorID)
}

func (r *FailoverStateRepository) ClearAllStates(ctx context.Context) error {
	if !r.isDown.Load() {
		err := r.primary.ClearAllStates(ctx)
		if err == nil {
			return r.fallback.ClearAllStates(ctx)
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearAllStates(ctx)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, operatorID string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, operatorID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.CheckRateLimit(ctx, operatorID, limit, window)
}
