package session

import (
	"context"
	"sync"
	"time"

	"smartstock/internal/models"
)

type MemoryStateRepository struct {
	states     sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

func (r *MemoryStateRepository) GetState(ctx context.Context, operatorID string) (*models.FlowState, error) {
	val, ok := r.states.Load(operatorID)
	if !ok {
		return nil, nil
	}
	return val.(*models.FlowState), nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, state *models.FlowState) error {
	r.states.Store(state.OperatorID, state)
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, operatorID string) error {
	r.states.Delete(operatorID)
	return nil
}

func (r *MemoryStateRepository) ClearAllStates(ctx context.Context) error {
	r.states.Range(func(key, _ interface{}) bool {
		r.states.Delete(key)
		return true
	})
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, operatorID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(operatorID)

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

	r.rateLimits.Store(operatorID, entry)
	return entry.count <= limit, nil
}
