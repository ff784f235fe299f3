package session

import (
	"context"
	"time"

	"smartstock/internal/models"
)

// StateRepository stores per-operator flow state for the multi-step
// warehouse flows. Implementations must be safe for concurrent use.
type StateRepository interface {
	GetState(ctx context.Context, operatorID string) (*models.FlowState, error)
	SetState(ctx context.Context, state *models.FlowState) error
	ClearState(ctx context.Context, operatorID string) error
	ClearAllStates(ctx context.Context) error
	CheckRateLimit(ctx context.Context, operatorID string, limit int, window time.Duration) (bool, error)
}
