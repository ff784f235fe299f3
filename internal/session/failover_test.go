package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"smartstock/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetState(ctx context.Context, operatorID string) (*models.FlowState, error) {
	args := m.Called(ctx, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlowState), args.Error(1)
}

func (m *mockRepo) SetState(ctx context.Context, state *models.FlowState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *mockRepo) ClearState(ctx context.Context, operatorID string) error {
	args := m.Called(ctx, operatorID)
	return args.Error(0)
}

func (m *mockRepo) ClearAllStates(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, operatorID string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, operatorID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverStateRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		state := &models.FlowState{OperatorID: "op-1"}
		primary.On("GetState", ctx, "op-1").Return(state, nil).Once()

		got, err := repo.GetState(ctx, "op-1")
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		state := &models.FlowState{OperatorID: "op-2"}
		primary.On("GetState", ctx, "op-2").Return(nil, errors.New("fail")).Once()
		fallback.On("GetState", ctx, "op-2").Return(state, nil).Once()

		got, err := repo.GetState(ctx, "op-2")
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		state := &models.FlowState{OperatorID: "op-3"}
		primary.On("GetState", ctx, "op-3").Return(state, nil).Once()

		got, err := repo.GetState(ctx, "op-3")
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("SetStateFallsBack", func(t *testing.T) {
		repo.isDown.Store(false)

		state := &models.FlowState{OperatorID: "op-4"}
		primary.On("SetState", ctx, state).Return(errors.New("fail")).Once()
		fallback.On("SetState", ctx, state).Return(nil).Once()

		err := repo.SetState(ctx, state)
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("ClearStateUsesFallbackWhileDown", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now()

		fallback.On("ClearState", ctx, "op-5").Return(nil).Once()

		err := repo.ClearState(ctx, "op-5")
		assert.NoError(t, err)
		fallback.AssertExpectations(t)
	})

	t.Run("ClearAllStatesClearsBothStores", func(t *testing.T) {
		repo.isDown.Store(false)

		primary.On("ClearAllStates", ctx).Return(nil).Once()
		fallback.On("ClearAllStates", ctx).Return(nil).Once()

		err := repo.ClearAllStates(ctx)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RateLimitFallsBack", func(t *testing.T) {
		repo.isDown.Store(false)

		primary.On("CheckRateLimit", ctx, "op-6", 5, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "op-6", 5, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "op-6", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
