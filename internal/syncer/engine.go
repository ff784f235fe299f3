package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"smartstock/internal/events"
	"smartstock/internal/metrics"
	"smartstock/internal/models"
	"smartstock/internal/queue"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Submitter delivers one operation to the remote system.
type Submitter interface {
	Submit(ctx context.Context, op *models.PendingOperation) error
}

// StatusSource reports current remote reachability.
type StatusSource interface {
	IsOnline() bool
}

// Engine drains the pending queue in a single sequential pass. At most one
// pass runs at a time; triggers arriving while a pass is active are dropped,
// not queued.
type Engine struct {
	queue     *queue.Manager
	submitter Submitter
	online    StatusSource
	bus       *events.EventBus
	policy    RetryPolicy
	logger    *zerolog.Logger

	running atomic.Bool

	mu        sync.RWMutex
	lastError string
}

func NewEngine(q *queue.Manager, submitter Submitter, online StatusSource, bus *events.EventBus, policy RetryPolicy, logger *zerolog.Logger) *Engine {
	return &Engine{
		queue:     q,
		submitter: submitter,
		online:    online,
		bus:       bus,
		policy:    policy,
		logger:    logger,
	}
}

// IsRunning reports whether a pass is currently active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// LastError returns the most recent sync failure reason, or empty when the
// last pass completed cleanly. It is cleared at the start of every pass.
func (e *Engine) LastError() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastError
}

func (e *Engine) setLastError(msg string) {
	e.mu.Lock()
	e.lastError = msg
	e.mu.Unlock()
}

// SyncNow runs one pass over the queue. It is a no-op while offline or
// while another pass is in flight.
func (e *Engine) SyncNow(ctx context.Context) {
	if !e.online.IsOnline() {
		e.logger.Debug().Msg("sync skipped: offline")
		return
	}
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Debug().Msg("sync skipped: pass already running")
		return
	}
	defer e.running.Store(false)

	e.runPass(ctx)
}

func (e *Engine) runPass(ctx context.Context) {
	passID := uuid.New().String()
	e.setLastError("")

	ops, err := e.queue.GetPendingOperations(ctx)
	if err != nil {
		e.logger.Error().Err(err).Str("pass_id", passID).Msg("sync pass aborted: cannot read queue")
		e.setLastError("sync failed: storage unavailable")
		e.publishPass(passID, 0, 0, 0)
		return
	}
	if len(ops) == 0 {
		return
	}

	e.logger.Info().
		Str("pass_id", passID).
		Int("queued", len(ops)).
		Msg("sync pass started")

	now := time.Now()
	var attempted, synced, failed int
	for i := range ops {
		if ctx.Err() != nil {
			e.logger.Warn().Str("pass_id", passID).Msg("sync pass interrupted")
			break
		}

		op := &ops[i]
		if op.NextRetryAt != nil && op.NextRetryAt.After(now) {
			continue
		}

		attempted++
		if e.syncOne(ctx, op) {
			synced++
		} else {
			failed++
		}
	}

	e.logger.Info().
		Str("pass_id", passID).
		Int("attempted", attempted).
		Int("synced", synced).
		Int("failed", failed).
		Msg("sync pass finished")

	e.publishPass(passID, attempted, synced, failed)
}

// syncOne runs a single submission attempt. A panic anywhere inside the
// attempt is converted into a recorded failure so one bad operation cannot
// take down the whole pass.
func (e *Engine) syncOne(ctx context.Context, op *models.PendingOperation) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Int64("operation_id", op.ID).
				Interface("panic", r).
				Msg("panic during sync attempt")
			e.setLastError("sync failed: internal error")
			reason := fmt.Sprintf("internal error: %v", r)
			_ = e.queue.MarkAsFailed(ctx, op.ID, reason, e.policy.NextRetryAt(time.Now(), op.RetryCount+1))
			ok = false
		}
	}()

	if err := e.queue.MarkAsSyncing(ctx, op.ID); err != nil {
		e.setLastError("sync failed: storage unavailable")
		return false
	}

	start := time.Now()
	err := e.submitter.Submit(ctx, op)
	metrics.ObserveSubmission(time.Since(start))
	if err != nil {
		e.setLastError(err.Error())
		next := e.policy.NextRetryAt(time.Now(), op.RetryCount+1)
		_ = e.queue.MarkAsFailed(ctx, op.ID, err.Error(), next)
		_ = e.bus.PublishJSON(events.EventOperationFailed, events.OperationEventPayload{
			OperationID: op.ID,
			Type:        op.Type,
			RetryCount:  op.RetryCount + 1,
			Error:       err.Error(),
		})
		return false
	}

	if err := e.queue.MarkAsSynced(ctx, op.ID); err != nil {
		// Submission went through but the local record could not be
		// removed; the next pass will resubmit it.
		e.setLastError("sync failed: storage unavailable")
		return false
	}

	_ = e.bus.PublishJSON(events.EventOperationSynced, events.OperationEventPayload{
		OperationID: op.ID,
		Type:        op.Type,
	})
	return true
}

func (e *Engine) publishPass(passID string, attempted, synced, failed int) {
	_ = e.bus.PublishJSON(events.EventSyncPassFinished, events.SyncPassEventPayload{
		PassID:    passID,
		Attempted: attempted,
		Synced:    synced,
		Failed:    failed,
		Error:     e.LastError(),
	})
}
