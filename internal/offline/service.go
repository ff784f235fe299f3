package offline

import (
	"context"
	"encoding/json"
	"sync"

	"smartstock/internal/connectivity"
	"smartstock/internal/database"
	"smartstock/internal/events"
	"smartstock/internal/metrics"
	"smartstock/internal/models"
	"smartstock/internal/queue"
	"smartstock/internal/syncer"

	"github.com/rs/zerolog"
)

// Status is the snapshot shown to the operator UI: the connectivity badge,
// the pending-operations counter and the state of the last sync pass.
type Status struct {
	IsOnline      bool   `json:"is_online"`
	PendingCount  int    `json:"pending_count"`
	IsSyncing     bool   `json:"is_syncing"`
	LastSyncError string `json:"last_sync_error,omitempty"`
}

// Service is the single entry point for offline-capable mutations. Writes
// always land in the local queue first; when the remote system is reachable
// a sync pass is kicked off in the background.
type Service struct {
	queue   *queue.Manager
	engine  *syncer.Engine
	monitor *connectivity.Monitor
	db      *database.DB
	bus     *events.EventBus
	logger  *zerolog.Logger

	mu           sync.RWMutex
	pendingCount int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(q *queue.Manager, engine *syncer.Engine, monitor *connectivity.Monitor, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		queue:   q,
		engine:  engine,
		monitor: monitor,
		db:      db,
		bus:     bus,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.subscribe()
	s.refreshCount(ctx)
	return s
}

func (s *Service) subscribe() {
	s.bus.Subscribe(events.EventConnectivityOnline, func(event *events.Event) error {
		metrics.SetOnline(true)
		s.triggerSync()
		return nil
	})
	s.bus.Subscribe(events.EventConnectivityOffline, func(event *events.Event) error {
		metrics.SetOnline(false)
		return nil
	})
	s.bus.Subscribe(events.EventOperationSynced, func(event *events.Event) error {
		metrics.IncSynced()
		return nil
	})
	s.bus.Subscribe(events.EventOperationFailed, func(event *events.Event) error {
		metrics.IncFailed()
		return nil
	})
	s.bus.Subscribe(events.EventSyncPassFinished, func(event *events.Event) error {
		var payload events.SyncPassEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		result := "clean"
		if payload.Failed > 0 || payload.Error != "" {
			result = "partial"
		}
		metrics.IncSyncPass(result)
		s.refreshCount(s.ctx)
		return nil
	})
}

// QueueOperation persists a mutation locally and, when online, starts a
// background sync pass. The operation id is returned as soon as the local
// write is durable; remote confirmation happens asynchronously.
func (s *Service) QueueOperation(ctx context.Context, opType string, data json.RawMessage) (int64, error) {
	id, err := s.queue.AddPendingOperation(ctx, opType, data)
	if err != nil {
		return 0, err
	}

	metrics.IncQueued(opType)
	s.refreshCount(ctx)
	_ = s.bus.PublishJSON(events.EventOperationQueued, events.OperationEventPayload{
		OperationID: id,
		Type:        opType,
	})

	if s.monitor.IsOnline() {
		s.triggerSync()
	}
	return id, nil
}

// SyncNow triggers a pass and waits for it to finish. A trigger while
// another pass runs or while offline returns immediately.
func (s *Service) SyncNow(ctx context.Context) {
	s.engine.SyncNow(ctx)
}

// triggerSync starts a pass in the background so callers are not blocked
// behind remote round-trips.
func (s *Service) triggerSync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.engine.SyncNow(s.ctx)
	}()
}

// Status returns the current snapshot for the UI.
func (s *Service) Status() Status {
	s.mu.RLock()
	pending := s.pendingCount
	s.mu.RUnlock()

	return Status{
		IsOnline:      s.monitor.IsOnline(),
		PendingCount:  pending,
		IsSyncing:     s.engine.IsRunning(),
		LastSyncError: s.engine.LastError(),
	}
}

// PendingCount returns the cached queue depth.
func (s *Service) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingCount
}

// FailedOperations lists operations whose last attempt failed, for the
// review screen and the export.
func (s *Service) FailedOperations(ctx context.Context) ([]models.PendingOperation, error) {
	return s.queue.GetFailedOperations(ctx)
}

// ClearAll wipes the queue and the cached catalog. Used on logout; pending
// operations are dropped deliberately, the caller confirms first.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.db.ClearAll(ctx); err != nil {
		return err
	}
	s.refreshCount(ctx)
	s.logger.Info().Msg("local data cleared")
	return nil
}

func (s *Service) refreshCount(ctx context.Context) {
	count, err := s.queue.CountPending(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to count pending operations")
		return
	}

	s.mu.Lock()
	s.pendingCount = count
	s.mu.Unlock()
	metrics.SetPendingOperations(count)
}

// Close stops background syncs and waits for an in-flight pass to finish.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
