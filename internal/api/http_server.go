package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smartstock/internal/config"
	"smartstock/internal/database"
	"smartstock/internal/export"
	"smartstock/internal/metrics"
	"smartstock/internal/models"
	"smartstock/internal/offline"
	"smartstock/internal/session"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the offline queue and the cached catalog to the
// terminal front-ends.
type HTTPServer struct {
	cfg     config.APIConfig
	service *offline.Service
	db      *database.DB
	export  *export.Exporter
	states  session.StateRepository
	logger  *zerolog.Logger
	server  *http.Server
	auth    *HTTPAuth
}

func NewHTTPServer(cfg config.APIConfig, service *offline.Service, db *database.DB, exporter *export.Exporter, states session.StateRepository, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:     cfg,
		service: service,
		db:      db,
		export:  exporter,
		states:  states,
		logger:  logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/operations", srv.handleOperations)
	mux.HandleFunc("/api/v1/operations/export", srv.handleOperationsExport)
	mux.HandleFunc("/api/v1/sync/status", srv.handleSyncStatus)
	mux.HandleFunc("/api/v1/sync", srv.handleSync)
	mux.HandleFunc("/api/v1/products", srv.handleProducts)
	mux.HandleFunc("/api/v1/products/", srv.handleProduct)
	mux.HandleFunc("/api/v1/orders/", srv.handleOrder)
	mux.HandleFunc("/api/v1/operators/", srv.handleOperatorState)
	mux.HandleFunc("/api/v1/logout", srv.handleLogout)
	mux.HandleFunc("/health", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured handler chain, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleOperations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleQueueOperation(w, r)
	case http.MethodGet:
		s.handleListOperations(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleQueueOperation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("queue_operation")

	type request struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	var body request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Type) == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	id, err := s.service.QueueOperation(r.Context(), body.Type, body.Data)
	if err != nil {
		if errors.Is(err, database.ErrStorageUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "local storage unavailable")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 202: the write is locally durable, remote confirmation is async.
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     id,
		"status": models.OpStatusPending,
	})
}

func (s *HTTPServer) handleListOperations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_operations")

	var (
		ops []models.PendingOperation
		err error
	)
	switch status := strings.TrimSpace(r.URL.Query().Get("status")); status {
	case "", "all":
		ops, err = s.db.GetOperationsByStatus(r.Context(), models.OpStatusPending, models.OpStatusFailed)
	case models.OpStatusFailed:
		ops, err = s.service.FailedOperations(r.Context())
	case models.OpStatusPending:
		ops, err = s.db.GetOperationsByStatus(r.Context(), models.OpStatusPending)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status: %s", status))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list operations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"operations": ops})
}

func (s *HTTPServer) handleOperationsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("operations_export")

	path, err := s.export.FailedOperations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_path": path})
}

func (s *HTTPServer) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("sync_status")

	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("sync_now")

	s.service.SyncNow(r.Context())
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *HTTPServer) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("search_products")

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	products, err := s.db.SearchProducts(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search products")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *HTTPServer) handleProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("get_product")

	const prefix = "/api/v1/products/"
	sku := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if sku == "" || strings.Contains(sku, "/") {
		writeError(w, http.StatusBadRequest, "sku is required")
		return
	}

	product, err := s.db.GetProductBySKU(r.Context(), sku)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *HTTPServer) handleOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("get_order")

	const prefix = "/api/v1/orders/"
	number := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if number == "" || strings.Contains(number, "/") {
		writeError(w, http.StatusBadRequest, "order number is required")
		return
	}

	order, err := s.db.GetOrderByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// handleOperatorState serves /api/v1/operators/{id}/state so a terminal can
// resume a multi-step flow on another device.
func (s *HTTPServer) handleOperatorState(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("operator_state")

	const prefix = "/api/v1/operators/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	operatorID, action, found := strings.Cut(rest, "/")
	if !found || action != "state" || strings.TrimSpace(operatorID) == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		state, err := s.states.GetState(r.Context(), operatorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get state")
			return
		}
		if state == nil {
			writeError(w, http.StatusNotFound, "no active flow")
			return
		}
		writeJSON(w, http.StatusOK, state)

	case http.MethodPut:
		allowed, err := s.states.CheckRateLimit(r.Context(), operatorID,
			models.RateLimitRequests, models.RateLimitWindow*time.Second)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check rate limit")
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many state updates")
			return
		}

		var state models.FlowState
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		state.OperatorID = operatorID
		if err := state.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.states.SetState(r.Context(), &state); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save state")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := s.states.ClearState(r.Context(), operatorID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to clear state")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("logout")

	// Dropping unsynced work requires explicit confirmation from the client.
	if r.URL.Query().Get("confirm") != "true" && s.service.PendingCount() > 0 {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("%d operations are not synced; pass confirm=true to drop them", s.service.PendingCount()))
		return
	}

	if err := s.service.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear local data")
		return
	}
	// Old flow state would resume a wizard for whoever logs in next.
	if err := s.states.ClearAllStates(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear operator state")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
