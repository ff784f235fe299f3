package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartstock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSubmit(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	var gotOpHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOpHeader = r.Header.Get("X-Operation-ID")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	op := &models.PendingOperation{
		ID:   7,
		Type: models.OpTypeReception,
		Data: []byte(`{"order_number":"OC-1","sku":"REP-12345","quantity":10}`),
	}

	err := client.Submit(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, "/api/reception", gotPath)
	assert.Equal(t, "7", gotOpHeader)
	assert.Equal(t, "REP-12345", gotBody["sku"])
}

func TestClientSubmit_RemoteRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown sku"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	op := &models.PendingOperation{ID: 1, Type: models.OpTypeDispatch, Data: []byte(`{}`)}

	err := client.Submit(context.Background(), op)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sku")
}

func TestClientSubmit_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL, time.Second)
	op := &models.PendingOperation{ID: 2, Type: models.OpTypeReception, Data: []byte(`{}`)}

	assert.Error(t, client.Submit(context.Background(), op))
}

func TestClientCheck(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	assert.NoError(t, client.Check(context.Background()))

	healthy = false
	assert.Error(t, client.Check(context.Background()))
}
