package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartstock/internal/models"
)

// Submitter delivers one operation to the remote system. The sync engine
// depends only on this contract; transport details stay here.
type Submitter interface {
	Submit(ctx context.Context, op *models.PendingOperation) error
}

// Prober answers whether the remote system is currently reachable.
type Prober interface {
	Check(ctx context.Context) error
}

// Client submits queued operations to the warehouse backend over HTTP and
// doubles as the reachability probe for the connectivity monitor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit posts the operation payload to the endpoint selected by its type,
// e.g. POST {base}/api/reception.
func (c *Client) Submit(ctx context.Context, op *models.PendingOperation) error {
	endpoint := fmt.Sprintf("%s/api/%s", c.baseURL, op.Type)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(op.Data))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operation-ID", fmt.Sprintf("%d", op.ID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit operation %d: %w", op.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	reason := parseErrorBody(body)
	if reason == "" {
		reason = resp.Status
	}
	return fmt.Errorf("remote rejected operation %d: %s", op.ID, reason)
}

// Check probes the backend health endpoint. Any transport error or
// non-2xx status counts as unreachable.
func (c *Client) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health probe returned %s", resp.Status)
	}
	return nil
}

func parseErrorBody(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
