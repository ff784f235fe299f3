package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	OpTypeReception           = "reception"
	OpTypeDispatch            = "dispatch"
	OpTypeInventoryAdjustment = "inventory_adjustment"
)

const (
	OpStatusPending = "pending"
	OpStatusSyncing = "syncing"
	OpStatusFailed  = "failed"
)

// PendingOperation is a durable record of one user mutation that has not yet
// been confirmed by the remote system. A successfully synced operation is
// deleted, not archived.
type PendingOperation struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	RetryCount  int             `json:"retry_count"`
	LastError   *string         `json:"last_error,omitempty"`
	NextRetryAt *time.Time      `json:"next_retry_at,omitempty"`
}

// ReceptionPayload captures a confirmed goods reception.
type ReceptionPayload struct {
	OrderNumber string `json:"order_number"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	Location    string `json:"location,omitempty"`
}

func (p ReceptionPayload) Validate() error {
	if p.OrderNumber == "" {
		return errors.New("order_number is required")
	}
	if p.SKU == "" {
		return errors.New("sku is required")
	}
	if p.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}

// DispatchPayload captures a confirmed dispatch of picked goods.
type DispatchPayload struct {
	OrderNumber string `json:"order_number"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	Destination string `json:"destination,omitempty"`
}

func (p DispatchPayload) Validate() error {
	if p.OrderNumber == "" {
		return errors.New("order_number is required")
	}
	if p.SKU == "" {
		return errors.New("sku is required")
	}
	if p.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}

// InventoryAdjustmentPayload captures a manual stock correction.
type InventoryAdjustmentPayload struct {
	SKU      string `json:"sku"`
	Location string `json:"location"`
	Delta    int    `json:"delta"`
	Reason   string `json:"reason,omitempty"`
}

func (p InventoryAdjustmentPayload) Validate() error {
	if p.SKU == "" {
		return errors.New("sku is required")
	}
	if p.Location == "" {
		return errors.New("location is required")
	}
	if p.Delta == 0 {
		return errors.New("delta must be non-zero")
	}
	return nil
}

// ValidateOperationPayload decodes data against the schema selected by opType
// and rejects malformed mutations before they reach the queue.
func ValidateOperationPayload(opType string, data []byte) error {
	if len(data) == 0 {
		return errors.New("payload is empty")
	}

	switch opType {
	case OpTypeReception:
		var p ReceptionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode reception payload: %w", err)
		}
		return p.Validate()
	case OpTypeDispatch:
		var p DispatchPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode dispatch payload: %w", err)
		}
		return p.Validate()
	case OpTypeInventoryAdjustment:
		var p InventoryAdjustmentPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode inventory adjustment payload: %w", err)
		}
		return p.Validate()
	default:
		return fmt.Errorf("unknown operation type: %s", opType)
	}
}
