package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOperationPayload(t *testing.T) {
	t.Run("ValidReception", func(t *testing.T) {
		data := []byte(`{"order_number":"OC-2025-001","sku":"FLT-OIL-001","quantity":10,"location":"A-03-E2-N1"}`)
		assert.NoError(t, ValidateOperationPayload(OpTypeReception, data))
	})

	t.Run("ReceptionMissingSKU", func(t *testing.T) {
		data := []byte(`{"order_number":"OC-2025-001","quantity":10}`)
		err := ValidateOperationPayload(OpTypeReception, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sku")
	})

	t.Run("ReceptionZeroQuantity", func(t *testing.T) {
		data := []byte(`{"order_number":"OC-2025-001","sku":"FLT-OIL-001","quantity":0}`)
		assert.Error(t, ValidateOperationPayload(OpTypeReception, data))
	})

	t.Run("ValidDispatch", func(t *testing.T) {
		data := []byte(`{"order_number":"12345","sku":"BRK-PAD-002","quantity":2,"destination":"Tienda Norte"}`)
		assert.NoError(t, ValidateOperationPayload(OpTypeDispatch, data))
	})

	t.Run("ValidAdjustment", func(t *testing.T) {
		data := []byte(`{"sku":"SPK-PLG-003","location":"B-02-E3-N1","delta":-3,"reason":"damaged"}`)
		assert.NoError(t, ValidateOperationPayload(OpTypeInventoryAdjustment, data))
	})

	t.Run("AdjustmentZeroDelta", func(t *testing.T) {
		data := []byte(`{"sku":"SPK-PLG-003","location":"B-02-E3-N1","delta":0}`)
		assert.Error(t, ValidateOperationPayload(OpTypeInventoryAdjustment, data))
	})

	t.Run("UnknownType", func(t *testing.T) {
		err := ValidateOperationPayload("replenishment", []byte(`{}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown operation type")
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		assert.Error(t, ValidateOperationPayload(OpTypeReception, nil))
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		assert.Error(t, ValidateOperationPayload(OpTypeDispatch, []byte(`{"order_number":`)))
	})
}

func TestFlowStateGetters(t *testing.T) {
	state := &FlowState{
		OperatorID:  "op-2",
		CurrentStep: StepScanProduct,
		TempData: map[string]interface{}{
			"order_number": "OC-2025-001",
			"quantity":     float64(12), // JSON round-trip turns numbers into float64
		},
	}

	assert.Equal(t, "OC-2025-001", state.GetString("order_number"))
	assert.Equal(t, 12, state.GetInt("quantity"))
	assert.Equal(t, "", state.GetString("missing"))
	assert.Equal(t, 0, state.GetInt("missing"))

	var empty FlowState
	assert.Equal(t, "", empty.GetString("order_number"))
	assert.Equal(t, 0, empty.GetInt("quantity"))
}

func TestFlowStateValidate(t *testing.T) {
	t.Run("ValidScanOrder", func(t *testing.T) {
		state := &FlowState{OperatorID: "op-1", CurrentStep: StepScanOrder}
		assert.NoError(t, state.Validate())
	})

	t.Run("UnknownStep", func(t *testing.T) {
		state := &FlowState{OperatorID: "op-1", CurrentStep: "teleport"}
		err := state.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown flow step")
	})

	t.Run("MissingOrderNumberPastScanOrder", func(t *testing.T) {
		state := &FlowState{OperatorID: "op-1", CurrentStep: StepScanProduct}
		err := state.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "order_number")
	})

	t.Run("MissingQuantityAtAssignLocation", func(t *testing.T) {
		state := &FlowState{
			OperatorID:  "op-1",
			CurrentStep: StepAssignLocation,
			TempData:    map[string]interface{}{"order_number": "OC-2025-001"},
		}
		err := state.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quantity")
	})

	t.Run("ValidConfirm", func(t *testing.T) {
		state := &FlowState{
			OperatorID:  "op-1",
			CurrentStep: StepConfirm,
			TempData: map[string]interface{}{
				"order_number": "OC-2025-001",
				"quantity":     float64(5),
			},
		}
		assert.NoError(t, state.Validate())
	})
}
