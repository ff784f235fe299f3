package models

import (
	"errors"
	"fmt"
)

// FlowState holds where an operator is inside a multi-step flow (reception,
// picking, dispatch) together with the fields captured so far.
type FlowState struct {
	OperatorID  string                 `json:"operator_id"`
	CurrentStep string                 `json:"current_step"`
	TempData    map[string]interface{} `json:"temp_data,omitempty"`
}

// Validate checks that the step belongs to the flow vocabulary and that the
// temp data already holds what the step depends on.
func (s *FlowState) Validate() error {
	switch s.CurrentStep {
	case StepScanOrder, StepScanProduct, StepConfirmQuantity, StepAssignLocation, StepConfirm:
	default:
		return fmt.Errorf("unknown flow step: %q", s.CurrentStep)
	}
	if s.CurrentStep != StepScanOrder && s.GetString("order_number") == "" {
		return errors.New("order_number is required past the scan_order step")
	}
	if (s.CurrentStep == StepAssignLocation || s.CurrentStep == StepConfirm) && s.GetInt("quantity") <= 0 {
		return errors.New("quantity must be set before assigning a location")
	}
	return nil
}

func (s *FlowState) GetString(key string) string {
	if s.TempData == nil {
		return ""
	}
	val, ok := s.TempData[key]
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func (s *FlowState) GetInt(key string) int {
	if s.TempData == nil {
		return 0
	}
	val, ok := s.TempData[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
