package models

const (
	StepScanOrder       = "scan_order"
	StepScanProduct     = "scan_product"
	StepConfirmQuantity = "confirm_quantity"
	StepAssignLocation  = "assign_location"
	StepConfirm         = "confirm"
)

const (
	// DefaultRedisTTL время жизни состояния оператора в Redis
	DefaultRedisTTL = 24 * 60 * 60 // 24 часа в секундах

	// CacheRetentionDays сколько дней хранится кэш каталога
	CacheRetentionDays = 7

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 30

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах
)
