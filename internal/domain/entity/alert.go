package entity

import "time"

// Tipos de alerta de discrepancia.
const (
	AlertTypeStockNegative  = "STOCK_NEGATIVE"
	AlertTypeStockThreshold = "STOCK_THRESHOLD"
	AlertTypeValueAnomaly   = "VALUE_ANOMALY"
	AlertTypeSyncMismatch   = "SYNC_MISMATCH"
	AlertTypeStaleData      = "STALE_DATA"
)

// Severidades de alerta.
const (
	AlertSeverityLow      = "LOW"
	AlertSeverityMedium   = "MEDIUM"
	AlertSeverityHigh     = "HIGH"
	AlertSeverityCritical = "CRITICAL"
)

// Estados del ciclo de vida de una alerta.
const (
	AlertStatusOpen          = "OPEN"
	AlertStatusAcknowledged  = "ACKNOWLEDGED"
	AlertStatusResolved      = "RESOLVED"
	AlertStatusFalsePositive = "FALSE_POSITIVE"
)

// DiscrepancyAlert es una desviación detectada por el monitor.
// Se conserva indefinidamente para auditoría; nunca se purga automáticamente.
type DiscrepancyAlert struct {
	ID          string
	Type        string
	Severity    string
	Status      string
	TitleID     string
	WarehouseID string
	InventoryID string
	Message     string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// Tipos de anomalía estadística.
const (
	AnomalyTypeSuddenSpike = "SUDDEN_SPIKE"
	AnomalyTypeSuddenDrop  = "SUDDEN_DROP"
)

// StockAnomaly es el resultado del análisis estadístico de movimientos.
type StockAnomaly struct {
	TitleID        string
	WarehouseID    string
	Type           string
	ZScore         float64
	Confidence     float64
	HistoricalMean float64
	RecentMean     float64
	SampleSize     int
	DetectedAt     time.Time
}

// Tipos de discrepancia de sincronización entre bodegas.
const (
	SyncIssueStockMismatch = "STOCK_MISMATCH"
	SyncIssueCostVariance  = "COST_VARIANCE"
)

// SyncDiscrepancy es un desbalance entre dos bodegas que almacenan el mismo título.
type SyncDiscrepancy struct {
	TitleID      string
	Type         string
	WarehouseID1 string
	WarehouseID2 string
	Value1       float64
	Value2       float64
	VariancePct  float64
	Severity     float64 // razón de varianza acotada a 1
	DetectedAt   time.Time
}
