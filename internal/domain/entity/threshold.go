package entity

import "time"

// Tipos de umbral configurables del monitor.
const (
	ThresholdTypeMinStock   = "MIN_STOCK"   // stock por debajo de un piso
	ThresholdTypeChangeRate = "CHANGE_RATE" // movimiento acumulado en ventana deslizante
)

// StockThreshold es un umbral del registro mutable del monitor.
// TitleID y WarehouseID vacíos significan umbral global.
type StockThreshold struct {
	ID            string
	Type          string
	TitleID       string
	WarehouseID   string
	Value         int64
	WindowMinutes int // solo CHANGE_RATE; ventana deslizante de movimiento
	Severity      string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Matches indica si el umbral aplica al par título+bodega (vacío = comodín).
func (t *StockThreshold) Matches(titleID, warehouseID string) bool {
	if !t.Active {
		return false
	}
	if t.TitleID != "" && t.TitleID != titleID {
		return false
	}
	if t.WarehouseID != "" && t.WarehouseID != warehouseID {
		return false
	}
	return true
}
