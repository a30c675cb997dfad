package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRecord representa el stock de un título en una bodega
// (una fila por par título+bodega).
// Invariante tras cada commit: 0 <= ReservedStock <= CurrentStock.
type InventoryRecord struct {
	ID               string
	TitleID          string
	WarehouseID      string
	CurrentStock     int64
	ReservedStock    int64
	MinStockLevel    int64
	MaxStockLevel    int64
	ReorderPoint     int64
	AverageCost      decimal.Decimal
	LastMovementDate time.Time
	UpdatedAt        time.Time
}

// AvailableStock devuelve el stock no comprometido (sin descontar stock de seguridad).
func (r *InventoryRecord) AvailableStock() int64 {
	return r.CurrentStock - r.ReservedStock
}
