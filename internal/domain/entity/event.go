package entity

import "time"

// Tipos de evento de actualización de inventario.
const (
	EventTypeStockChange       = "STOCK_CHANGE"
	EventTypeReservationChange = "RESERVATION_CHANGE"
	EventTypeTransferChange    = "TRANSFER_CHANGE"
	EventTypeAdjustment        = "ADJUSTMENT"
)

// InventoryUpdateEvent viaja de los mutadores a los monitores por el bus interno.
// Se publica solo después del commit de la transacción que lo originó.
type InventoryUpdateEvent struct {
	ID           string
	Type         string
	TitleID      string
	WarehouseID  string
	InventoryID  string
	Delta        int64 // cambio firmado aplicado (stock o reservado según el tipo)
	NewStock     int64
	NewReserved  int64
	Reference    string
	OccurredAt   time.Time
	MovementType string
}
