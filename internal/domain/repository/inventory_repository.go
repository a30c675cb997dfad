package repository

import "github.com/tu-usuario/editorial-stock/internal/domain/entity"

// InventoryRepository define el puerto de persistencia para filas de inventario
// (título+bodega). Usado dentro de transacciones para garantizar consistencia.
type InventoryRepository interface {
	// Get devuelve la fila del par título+bodega o domain.ErrNotFound.
	Get(titleID, warehouseID string) (*entity.InventoryRecord, error)
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE) dentro de una tx.
	GetForUpdate(titleID, warehouseID string) (*entity.InventoryRecord, error)
	ListByTitle(titleID string) ([]*entity.InventoryRecord, error)
	// ListAll devuelve todas las filas; warehouseID vacío = todas las bodegas.
	ListAll(warehouseID string) ([]*entity.InventoryRecord, error)
	Upsert(record *entity.InventoryRecord) error

	// AdjustReserved aplica un delta condicional y atómico sobre reserved_stock.
	// Con delta positivo exige reserved_stock + delta <= current_stock y devuelve
	// domain.ErrConcurrencyConflict si la condición ya no se cumple.
	// Con delta negativo el resultado queda acotado en cero (tolera deriva).
	AdjustReserved(titleID, warehouseID string, delta int64) error

	// AdjustStock aplica un delta firmado sobre current_stock y actualiza
	// last_movement_date.
	AdjustStock(titleID, warehouseID string, delta int64) error
}
