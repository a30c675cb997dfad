package repository

import (
	"time"

	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
)

// MovementFilter criterios de consulta sobre el libro de movimientos.
type MovementFilter struct {
	TitleID     string
	WarehouseID string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// MovementRepository define el puerto de persistencia del libro de movimientos
// (append-only: las entradas nunca se actualizan ni se borran).
type MovementRepository interface {
	Create(movement *entity.StockMovement) error
	List(filter MovementFilter) ([]*entity.StockMovement, error)
	// SumQuantities suma las cantidades firmadas del par título+bodega
	// (reconstrucción de stock para verificación de consistencia).
	SumQuantities(titleID, warehouseID string) (int64, error)
}
