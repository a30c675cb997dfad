package engine

import (
	"context"
	"time"

	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios
// atados a esa tx. Garantiza atomicidad para el motor de reservas y para el
// cierre de traslados (estado de la orden y movimientos en el mismo commit).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		invRepo repository.InventoryRepository,
		movRepo repository.MovementRepository,
		transferRepo repository.TransferRepository,
	) error) error
}

// IncomingStockProvider es el punto de extensión para stock entrante
// (órdenes de compra, traslados programados). La implementación por defecto
// devuelve cero; no se inventan semánticas de negocio adicionales.
type IncomingStockProvider interface {
	IncomingStock(ctx context.Context, titleID, warehouseID string) (int64, error)
}

// StaticIncomingStock implementación fija de IncomingStockProvider.
type StaticIncomingStock struct {
	Value int64
}

func (s StaticIncomingStock) IncomingStock(context.Context, string, string) (int64, error) {
	return s.Value, nil
}

// ReservationStore índice de reservas vivas (id -> Reservation).
// Las implementaciones deben ser seguras para acceso concurrente.
type ReservationStore interface {
	Save(r *entity.Reservation) error
	Get(id string) (*entity.Reservation, error)
	Update(r *entity.Reservation) error
	ListActive() ([]*entity.Reservation, error)
	// TransitionStatus cambia el estado solo si el actual coincide con from
	// (compare-and-swap). Devuelve false sin error si otro actor ganó la carrera.
	TransitionStatus(id, from, to string) (bool, error)
	// PurgeInactiveOlderThan elimina reservas no-ACTIVE creadas antes del corte.
	PurgeInactiveOlderThan(cutoff time.Time) (int, error)
}

// WarehouseLocator es la heurística de ubicación del ranking de asignación:
// un puntaje de distancia (mayor = más lejos) que se resta del puntaje total.
type WarehouseLocator interface {
	DistanceScore(warehouseID string) float64
}

// ZeroDistance implementación neutra: ninguna bodega penaliza por ubicación.
type ZeroDistance struct{}

func (ZeroDistance) DistanceScore(string) float64 { return 0 }

// EventPublisher publica eventos de inventario hacia los monitores.
// Las implementaciones nunca deben bloquear al publicador.
type EventPublisher interface {
	Publish(evt entity.InventoryUpdateEvent)
}

// NopPublisher descarta todos los eventos (tests y procesos sin monitor).
type NopPublisher struct{}

func (NopPublisher) Publish(entity.InventoryUpdateEvent) {}
