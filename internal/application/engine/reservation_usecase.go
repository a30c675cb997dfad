package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/editorial-stock/internal/application/dto"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/domain/inventory"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/metrics"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

// DefaultReservationTTL vigencia por defecto de una reserva sin expiración explícita.
const DefaultReservationTTL = 24 * time.Hour

// maxReserveRetries reintentos ante conflicto de concurrencia sobre la fila.
const maxReserveRetries = 3

// ReservationUseCase es la única autoridad que muta ReservedStock.
// Cada mutación es todo-o-nada: bloqueo de fila (SELECT FOR UPDATE) más
// incremento condicional dentro de una transacción, y el evento se publica
// solo después del commit para que los monitores nunca observen una reserva
// que la transacción luego revirtió.
type ReservationUseCase struct {
	txRunner   TxRunner
	incoming   IncomingStockProvider
	store      ReservationStore
	events     EventPublisher
	metrics    *metrics.EngineMetrics
	log        *logger.Logger
	defaultTTL time.Duration
}

// NewReservationUseCase construye el caso de uso. events nil descarta eventos;
// metrics nil desactiva métricas; ttl <= 0 usa DefaultReservationTTL.
func NewReservationUseCase(
	txRunner TxRunner,
	incoming IncomingStockProvider,
	store ReservationStore,
	events EventPublisher,
	m *metrics.EngineMetrics,
	log *logger.Logger,
	ttl time.Duration,
) *ReservationUseCase {
	if incoming == nil {
		incoming = StaticIncomingStock{}
	}
	if events == nil {
		events = NopPublisher{}
	}
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	if log == nil {
		log = logger.New(logger.Config{Env: "production", Level: "info"})
	}
	return &ReservationUseCase{
		txRunner:   txRunner,
		incoming:   incoming,
		store:      store,
		events:     events,
		metrics:    m,
		log:        log,
		defaultTTL: ttl,
	}
}

// ReserveInventory aparta stock para una orden. ATP insuficiente es un resultado
// reportado con el faltante (ATPRemaining), no un error.
func (uc *ReservationUseCase) ReserveInventory(ctx context.Context, req dto.ReserveRequest) (*dto.ReserveResult, error) {
	if req.TitleID == "" || req.WarehouseID == "" || req.OrderID == "" {
		return failReserve("solicitud inválida: título, bodega y orden son obligatorios"), nil
	}
	if req.Quantity <= 0 {
		return failReserve("solicitud inválida: la cantidad debe ser positiva"), nil
	}

	incoming, err := uc.incoming.IncomingStock(ctx, req.TitleID, req.WarehouseID)
	if err != nil {
		return failReserve(fmt.Sprintf("stock entrante: %v", err)), nil
	}

	var (
		atpRemaining int64
		atpAfter     int64
		newStock     int64
		newReserved  int64
	)
	for attempt := 0; ; attempt++ {
		err = uc.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, movRepo repository.MovementRepository, _ repository.TransferRepository) error {
			// Bloquea la fila para que dos reservas concurrentes no pasen ambas
			// la verificación de ATP y sobrevendan el stock.
			record, err := invRepo.GetForUpdate(req.TitleID, req.WarehouseID)
			if err != nil {
				return err
			}
			atp := inventory.ATPFormula(record.CurrentStock, record.ReservedStock, record.MinStockLevel, incoming)
			if atp < req.Quantity {
				atpRemaining = atp
				return domain.ErrInsufficientStock
			}
			// Incremento condicional y atómico de reserved_stock.
			if err := invRepo.AdjustReserved(req.TitleID, req.WarehouseID, req.Quantity); err != nil {
				return err
			}
			atpAfter = atp - req.Quantity
			newStock = record.CurrentStock
			newReserved = record.ReservedStock + req.Quantity
			mov := &entity.StockMovement{
				ID:              uuid.New().String(),
				TitleID:         req.TitleID,
				WarehouseID:     req.WarehouseID,
				Type:            entity.MovementTypeRESERVATION,
				Quantity:        -req.Quantity,
				MovementDate:    time.Now(),
				ReferenceNumber: req.OrderID,
				UnitCost:        record.AverageCost,
				CreatedAt:       time.Now(),
			}
			return movRepo.Create(mov)
		})
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrConcurrencyConflict) && attempt < maxReserveRetries {
			uc.log.Warn().Str("title_id", req.TitleID).Str("warehouse_id", req.WarehouseID).
				Int("attempt", attempt+1).Msg("conflicto de concurrencia en reserva, reintentando")
			time.Sleep(backoff(attempt))
			continue
		}
		if errors.Is(err, domain.ErrInsufficientStock) {
			uc.metrics.ReservationOutcome("rejected")
			return &dto.ReserveResult{
				Success:      false,
				ATPRemaining: atpRemaining,
				Message:      fmt.Sprintf("ATP insuficiente: disponible %d, solicitado %d", atpRemaining, req.Quantity),
			}, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			uc.metrics.ReservationOutcome("not_found")
			return failReserve("no existe inventario para el par título+bodega"), nil
		}
		uc.metrics.ReservationOutcome("error")
		return failReserve(fmt.Sprintf("transacción de reserva: %v", err)), nil
	}

	now := time.Now()
	expiration := now.Add(uc.defaultTTL)
	if req.ExpirationDate != nil {
		expiration = *req.ExpirationDate
	}
	priority := req.Priority
	if priority == "" {
		priority = entity.ReservationPriorityLow
	}
	reservation := &entity.Reservation{
		ID:             uuid.New().String(),
		TitleID:        req.TitleID,
		WarehouseID:    req.WarehouseID,
		Quantity:       req.Quantity,
		OrderID:        req.OrderID,
		CustomerID:     req.CustomerID,
		Status:         entity.ReservationStatusActive,
		Priority:       priority,
		CreatedAt:      now,
		ExpirationDate: expiration,
	}
	if err := uc.store.Save(reservation); err != nil {
		// El stock ya quedó comprometido; el barrido no conocerá esta reserva,
		// así que se compensa de inmediato en vez de dejar stock huérfano.
		uc.compensateReserve(ctx, req, reservation.ID)
		return failReserve(fmt.Sprintf("guardar reserva: %v", err)), nil
	}

	uc.metrics.ReservationOutcome("created")
	uc.events.Publish(entity.InventoryUpdateEvent{
		ID:           uuid.New().String(),
		Type:         entity.EventTypeReservationChange,
		TitleID:      req.TitleID,
		WarehouseID:  req.WarehouseID,
		Delta:        req.Quantity,
		NewStock:     newStock,
		NewReserved:  newReserved,
		Reference:    req.OrderID,
		OccurredAt:   now,
		MovementType: entity.MovementTypeRESERVATION,
	})

	return &dto.ReserveResult{
		Success:       true,
		ReservationID: reservation.ID,
		ATPRemaining:  atpAfter,
		Message:       "reserva creada",
	}, nil
}

// ReleaseReservation libera una reserva y devuelve el stock apartado.
// Una reserva ya cancelada o expirada por otro actor es un no-op exitoso,
// no un error (tolera la carrera con el barrido de expiración).
func (uc *ReservationUseCase) ReleaseReservation(ctx context.Context, reservationID, reason string) (*dto.ReleaseResult, error) {
	reservation, err := uc.store.Get(reservationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &dto.ReleaseResult{Success: false, Message: "reserva no encontrada"}, nil
		}
		return &dto.ReleaseResult{Success: false, Message: fmt.Sprintf("consultar reserva: %v", err)}, nil
	}

	// Compare-and-swap: solo un actor gana el derecho de liberar el stock.
	won, err := uc.store.TransitionStatus(reservationID, entity.ReservationStatusActive, entity.ReservationStatusCancelled)
	if err != nil {
		return &dto.ReleaseResult{Success: false, Message: fmt.Sprintf("transición de estado: %v", err)}, nil
	}
	if !won {
		current, err := uc.store.Get(reservationID)
		if err == nil && (current.Status == entity.ReservationStatusCancelled || current.Status == entity.ReservationStatusExpired) {
			return &dto.ReleaseResult{Success: true, Message: "reserva ya liberada"}, nil
		}
		return &dto.ReleaseResult{Success: false, Message: "la reserva no está activa"}, nil
	}

	if err := uc.releaseStock(ctx, reservation, reason); err != nil {
		// Revertir el estado para que el stock comprometido no quede huérfano.
		_, _ = uc.store.TransitionStatus(reservationID, entity.ReservationStatusCancelled, entity.ReservationStatusActive)
		uc.metrics.ReservationOutcome("release_error")
		return &dto.ReleaseResult{Success: false, Message: fmt.Sprintf("transacción de liberación: %v", err)}, nil
	}

	uc.metrics.ReservationOutcome("released")
	return &dto.ReleaseResult{
		Success:          true,
		ReleasedQuantity: reservation.Quantity,
		Message:          "reserva liberada",
	}, nil
}

// ExtendReservation actualiza solo la fecha de expiración de una reserva ACTIVE.
func (uc *ReservationUseCase) ExtendReservation(ctx context.Context, reservationID string, newExpiration time.Time) error {
	_ = ctx
	reservation, err := uc.store.Get(reservationID)
	if err != nil {
		return err
	}
	if !reservation.IsActive() {
		return domain.ErrConflict
	}
	if !newExpiration.After(time.Now()) {
		return domain.ErrInvalidInput
	}
	reservation.ExpirationDate = newExpiration
	return uc.store.Update(reservation)
}

// CleanupExpiredReservations libera toda reserva ACTIVE vencida. Idempotente:
// el compare-and-swap garantiza que cada reserva se libera exactamente una vez
// aunque el barrido corra en paralelo con liberaciones explícitas.
func (uc *ReservationUseCase) CleanupExpiredReservations(ctx context.Context) (*dto.CleanupResult, error) {
	active, err := uc.store.ListActive()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := &dto.CleanupResult{}
	for _, reservation := range active {
		if !reservation.IsExpiredAt(now) {
			continue
		}
		won, err := uc.store.TransitionStatus(reservation.ID, entity.ReservationStatusActive, entity.ReservationStatusExpired)
		if err != nil || !won {
			continue
		}
		if err := uc.releaseStock(ctx, reservation, "expiración de reserva"); err != nil {
			uc.log.Error().Err(err).Str("reservation_id", reservation.ID).
				Msg("liberar stock de reserva expirada")
			_, _ = uc.store.TransitionStatus(reservation.ID, entity.ReservationStatusExpired, entity.ReservationStatusActive)
			continue
		}
		uc.metrics.ReservationOutcome("expired")
		result.Cleaned++
		result.ReleasedQuantity += reservation.Quantity
		result.Details = append(result.Details, dto.CleanupDetail{
			ReservationID: reservation.ID,
			TitleID:       reservation.TitleID,
			WarehouseID:   reservation.WarehouseID,
			Quantity:      reservation.Quantity,
			ExpiredAt:     reservation.ExpirationDate,
		})
	}
	return result, nil
}

// PerformMaintenanceCleanup purga del índice las reservas no-ACTIVE más viejas
// que el corte. No toca datos persistidos de stock.
func (uc *ReservationUseCase) PerformMaintenanceCleanup(ctx context.Context, olderThanDays int) (int, error) {
	_ = ctx
	if olderThanDays <= 0 {
		return 0, domain.ErrInvalidInput
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	return uc.store.PurgeInactiveOlderThan(cutoff)
}

// releaseStock decrementa reserved_stock (acotado en cero) y escribe el
// movimiento compensatorio, todo en una transacción. Publica el evento tras el commit.
func (uc *ReservationUseCase) releaseStock(ctx context.Context, reservation *entity.Reservation, reason string) error {
	var newStock, newReserved int64
	err := uc.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, movRepo repository.MovementRepository, _ repository.TransferRepository) error {
		record, err := invRepo.GetForUpdate(reservation.TitleID, reservation.WarehouseID)
		if err != nil {
			return err
		}
		if err := invRepo.AdjustReserved(reservation.TitleID, reservation.WarehouseID, -reservation.Quantity); err != nil {
			return err
		}
		newStock = record.CurrentStock
		newReserved = record.ReservedStock - reservation.Quantity
		if newReserved < 0 {
			newReserved = 0
		}
		mov := &entity.StockMovement{
			ID:              uuid.New().String(),
			TitleID:         reservation.TitleID,
			WarehouseID:     reservation.WarehouseID,
			Type:            entity.MovementTypeRELEASE,
			Quantity:        reservation.Quantity,
			MovementDate:    time.Now(),
			ReferenceNumber: reservation.OrderID,
			UnitCost:        record.AverageCost,
			CreatedAt:       time.Now(),
		}
		return movRepo.Create(mov)
	})
	if err != nil {
		return err
	}

	uc.events.Publish(entity.InventoryUpdateEvent{
		ID:           uuid.New().String(),
		Type:         entity.EventTypeReservationChange,
		TitleID:      reservation.TitleID,
		WarehouseID:  reservation.WarehouseID,
		Delta:        -reservation.Quantity,
		NewStock:     newStock,
		NewReserved:  newReserved,
		Reference:    reason,
		OccurredAt:   time.Now(),
		MovementType: entity.MovementTypeRELEASE,
	})
	return nil
}

// compensateReserve revierte un incremento de reserva cuyo registro en el
// índice no pudo guardarse.
func (uc *ReservationUseCase) compensateReserve(ctx context.Context, req dto.ReserveRequest, reservationID string) {
	err := uc.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, movRepo repository.MovementRepository, _ repository.TransferRepository) error {
		record, err := invRepo.GetForUpdate(req.TitleID, req.WarehouseID)
		if err != nil {
			return err
		}
		if err := invRepo.AdjustReserved(req.TitleID, req.WarehouseID, -req.Quantity); err != nil {
			return err
		}
		mov := &entity.StockMovement{
			ID:              uuid.New().String(),
			TitleID:         req.TitleID,
			WarehouseID:     req.WarehouseID,
			Type:            entity.MovementTypeRELEASE,
			Quantity:        req.Quantity,
			MovementDate:    time.Now(),
			ReferenceNumber: req.OrderID,
			UnitCost:        record.AverageCost,
			CreatedAt:       time.Now(),
		}
		return movRepo.Create(mov)
	})
	if err != nil {
		uc.log.Error().Err(err).Str("reservation_id", reservationID).
			Msg("compensar reserva sin registro en el índice")
	}
}

func failReserve(msg string) *dto.ReserveResult {
	return &dto.ReserveResult{Success: false, Message: msg}
}

// backoff devuelve una espera creciente con jitter para reintentos de concurrencia.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<attempt) * 10 * time.Millisecond
	return base + time.Duration(rand.Intn(10))*time.Millisecond
}
