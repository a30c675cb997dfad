package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/editorial-stock/internal/application/dto"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

// TransferUseCase gestiona órdenes de traslado entre bodegas con máquina de
// estados explícita (PENDING_APPROVAL → APPROVED → IN_TRANSIT → COMPLETED).
// El débito en origen y el crédito en destino se escriben en una sola
// transacción al completar, preservando la conservación global de stock.
type TransferUseCase struct {
	txRunner      TxRunner
	transferRepo  repository.TransferRepository
	warehouseRepo repository.WarehouseRepository
	events        EventPublisher
	log           *logger.Logger
}

// NewTransferUseCase construye el caso de uso de traslados. warehouseRepo nil
// omite la validación de existencia de bodegas al crear la orden.
func NewTransferUseCase(
	txRunner TxRunner,
	transferRepo repository.TransferRepository,
	warehouseRepo repository.WarehouseRepository,
	events EventPublisher,
	log *logger.Logger,
) *TransferUseCase {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logger.New(logger.Config{Env: "production", Level: "info"})
	}
	return &TransferUseCase{
		txRunner:      txRunner,
		transferRepo:  transferRepo,
		warehouseRepo: warehouseRepo,
		events:        events,
		log:           log,
	}
}

// CreateTransfer registra una orden de traslado en PENDING_APPROVAL.
func (uc *TransferUseCase) CreateTransfer(ctx context.Context, req dto.TransferRequest) (*dto.TransferResult, error) {
	_ = ctx
	if req.TitleID == "" || req.SourceWarehouseID == "" || req.DestinationWarehouseID == "" {
		return failTransfer("solicitud inválida: título y bodegas son obligatorios"), nil
	}
	if req.SourceWarehouseID == req.DestinationWarehouseID {
		return failTransfer("solicitud inválida: origen y destino deben ser distintos"), nil
	}
	if req.Quantity <= 0 {
		return failTransfer("solicitud inválida: la cantidad debe ser positiva"), nil
	}
	if uc.warehouseRepo != nil {
		for _, warehouseID := range []string{req.SourceWarehouseID, req.DestinationWarehouseID} {
			warehouse, err := uc.warehouseRepo.GetByID(warehouseID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return failTransfer(fmt.Sprintf("bodega %s no existe", warehouseID)), nil
				}
				return nil, fmt.Errorf("validar bodega %s: %w", warehouseID, err)
			}
			if !warehouse.Active {
				return failTransfer(fmt.Sprintf("bodega %s está inactiva", warehouseID)), nil
			}
		}
	}

	order := &entity.TransferOrder{
		ID:                     uuid.New().String(),
		TitleID:                req.TitleID,
		SourceWarehouseID:      req.SourceWarehouseID,
		DestinationWarehouseID: req.DestinationWarehouseID,
		Quantity:               req.Quantity,
		Status:                 entity.TransferStatusPendingApproval,
		RequestedBy:            req.RequestedBy,
		ReferenceNumber:        req.ReferenceNumber,
		CreatedAt:              time.Now(),
	}
	if err := uc.transferRepo.Create(order); err != nil {
		return failTransfer(fmt.Sprintf("crear traslado: %v", err)), nil
	}
	return &dto.TransferResult{
		Success:    true,
		TransferID: order.ID,
		Status:     order.Status,
		Message:    "traslado creado, pendiente de aprobación",
	}, nil
}

// ApproveTransfer pasa la orden a APPROVED.
func (uc *TransferUseCase) ApproveTransfer(ctx context.Context, transferID string) (*dto.TransferResult, error) {
	return uc.transition(ctx, transferID, entity.TransferStatusApproved, func(order *entity.TransferOrder, now time.Time) {
		order.ApprovedAt = &now
	})
}

// RejectTransfer pasa la orden a REJECTED.
func (uc *TransferUseCase) RejectTransfer(ctx context.Context, transferID string) (*dto.TransferResult, error) {
	return uc.transition(ctx, transferID, entity.TransferStatusRejected, nil)
}

// CancelTransfer pasa la orden a CANCELLED (solo antes del despacho).
func (uc *TransferUseCase) CancelTransfer(ctx context.Context, transferID string) (*dto.TransferResult, error) {
	return uc.transition(ctx, transferID, entity.TransferStatusCancelled, nil)
}

// DispatchTransfer pasa la orden a IN_TRANSIT tras verificar stock disponible en origen.
func (uc *TransferUseCase) DispatchTransfer(ctx context.Context, transferID string) (*dto.TransferResult, error) {
	order, err := uc.transferRepo.GetByID(transferID)
	if err != nil {
		return uc.transferError(err), nil
	}
	if !order.CanTransition(entity.TransferStatusInTransit) {
		return failTransfer(fmt.Sprintf("transición inválida: %s → IN_TRANSIT", order.Status)), nil
	}

	// Verificación bajo bloqueo de fila: el despacho no debe prometer stock
	// que ya está comprometido en reservas.
	err = uc.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, _ repository.MovementRepository, _ repository.TransferRepository) error {
		record, err := invRepo.GetForUpdate(order.TitleID, order.SourceWarehouseID)
		if err != nil {
			return err
		}
		if record.AvailableStock() < order.Quantity {
			return domain.ErrInsufficientStock
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return failTransfer("stock disponible insuficiente en la bodega origen"), nil
		}
		return uc.transferError(err), nil
	}

	now := time.Now()
	order.Status = entity.TransferStatusInTransit
	order.DispatchedAt = &now
	if err := uc.transferRepo.Update(order); err != nil {
		return uc.transferError(err), nil
	}
	return &dto.TransferResult{Success: true, TransferID: order.ID, Status: order.Status, Message: "traslado despachado"}, nil
}

// CompleteTransfer aplica el traslado: débito en origen y crédito en destino
// más las dos entradas del libro, todo en una sola transacción.
func (uc *TransferUseCase) CompleteTransfer(ctx context.Context, transferID string) (*dto.TransferResult, error) {
	order, err := uc.transferRepo.GetByID(transferID)
	if err != nil {
		return uc.transferError(err), nil
	}
	if !order.CanTransition(entity.TransferStatusCompleted) {
		return failTransfer(fmt.Sprintf("transición inválida: %s → COMPLETED", order.Status)), nil
	}

	now := time.Now()
	var sourceStock, destStock int64
	err = uc.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, movRepo repository.MovementRepository, transferRepo repository.TransferRepository) error {
		source, err := invRepo.GetForUpdate(order.TitleID, order.SourceWarehouseID)
		if err != nil {
			return err
		}
		if source.CurrentStock < order.Quantity {
			return domain.ErrInsufficientStock
		}

		// El cambio de estado viaja en la misma transacción que los
		// movimientos: si no se puede persistir COMPLETED, el stock no se
		// mueve y un reintento parte de una orden aún IN_TRANSIT.
		order.Status = entity.TransferStatusCompleted
		order.CompletedAt = &now
		if err := transferRepo.Update(order); err != nil {
			return err
		}

		dest, err := invRepo.GetForUpdate(order.TitleID, order.DestinationWarehouseID)
		if errors.Is(err, domain.ErrNotFound) {
			// Primera recepción del título en la bodega destino.
			dest = &entity.InventoryRecord{
				ID:          uuid.New().String(),
				TitleID:     order.TitleID,
				WarehouseID: order.DestinationWarehouseID,
				AverageCost: source.AverageCost,
			}
			if err := invRepo.Upsert(dest); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := invRepo.AdjustStock(order.TitleID, order.SourceWarehouseID, -order.Quantity); err != nil {
			return err
		}
		if err := invRepo.AdjustStock(order.TitleID, order.DestinationWarehouseID, order.Quantity); err != nil {
			return err
		}
		sourceStock = source.CurrentStock - order.Quantity
		destStock = dest.CurrentStock + order.Quantity

		out := &entity.StockMovement{
			ID:                     uuid.New().String(),
			TitleID:                order.TitleID,
			WarehouseID:            order.SourceWarehouseID,
			Type:                   entity.MovementTypeTRANSFEROut,
			Quantity:               -order.Quantity,
			MovementDate:           now,
			ReferenceNumber:        order.ReferenceNumber,
			SourceWarehouseID:      order.SourceWarehouseID,
			DestinationWarehouseID: order.DestinationWarehouseID,
			UnitCost:               source.AverageCost,
			CreatedAt:              now,
		}
		if err := movRepo.Create(out); err != nil {
			return err
		}
		in := &entity.StockMovement{
			ID:                     uuid.New().String(),
			TitleID:                order.TitleID,
			WarehouseID:            order.DestinationWarehouseID,
			Type:                   entity.MovementTypeTRANSFERIn,
			Quantity:               order.Quantity,
			MovementDate:           now,
			ReferenceNumber:        order.ReferenceNumber,
			SourceWarehouseID:      order.SourceWarehouseID,
			DestinationWarehouseID: order.DestinationWarehouseID,
			UnitCost:               source.AverageCost,
			CreatedAt:              now,
		}
		return movRepo.Create(in)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return failTransfer("stock insuficiente en la bodega origen al completar"), nil
		}
		return uc.transferError(err), nil
	}

	uc.events.Publish(entity.InventoryUpdateEvent{
		ID:           uuid.New().String(),
		Type:         entity.EventTypeTransferChange,
		TitleID:      order.TitleID,
		WarehouseID:  order.SourceWarehouseID,
		Delta:        -order.Quantity,
		NewStock:     sourceStock,
		Reference:    order.ReferenceNumber,
		OccurredAt:   now,
		MovementType: entity.MovementTypeTRANSFEROut,
	})
	uc.events.Publish(entity.InventoryUpdateEvent{
		ID:           uuid.New().String(),
		Type:         entity.EventTypeTransferChange,
		TitleID:      order.TitleID,
		WarehouseID:  order.DestinationWarehouseID,
		Delta:        order.Quantity,
		NewStock:     destStock,
		Reference:    order.ReferenceNumber,
		OccurredAt:   now,
		MovementType: entity.MovementTypeTRANSFERIn,
	})

	return &dto.TransferResult{Success: true, TransferID: order.ID, Status: order.Status, Message: "traslado completado"}, nil
}

// transition aplica una transición simple de la máquina de estados.
func (uc *TransferUseCase) transition(ctx context.Context, transferID, to string, stamp func(*entity.TransferOrder, time.Time)) (*dto.TransferResult, error) {
	_ = ctx
	order, err := uc.transferRepo.GetByID(transferID)
	if err != nil {
		return uc.transferError(err), nil
	}
	if !order.CanTransition(to) {
		return failTransfer(fmt.Sprintf("transición inválida: %s → %s", order.Status, to)), nil
	}
	now := time.Now()
	order.Status = to
	if stamp != nil {
		stamp(order, now)
	}
	if err := uc.transferRepo.Update(order); err != nil {
		return uc.transferError(err), nil
	}
	return &dto.TransferResult{Success: true, TransferID: order.ID, Status: order.Status, Message: "estado actualizado"}, nil
}

func (uc *TransferUseCase) transferError(err error) *dto.TransferResult {
	if errors.Is(err, domain.ErrNotFound) {
		return failTransfer("traslado no encontrado")
	}
	return failTransfer(fmt.Sprintf("repositorio de traslados: %v", err))
}

func failTransfer(msg string) *dto.TransferResult {
	return &dto.TransferResult{Success: false, Message: msg}
}
