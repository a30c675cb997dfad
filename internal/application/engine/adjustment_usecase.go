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

// StockAdjustmentUseCase aplica correcciones manuales de stock: conteo físico,
// merma, daño. El ajuste puede dejar el stock en negativo; esa situación la
// detecta el monitor de discrepancias al consumir el evento STOCK_CHANGE.
type StockAdjustmentUseCase struct {
	txRunner TxRunner
	events   EventPublisher
	log      *logger.Logger
}

// NewStockAdjustmentUseCase construye el caso de uso de ajustes.
func NewStockAdjustmentUseCase(txRunner TxRunner, events EventPublisher, log *logger.Logger) *StockAdjustmentUseCase {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logger.New(logger.Config{Env: "production", Level: "info"})
	}
	return &StockAdjustmentUseCase{txRunner: txRunner, events: events, log: log}
}

// AdjustStock aplica el delta firmado sobre CurrentStock y registra la entrada
// ADJUSTMENT del libro en la misma transacción. El evento se publica después
// del commit.
func (uc *StockAdjustmentUseCase) AdjustStock(ctx context.Context, req dto.AdjustmentRequest) (*dto.AdjustmentResult, error) {
	if req.TitleID == "" || req.WarehouseID == "" {
		return failAdjustment("solicitud inválida: título y bodega son obligatorios"), nil
	}
	if req.Quantity == 0 {
		return failAdjustment("solicitud inválida: la cantidad no puede ser cero"), nil
	}
	if req.Reason == "" {
		return failAdjustment("solicitud inválida: el motivo es obligatorio"), nil
	}

	now := time.Now()
	var newStock int64
	err := uc.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, movRepo repository.MovementRepository, _ repository.TransferRepository) error {
		record, err := invRepo.GetForUpdate(req.TitleID, req.WarehouseID)
		if err != nil {
			return err
		}
		if err := invRepo.AdjustStock(req.TitleID, req.WarehouseID, req.Quantity); err != nil {
			return err
		}
		newStock = record.CurrentStock + req.Quantity

		return movRepo.Create(&entity.StockMovement{
			ID:              uuid.New().String(),
			TitleID:         req.TitleID,
			WarehouseID:     req.WarehouseID,
			Type:            entity.MovementTypeADJUSTMENT,
			Quantity:        req.Quantity,
			MovementDate:    now,
			ReferenceNumber: req.Reference,
			UnitCost:        record.AverageCost,
			CreatedAt:       now,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failAdjustment("inventario no encontrado"), nil
		}
		return failAdjustment(fmt.Sprintf("aplicar ajuste: %v", err)), nil
	}

	uc.events.Publish(entity.InventoryUpdateEvent{
		ID:           uuid.New().String(),
		Type:         entity.EventTypeStockChange,
		TitleID:      req.TitleID,
		WarehouseID:  req.WarehouseID,
		Delta:        req.Quantity,
		NewStock:     newStock,
		Reference:    req.Reference,
		OccurredAt:   now,
		MovementType: entity.MovementTypeADJUSTMENT,
	})

	uc.log.Info().Str("title_id", req.TitleID).Str("warehouse_id", req.WarehouseID).
		Int64("delta", req.Quantity).Int64("new_stock", newStock).
		Str("motivo", req.Reason).Msg("ajuste de stock aplicado")

	return &dto.AdjustmentResult{Success: true, NewStock: newStock, Message: "ajuste aplicado"}, nil
}

func failAdjustment(msg string) *dto.AdjustmentResult {
	return &dto.AdjustmentResult{Success: false, Message: msg}
}
