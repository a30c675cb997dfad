package engine

import (
	"context"
	"time"

	"github.com/tu-usuario/editorial-stock/internal/application/dto"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/inventory"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
)

// ATPUseCase calcula el disponible-para-comprometer por bodega y agregado.
// Lectura pura: sin efectos secundarios, seguro para llamadas concurrentes.
type ATPUseCase struct {
	invRepo  repository.InventoryRepository
	incoming IncomingStockProvider
}

// NewATPUseCase construye el caso de uso. incoming nil usa el proveedor cero.
func NewATPUseCase(invRepo repository.InventoryRepository, incoming IncomingStockProvider) *ATPUseCase {
	if incoming == nil {
		incoming = StaticIncomingStock{}
	}
	return &ATPUseCase{invRepo: invRepo, incoming: incoming}
}

// CalculateATP devuelve el ATP de un par título+bodega.
// Devuelve domain.ErrNotFound si no existe fila de inventario para el par.
func (uc *ATPUseCase) CalculateATP(ctx context.Context, titleID, warehouseID string) (*dto.ATPCalculation, error) {
	record, err := uc.invRepo.Get(titleID, warehouseID)
	if err != nil {
		return nil, err
	}

	incoming, err := uc.incoming.IncomingStock(ctx, titleID, warehouseID)
	if err != nil {
		return nil, err
	}

	atp := inventory.ATPFormula(record.CurrentStock, record.ReservedStock, record.MinStockLevel, incoming)
	return &dto.ATPCalculation{
		TitleID:       titleID,
		WarehouseID:   warehouseID,
		CurrentStock:  record.CurrentStock,
		ReservedStock: record.ReservedStock,
		MinStockLevel: record.MinStockLevel,
		IncomingStock: incoming,
		ATPQuantity:   atp,
		EffectiveDate: time.Now(),
	}, nil
}

// CalculateMultiWarehouseATP suma el ATP por bodega y devuelve el desglose más el total.
// Devuelve domain.ErrNotFound si el título no tiene inventario en ninguna bodega.
func (uc *ATPUseCase) CalculateMultiWarehouseATP(ctx context.Context, titleID string) (*dto.MultiWarehouseATP, error) {
	records, err := uc.invRepo.ListByTitle(titleID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}

	result := &dto.MultiWarehouseATP{TitleID: titleID}
	for _, record := range records {
		calc, err := uc.CalculateATP(ctx, titleID, record.WarehouseID)
		if err != nil {
			return nil, err
		}
		result.Warehouses = append(result.Warehouses, calc)
		result.TotalATP += calc.ATPQuantity
	}
	return result, nil
}
