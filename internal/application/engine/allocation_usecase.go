package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tu-usuario/editorial-stock/internal/application/dto"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/metrics"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

// Pesos por nivel de cliente para el ranking de bodegas.
var tierWeights = map[string]float64{
	dto.CustomerTierBronze:   1,
	dto.CustomerTierSilver:   2,
	dto.CustomerTierGold:     3,
	dto.CustomerTierPlatinum: 4,
}

const (
	preferenceBonus        = 10
	capacityScoreCap       = 10
	transferResolutionDays = 7
)

// AllocationUseCase reparte una cantidad solicitada entre las bodegas que
// almacenan el título, rankeadas por puntaje, apartando en cada una vía el
// ReservationManager. Cada reserva es transaccional de forma independiente:
// un fallo a mitad de camino NO revierte las líneas ya comprometidas.
type AllocationUseCase struct {
	invRepo       repository.InventoryRepository
	atp           *ATPUseCase
	reservations  *ReservationUseCase
	locator       WarehouseLocator
	maxWarehouses int
	metrics       *metrics.EngineMetrics
	log           *logger.Logger
}

// NewAllocationUseCase construye el caso de uso de asignación.
// locator nil usa distancia cero (las bodegas no penalizan por ubicación).
// maxWarehouses es el tope de bodegas cuando la solicitud no trae uno (0 = sin límite).
func NewAllocationUseCase(
	invRepo repository.InventoryRepository,
	atp *ATPUseCase,
	reservations *ReservationUseCase,
	locator WarehouseLocator,
	maxWarehouses int,
	m *metrics.EngineMetrics,
	log *logger.Logger,
) *AllocationUseCase {
	if locator == nil {
		locator = ZeroDistance{}
	}
	if log == nil {
		log = logger.New(logger.Config{Env: "production", Level: "info"})
	}
	return &AllocationUseCase{
		invRepo:       invRepo,
		atp:           atp,
		reservations:  reservations,
		locator:       locator,
		maxWarehouses: maxWarehouses,
		metrics:       m,
		log:           log,
	}
}

// warehouseCandidate bodega candidata con su puntaje y ATP precalculado.
type warehouseCandidate struct {
	warehouseID   string
	atp           int64
	score         float64
	distanceScore float64
}

// AllocateInventory implementa el recorrido voraz sobre la lista rankeada.
func (uc *AllocationUseCase) AllocateInventory(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationResult, error) {
	result := &dto.AllocationResult{
		TitleID:           req.TitleID,
		RequestedQuantity: req.Quantity,
	}

	// Caso borde explícito: cantidad cero es un éxito trivial sin asignaciones.
	if req.Quantity == 0 {
		result.Success = true
		result.Message = "cantidad cero: nada que asignar"
		return result, nil
	}
	if req.Quantity < 0 || req.TitleID == "" {
		result.UnallocatedQuantity = req.Quantity
		result.Message = "solicitud inválida"
		return result, nil
	}

	candidates, err := uc.rankWarehouses(ctx, req)
	if err != nil {
		uc.metrics.AllocationOutcome("error")
		return uc.failAllocation(result, req, fmt.Sprintf("ranking de bodegas: %v", err)), nil
	}

	// Las bodegas sin ATP reciben su recomendación de reorden antes del
	// recorrido: aunque la cantidad se cubra con las primeras bodegas del
	// ranking, la bodega vacía sigue necesitando reorden.
	for _, candidate := range candidates {
		if candidate.atp <= 0 {
			result.Recommendations = append(result.Recommendations, dto.Recommendation{
				Type:        dto.RecommendationReorder,
				WarehouseID: candidate.warehouseID,
				Message:     fmt.Sprintf("bodega %s sin ATP para el título %s: requiere reorden", candidate.warehouseID, req.TitleID),
			})
		}
	}

	maxWarehouses := req.MaxWarehouses
	if maxWarehouses <= 0 {
		maxWarehouses = uc.maxWarehouses
	}

	remaining := req.Quantity
	for _, candidate := range candidates {
		if remaining == 0 {
			break
		}
		if maxWarehouses > 0 && len(result.Allocations) >= maxWarehouses {
			break
		}
		if candidate.atp <= 0 {
			continue
		}

		take := remaining
		if candidate.atp < take {
			take = candidate.atp
		}
		reserveRes, err := uc.reservations.ReserveInventory(ctx, dto.ReserveRequest{
			TitleID:     req.TitleID,
			WarehouseID: candidate.warehouseID,
			Quantity:    take,
			OrderID:     req.OrderID,
			CustomerID:  req.CustomerID,
		})
		if err != nil {
			uc.metrics.AllocationOutcome("error")
			return uc.failAllocation(result, req, fmt.Sprintf("reserva en bodega %s: %v", candidate.warehouseID, err)), nil
		}
		if !reserveRes.Success {
			// El ATP cambió entre el ranking y la reserva; se continúa con la
			// siguiente bodega sin abortar el recorrido.
			uc.log.Warn().Str("warehouse_id", candidate.warehouseID).
				Str("motivo", reserveRes.Message).Msg("reserva rechazada durante asignación")
			continue
		}

		record, err := uc.invRepo.Get(req.TitleID, candidate.warehouseID)
		if err != nil {
			uc.metrics.AllocationOutcome("error")
			return uc.failAllocation(result, req, fmt.Sprintf("releer inventario de %s: %v", candidate.warehouseID, err)), nil
		}
		result.Allocations = append(result.Allocations, dto.AllocationLine{
			WarehouseID:   candidate.warehouseID,
			Quantity:      take,
			ReservationID: reserveRes.ReservationID,
			UnitCost:      record.AverageCost,
			DistanceScore: candidate.distanceScore,
		})
		remaining -= take
	}

	if remaining > 0 {
		eta := time.Now().AddDate(0, 0, transferResolutionDays)
		result.Recommendations = append(result.Recommendations, dto.Recommendation{
			Type:                    dto.RecommendationTransfer,
			Quantity:                remaining,
			Message:                 fmt.Sprintf("faltan %d unidades del título %s: evaluar traslado entre bodegas", remaining, req.TitleID),
			EstimatedResolutionDate: &eta,
		})
	}

	result.Success = remaining == 0
	result.UnallocatedQuantity = remaining
	if result.Success {
		uc.metrics.AllocationOutcome("allocated")
	} else {
		uc.metrics.AllocationOutcome("partial")
	}
	return result, nil
}

// rankWarehouses puntúa cada bodega que almacena el título y las ordena de
// mayor a menor puntaje. El orden de empate es el orden de escaneo original
// (sort estable) para que el resultado sea determinista.
func (uc *AllocationUseCase) rankWarehouses(ctx context.Context, req dto.AllocationRequest) ([]warehouseCandidate, error) {
	records, err := uc.invRepo.ListByTitle(req.TitleID)
	if err != nil {
		return nil, err
	}

	preferred := make(map[string]bool, len(req.PreferredWarehouses))
	for _, id := range req.PreferredWarehouses {
		preferred[id] = true
	}
	tierWeight := tierWeights[req.CustomerTier] // nivel desconocido pesa 0

	candidates := make([]warehouseCandidate, 0, len(records))
	for _, record := range records {
		calc, err := uc.atp.CalculateATP(ctx, req.TitleID, record.WarehouseID)
		if err != nil {
			return nil, err
		}

		score := tierWeight
		if preferred[record.WarehouseID] {
			score += preferenceBonus
		}
		// Capacidad en bloques de cien unidades, acotada a 10.
		capacity := float64(calc.ATPQuantity / 100)
		if capacity > capacityScoreCap {
			capacity = capacityScoreCap
		}
		score += capacity
		distance := uc.locator.DistanceScore(record.WarehouseID)
		score -= distance

		candidates = append(candidates, warehouseCandidate{
			warehouseID:   record.WarehouseID,
			atp:           calc.ATPQuantity,
			score:         score,
			distanceScore: distance,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates, nil
}

// failAllocation construye el resultado de fallo: la cantidad original completa
// como no asignada y una recomendación de reorden describiendo el error.
// Las líneas ya comprometidas se conservan para que el caller las inspeccione.
func (uc *AllocationUseCase) failAllocation(result *dto.AllocationResult, req dto.AllocationRequest, msg string) *dto.AllocationResult {
	result.Success = false
	result.UnallocatedQuantity = req.Quantity
	result.Message = msg
	result.Recommendations = append(result.Recommendations, dto.Recommendation{
		Type:    dto.RecommendationReorder,
		Message: msg,
	})
	return result
}

