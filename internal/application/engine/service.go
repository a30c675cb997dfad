package engine

import (
	"context"
	"time"

	"github.com/tu-usuario/editorial-stock/internal/application/dto"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
)

// DiscrepancyMonitor operaciones del monitor de discrepancias que la fachada
// expone a los callers externos. Lo implementa el caso de uso del monitor.
type DiscrepancyMonitor interface {
	PerformComprehensiveDiscrepancyScan(ctx context.Context, warehouseID string) (*dto.ScanResult, error)
	SetThreshold(threshold *entity.StockThreshold) error
	GetActiveAlerts() ([]*entity.DiscrepancyAlert, error)
	ResolveAlert(id, status string) error
}

// Service agrega los casos de uso del motor detrás del contrato de servicio
// que consumen los callers externos. Se construye explícitamente con sus
// dependencias: no hay singleton oculto ni inicialización perezosa.
type Service struct {
	ATP          *ATPUseCase
	Reservations *ReservationUseCase
	Allocations  *AllocationUseCase
	Transfers    *TransferUseCase
	Adjustments  *StockAdjustmentUseCase
	Monitor      DiscrepancyMonitor
}

// NewService construye la fachada del motor.
func NewService(atp *ATPUseCase, reservations *ReservationUseCase, allocations *AllocationUseCase, transfers *TransferUseCase, adjustments *StockAdjustmentUseCase, monitor DiscrepancyMonitor) *Service {
	return &Service{
		ATP:          atp,
		Reservations: reservations,
		Allocations:  allocations,
		Transfers:    transfers,
		Adjustments:  adjustments,
		Monitor:      monitor,
	}
}

// CalculateATP delega en el calculador de disponible-para-comprometer.
func (s *Service) CalculateATP(ctx context.Context, titleID, warehouseID string) (*dto.ATPCalculation, error) {
	return s.ATP.CalculateATP(ctx, titleID, warehouseID)
}

// ReserveInventory delega en el gestor de reservas.
func (s *Service) ReserveInventory(ctx context.Context, req dto.ReserveRequest) (*dto.ReserveResult, error) {
	return s.Reservations.ReserveInventory(ctx, req)
}

// ReleaseReservation delega en el gestor de reservas.
func (s *Service) ReleaseReservation(ctx context.Context, reservationID, reason string) (*dto.ReleaseResult, error) {
	return s.Reservations.ReleaseReservation(ctx, reservationID, reason)
}

// AllocateInventory delega en el motor de asignación.
func (s *Service) AllocateInventory(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationResult, error) {
	return s.Allocations.AllocateInventory(ctx, req)
}

// CleanupExpiredReservations delega en el gestor de reservas.
func (s *Service) CleanupExpiredReservations(ctx context.Context) (*dto.CleanupResult, error) {
	return s.Reservations.CleanupExpiredReservations(ctx)
}

// ExtendReservation delega en el gestor de reservas.
func (s *Service) ExtendReservation(ctx context.Context, reservationID string, newExpiration time.Time) error {
	return s.Reservations.ExtendReservation(ctx, reservationID, newExpiration)
}

// PerformMaintenanceCleanup delega en el gestor de reservas.
func (s *Service) PerformMaintenanceCleanup(ctx context.Context, olderThanDays int) (int, error) {
	return s.Reservations.PerformMaintenanceCleanup(ctx, olderThanDays)
}

// CalculateMultiWarehouseATP delega en el calculador de disponible-para-comprometer.
func (s *Service) CalculateMultiWarehouseATP(ctx context.Context, titleID string) (*dto.MultiWarehouseATP, error) {
	return s.ATP.CalculateMultiWarehouseATP(ctx, titleID)
}

// AdjustStock delega en el caso de uso de ajustes manuales.
func (s *Service) AdjustStock(ctx context.Context, req dto.AdjustmentRequest) (*dto.AdjustmentResult, error) {
	return s.Adjustments.AdjustStock(ctx, req)
}

// PerformComprehensiveDiscrepancyScan delega en el monitor de discrepancias.
func (s *Service) PerformComprehensiveDiscrepancyScan(ctx context.Context, warehouseID string) (*dto.ScanResult, error) {
	return s.Monitor.PerformComprehensiveDiscrepancyScan(ctx, warehouseID)
}

// SetThreshold delega en el monitor de discrepancias.
func (s *Service) SetThreshold(threshold *entity.StockThreshold) error {
	return s.Monitor.SetThreshold(threshold)
}

// GetActiveAlerts delega en el monitor de discrepancias.
func (s *Service) GetActiveAlerts() ([]*entity.DiscrepancyAlert, error) {
	return s.Monitor.GetActiveAlerts()
}

// ResolveAlert delega en el monitor de discrepancias.
func (s *Service) ResolveAlert(id, status string) error {
	return s.Monitor.ResolveAlert(id, status)
}
