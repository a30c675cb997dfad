package monitor

import "github.com/tu-usuario/editorial-stock/internal/domain/entity"

// AlertStore registro de alertas de discrepancia (id -> alerta).
// Las alertas nunca se purgan automáticamente; se conservan para auditoría.
// Las implementaciones deben ser seguras para acceso concurrente.
type AlertStore interface {
	Save(alert *entity.DiscrepancyAlert) error
	Get(id string) (*entity.DiscrepancyAlert, error)
	Update(alert *entity.DiscrepancyAlert) error
	// ListActive devuelve alertas en estado OPEN o ACKNOWLEDGED.
	ListActive() ([]*entity.DiscrepancyAlert, error)
}
