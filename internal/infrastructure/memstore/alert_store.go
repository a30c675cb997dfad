package memstore

import (
	"sort"
	"sync"

	"github.com/tu-usuario/editorial-stock/internal/application/monitor"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
)

var _ monitor.AlertStore = (*AlertStore)(nil)

// AlertStore registro de alertas en memoria protegido por mutex.
// Las alertas se conservan indefinidamente para auditoría.
type AlertStore struct {
	mu     sync.RWMutex
	alerts map[string]*entity.DiscrepancyAlert
}

// NewAlertStore construye el registro vacío.
func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[string]*entity.DiscrepancyAlert)}
}

// Save registra una alerta nueva.
func (s *AlertStore) Save(alert *entity.DiscrepancyAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.alerts[alert.ID]; exists {
		return domain.ErrDuplicate
	}
	clone := *alert
	s.alerts[alert.ID] = &clone
	return nil
}

// Get devuelve una copia de la alerta o domain.ErrNotFound.
func (s *AlertStore) Get(id string) (*entity.DiscrepancyAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *alert
	return &clone, nil
}

// Update reemplaza una alerta existente.
func (s *AlertStore) Update(alert *entity.DiscrepancyAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *alert
	s.alerts[alert.ID] = &clone
	return nil
}

// ListActive devuelve las alertas OPEN o ACKNOWLEDGED, más recientes primero.
func (s *AlertStore) ListActive() ([]*entity.DiscrepancyAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*entity.DiscrepancyAlert
	for _, alert := range s.alerts {
		if alert.Status == entity.AlertStatusOpen || alert.Status == entity.AlertStatusAcknowledged {
			clone := *alert
			active = append(active, &clone)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active, nil
}
