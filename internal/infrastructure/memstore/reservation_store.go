package memstore

import (
	"sync"
	"time"

	"github.com/tu-usuario/editorial-stock/internal/application/engine"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
)

var _ engine.ReservationStore = (*ReservationStore)(nil)

// ReservationStore índice de reservas en memoria protegido por mutex.
// Apto para despliegues de un solo proceso; la interfaz permite sustituirlo
// por un almacén distribuido sin tocar el código del motor.
type ReservationStore struct {
	mu           sync.RWMutex
	reservations map[string]*entity.Reservation
}

// NewReservationStore construye el almacén vacío.
func NewReservationStore() *ReservationStore {
	return &ReservationStore{reservations: make(map[string]*entity.Reservation)}
}

// Save registra una reserva nueva. Duplicado de ID es domain.ErrDuplicate.
func (s *ReservationStore) Save(r *entity.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reservations[r.ID]; exists {
		return domain.ErrDuplicate
	}
	clone := *r
	s.reservations[r.ID] = &clone
	return nil
}

// Get devuelve una copia de la reserva o domain.ErrNotFound.
func (s *ReservationStore) Get(id string) (*entity.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

// Update reemplaza la reserva existente.
func (s *ReservationStore) Update(r *entity.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[r.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *r
	s.reservations[r.ID] = &clone
	return nil
}

// ListActive devuelve copias de todas las reservas en estado ACTIVE.
func (s *ReservationStore) ListActive() ([]*entity.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*entity.Reservation
	for _, r := range s.reservations {
		if r.Status == entity.ReservationStatusActive {
			clone := *r
			active = append(active, &clone)
		}
	}
	return active, nil
}

// TransitionStatus compare-and-swap sobre el estado de la reserva.
func (s *ReservationStore) TransitionStatus(id, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

// PurgeInactiveOlderThan elimina reservas no-ACTIVE creadas antes del corte.
func (s *ReservationStore) PurgeInactiveOlderThan(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, r := range s.reservations {
		if r.Status != entity.ReservationStatusActive && r.CreatedAt.Before(cutoff) {
			delete(s.reservations, id)
			purged++
		}
	}
	return purged, nil
}
