package memstore_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/memstore"
)

func activeReservation(id string) *entity.Reservation {
	return &entity.Reservation{
		ID:             id,
		TitleID:        "ISBN-001",
		WarehouseID:    "MAD-01",
		Quantity:       10,
		Status:         entity.ReservationStatusActive,
		CreatedAt:      time.Now(),
		ExpirationDate: time.Now().Add(24 * time.Hour),
	}
}

func TestReservationStore_SaveGetUpdate(t *testing.T) {
	store := memstore.NewReservationStore()

	r := activeReservation("R-1")
	require.NoError(t, store.Save(r))
	assert.ErrorIs(t, store.Save(r), domain.ErrDuplicate, "ID duplicado")

	got, err := store.Get("R-1")
	require.NoError(t, err)
	assert.Equal(t, r.Quantity, got.Quantity)

	// El almacén guarda copias: mutar lo devuelto no toca el estado interno.
	got.Quantity = 999
	again, _ := store.Get("R-1")
	assert.Equal(t, int64(10), again.Quantity, "el almacén debe ser inmune a mutaciones externas")

	got.Quantity = 25
	require.NoError(t, store.Update(got))
	updated, _ := store.Get("R-1")
	assert.Equal(t, int64(25), updated.Quantity)

	_, err = store.Get("no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Update(activeReservation("no-existe")), domain.ErrNotFound)
}

func TestReservationStore_TransitionStatusCAS(t *testing.T) {
	store := memstore.NewReservationStore()
	require.NoError(t, store.Save(activeReservation("R-1")))

	won, err := store.TransitionStatus("R-1", entity.ReservationStatusActive, entity.ReservationStatusExpired)
	require.NoError(t, err)
	assert.True(t, won, "el primer actor gana la transición")

	won, err = store.TransitionStatus("R-1", entity.ReservationStatusActive, entity.ReservationStatusCancelled)
	require.NoError(t, err)
	assert.False(t, won, "el segundo actor pierde sin error")

	got, _ := store.Get("R-1")
	assert.Equal(t, entity.ReservationStatusExpired, got.Status)

	_, err = store.TransitionStatus("no-existe", entity.ReservationStatusActive, entity.ReservationStatusExpired)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Bajo competencia, exactamente un actor gana cada transición.
func TestReservationStore_CASConcurrente(t *testing.T) {
	store := memstore.NewReservationStore()
	require.NoError(t, store.Save(activeReservation("R-1")))

	var winners int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.TransitionStatus("R-1", entity.ReservationStatusActive, entity.ReservationStatusCancelled)
			if err == nil && won {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners, "exactamente un ganador del compare-and-swap")
}

func TestReservationStore_ListActive(t *testing.T) {
	store := memstore.NewReservationStore()
	require.NoError(t, store.Save(activeReservation("R-1")))
	require.NoError(t, store.Save(activeReservation("R-2")))

	cancelled := activeReservation("R-3")
	cancelled.Status = entity.ReservationStatusCancelled
	require.NoError(t, store.Save(cancelled))

	active, err := store.ListActive()
	require.NoError(t, err)
	assert.Len(t, active, 2, "solo las ACTIVE")
}

func TestReservationStore_PurgeInactiveOlderThan(t *testing.T) {
	store := memstore.NewReservationStore()

	oldCancelled := activeReservation("vieja")
	oldCancelled.Status = entity.ReservationStatusCancelled
	oldCancelled.CreatedAt = time.Now().AddDate(0, 0, -60)
	require.NoError(t, store.Save(oldCancelled))

	oldActive := activeReservation("vieja-activa")
	oldActive.CreatedAt = time.Now().AddDate(0, 0, -60)
	require.NoError(t, store.Save(oldActive))

	recentCancelled := activeReservation("reciente")
	recentCancelled.Status = entity.ReservationStatusExpired
	require.NoError(t, store.Save(recentCancelled))

	purged, err := store.PurgeInactiveOlderThan(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, purged, "solo la cancelada vieja")

	_, err = store.Get("vieja")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Get("vieja-activa")
	assert.NoError(t, err, "una ACTIVE nunca se purga")
	_, err = store.Get("reciente")
	assert.NoError(t, err, "una inactiva reciente no se purga")
}
