package memstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/memstore"
)

func openAlert(id string, createdAt time.Time) *entity.DiscrepancyAlert {
	return &entity.DiscrepancyAlert{
		ID:        id,
		Type:      entity.AlertTypeStockNegative,
		Severity:  entity.AlertSeverityCritical,
		Status:    entity.AlertStatusOpen,
		TitleID:   "ISBN-001",
		CreatedAt: createdAt,
	}
}

func TestAlertStore_SaveGet(t *testing.T) {
	store := memstore.NewAlertStore()
	alert := openAlert("A-1", time.Now())

	require.NoError(t, store.Save(alert))
	assert.ErrorIs(t, store.Save(alert), domain.ErrDuplicate)

	got, err := store.Get("A-1")
	require.NoError(t, err)
	assert.Equal(t, entity.AlertStatusOpen, got.Status)

	_, err = store.Get("no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAlertStore_ListActive(t *testing.T) {
	store := memstore.NewAlertStore()
	now := time.Now()

	require.NoError(t, store.Save(openAlert("vieja", now.Add(-2*time.Hour))))
	require.NoError(t, store.Save(openAlert("nueva", now)))

	acked := openAlert("reconocida", now.Add(-time.Hour))
	acked.Status = entity.AlertStatusAcknowledged
	require.NoError(t, store.Save(acked))

	resolved := openAlert("resuelta", now)
	resolved.Status = entity.AlertStatusResolved
	require.NoError(t, store.Save(resolved))

	active, err := store.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 3, "OPEN y ACKNOWLEDGED cuentan como activas")
	assert.Equal(t, "nueva", active[0].ID, "más recientes primero")
	assert.Equal(t, "reconocida", active[1].ID)
	assert.Equal(t, "vieja", active[2].ID)
}

func TestAlertStore_Update(t *testing.T) {
	store := memstore.NewAlertStore()
	alert := openAlert("A-1", time.Now())
	require.NoError(t, store.Save(alert))

	alert.Status = entity.AlertStatusResolved
	resolvedAt := time.Now()
	alert.ResolvedAt = &resolvedAt
	require.NoError(t, store.Update(alert))

	got, _ := store.Get("A-1")
	assert.Equal(t, entity.AlertStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)

	assert.ErrorIs(t, store.Update(openAlert("no-existe", time.Now())), domain.ErrNotFound)
}
