package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/editorial-stock/internal/application/dto"
	"github.com/tu-usuario/editorial-stock/internal/application/engine"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

func newAdjuster(f *engineFixture) *engine.StockAdjustmentUseCase {
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	return engine.NewStockAdjustmentUseCase(f.tx, f.events, log)
}

// Caso 1: un ajuste negativo descuenta stock, deja su entrada ADJUSTMENT en el
// libro y publica un evento STOCK_CHANGE con el stock resultante.
func TestAdjustStock_AplicaDelta(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "WH-A", 100, 0, 0)
	uc := newAdjuster(f)

	res, err := uc.AdjustStock(context.Background(), dto.AdjustmentRequest{
		TitleID:     "ISBN-001",
		WarehouseID: "WH-A",
		Quantity:    -30,
		Reason:      "merma por daño en bodega",
		Reference:   "ADJ-001",
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, int64(70), res.NewStock)

	record, err := f.inv.Get("ISBN-001", "WH-A")
	require.NoError(t, err)
	assert.Equal(t, int64(70), record.CurrentStock)

	movements := f.mov.byType(entity.MovementTypeADJUSTMENT)
	require.Len(t, movements, 1)
	assert.Equal(t, int64(-30), movements[0].Quantity)
	assert.Equal(t, "ADJ-001", movements[0].ReferenceNumber)

	events := f.events.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventTypeStockChange, events[0].Type)
	assert.Equal(t, int64(-30), events[0].Delta)
	assert.Equal(t, int64(70), events[0].NewStock)
	assert.Equal(t, entity.MovementTypeADJUSTMENT, events[0].MovementType)
}

// Caso 2: validación de la solicitud: título, cantidad distinta de cero y motivo.
func TestAdjustStock_ValidaSolicitud(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "WH-A", 100, 0, 0)
	uc := newAdjuster(f)

	cases := []dto.AdjustmentRequest{
		{WarehouseID: "WH-A", Quantity: 5, Reason: "conteo"},         // sin título
		{TitleID: "ISBN-001", WarehouseID: "WH-A", Reason: "conteo"}, // cantidad cero
		{TitleID: "ISBN-001", WarehouseID: "WH-A", Quantity: 5},      // sin motivo
	}
	for _, req := range cases {
		res, err := uc.AdjustStock(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, res.Success, "solicitud inválida debe rechazarse: %+v", req)
	}

	record, _ := f.inv.Get("ISBN-001", "WH-A")
	assert.Equal(t, int64(100), record.CurrentStock, "el stock no debe cambiar")
	assert.Empty(t, f.events.snapshot())
}

// Caso 3: inventario inexistente: fallo estructurado, sin evento.
func TestAdjustStock_InventarioInexistente(t *testing.T) {
	f := newEngineFixture(t)
	uc := newAdjuster(f)

	res, err := uc.AdjustStock(context.Background(), dto.AdjustmentRequest{
		TitleID:     "ISBN-999",
		WarehouseID: "WH-A",
		Quantity:    10,
		Reason:      "conteo físico",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "no encontrado")
	assert.Empty(t, f.events.snapshot())
}

// Caso 4: el ajuste puede dejar stock negativo; el resultado lo refleja para
// que el monitor lo detecte al consumir el evento.
func TestAdjustStock_PermiteNegativo(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "WH-A", 10, 0, 0)
	uc := newAdjuster(f)

	res, err := uc.AdjustStock(context.Background(), dto.AdjustmentRequest{
		TitleID:     "ISBN-001",
		WarehouseID: "WH-A",
		Quantity:    -25,
		Reason:      "corrección tras conteo físico",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, int64(-15), res.NewStock)

	events := f.events.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, int64(-15), events[0].NewStock)
}
