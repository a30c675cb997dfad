package engine_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/editorial-stock/internal/application/dto"
	"github.com/tu-usuario/editorial-stock/internal/application/engine"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/memstore"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes compartidos por los tests del motor
// ──────────────────────────────────────────────────────────────────────────────

func invKey(titleID, warehouseID string) string {
	return titleID + "|" + warehouseID
}

func cloneRecord(r *entity.InventoryRecord) *entity.InventoryRecord {
	c := *r
	return &c
}

// fakeInventoryRepo repositorio de inventario en memoria. Conserva el orden
// de inserción en los listados para que los tests sean deterministas.
type fakeInventoryRepo struct {
	mu      sync.Mutex
	order   []string
	records map[string]*entity.InventoryRecord
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{records: make(map[string]*entity.InventoryRecord)}
}

func (f *fakeInventoryRepo) seed(r *entity.InventoryRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := invKey(r.TitleID, r.WarehouseID)
	if _, ok := f.records[key]; !ok {
		f.order = append(f.order, key)
	}
	f.records[key] = cloneRecord(r)
}

func (f *fakeInventoryRepo) Get(titleID, warehouseID string) (*entity.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[invKey(titleID, warehouseID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRecord(r), nil
}

func (f *fakeInventoryRepo) GetForUpdate(titleID, warehouseID string) (*entity.InventoryRecord, error) {
	return f.Get(titleID, warehouseID)
}

func (f *fakeInventoryRepo) ListByTitle(titleID string) ([]*entity.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.InventoryRecord
	for _, key := range f.order {
		if r := f.records[key]; r.TitleID == titleID {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) ListAll(warehouseID string) ([]*entity.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.InventoryRecord
	for _, key := range f.order {
		r := f.records[key]
		if warehouseID != "" && r.WarehouseID != warehouseID {
			continue
		}
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

func (f *fakeInventoryRepo) Upsert(record *entity.InventoryRecord) error {
	f.seed(record)
	return nil
}

func (f *fakeInventoryRepo) AdjustReserved(titleID, warehouseID string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[invKey(titleID, warehouseID)]
	if !ok {
		return domain.ErrConcurrencyConflict
	}
	if delta > 0 && r.ReservedStock+delta > r.CurrentStock {
		return domain.ErrConcurrencyConflict
	}
	r.ReservedStock += delta
	if r.ReservedStock < 0 {
		r.ReservedStock = 0
	}
	r.UpdatedAt = time.Now()
	return nil
}

func (f *fakeInventoryRepo) AdjustStock(titleID, warehouseID string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[invKey(titleID, warehouseID)]
	if !ok {
		return domain.ErrNotFound
	}
	r.CurrentStock += delta
	r.LastMovementDate = time.Now()
	r.UpdatedAt = time.Now()
	return nil
}

// fakeMovementRepo libro de movimientos en memoria (append-only).
type fakeMovementRepo struct {
	mu        sync.Mutex
	movements []*entity.StockMovement
}

func (f *fakeMovementRepo) Create(m *entity.StockMovement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *m
	f.movements = append(f.movements, &c)
	return nil
}

func (f *fakeMovementRepo) List(filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.StockMovement
	// Del más reciente al más antiguo, como el repositorio real.
	for i := len(f.movements) - 1; i >= 0; i-- {
		m := f.movements[i]
		if filter.TitleID != "" && m.TitleID != filter.TitleID {
			continue
		}
		if filter.WarehouseID != "" && m.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.From != nil && m.MovementDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.MovementDate.After(*filter.To) {
			continue
		}
		c := *m
		out = append(out, &c)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMovementRepo) SumQuantities(titleID, warehouseID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, m := range f.movements {
		if m.TitleID == titleID && m.WarehouseID == warehouseID {
			sum += m.Quantity
		}
	}
	return sum, nil
}

func (f *fakeMovementRepo) byType(movType string) []*entity.StockMovement {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range f.movements {
		if m.Type == movType {
			c := *m
			out = append(out, &c)
		}
	}
	return out
}

// fakeTxRunner serializa las transacciones con un mutex, emulando el bloqueo
// de fila de SELECT ... FOR UPDATE. transfers puede ser nil en los tests que
// no tocan órdenes de traslado.
type fakeTxRunner struct {
	mu        sync.Mutex
	inv       *fakeInventoryRepo
	mov       *fakeMovementRepo
	transfers repository.TransferRepository
}

func (f *fakeTxRunner) Run(_ context.Context, fn func(
	invRepo repository.InventoryRepository,
	movRepo repository.MovementRepository,
	transferRepo repository.TransferRepository,
) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f.inv, f.mov, f.transfers)
}

// capturePublisher acumula los eventos publicados para inspección.
type capturePublisher struct {
	mu     sync.Mutex
	events []entity.InventoryUpdateEvent
}

func (c *capturePublisher) Publish(evt entity.InventoryUpdateEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *capturePublisher) snapshot() []entity.InventoryUpdateEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entity.InventoryUpdateEvent, len(c.events))
	copy(out, c.events)
	return out
}

// engineFixture agrupa las piezas comunes de los tests del motor.
type engineFixture struct {
	inv      *fakeInventoryRepo
	mov      *fakeMovementRepo
	tx       *fakeTxRunner
	store    *memstore.ReservationStore
	events   *capturePublisher
	reserves *engine.ReservationUseCase
	atp      *engine.ATPUseCase
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	inv := newFakeInventoryRepo()
	mov := &fakeMovementRepo{}
	tx := &fakeTxRunner{inv: inv, mov: mov}
	store := memstore.NewReservationStore()
	events := &capturePublisher{}
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	reserves := engine.NewReservationUseCase(tx, nil, store, events, nil, log, 0)
	return &engineFixture{
		inv:      inv,
		mov:      mov,
		tx:       tx,
		store:    store,
		events:   events,
		reserves: reserves,
		atp:      engine.NewATPUseCase(inv, nil),
	}
}

func seedRecord(f *engineFixture, titleID, warehouseID string, current, reserved, minLevel int64) {
	f.inv.seed(&entity.InventoryRecord{
		ID:            titleID + "-" + warehouseID,
		TitleID:       titleID,
		WarehouseID:   warehouseID,
		CurrentStock:  current,
		ReservedStock: reserved,
		MinStockLevel: minLevel,
		AverageCost:   decimal.NewFromFloat(12.50),
		UpdatedAt:     time.Now(),
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de reserva
// ──────────────────────────────────────────────────────────────────────────────

// Caso 1: reserva exitosa descuenta ATP, escribe el movimiento y publica el evento.
func TestReserveInventory_CreaReservaYDescuentaATP(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 20, 10)

	res, err := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
		TitleID:     "ISBN-001",
		WarehouseID: "MAD-01",
		Quantity:    30,
		OrderID:     "ORD-100",
		CustomerID:  "CUST-1",
	})
	require.NoError(t, err)
	require.True(t, res.Success, "la reserva debe crearse: %s", res.Message)
	assert.NotEmpty(t, res.ReservationID, "debe devolver el ID de la reserva")
	assert.Equal(t, int64(40), res.ATPRemaining, "ATP restante = 70 - 30")

	record, err := f.inv.Get("ISBN-001", "MAD-01")
	require.NoError(t, err)
	assert.Equal(t, int64(50), record.ReservedStock, "reservado debe subir de 20 a 50")
	assert.Equal(t, int64(100), record.CurrentStock, "el stock físico no cambia al reservar")

	saved, err := f.store.Get(res.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusActive, saved.Status)
	assert.Equal(t, entity.ReservationPriorityLow, saved.Priority, "prioridad LOW por defecto")

	movs := f.mov.byType(entity.MovementTypeRESERVATION)
	require.Len(t, movs, 1, "debe quedar una entrada RESERVATION en el libro")
	assert.Equal(t, int64(-30), movs[0].Quantity, "cantidad firmada negativa (salida)")
	assert.Equal(t, "ORD-100", movs[0].ReferenceNumber)

	events := f.events.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventTypeReservationChange, events[0].Type)
	assert.Equal(t, int64(50), events[0].NewReserved)
}

// Caso 2: ATP insuficiente es un resultado reportado, no un error; nada muta.
func TestReserveInventory_RechazaPorATPInsuficiente(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 20, 10)

	res, err := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
		TitleID:     "ISBN-001",
		WarehouseID: "MAD-01",
		Quantity:    71, // ATP es 70
		OrderID:     "ORD-101",
	})
	require.NoError(t, err, "ATP insuficiente no debe ser un error de Go")
	assert.False(t, res.Success)
	assert.Equal(t, int64(70), res.ATPRemaining, "debe reportar el ATP disponible")
	assert.Empty(t, res.ReservationID)

	record, _ := f.inv.Get("ISBN-001", "MAD-01")
	assert.Equal(t, int64(20), record.ReservedStock, "el rechazo no debe mutar el reservado")
	assert.Empty(t, f.mov.byType(entity.MovementTypeRESERVATION), "sin entrada en el libro")
	assert.Empty(t, f.events.snapshot(), "sin evento publicado")
}

// Caso 3: validación de entrada.
func TestReserveInventory_ValidaEntrada(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 0, 0)

	cases := []dto.ReserveRequest{
		{WarehouseID: "MAD-01", Quantity: 1, OrderID: "O1"},               // sin título
		{TitleID: "ISBN-001", Quantity: 1, OrderID: "O1"},                 // sin bodega
		{TitleID: "ISBN-001", WarehouseID: "MAD-01", Quantity: 1},         // sin orden
		{TitleID: "ISBN-001", WarehouseID: "MAD-01", OrderID: "O1"},       // cantidad cero
		{TitleID: "ISBN-001", WarehouseID: "MAD-01", Quantity: -5, OrderID: "O1"},
	}
	for _, req := range cases {
		res, err := f.reserves.ReserveInventory(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, res.Success, "solicitud inválida debe rechazarse: %+v", req)
	}
}

// Caso 4: par título+bodega inexistente.
func TestReserveInventory_SinInventario(t *testing.T) {
	f := newEngineFixture(t)

	res, err := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
		TitleID:     "ISBN-999",
		WarehouseID: "MAD-01",
		Quantity:    1,
		OrderID:     "ORD-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "no existe inventario")
}

// Caso 5: liberar devuelve el stock apartado y escribe el movimiento compensatorio.
func TestReleaseReservation_RoundTrip(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 0, 0)

	res, err := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
		TitleID: "ISBN-001", WarehouseID: "MAD-01", Quantity: 25, OrderID: "ORD-1",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	rel, err := f.reserves.ReleaseReservation(context.Background(), res.ReservationID, "cancelación del cliente")
	require.NoError(t, err)
	require.True(t, rel.Success, rel.Message)
	assert.Equal(t, int64(25), rel.ReleasedQuantity)

	record, _ := f.inv.Get("ISBN-001", "MAD-01")
	assert.Equal(t, int64(0), record.ReservedStock, "el reservado vuelve a cero")

	saved, err := f.store.Get(res.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusCancelled, saved.Status)

	releases := f.mov.byType(entity.MovementTypeRELEASE)
	require.Len(t, releases, 1)
	assert.Equal(t, int64(25), releases[0].Quantity, "cantidad firmada positiva (retorno)")
}

// Caso 6: liberar dos veces es un no-op exitoso, sin doble decremento.
func TestReleaseReservation_NoOpSiYaLiberada(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 0, 0)

	res, _ := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
		TitleID: "ISBN-001", WarehouseID: "MAD-01", Quantity: 25, OrderID: "ORD-1",
	})
	require.True(t, res.Success)

	first, err := f.reserves.ReleaseReservation(context.Background(), res.ReservationID, "primera")
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := f.reserves.ReleaseReservation(context.Background(), res.ReservationID, "segunda")
	require.NoError(t, err)
	assert.True(t, second.Success, "la segunda liberación es un no-op exitoso")
	assert.Zero(t, second.ReleasedQuantity)

	record, _ := f.inv.Get("ISBN-001", "MAD-01")
	assert.Equal(t, int64(0), record.ReservedStock, "sin doble decremento")
	assert.Len(t, f.mov.byType(entity.MovementTypeRELEASE), 1, "un solo movimiento RELEASE")
}

// Caso 7: liberar una reserva inexistente.
func TestReleaseReservation_NoEncontrada(t *testing.T) {
	f := newEngineFixture(t)
	rel, err := f.reserves.ReleaseReservation(context.Background(), "no-existe", "motivo")
	require.NoError(t, err)
	assert.False(t, rel.Success)
	assert.Contains(t, rel.Message, "no encontrada")
}

// Caso 8: reservas concurrentes jamás sobrevenden el stock.
func TestReserveInventory_ConcurrenteNoSobrevende(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 0, 0)

	const workers = 20
	var successes atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			res, err := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
				TitleID:     "ISBN-001",
				WarehouseID: "MAD-01",
				Quantity:    10,
				OrderID:     "ORD-concurrente",
			})
			if err == nil && res.Success {
				successes.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(10), successes.Load(), "con stock 100 y reservas de 10, exactamente 10 ganan")
	record, _ := f.inv.Get("ISBN-001", "MAD-01")
	assert.Equal(t, int64(100), record.ReservedStock, "reservado exactamente igual al stock")
	assert.LessOrEqual(t, record.ReservedStock, record.CurrentStock, "invariante: reservado <= stock")
}

// Caso 9: el barrido libera las vencidas una sola vez (idempotente).
func TestCleanupExpiredReservations_Idempotente(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 0, 0)

	past := time.Now().Add(-time.Hour)
	res, err := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
		TitleID:        "ISBN-001",
		WarehouseID:    "MAD-01",
		Quantity:       40,
		OrderID:        "ORD-1",
		ExpirationDate: &past,
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	first, err := f.reserves.CleanupExpiredReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Cleaned)
	assert.Equal(t, int64(40), first.ReleasedQuantity)
	require.Len(t, first.Details, 1)
	assert.Equal(t, res.ReservationID, first.Details[0].ReservationID)

	saved, _ := f.store.Get(res.ReservationID)
	assert.Equal(t, entity.ReservationStatusExpired, saved.Status, "el barrido marca EXPIRED, no CANCELLED")

	record, _ := f.inv.Get("ISBN-001", "MAD-01")
	assert.Equal(t, int64(0), record.ReservedStock)

	second, err := f.reserves.CleanupExpiredReservations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Cleaned, "el segundo barrido no encuentra nada que liberar")
	assert.Zero(t, second.ReleasedQuantity)
}

// Caso 10: el barrido no toca reservas vigentes.
func TestCleanupExpiredReservations_IgnoraVigentes(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 0, 0)

	res, _ := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
		TitleID: "ISBN-001", WarehouseID: "MAD-01", Quantity: 40, OrderID: "ORD-1",
	})
	require.True(t, res.Success)

	result, err := f.reserves.CleanupExpiredReservations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Cleaned)

	record, _ := f.inv.Get("ISBN-001", "MAD-01")
	assert.Equal(t, int64(40), record.ReservedStock)
}

// Caso 11: extender solo reservas activas y solo hacia el futuro.
func TestExtendReservation(t *testing.T) {
	f := newEngineFixture(t)
	seedRecord(f, "ISBN-001", "MAD-01", 100, 0, 0)

	res, _ := f.reserves.ReserveInventory(context.Background(), dto.ReserveRequest{
		TitleID: "ISBN-001", WarehouseID: "MAD-01", Quantity: 10, OrderID: "ORD-1",
	})
	require.True(t, res.Success)

	future := time.Now().Add(72 * time.Hour)
	require.NoError(t, f.reserves.ExtendReservation(context.Background(), res.ReservationID, future))
	saved, _ := f.store.Get(res.ReservationID)
	assert.WithinDuration(t, future, saved.ExpirationDate, time.Second)

	err := f.reserves.ExtendReservation(context.Background(), res.ReservationID, time.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "extensión al pasado debe rechazarse")

	rel, _ := f.reserves.ReleaseReservation(context.Background(), res.ReservationID, "fin")
	require.True(t, rel.Success)
	err = f.reserves.ExtendReservation(context.Background(), res.ReservationID, future)
	assert.ErrorIs(t, err, domain.ErrConflict, "no se extiende una reserva cancelada")
}

// Caso 12: la purga de mantenimiento elimina solo no-activas viejas.
func TestPerformMaintenanceCleanup(t *testing.T) {
	f := newEngineFixture(t)

	old := &entity.Reservation{
		ID:             "vieja-cancelada",
		TitleID:        "ISBN-001",
		WarehouseID:    "MAD-01",
		Quantity:       5,
		Status:         entity.ReservationStatusCancelled,
		CreatedAt:      time.Now().AddDate(0, 0, -40),
		ExpirationDate: time.Now().AddDate(0, 0, -39),
	}
	require.NoError(t, f.store.Save(old))
	recent := &entity.Reservation{
		ID:             "reciente-activa",
		TitleID:        "ISBN-001",
		WarehouseID:    "MAD-01",
		Quantity:       5,
		Status:         entity.ReservationStatusActive,
		CreatedAt:      time.Now().AddDate(0, 0, -40),
		ExpirationDate: time.Now().Add(time.Hour),
	}
	require.NoError(t, f.store.Save(recent))

	purged, err := f.reserves.PerformMaintenanceCleanup(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, purged, "solo la cancelada vieja se purga")

	_, err = f.store.Get("vieja-cancelada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.store.Get("reciente-activa")
	assert.NoError(t, err, "las activas nunca se purgan, sin importar la edad")

	_, err = f.reserves.PerformMaintenanceCleanup(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
