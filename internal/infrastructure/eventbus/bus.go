package eventbus

import (
	"sync"

	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/metrics"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

// Handler procesa un evento de inventario.
type Handler func(evt entity.InventoryUpdateEvent)

// subscriber cola acotada más worker dedicado de un suscriptor.
type subscriber struct {
	name string
	ch   chan entity.InventoryUpdateEvent
}

// Bus es el canal interno de publicación/suscripción de eventos de inventario.
// Cada suscriptor tiene su propia cola acotada y su propio worker: un
// suscriptor lento o caído nunca bloquea a los publicadores ni a los demás
// suscriptores. Con la cola llena el evento se descarta y se cuenta.
type Bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	bufferSize  int
	metrics     *metrics.EngineMetrics
	log         *logger.Logger
	wg          sync.WaitGroup
	closed      bool
}

// New construye el bus. bufferSize <= 0 usa 256.
func New(bufferSize int, m *metrics.EngineMetrics, log *logger.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if log == nil {
		log = logger.New(logger.Config{Env: "production", Level: "info"})
	}
	return &Bus{bufferSize: bufferSize, metrics: m, log: log}
}

// Subscribe registra un handler bajo un nombre y arranca su worker.
// El pánico de un handler se aísla: se registra y el worker sigue vivo.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	sub := &subscriber{name: name, ch: make(chan entity.InventoryUpdateEvent, b.bufferSize)}
	b.subscribers = append(b.subscribers, sub)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for evt := range sub.ch {
			b.dispatch(sub.name, handler, evt)
		}
	}()
}

// dispatch invoca el handler aislando pánicos.
func (b *Bus) dispatch(name string, handler Handler, evt entity.InventoryUpdateEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("subscriber", name).Interface("panic", r).
				Str("event_id", evt.ID).Msg("pánico en suscriptor del bus de eventos")
		}
	}()
	handler(evt)
}

// Publish entrega el evento a cada suscriptor sin bloquear jamás: si la cola
// de un suscriptor está llena, el evento se descarta para ese suscriptor.
func (b *Bus) Publish(evt entity.InventoryUpdateEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subscribers {
		select {
		case sub.ch <- evt:
			b.metrics.EventPublished()
		default:
			b.metrics.EventDropped(sub.name)
			b.log.Warn().Str("subscriber", sub.name).Str("event_id", evt.ID).
				Msg("cola de suscriptor llena: evento descartado")
		}
	}
}

// Close cierra las colas y espera a que los workers drenen lo pendiente.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
