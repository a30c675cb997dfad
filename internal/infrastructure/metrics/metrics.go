package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics colectores Prometheus del motor de inventario. Todos los
// métodos toleran receptor nil para que las métricas sean opcionales en tests
// y procesos embebidos. El registro se entrega al proceso anfitrión; el motor
// no expone HTTP propio.
type EngineMetrics struct {
	reservations *prometheus.CounterVec
	allocations  *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	eventsOut    prometheus.Counter
	eventsDrop   *prometheus.CounterVec
}

// New crea y registra los colectores en el Registerer dado.
func New(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editorial_stock",
			Name:      "reservations_total",
			Help:      "Resultados de operaciones de reserva por desenlace.",
		}, []string{"outcome"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editorial_stock",
			Name:      "allocations_total",
			Help:      "Resultados de asignaciones multi-bodega por desenlace.",
		}, []string{"outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editorial_stock",
			Name:      "discrepancy_alerts_total",
			Help:      "Alertas de discrepancia levantadas por tipo y severidad.",
		}, []string{"type", "severity"}),
		eventsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "editorial_stock",
			Name:      "events_published_total",
			Help:      "Eventos entregados a colas de suscriptores.",
		}),
		eventsDrop: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editorial_stock",
			Name:      "events_dropped_total",
			Help:      "Eventos descartados por cola de suscriptor llena.",
		}, []string{"subscriber"}),
	}
	reg.MustRegister(m.reservations, m.allocations, m.alerts, m.eventsOut, m.eventsDrop)
	return m
}

// ReservationOutcome cuenta el desenlace de una operación de reserva.
func (m *EngineMetrics) ReservationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

// AllocationOutcome cuenta el desenlace de una asignación.
func (m *EngineMetrics) AllocationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(outcome).Inc()
}

// AlertRaised cuenta una alerta levantada.
func (m *EngineMetrics) AlertRaised(alertType, severity string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(alertType, severity).Inc()
}

// EventPublished cuenta un evento entregado a una cola de suscriptor.
func (m *EngineMetrics) EventPublished() {
	if m == nil {
		return
	}
	m.eventsOut.Inc()
}

// EventDropped cuenta un evento descartado por cola llena.
func (m *EngineMetrics) EventDropped(subscriber string) {
	if m == nil {
		return
	}
	m.eventsDrop.WithLabelValues(subscriber).Inc()
}
