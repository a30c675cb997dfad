package entity

import "time"

// Estados de una reserva.
const (
	ReservationStatusActive    = "ACTIVE"
	ReservationStatusExpired   = "EXPIRED"
	ReservationStatusFulfilled = "FULFILLED"
	ReservationStatusCancelled = "CANCELLED"
)

// Prioridades de una reserva.
const (
	ReservationPriorityLow      = "LOW"
	ReservationPriorityMedium   = "MEDIUM"
	ReservationPriorityHigh     = "HIGH"
	ReservationPriorityCritical = "CRITICAL"
)

// Reservation es un apartado temporal contra ReservedStock para una orden,
// con fecha de expiración. Propiedad exclusiva del ReservationManager.
type Reservation struct {
	ID             string
	TitleID        string
	WarehouseID    string
	Quantity       int64
	OrderID        string
	CustomerID     string
	Status         string
	Priority       string
	CreatedAt      time.Time
	ExpirationDate time.Time
}

// IsActive indica si la reserva sigue vigente.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// IsExpiredAt indica si la reserva venció en el instante dado.
func (r *Reservation) IsExpiredAt(now time.Time) bool {
	return r.ExpirationDate.Before(now)
}
