package entity

import "time"

// Estados del flujo de traslado entre bodegas (máquina de estados explícita;
// reemplaza el JSON embebido en notas de versiones anteriores).
const (
	TransferStatusPendingApproval = "PENDING_APPROVAL"
	TransferStatusApproved        = "APPROVED"
	TransferStatusInTransit       = "IN_TRANSIT"
	TransferStatusCompleted       = "COMPLETED"
	TransferStatusRejected        = "REJECTED"
	TransferStatusCancelled       = "CANCELLED"
)

// TransferOrder es una orden de traslado de stock entre dos bodegas.
// El débito y el crédito del libro se escriben juntos al completar (una sola transacción).
type TransferOrder struct {
	ID                     string
	TitleID                string
	SourceWarehouseID      string
	DestinationWarehouseID string
	Quantity               int64
	Status                 string
	RequestedBy            string
	ReferenceNumber        string
	CreatedAt              time.Time
	ApprovedAt             *time.Time
	DispatchedAt           *time.Time
	CompletedAt            *time.Time
}

// transferTransitions define las transiciones legales de la máquina de estados.
var transferTransitions = map[string][]string{
	TransferStatusPendingApproval: {TransferStatusApproved, TransferStatusRejected, TransferStatusCancelled},
	TransferStatusApproved:        {TransferStatusInTransit, TransferStatusCancelled},
	TransferStatusInTransit:       {TransferStatusCompleted},
}

// CanTransition indica si el traslado puede pasar al estado destino.
func (t *TransferOrder) CanTransition(to string) bool {
	for _, next := range transferTransitions[t.Status] {
		if next == to {
			return true
		}
	}
	return false
}
