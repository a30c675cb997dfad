package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
)

// Tabla de transiciones de la máquina de estados de traslados.
func TestTransferOrder_CanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{entity.TransferStatusPendingApproval, entity.TransferStatusApproved, true},
		{entity.TransferStatusPendingApproval, entity.TransferStatusRejected, true},
		{entity.TransferStatusPendingApproval, entity.TransferStatusCancelled, true},
		{entity.TransferStatusPendingApproval, entity.TransferStatusInTransit, false},
		{entity.TransferStatusPendingApproval, entity.TransferStatusCompleted, false},
		{entity.TransferStatusApproved, entity.TransferStatusInTransit, true},
		{entity.TransferStatusApproved, entity.TransferStatusCancelled, true},
		{entity.TransferStatusApproved, entity.TransferStatusCompleted, false},
		{entity.TransferStatusInTransit, entity.TransferStatusCompleted, true},
		{entity.TransferStatusInTransit, entity.TransferStatusCancelled, false},
		{entity.TransferStatusCompleted, entity.TransferStatusCancelled, false},
		{entity.TransferStatusRejected, entity.TransferStatusApproved, false},
		{entity.TransferStatusCancelled, entity.TransferStatusApproved, false},
	}
	for _, tc := range cases {
		order := &entity.TransferOrder{Status: tc.from}
		assert.Equal(t, tc.want, order.CanTransition(tc.to),
			"transición %s → %s", tc.from, tc.to)
	}
}
