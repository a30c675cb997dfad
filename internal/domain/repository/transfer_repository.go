package repository

import "github.com/tu-usuario/editorial-stock/internal/domain/entity"

// TransferRepository define el puerto de persistencia para órdenes de traslado.
type TransferRepository interface {
	Create(order *entity.TransferOrder) error
	GetByID(id string) (*entity.TransferOrder, error)
	Update(order *entity.TransferOrder) error
	ListByStatus(status string, limit, offset int) ([]*entity.TransferOrder, error)
}
