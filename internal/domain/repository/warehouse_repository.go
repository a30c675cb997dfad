package repository

import "github.com/tu-usuario/editorial-stock/internal/domain/entity"

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
type WarehouseRepository interface {
	GetByID(id string) (*entity.Warehouse, error)
	// List devuelve bodegas; onlyActive filtra las desactivadas.
	List(onlyActive bool, limit, offset int) ([]*entity.Warehouse, error)
}
