package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario editorial (multi-bodega).
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	Region    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
