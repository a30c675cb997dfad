package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, title_id, warehouse_id, type, quantity, movement_date,
	reference_number, source_warehouse_id, destination_warehouse_id, unit_cost, rrp, created_at`

// MovementRepo implementación del libro de movimientos sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste una entrada del libro. El libro es append-only: no hay Update ni Delete.
func (r *MovementRepo) Create(movement *entity.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	source := (*string)(nil)
	if movement.SourceWarehouseID != "" {
		source = &movement.SourceWarehouseID
	}
	destination := (*string)(nil)
	if movement.DestinationWarehouseID != "" {
		destination = &movement.DestinationWarehouseID
	}
	_, err := r.q.Exec(context.Background(), query,
		movement.ID, movement.TitleID, movement.WarehouseID, movement.Type,
		movement.Quantity, movement.MovementDate, movement.ReferenceNumber,
		source, destination, movement.UnitCost, movement.RRP, movement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// List consulta el libro con los criterios del filtro, ordenado del más reciente al más antiguo.
func (r *MovementRepo) List(filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE 1=1`
	args := []any{}
	pos := 1
	if filter.TitleID != "" {
		query += fmt.Sprintf(" AND title_id = $%d", pos)
		args = append(args, filter.TitleID)
		pos++
	}
	if filter.WarehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, filter.WarehouseID)
		pos++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND movement_date >= $%d", pos)
		args = append(args, *filter.From)
		pos++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND movement_date <= $%d", pos)
		args = append(args, *filter.To)
		pos++
	}
	query += " ORDER BY movement_date DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, filter.Limit)
		pos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, filter.Offset)
	}

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var movements []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var source, destination *string
		err := rows.Scan(
			&m.ID, &m.TitleID, &m.WarehouseID, &m.Type, &m.Quantity, &m.MovementDate,
			&m.ReferenceNumber, &source, &destination, &m.UnitCost, &m.RRP, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		if source != nil {
			m.SourceWarehouseID = *source
		}
		if destination != nil {
			m.DestinationWarehouseID = *destination
		}
		movements = append(movements, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}
	return movements, nil
}

// SumQuantities suma las cantidades firmadas del par título+bodega
// (reconstrucción del stock desde el libro).
func (r *MovementRepo) SumQuantities(titleID, warehouseID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_movements WHERE title_id = $1 AND warehouse_id = $2`
	var total int64
	err := r.q.QueryRow(context.Background(), query, titleID, warehouseID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum movement quantities: %w", err)
	}
	return total, nil
}
