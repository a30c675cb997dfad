package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

const inventoryColumns = `id, title_id, warehouse_id, current_stock, reserved_stock,
	min_stock_level, max_stock_level, reorder_point, average_cost, last_movement_date, updated_at`

// InventoryRepo implementación de InventoryRepository sobre PostgreSQL (usable con pool o tx).
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

func scanInventoryRecord(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := row.Scan(
		&rec.ID, &rec.TitleID, &rec.WarehouseID, &rec.CurrentStock, &rec.ReservedStock,
		&rec.MinStockLevel, &rec.MaxStockLevel, &rec.ReorderPoint, &rec.AverageCost,
		&rec.LastMovementDate, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get obtiene la fila de inventario del par título+bodega.
func (r *InventoryRepo) Get(titleID, warehouseID string) (*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + `
		FROM inventory_records WHERE title_id = $1 AND warehouse_id = $2`
	rec, err := scanInventoryRecord(r.q.QueryRow(context.Background(), query, titleID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	return rec, nil
}

// GetForUpdate obtiene la fila y la bloquea para update (SELECT FOR UPDATE).
// Solo tiene sentido dentro de una transacción.
func (r *InventoryRepo) GetForUpdate(titleID, warehouseID string) (*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + `
		FROM inventory_records WHERE title_id = $1 AND warehouse_id = $2
		FOR UPDATE`
	rec, err := scanInventoryRecord(r.q.QueryRow(context.Background(), query, titleID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get inventory record for update: %w", err)
	}
	return rec, nil
}

// ListByTitle lista las filas de un título en todas las bodegas.
func (r *InventoryRepo) ListByTitle(titleID string) ([]*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + `
		FROM inventory_records WHERE title_id = $1
		ORDER BY warehouse_id`
	rows, err := r.q.Query(context.Background(), query, titleID)
	if err != nil {
		return nil, fmt.Errorf("list inventory by title: %w", err)
	}
	defer rows.Close()
	return collectInventoryRecords(rows)
}

// ListAll lista todas las filas; warehouseID vacío = todas las bodegas.
func (r *InventoryRepo) ListAll(warehouseID string) ([]*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_records`
	args := []any{}
	if warehouseID != "" {
		query += ` WHERE warehouse_id = $1`
		args = append(args, warehouseID)
	}
	query += ` ORDER BY title_id, warehouse_id`
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	return collectInventoryRecords(rows)
}

func collectInventoryRecords(rows pgx.Rows) ([]*entity.InventoryRecord, error) {
	var records []*entity.InventoryRecord
	for rows.Next() {
		rec, err := scanInventoryRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory records: %w", err)
	}
	return records, nil
}

// Upsert inserta o actualiza la fila (por título y bodega).
func (r *InventoryRepo) Upsert(record *entity.InventoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_records (id, title_id, warehouse_id, current_stock, reserved_stock,
			min_stock_level, max_stock_level, reorder_point, average_cost, last_movement_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (title_id, warehouse_id)
		DO UPDATE SET current_stock = EXCLUDED.current_stock,
			reserved_stock = EXCLUDED.reserved_stock,
			min_stock_level = EXCLUDED.min_stock_level,
			max_stock_level = EXCLUDED.max_stock_level,
			reorder_point = EXCLUDED.reorder_point,
			average_cost = EXCLUDED.average_cost,
			last_movement_date = EXCLUDED.last_movement_date,
			updated_at = now()`
	_, err := r.q.Exec(context.Background(), query,
		record.ID, record.TitleID, record.WarehouseID, record.CurrentStock, record.ReservedStock,
		record.MinStockLevel, record.MaxStockLevel, record.ReorderPoint, record.AverageCost,
		record.LastMovementDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("upsert inventory record: %w", err)
	}
	return nil
}

// AdjustReserved aplica un delta condicional y atómico sobre reserved_stock.
// Con delta positivo el WHERE exige que el reservado resultante no supere el
// stock físico; cero filas afectadas = otro actor ganó la carrera.
func (r *InventoryRepo) AdjustReserved(titleID, warehouseID string, delta int64) error {
	query := `
		UPDATE inventory_records
		SET reserved_stock = GREATEST(0, reserved_stock + $1), updated_at = now()
		WHERE title_id = $2 AND warehouse_id = $3
		  AND ($1 <= 0 OR reserved_stock + $1 <= current_stock)`
	tag, err := r.q.Exec(context.Background(), query, delta, titleID, warehouseID)
	if err != nil {
		return fmt.Errorf("adjust reserved stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}

// AdjustStock aplica un delta firmado sobre current_stock y sella last_movement_date.
func (r *InventoryRepo) AdjustStock(titleID, warehouseID string, delta int64) error {
	query := `
		UPDATE inventory_records
		SET current_stock = current_stock + $1, last_movement_date = now(), updated_at = now()
		WHERE title_id = $2 AND warehouse_id = $3`
	tag, err := r.q.Exec(context.Background(), query, delta, titleID, warehouseID)
	if err != nil {
		return fmt.Errorf("adjust current stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
