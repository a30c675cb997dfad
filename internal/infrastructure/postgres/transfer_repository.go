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

var _ repository.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, title_id, source_warehouse_id, destination_warehouse_id, quantity,
	status, requested_by, reference_number, created_at, approved_at, dispatched_at, completed_at`

// TransferRepo implementación de TransferRepository sobre PostgreSQL.
// Acepta el pool o una transacción vía Querier, igual que los repos de
// inventario y movimientos, para que el cierre de un traslado pueda
// confirmarse en el mismo commit que sus movimientos.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador con el pool o una tx.
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// Create persiste una orden de traslado nueva.
func (r *TransferRepo) Create(order *entity.TransferOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	query := `
		INSERT INTO transfer_orders (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(context.Background(), query,
		order.ID, order.TitleID, order.SourceWarehouseID, order.DestinationWarehouseID,
		order.Quantity, order.Status, order.RequestedBy, order.ReferenceNumber,
		order.CreatedAt, order.ApprovedAt, order.DispatchedAt, order.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create transfer order: %w", err)
	}
	return nil
}

// GetByID obtiene una orden de traslado por ID.
func (r *TransferRepo) GetByID(id string) (*entity.TransferOrder, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_orders WHERE id = $1`
	var t entity.TransferOrder
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&t.ID, &t.TitleID, &t.SourceWarehouseID, &t.DestinationWarehouseID, &t.Quantity,
		&t.Status, &t.RequestedBy, &t.ReferenceNumber, &t.CreatedAt,
		&t.ApprovedAt, &t.DispatchedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer order: %w", err)
	}
	return &t, nil
}

// Update reemplaza estado y sellos de tiempo de la orden.
func (r *TransferRepo) Update(order *entity.TransferOrder) error {
	query := `
		UPDATE transfer_orders
		SET status = $1, approved_at = $2, dispatched_at = $3, completed_at = $4
		WHERE id = $5`
	tag, err := r.q.Exec(context.Background(), query,
		order.Status, order.ApprovedAt, order.DispatchedAt, order.CompletedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("update transfer order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByStatus lista órdenes en un estado, de la más reciente a la más antigua.
func (r *TransferRepo) ListByStatus(status string, limit, offset int) ([]*entity.TransferOrder, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_orders WHERE status = $1
		ORDER BY created_at DESC`
	args := []any{status}
	pos := 2
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, limit)
		pos++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, offset)
	}

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfer orders: %w", err)
	}
	defer rows.Close()

	var orders []*entity.TransferOrder
	for rows.Next() {
		var t entity.TransferOrder
		err := rows.Scan(
			&t.ID, &t.TitleID, &t.SourceWarehouseID, &t.DestinationWarehouseID, &t.Quantity,
			&t.Status, &t.RequestedBy, &t.ReferenceNumber, &t.CreatedAt,
			&t.ApprovedAt, &t.DispatchedAt, &t.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer order: %w", err)
		}
		orders = append(orders, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer orders: %w", err)
	}
	return orders, nil
}
