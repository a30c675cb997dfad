package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
)

// Niveles de cliente para el ranking de asignación.
const (
	CustomerTierBronze   = "BRONZE"
	CustomerTierSilver   = "SILVER"
	CustomerTierGold     = "GOLD"
	CustomerTierPlatinum = "PLATINUM"
)

// ATPCalculation resultado del cálculo disponible-para-comprometer de un par título+bodega.
type ATPCalculation struct {
	TitleID       string    `json:"title_id"`
	WarehouseID   string    `json:"warehouse_id"`
	CurrentStock  int64     `json:"current_stock"`
	ReservedStock int64     `json:"reserved_stock"`
	MinStockLevel int64     `json:"min_stock_level"`
	IncomingStock int64     `json:"incoming_stock"`
	ATPQuantity   int64     `json:"atp_quantity"`
	EffectiveDate time.Time `json:"effective_date"`
}

// MultiWarehouseATP desglose por bodega más el total agregado de un título.
type MultiWarehouseATP struct {
	TitleID    string            `json:"title_id"`
	Warehouses []*ATPCalculation `json:"warehouses"`
	TotalATP   int64             `json:"total_atp"`
}

// ReserveRequest solicitud de apartado de inventario para una orden.
type ReserveRequest struct {
	TitleID        string     `json:"title_id"`
	WarehouseID    string     `json:"warehouse_id"`
	Quantity       int64      `json:"quantity"`
	OrderID        string     `json:"order_id"`
	CustomerID     string     `json:"customer_id"`
	Priority       string     `json:"priority,omitempty"`        // LOW por defecto
	ExpirationDate *time.Time `json:"expiration_date,omitempty"` // 24h por defecto
}

// ReserveResult resultado estructurado de ReserveInventory.
// ATP insuficiente es un resultado reportado, no un error.
type ReserveResult struct {
	Success       bool   `json:"success"`
	ReservationID string `json:"reservation_id,omitempty"`
	ATPRemaining  int64  `json:"atp_remaining"`
	Message       string `json:"message"`
}

// ReleaseResult resultado estructurado de ReleaseReservation.
type ReleaseResult struct {
	Success          bool   `json:"success"`
	ReleasedQuantity int64  `json:"released_quantity"`
	Message          string `json:"message"`
}

// CleanupDetail detalle por reserva liberada durante el barrido de expiración.
type CleanupDetail struct {
	ReservationID string    `json:"reservation_id"`
	TitleID       string    `json:"title_id"`
	WarehouseID   string    `json:"warehouse_id"`
	Quantity      int64     `json:"quantity"`
	ExpiredAt     time.Time `json:"expired_at"`
}

// CleanupResult resultado del barrido de reservas expiradas.
type CleanupResult struct {
	Cleaned          int             `json:"cleaned"`
	ReleasedQuantity int64           `json:"released_quantity"`
	Details          []CleanupDetail `json:"details"`
}

// AllocationRequest solicitud de asignación de una cantidad entre bodegas.
type AllocationRequest struct {
	TitleID             string   `json:"title_id"`
	Quantity            int64    `json:"quantity"`
	OrderID             string   `json:"order_id"`
	CustomerID          string   `json:"customer_id"`
	CustomerTier        string   `json:"customer_tier,omitempty"`
	SalesChannel        string   `json:"sales_channel,omitempty"`
	PreferredWarehouses []string `json:"preferred_warehouses,omitempty"`
	MaxWarehouses       int      `json:"max_warehouses,omitempty"` // 0 = sin límite
}

// AllocationLine línea de asignación sobre una bodega concreta.
type AllocationLine struct {
	WarehouseID   string          `json:"warehouse_id"`
	Quantity      int64           `json:"quantity"`
	ReservationID string          `json:"reservation_id"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	DistanceScore float64         `json:"distance_score"`
}

// Tipos de recomendación que acompaña un resultado de asignación.
const (
	RecommendationReorder   = "REORDER"
	RecommendationTransfer  = "TRANSFER"
	RecommendationBackorder = "BACKORDER"
)

// Recommendation acción sugerida cuando la asignación no puede cubrirse localmente.
type Recommendation struct {
	Type                    string     `json:"type"`
	WarehouseID             string     `json:"warehouse_id,omitempty"`
	Quantity                int64      `json:"quantity,omitempty"`
	Message                 string     `json:"message"`
	EstimatedResolutionDate *time.Time `json:"estimated_resolution_date,omitempty"`
}

// AllocationResult resultado de AllocateInventory. Transitorio, no se persiste.
// Ante un fallo las líneas ya comprometidas NO se revierten: cada reserva es
// transaccional de forma independiente y el caller debe inspeccionar Allocations.
type AllocationResult struct {
	Success             bool             `json:"success"`
	TitleID             string           `json:"title_id"`
	RequestedQuantity   int64            `json:"requested_quantity"`
	Allocations         []AllocationLine `json:"allocations"`
	UnallocatedQuantity int64            `json:"unallocated_quantity"`
	Recommendations     []Recommendation `json:"recommendations"`
	Message             string           `json:"message,omitempty"`
}

// AdjustmentRequest ajuste manual de stock (conteo físico, merma, corrección).
type AdjustmentRequest struct {
	TitleID     string `json:"title_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"` // firmada: positiva entrada, negativa salida
	Reason      string `json:"reason"`
	AdjustedBy  string `json:"adjusted_by,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// AdjustmentResult resultado de un ajuste manual.
type AdjustmentResult struct {
	Success  bool   `json:"success"`
	NewStock int64  `json:"new_stock,omitempty"`
	Message  string `json:"message,omitempty"`
}

// TransferRequest solicitud de traslado entre bodegas.
type TransferRequest struct {
	TitleID                string `json:"title_id"`
	SourceWarehouseID      string `json:"source_warehouse_id"`
	DestinationWarehouseID string `json:"destination_warehouse_id"`
	Quantity               int64  `json:"quantity"`
	RequestedBy            string `json:"requested_by"`
	ReferenceNumber        string `json:"reference_number,omitempty"`
}

// TransferResult resultado estructurado de las operaciones de traslado.
type TransferResult struct {
	Success    bool   `json:"success"`
	TransferID string `json:"transfer_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message"`
}

// ScanResult resultado del escaneo integral de discrepancias.
type ScanResult struct {
	Alerts             []*entity.DiscrepancyAlert `json:"alerts"`
	Anomalies          []*entity.StockAnomaly     `json:"anomalies"`
	SyncIssues         []*entity.SyncDiscrepancy  `json:"sync_issues"`
	TotalItemsScanned  int                        `json:"total_items_scanned"`
	DiscrepanciesFound int                        `json:"discrepancies_found"`
}
