package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de stock.
const (
	MovementTypeRECEIPT     = "RECEIPT"      // entrada por recepción
	MovementTypeSALE        = "SALE"         // salida por venta
	MovementTypeRESERVATION = "RESERVATION"  // apartado contra una orden
	MovementTypeRELEASE     = "RELEASE"      // liberación de un apartado
	MovementTypeADJUSTMENT  = "ADJUSTMENT"   // ajuste manual o sintético
	MovementTypeTRANSFERIn  = "TRANSFER_IN"  // entrada por traslado
	MovementTypeTRANSFEROut = "TRANSFER_OUT" // salida por traslado
)

// StockMovement es una entrada del libro de movimientos (append-only, nunca se actualiza).
// La suma de cantidades firmadas por título+bodega debe igualar CurrentStock
// salvo correcciones fuera de banda.
type StockMovement struct {
	ID                     string
	TitleID                string
	WarehouseID            string
	Type                   string
	Quantity               int64 // firmada: positiva entrada, negativa salida
	MovementDate           time.Time
	ReferenceNumber        string
	SourceWarehouseID      string // solo traslados
	DestinationWarehouseID string // solo traslados
	UnitCost               decimal.Decimal
	RRP                    decimal.Decimal // precio de venta al público al momento del movimiento
	CreatedAt              time.Time
}
