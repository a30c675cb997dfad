package inventory

// ATPFormula implementa el cálculo de disponible-para-comprometer (servicio de dominio).
// ATP = max(0, StockActual - StockReservado - StockMinimo + StockEntrante)
func ATPFormula(currentStock, reservedStock, minStockLevel, incomingStock int64) int64 {
	atp := currentStock - reservedStock - minStockLevel + incomingStock
	if atp < 0 {
		return 0
	}
	return atp
}
