package monitor

import (
	"math"
	"time"

	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
)

// Parámetros del análisis estadístico de movimientos.
const (
	anomalyWindowDays  = 7   // ventana histórica
	anomalyMinSamples  = 5   // mínimo de movimientos para analizar
	anomalyRecentCount = 3   // movimientos recientes a comparar
	anomalyZThreshold  = 2.0 // |z| a partir del cual se marca anomalía
)

// detectAnomaly compara la media de los movimientos más recientes contra la
// media histórica de cantidades absolutas usando un z-score. Devuelve nil si
// la muestra es insuficiente o el comportamiento es normal.
// movements debe venir ordenado del más reciente al más antiguo.
func detectAnomaly(titleID, warehouseID string, movements []*entity.StockMovement, now time.Time) *entity.StockAnomaly {
	if len(movements) < anomalyMinSamples {
		return nil
	}

	abs := make([]float64, len(movements))
	for i, m := range movements {
		abs[i] = math.Abs(float64(m.Quantity))
	}

	mean := meanOf(abs)
	stddev := stddevOf(abs, mean)
	if stddev == 0 {
		return nil
	}

	recentMean := meanOf(abs[:anomalyRecentCount])
	zScore := (recentMean - mean) / stddev
	if math.Abs(zScore) <= anomalyZThreshold {
		return nil
	}

	anomalyType := entity.AnomalyTypeSuddenSpike
	if zScore < 0 {
		anomalyType = entity.AnomalyTypeSuddenDrop
	}
	confidence := math.Abs(zScore) / 3
	if confidence > 1 {
		confidence = 1
	}

	return &entity.StockAnomaly{
		TitleID:        titleID,
		WarehouseID:    warehouseID,
		Type:           anomalyType,
		ZScore:         zScore,
		Confidence:     confidence,
		HistoricalMean: mean,
		RecentMean:     recentMean,
		SampleSize:     len(movements),
		DetectedAt:     now,
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddevOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// varianceRatio devuelve |v1-v2| / promedio(v1,v2); cero si el promedio es cero.
func varianceRatio(v1, v2 float64) float64 {
	avg := (v1 + v2) / 2
	if avg == 0 {
		return 0
	}
	return math.Abs(v1-v2) / avg
}
