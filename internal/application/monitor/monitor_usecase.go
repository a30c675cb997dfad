package monitor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/editorial-stock/internal/application/dto"
	"github.com/tu-usuario/editorial-stock/internal/application/engine"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/internal/domain/repository"
	"github.com/tu-usuario/editorial-stock/internal/infrastructure/metrics"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

// Valores por defecto de las verificaciones del monitor.
const (
	DefaultChangeRateWindow = 10 * time.Minute // ventana deslizante de cambio
	DefaultChangeRateLimit  = 100              // unidades absolutas por ventana
	DefaultStaleDataAge     = 24 * time.Hour   // antigüedad máxima sin movimiento

	syncStockVarianceLimit = 0.10 // razón de varianza de stock entre bodegas
	syncCostVarianceLimit  = 0.05 // razón de varianza de costo promedio

	// syntheticReferencePrefix marca los eventos ADJUSTMENT que el propio
	// monitor re-publica al emitir una alerta; se ignoran al consumir para
	// no realimentar el ciclo.
	syntheticReferencePrefix = "alert:"
)

// Config parámetros ajustables del monitor.
type Config struct {
	ChangeRateWindow time.Duration
	ChangeRateLimit  int64
	StaleDataAge     time.Duration
}

var _ engine.DiscrepancyMonitor = (*UseCase)(nil)

// UseCase es el monitor de discrepancias: consume eventos de mutación de stock
// y ejecuta verificaciones de stock negativo, umbrales, anomalías y
// sincronización entre bodegas. Cada verificación falla de forma aislada:
// se registra el error y se continúa con las demás.
type UseCase struct {
	invRepo repository.InventoryRepository
	movRepo repository.MovementRepository
	alerts  AlertStore
	events  engine.EventPublisher
	metrics *metrics.EngineMetrics
	log     *logger.Logger
	cfg     Config

	mu         sync.RWMutex
	thresholds map[string]*entity.StockThreshold
}

// NewUseCase construye el monitor. events nil descarta la re-publicación sintética.
func NewUseCase(
	invRepo repository.InventoryRepository,
	movRepo repository.MovementRepository,
	alerts AlertStore,
	events engine.EventPublisher,
	m *metrics.EngineMetrics,
	log *logger.Logger,
	cfg Config,
) *UseCase {
	if events == nil {
		events = engine.NopPublisher{}
	}
	if log == nil {
		log = logger.New(logger.Config{Env: "production", Level: "info"})
	}
	if cfg.ChangeRateWindow <= 0 {
		cfg.ChangeRateWindow = DefaultChangeRateWindow
	}
	if cfg.ChangeRateLimit <= 0 {
		cfg.ChangeRateLimit = DefaultChangeRateLimit
	}
	if cfg.StaleDataAge <= 0 {
		cfg.StaleDataAge = DefaultStaleDataAge
	}
	return &UseCase{
		invRepo:    invRepo,
		movRepo:    movRepo,
		alerts:     alerts,
		events:     events,
		metrics:    m,
		log:        log,
		cfg:        cfg,
		thresholds: make(map[string]*entity.StockThreshold),
	}
}

// SetThreshold registra o reemplaza un umbral en el registro mutable.
func (uc *UseCase) SetThreshold(threshold *entity.StockThreshold) error {
	if threshold == nil || threshold.Value < 0 {
		return domain.ErrInvalidInput
	}
	switch threshold.Type {
	case entity.ThresholdTypeMinStock, entity.ThresholdTypeChangeRate:
	default:
		return domain.ErrInvalidInput
	}
	now := time.Now()
	if threshold.ID == "" {
		threshold.ID = uuid.New().String()
		threshold.CreatedAt = now
	}
	threshold.UpdatedAt = now
	if threshold.Severity == "" {
		threshold.Severity = entity.AlertSeverityMedium
	}

	uc.mu.Lock()
	uc.thresholds[threshold.ID] = threshold
	uc.mu.Unlock()
	return nil
}

// RemoveThreshold elimina un umbral del registro.
func (uc *UseCase) RemoveThreshold(id string) {
	uc.mu.Lock()
	delete(uc.thresholds, id)
	uc.mu.Unlock()
}

// matchingThresholds devuelve los umbrales activos del tipo dado que aplican
// al par título+bodega (los globales incluidos).
func (uc *UseCase) matchingThresholds(thresholdType, titleID, warehouseID string) []*entity.StockThreshold {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	var matched []*entity.StockThreshold
	for _, t := range uc.thresholds {
		if t.Type == thresholdType && t.Matches(titleID, warehouseID) {
			matched = append(matched, t)
		}
	}
	return matched
}

// HandleEvent procesa un evento de mutación de inventario. Nunca devuelve
// error: cada verificación registra y traga sus propios fallos para que una
// regla rota no bloquee ni las demás reglas ni la mutación del caller.
func (uc *UseCase) HandleEvent(evt entity.InventoryUpdateEvent) {
	if strings.HasPrefix(evt.Reference, syntheticReferencePrefix) {
		return
	}

	uc.checkNegativeStock(evt)
	uc.checkThresholds(evt)
	uc.checkChangeRate(evt)
}

// checkNegativeStock levanta CRITICAL STOCK_NEGATIVE si el nuevo stock es negativo.
func (uc *UseCase) checkNegativeStock(evt entity.InventoryUpdateEvent) {
	if evt.NewStock >= 0 {
		return
	}
	uc.raiseAlert(&entity.DiscrepancyAlert{
		Type:        entity.AlertTypeStockNegative,
		Severity:    entity.AlertSeverityCritical,
		TitleID:     evt.TitleID,
		WarehouseID: evt.WarehouseID,
		InventoryID: evt.InventoryID,
		Message:     fmt.Sprintf("stock negativo: %d en bodega %s para el título %s", evt.NewStock, evt.WarehouseID, evt.TitleID),
	})
}

// checkThresholds levanta STOCK_THRESHOLD por cada umbral MIN_STOCK que aplique.
func (uc *UseCase) checkThresholds(evt entity.InventoryUpdateEvent) {
	for _, t := range uc.matchingThresholds(entity.ThresholdTypeMinStock, evt.TitleID, evt.WarehouseID) {
		if evt.NewStock > t.Value {
			continue
		}
		uc.raiseAlert(&entity.DiscrepancyAlert{
			Type:        entity.AlertTypeStockThreshold,
			Severity:    t.Severity,
			TitleID:     evt.TitleID,
			WarehouseID: evt.WarehouseID,
			InventoryID: evt.InventoryID,
			Message:     fmt.Sprintf("stock %d en o bajo el umbral %d (umbral %s)", evt.NewStock, t.Value, t.ID),
		})
	}
}

// checkChangeRate suma las cantidades absolutas de movimiento dentro de la
// ventana deslizante y levanta VALUE_ANOMALY si supera el límite configurado.
func (uc *UseCase) checkChangeRate(evt entity.InventoryUpdateEvent) {
	for _, t := range uc.matchingThresholds(entity.ThresholdTypeChangeRate, evt.TitleID, evt.WarehouseID) {
		window := uc.cfg.ChangeRateWindow
		if t.WindowMinutes > 0 {
			window = time.Duration(t.WindowMinutes) * time.Minute
		}
		limit := uc.cfg.ChangeRateLimit
		if t.Value > 0 {
			limit = t.Value
		}

		from := time.Now().Add(-window)
		movements, err := uc.movRepo.List(repository.MovementFilter{
			TitleID:     evt.TitleID,
			WarehouseID: evt.WarehouseID,
			From:        &from,
		})
		if err != nil {
			uc.log.Error().Err(err).Str("title_id", evt.TitleID).
				Msg("consultar movimientos para tasa de cambio")
			continue
		}

		var sum int64
		for _, m := range movements {
			if m.Quantity < 0 {
				sum -= m.Quantity
			} else {
				sum += m.Quantity
			}
		}
		if sum <= limit {
			continue
		}
		uc.raiseAlert(&entity.DiscrepancyAlert{
			Type:        entity.AlertTypeValueAnomaly,
			Severity:    t.Severity,
			TitleID:     evt.TitleID,
			WarehouseID: evt.WarehouseID,
			InventoryID: evt.InventoryID,
			Message:     fmt.Sprintf("movimiento de %d unidades en %s supera el límite %d", sum, window, limit),
		})
	}
}

// DetectStockAnomaly ejecuta el análisis estadístico de 7 días para un par
// título+bodega. Devuelve nil si no hay anomalía.
func (uc *UseCase) DetectStockAnomaly(ctx context.Context, titleID, warehouseID string) (*entity.StockAnomaly, error) {
	_ = ctx
	now := time.Now()
	from := now.AddDate(0, 0, -anomalyWindowDays)
	movements, err := uc.movRepo.List(repository.MovementFilter{
		TitleID:     titleID,
		WarehouseID: warehouseID,
		From:        &from,
	})
	if err != nil {
		return nil, err
	}
	return detectAnomaly(titleID, warehouseID, movements, now), nil
}

// DetectSynchronizationDiscrepancies compara cada par de bodegas que almacenan
// el título: desbalance de stock sobre 10% o de costo promedio sobre 5%.
func (uc *UseCase) DetectSynchronizationDiscrepancies(ctx context.Context, titleID string) ([]*entity.SyncDiscrepancy, error) {
	_ = ctx
	records, err := uc.invRepo.ListByTitle(titleID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var issues []*entity.SyncDiscrepancy
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			r1, r2 := records[i], records[j]

			stockRatio := varianceRatio(float64(r1.CurrentStock), float64(r2.CurrentStock))
			if stockRatio > syncStockVarianceLimit {
				issues = append(issues, &entity.SyncDiscrepancy{
					TitleID:      titleID,
					Type:         entity.SyncIssueStockMismatch,
					WarehouseID1: r1.WarehouseID,
					WarehouseID2: r2.WarehouseID,
					Value1:       float64(r1.CurrentStock),
					Value2:       float64(r2.CurrentStock),
					VariancePct:  stockRatio,
					Severity:     math.Min(stockRatio, 1),
					DetectedAt:   now,
				})
			}

			costRatio := varianceRatio(decimalToFloat(r1.AverageCost), decimalToFloat(r2.AverageCost))
			if costRatio > syncCostVarianceLimit {
				issues = append(issues, &entity.SyncDiscrepancy{
					TitleID:      titleID,
					Type:         entity.SyncIssueCostVariance,
					WarehouseID1: r1.WarehouseID,
					WarehouseID2: r2.WarehouseID,
					Value1:       decimalToFloat(r1.AverageCost),
					Value2:       decimalToFloat(r2.AverageCost),
					VariancePct:  costRatio,
					Severity:     math.Min(costRatio, 1),
					DetectedAt:   now,
				})
			}
		}
	}
	return issues, nil
}

// PerformComprehensiveDiscrepancyScan recorre todas las filas de inventario
// (opcionalmente filtradas por bodega) ejecutando las verificaciones de stock
// negativo, datos obsoletos, anomalía estadística y sincronización.
func (uc *UseCase) PerformComprehensiveDiscrepancyScan(ctx context.Context, warehouseID string) (*dto.ScanResult, error) {
	records, err := uc.invRepo.ListAll(warehouseID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := &dto.ScanResult{TotalItemsScanned: len(records)}
	scannedTitles := make(map[string]bool)

	for _, record := range records {
		// Stock negativo persistido.
		if record.CurrentStock < 0 {
			alert := uc.raiseAlert(&entity.DiscrepancyAlert{
				Type:        entity.AlertTypeStockNegative,
				Severity:    entity.AlertSeverityCritical,
				TitleID:     record.TitleID,
				WarehouseID: record.WarehouseID,
				InventoryID: record.ID,
				Message:     fmt.Sprintf("stock negativo persistido: %d", record.CurrentStock),
			})
			if alert != nil {
				result.Alerts = append(result.Alerts, alert)
			}
		}

		// Datos obsoletos: demasiado tiempo sin actualización.
		if now.Sub(record.UpdatedAt) > uc.cfg.StaleDataAge {
			alert := uc.raiseAlert(&entity.DiscrepancyAlert{
				Type:        entity.AlertTypeStaleData,
				Severity:    entity.AlertSeverityLow,
				TitleID:     record.TitleID,
				WarehouseID: record.WarehouseID,
				InventoryID: record.ID,
				Message:     fmt.Sprintf("sin actualización desde %s", record.UpdatedAt.Format(time.RFC3339)),
			})
			if alert != nil {
				result.Alerts = append(result.Alerts, alert)
			}
		}

		// Anomalía estadística por par título+bodega.
		anomaly, err := uc.DetectStockAnomaly(ctx, record.TitleID, record.WarehouseID)
		if err != nil {
			uc.log.Error().Err(err).Str("title_id", record.TitleID).
				Str("warehouse_id", record.WarehouseID).Msg("detección de anomalía en escaneo")
		} else if anomaly != nil {
			result.Anomalies = append(result.Anomalies, anomaly)
		}

		// Sincronización entre bodegas, una vez por título.
		if scannedTitles[record.TitleID] {
			continue
		}
		scannedTitles[record.TitleID] = true
		issues, err := uc.DetectSynchronizationDiscrepancies(ctx, record.TitleID)
		if err != nil {
			uc.log.Error().Err(err).Str("title_id", record.TitleID).
				Msg("verificación de sincronización en escaneo")
			continue
		}
		for _, issue := range issues {
			result.SyncIssues = append(result.SyncIssues, issue)
			alert := uc.raiseAlert(&entity.DiscrepancyAlert{
				Type:        entity.AlertTypeSyncMismatch,
				Severity:    severityFromRatio(issue.Severity),
				TitleID:     issue.TitleID,
				WarehouseID: issue.WarehouseID1,
				Message: fmt.Sprintf("%s entre %s y %s: varianza %.2f", issue.Type,
					issue.WarehouseID1, issue.WarehouseID2, issue.VariancePct),
			})
			if alert != nil {
				result.Alerts = append(result.Alerts, alert)
			}
		}
	}

	result.DiscrepanciesFound = len(result.Alerts) + len(result.Anomalies) + len(result.SyncIssues)
	return result, nil
}

// GetActiveAlerts devuelve las alertas en estado OPEN o ACKNOWLEDGED.
func (uc *UseCase) GetActiveAlerts() ([]*entity.DiscrepancyAlert, error) {
	return uc.alerts.ListActive()
}

// ResolveAlert transiciona el estado de una alerta y estampa resolvedAt
// cuando el estado destino es terminal.
func (uc *UseCase) ResolveAlert(id, status string) error {
	switch status {
	case entity.AlertStatusAcknowledged, entity.AlertStatusResolved, entity.AlertStatusFalsePositive:
	default:
		return domain.ErrInvalidInput
	}
	alert, err := uc.alerts.Get(id)
	if err != nil {
		return err
	}
	alert.Status = status
	if status == entity.AlertStatusResolved || status == entity.AlertStatusFalsePositive {
		now := time.Now()
		alert.ResolvedAt = &now
	}
	return uc.alerts.Update(alert)
}

// raiseAlert registra la alerta, actualiza métricas y re-publica un evento
// ADJUSTMENT sintético para que los tableros que observan el flujo de eventos
// vean la alerta como señal adyacente al stock. Devuelve nil si falló el registro.
func (uc *UseCase) raiseAlert(alert *entity.DiscrepancyAlert) *entity.DiscrepancyAlert {
	alert.ID = uuid.New().String()
	alert.Status = entity.AlertStatusOpen
	alert.CreatedAt = time.Now()

	if err := uc.alerts.Save(alert); err != nil {
		uc.log.Error().Err(err).Str("type", alert.Type).Msg("guardar alerta de discrepancia")
		return nil
	}

	uc.metrics.AlertRaised(alert.Type, alert.Severity)
	uc.log.Warn().Str("alert_id", alert.ID).Str("type", alert.Type).
		Str("severity", alert.Severity).Str("title_id", alert.TitleID).
		Str("warehouse_id", alert.WarehouseID).Msg(alert.Message)

	uc.events.Publish(entity.InventoryUpdateEvent{
		ID:           uuid.New().String(),
		Type:         entity.EventTypeAdjustment,
		TitleID:      alert.TitleID,
		WarehouseID:  alert.WarehouseID,
		InventoryID:  alert.InventoryID,
		Reference:    syntheticReferencePrefix + alert.ID,
		OccurredAt:   alert.CreatedAt,
		MovementType: entity.MovementTypeADJUSTMENT,
	})
	return alert
}

// severityFromRatio mapea una razón de varianza (0..1) a severidad de alerta.
func severityFromRatio(ratio float64) string {
	switch {
	case ratio >= 0.75:
		return entity.AlertSeverityCritical
	case ratio >= 0.5:
		return entity.AlertSeverityHigh
	case ratio >= 0.25:
		return entity.AlertSeverityMedium
	default:
		return entity.AlertSeverityLow
	}
}

func decimalToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
