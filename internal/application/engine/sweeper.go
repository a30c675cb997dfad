package engine

import (
	"context"
	"time"

	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

// Sweeper ejecuta el barrido de reservas expiradas en un intervalo fijo.
// Seguro de correr en paralelo con reservas nuevas: la idempotencia la
// garantiza el compare-and-swap del caso de uso.
type Sweeper struct {
	reservations *ReservationUseCase
	interval     time.Duration
	log          *logger.Logger
}

// NewSweeper construye el barredor. interval <= 0 usa un minuto.
func NewSweeper(reservations *ReservationUseCase, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.New(logger.Config{Env: "production", Level: "info"})
	}
	return &Sweeper{reservations: reservations, interval: interval, log: log}
}

// Run bloquea hasta que el contexto se cancele, barriendo cada intervalo.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.reservations.CleanupExpiredReservations(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("barrido de reservas expiradas")
				continue
			}
			if result.Cleaned > 0 {
				s.log.Info().Int("cleaned", result.Cleaned).
					Int64("released_quantity", result.ReleasedQuantity).
					Msg("reservas expiradas liberadas")
			}
		}
	}
}
