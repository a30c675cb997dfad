package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tu-usuario/editorial-stock/internal/application/engine"
	"github.com/tu-usuario/editorial-stock/internal/domain"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
)

var _ engine.ReservationStore = (*ReservationStore)(nil)

const (
	reservationKeyPrefix = "reservation:"
	activeSetKey         = "reservations:active"
	allSetKey            = "reservations:all"
)

// transitionScript compare-and-swap del estado de una reserva: compara el
// campo status del hash y solo entonces lo reemplaza, manteniendo el set de
// activas. Atómico en el servidor Redis.
var transitionScript = redis.NewScript(`
local key = KEYS[1]
local activeSet = KEYS[2]
local id = ARGV[1]
local from = ARGV[2]
local to = ARGV[3]

local current = redis.call('HGET', key, 'status')
if not current then
	return -1
end
if current ~= from then
	return 0
end

redis.call('HSET', key, 'status', to)
if to == 'ACTIVE' then
	redis.call('SADD', activeSet, id)
else
	redis.call('SREM', activeSet, id)
end
return 1
`)

// ReservationStore almacén de reservas sobre Redis: una opción distribuida
// para correr varios procesos del motor contra el mismo índice.
// Cada reserva vive en un hash (data JSON + status) indexado por dos sets.
type ReservationStore struct {
	client *redis.Client
}

// NewReservationStore construye el almacén con el cliente dado.
func NewReservationStore(client *redis.Client) *ReservationStore {
	return &ReservationStore{client: client}
}

// Save registra una reserva nueva.
func (s *ReservationStore) Save(r *entity.Reservation) error {
	ctx := context.Background()
	key := reservationKeyPrefix + r.ID

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists > 0 {
		return domain.ErrDuplicate
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("serializar reserva: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "status", r.Status)
	pipe.SAdd(ctx, allSetKey, r.ID)
	if r.Status == entity.ReservationStatusActive {
		pipe.SAdd(ctx, activeSetKey, r.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// Get devuelve la reserva; el campo status del hash es el autoritativo.
func (s *ReservationStore) Get(id string) (*entity.Reservation, error) {
	ctx := context.Background()
	values, err := s.client.HMGet(ctx, reservationKeyPrefix+id, "data", "status").Result()
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if values[0] == nil {
		return nil, domain.ErrNotFound
	}

	var r entity.Reservation
	if err := json.Unmarshal([]byte(values[0].(string)), &r); err != nil {
		return nil, fmt.Errorf("deserializar reserva: %w", err)
	}
	if status, ok := values[1].(string); ok {
		r.Status = status
	}
	return &r, nil
}

// Update reemplaza la reserva existente.
func (s *ReservationStore) Update(r *entity.Reservation) error {
	ctx := context.Background()
	key := reservationKeyPrefix + r.ID

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("serializar reserva: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "status", r.Status)
	if r.Status == entity.ReservationStatusActive {
		pipe.SAdd(ctx, activeSetKey, r.ID)
	} else {
		pipe.SRem(ctx, activeSetKey, r.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis update: %w", err)
	}
	return nil
}

// ListActive devuelve las reservas del set de activas.
func (s *ReservationStore) ListActive() ([]*entity.Reservation, error) {
	ctx := context.Background()
	ids, err := s.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	var active []*entity.Reservation
	for _, id := range ids {
		r, err := s.Get(id)
		if errors.Is(err, domain.ErrNotFound) {
			// El set puede ir un paso adelante del hash; se ignora.
			continue
		}
		if err != nil {
			return nil, err
		}
		if r.Status == entity.ReservationStatusActive {
			active = append(active, r)
		}
	}
	return active, nil
}

// TransitionStatus compare-and-swap vía script Lua.
func (s *ReservationStore) TransitionStatus(id, from, to string) (bool, error) {
	ctx := context.Background()
	result, err := transitionScript.Run(ctx, s.client,
		[]string{reservationKeyPrefix + id, activeSetKey}, id, from, to).Int()
	if err != nil {
		return false, fmt.Errorf("redis transition: %w", err)
	}
	if result == -1 {
		return false, domain.ErrNotFound
	}
	return result == 1, nil
}

// PurgeInactiveOlderThan elimina reservas no-ACTIVE creadas antes del corte.
func (s *ReservationStore) PurgeInactiveOlderThan(cutoff time.Time) (int, error) {
	ctx := context.Background()
	ids, err := s.client.SMembers(ctx, allSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers: %w", err)
	}

	purged := 0
	for _, id := range ids {
		r, err := s.Get(id)
		if errors.Is(err, domain.ErrNotFound) {
			s.client.SRem(ctx, allSetKey, id)
			continue
		}
		if err != nil {
			return purged, err
		}
		if r.Status == entity.ReservationStatusActive || !r.CreatedAt.Before(cutoff) {
			continue
		}
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, reservationKeyPrefix+id)
		pipe.SRem(ctx, allSetKey, id)
		pipe.SRem(ctx, activeSetKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return purged, fmt.Errorf("redis purge: %w", err)
		}
		purged++
	}
	return purged, nil
}
