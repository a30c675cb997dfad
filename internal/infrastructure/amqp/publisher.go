package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tu-usuario/editorial-stock/internal/application/engine"
	"github.com/tu-usuario/editorial-stock/internal/domain/entity"
	"github.com/tu-usuario/editorial-stock/pkg/logger"
)

var _ engine.EventPublisher = (*EventBridge)(nil)

const defaultExchange = "editorial.stock.events"

// EventBridge reenvía los eventos del bus interno hacia un exchange AMQP,
// para que otros sistemas (facturación, tienda) consuman los cambios de
// inventario sin acoplarse al motor.
type EventBridge struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *logger.Logger
}

// NewEventBridge conecta al broker y declara el exchange durable.
func NewEventBridge(url, exchange string, log *logger.Logger) (*EventBridge, error) {
	if exchange == "" {
		exchange = defaultExchange
	}
	if log == nil {
		log = logger.New(logger.Config{Env: "production", Level: "info"})
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("conectar a AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("abrir canal AMQP: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declarar exchange %s: %w", exchange, err)
	}

	return &EventBridge{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		log:      log.Named("amqp"),
	}, nil
}

// Publish serializa el evento y lo publica con routing key por tipo y bodega,
// p.ej. "STOCK_CHANGE.MAD-01". Implementa engine.EventPublisher.
func (b *EventBridge) Publish(event entity.InventoryUpdateEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		b.log.Error().Err(err).Str("event_id", event.ID).Msg("no se pudo serializar el evento")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	routingKey := fmt.Sprintf("%s.%s", event.Type, event.WarehouseID)
	err = b.channel.PublishWithContext(ctx,
		b.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		b.log.Error().Err(err).Str("routing_key", routingKey).Msg("no se pudo publicar el evento")
	}
}

// Close cierra canal y conexión.
func (b *EventBridge) Close() error {
	if err := b.channel.Close(); err != nil {
		return err
	}
	return b.conn.Close()
}
