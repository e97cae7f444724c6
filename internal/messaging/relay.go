package messaging

import (
	"context"
	"encoding/json"

	"restopos/internal/models"

	"github.com/rs/zerolog"
)

const eventBuffer = 256

// Relay forwards the kitchen ticket list and order lifecycle events to the
// broker. Both entry points return immediately; Run does the publishing.
type Relay struct {
	publisher Publisher
	logger    zerolog.Logger
	tickets   chan []models.KitchenTicket
	events    chan models.OrderEvent
}

func NewRelay(publisher Publisher, logger zerolog.Logger) *Relay {
	return &Relay{
		publisher: publisher,
		logger:    logger.With().Str("component", "relay").Logger(),
		tickets:   make(chan []models.KitchenTicket, 1),
		events:    make(chan models.OrderEvent, eventBuffer),
	}
}

// Push is a kitchen.Listener. An unsent list is replaced by the newer one.
func (r *Relay) Push(tickets []models.KitchenTicket) {
	for {
		select {
		case r.tickets <- tickets:
			return
		default:
		}
		select {
		case <-r.tickets:
		default:
		}
	}
}

// PublishOrderEvent queues event, dropping it when the buffer is full.
func (r *Relay) PublishOrderEvent(event models.OrderEvent) {
	select {
	case r.events <- event:
	default:
		r.logger.Warn().Str("order_id", event.OrderID.String()).Str("type", string(event.Type)).Msg("event buffer full, dropping order event")
	}
}

func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case tickets := <-r.tickets:
			r.publish(ctx, KitchenExchange, "", tickets)
		case event := <-r.events:
			r.publish(ctx, OrdersExchange, string(event.Type), event)
		}
	}
}

func (r *Relay) publish(ctx context.Context, exchange, routingKey string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		r.logger.Error().Err(err).Str("exchange", exchange).Msg("failed to encode message")
		return
	}
	if err := r.publisher.Publish(ctx, exchange, routingKey, body); err != nil && ctx.Err() == nil {
		r.logger.Warn().Err(err).Str("exchange", exchange).Str("routing_key", routingKey).Msg("failed to publish message")
	}
}
