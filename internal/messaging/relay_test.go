package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	exchange   string
	routingKey string
	body       []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []message
	err  error
	got  chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{got: make(chan struct{}, 64)}
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, message{exchange, routingKey, body})
	f.mu.Unlock()
	f.got <- struct{}{}
	return f.err
}

func (f *fakePublisher) wait(t *testing.T, n int) {
	t.Helper()
	for range n {
		select {
		case <-f.got:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for publish")
		}
	}
}

func TestRelay_PublishesTicketsAndEvents(t *testing.T) {
	pub := newFakePublisher()
	relay := NewRelay(pub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticket := models.KitchenTicket{ID: uuid.New(), OrderCode: "ORD-20260314-0001", TableName: "T1"}
	relay.Push([]models.KitchenTicket{ticket})
	relay.PublishOrderEvent(models.OrderEvent{Type: models.OrderEventCompleted, OrderID: ticket.ID, TotalAmount: 97200})

	go func() { _ = relay.Run(ctx) }()
	pub.wait(t, 2)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	byExchange := map[string]message{}
	for _, m := range pub.sent {
		byExchange[m.exchange] = m
	}

	var tickets []models.KitchenTicket
	require.NoError(t, json.Unmarshal(byExchange[KitchenExchange].body, &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, "ORD-20260314-0001", tickets[0].OrderCode)

	event := byExchange[OrdersExchange]
	assert.Equal(t, "order.completed", event.routingKey)
	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(event.body, &decoded))
	assert.Equal(t, models.Money(97200), decoded.TotalAmount)
}

func TestRelay_PushKeepsLatestList(t *testing.T) {
	pub := newFakePublisher()
	relay := NewRelay(pub, zerolog.Nop())

	for i := range 5 {
		relay.Push(make([]models.KitchenTicket, i+1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()
	pub.wait(t, 1)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.sent, 1)
	var tickets []models.KitchenTicket
	require.NoError(t, json.Unmarshal(pub.sent[0].body, &tickets))
	assert.Len(t, tickets, 5)
}

func TestRelay_DropsEventsWhenFull(t *testing.T) {
	pub := newFakePublisher()
	relay := NewRelay(pub, zerolog.Nop())

	for range eventBuffer + 10 {
		relay.PublishOrderEvent(models.OrderEvent{Type: models.OrderEventOpened})
	}
	assert.Len(t, relay.events, eventBuffer)
}

func TestRelay_PublishErrorsDoNotStopRun(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("channel closed")
	relay := NewRelay(pub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	relay.PublishOrderEvent(models.OrderEvent{Type: models.OrderEventOpened})
	pub.wait(t, 1)
	relay.PublishOrderEvent(models.OrderEvent{Type: models.OrderEventCancelled})
	pub.wait(t, 1)

	cancel()
	assert.NoError(t, <-done)
}
