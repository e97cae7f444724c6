package kitchen

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"restopos/internal/common"
	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Listener receives the full ordered ticket list after every mutation.
type Listener func(tickets []models.KitchenTicket)

// TicketLoader rebuilds the open ticket set from the store.
type TicketLoader interface {
	ListKitchenItems(ctx context.Context) ([]models.KitchenTicket, error)
}

// Subscription is the handle returned by Subscribe. It owns its unsubscribe.
type Subscription struct {
	id       uint64
	bus      *Bus
	listener Listener
	active   atomic.Bool
}

// Unsubscribe detaches the listener. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
}

func (s *Subscription) Active() bool {
	return s.active.Load()
}

func (s *Subscription) deliver(tickets []models.KitchenTicket) {
	if !s.Active() {
		return
	}
	s.listener(tickets)
}

// Bus is the in-memory registry of open kitchen tickets, keyed by order id.
// Mutations are serialized; listeners are invoked through the dispatcher after
// the lock is released.
type Bus struct {
	mu         sync.RWMutex
	tickets    map[uuid.UUID]models.KitchenTicket
	subs       map[uint64]*Subscription
	nextSubID  uint64
	version    uint64
	dispatcher Dispatcher
	clock      clockwork.Clock
	logger     zerolog.Logger
}

func NewBus(dispatcher Dispatcher, clock clockwork.Clock, logger zerolog.Logger) *Bus {
	if dispatcher == nil {
		dispatcher = InlineDispatcher{}
	}
	return &Bus{
		tickets:    make(map[uuid.UUID]models.KitchenTicket),
		subs:       make(map[uint64]*Subscription),
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger.With().Str("component", "kitchen_bus").Logger(),
	}
}

// Publish merges a ticket into the open set. Items are matched by item id and the
// incoming status wins; items that are no longer PENDING, COOKING or READY are
// dropped. A ticket left without items is retired.
func (b *Bus) Publish(ticket models.KitchenTicket) {
	b.mu.Lock()
	current, exists := b.tickets[ticket.ID]
	if !exists {
		current = models.KitchenTicket{ID: ticket.ID, CreatedAt: ticket.CreatedAt}
	}
	merged := mergeTicket(current, ticket)
	if len(merged.Items) == 0 {
		if !exists {
			b.mu.Unlock()
			return
		}
		delete(b.tickets, ticket.ID)
	} else {
		b.tickets[ticket.ID] = merged
	}
	b.version++
	tickets, subs := b.stateLocked()
	b.mu.Unlock()

	b.logger.Debug().Str("ticket_id", ticket.ID.String()).Int("items", len(merged.Items)).Msg("ticket published")
	b.notify(subs, tickets)
}

func mergeTicket(current, incoming models.KitchenTicket) models.KitchenTicket {
	merged := current.Clone()
	if incoming.OrderCode != "" {
		merged.OrderCode = incoming.OrderCode
	}
	if incoming.TableName != "" {
		merged.TableName = incoming.TableName
	}
	if merged.CreatedAt.IsZero() || (!incoming.CreatedAt.IsZero() && incoming.CreatedAt.Before(merged.CreatedAt)) {
		merged.CreatedAt = incoming.CreatedAt
	}
	for _, item := range incoming.Items {
		idx := slices.IndexFunc(merged.Items, func(i models.KitchenItem) bool { return i.ItemID == item.ItemID })
		switch {
		case !item.Status.InKitchen():
			if idx >= 0 {
				merged.Items = slices.Delete(merged.Items, idx, idx+1)
			}
		case idx >= 0:
			merged.Items[idx] = item
		default:
			merged.Items = append(merged.Items, item)
		}
	}
	return merged
}

// Advance moves one item of an open ticket along the item state machine.
func (b *Bus) Advance(ticketID, itemID uuid.UUID, status models.ItemStatus) error {
	const op = "kitchen.Advance"

	b.mu.Lock()
	ticket, ok := b.tickets[ticketID]
	if !ok {
		b.mu.Unlock()
		return common.NewNotFoundError(op, "ticket", ticketID)
	}
	idx := slices.IndexFunc(ticket.Items, func(i models.KitchenItem) bool { return i.ItemID == itemID })
	if idx < 0 {
		b.mu.Unlock()
		return common.NewNotFoundError(op, "ticket item", itemID)
	}
	from := ticket.Items[idx].Status
	if !models.CanTransitionItem(from, status) {
		b.mu.Unlock()
		return common.NewInvalidTransitionError(op, from, status)
	}

	ticket = ticket.Clone()
	if status.InKitchen() {
		ticket.Items[idx].Status = status
	} else {
		ticket.Items = slices.Delete(ticket.Items, idx, idx+1)
	}
	if len(ticket.Items) == 0 {
		delete(b.tickets, ticketID)
	} else {
		b.tickets[ticketID] = ticket
	}
	b.version++
	tickets, subs := b.stateLocked()
	b.mu.Unlock()

	b.notify(subs, tickets)
	return nil
}

// Retire removes a ticket. Retiring a ticket that is not open is a no-op.
func (b *Bus) Retire(ticketID uuid.UUID) {
	b.mu.Lock()
	if _, ok := b.tickets[ticketID]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.tickets, ticketID)
	b.version++
	tickets, subs := b.stateLocked()
	b.mu.Unlock()

	b.logger.Debug().Str("ticket_id", ticketID.String()).Msg("ticket retired")
	b.notify(subs, tickets)
}

// Subscribe registers a listener for future mutations. Earlier mutations are not
// replayed; callers read Snapshot for the current state.
func (b *Bus) Subscribe(listener Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	sub := &Subscription{id: b.nextSubID, bus: b, listener: listener}
	sub.active.Store(true)
	b.subs[sub.id] = sub
	return sub
}

// Tickets returns the open tickets oldest first.
func (b *Bus) Tickets() []models.KitchenTicket {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sortedLocked()
}

// Snapshot returns the open tickets oldest first, classified against the clock.
func (b *Bus) Snapshot() []models.TicketView {
	return classifyAll(b.Tickets(), b.clock.Now())
}

// Sync replaces the ticket set with the store's view. A load that overlaps a
// mutation is discarded, since the mutation may be newer than what was read;
// applied reports whether the loaded set was installed.
func (b *Bus) Sync(ctx context.Context, loader TicketLoader) (applied bool, err error) {
	b.mu.RLock()
	version := b.version
	b.mu.RUnlock()

	loaded, err := loader.ListKitchenItems(ctx)
	if err != nil {
		return false, common.NewPersistenceError("kitchen.Sync", err)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	if b.version != version {
		b.mu.Unlock()
		b.logger.Debug().Msg("discarding stale ticket load")
		return false, nil
	}
	next := make(map[uuid.UUID]models.KitchenTicket, len(loaded))
	for _, t := range loaded {
		merged := mergeTicket(models.KitchenTicket{ID: t.ID, CreatedAt: t.CreatedAt}, t)
		if len(merged.Items) > 0 {
			next[t.ID] = merged
		}
	}
	b.tickets = next
	b.version++
	tickets, subs := b.stateLocked()
	b.mu.Unlock()

	b.notify(subs, tickets)
	return true, nil
}

func (b *Bus) sortedLocked() []models.KitchenTicket {
	out := make([]models.KitchenTicket, 0, len(b.tickets))
	for _, t := range b.tickets {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(x, y models.KitchenTicket) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.OrderCode, y.OrderCode)
	})
	return out
}

func (b *Bus) stateLocked() ([]models.KitchenTicket, []*Subscription) {
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	slices.SortFunc(subs, func(x, y *Subscription) int { return cmp.Compare(x.id, y.id) })
	return b.sortedLocked(), subs
}

func (b *Bus) notify(subs []*Subscription, tickets []models.KitchenTicket) {
	for _, sub := range subs {
		own := cloneTickets(tickets)
		b.dispatcher.Dispatch(func() { sub.deliver(own) })
	}
}

func cloneTickets(tickets []models.KitchenTicket) []models.KitchenTicket {
	out := make([]models.KitchenTicket, len(tickets))
	for i, t := range tickets {
		out[i] = t.Clone()
	}
	return out
}
