package kitchen

import (
	"context"
	"sync"
	"time"

	"restopos/internal/models"

	"github.com/rs/zerolog"
)

type ViewKind string

const (
	ViewKitchen ViewKind = "KITCHEN"
	ViewWaiter  ViewKind = "WAITER"
	ViewPOS     ViewKind = "POS"
)

const DefaultResyncInterval = 5 * time.Second

func ParseViewKind(s string) (ViewKind, bool) {
	switch k := ViewKind(s); k {
	case ViewKitchen, ViewWaiter, ViewPOS:
		return k, true
	case "":
		return ViewPOS, true
	}
	return "", false
}

// accepts reports whether an item belongs on this kind of display.
func (k ViewKind) accepts(status models.ItemStatus) bool {
	switch k {
	case ViewKitchen:
		return status == models.ItemStatusPending || status == models.ItemStatusCooking
	case ViewWaiter:
		return status == models.ItemStatusReady
	default:
		return status.InKitchen()
	}
}

// Filter classifies the tickets and keeps the items this display shows. Tickets
// with nothing left to show are omitted.
func (k ViewKind) Filter(tickets []models.KitchenTicket, now time.Time) []models.TicketView {
	out := make([]models.TicketView, 0, len(tickets))
	for _, view := range classifyAll(tickets, now) {
		var items []models.KitchenItem
		for _, item := range view.Items {
			if k.accepts(item.Status) {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		view.Items = items
		out = append(out, view)
	}
	return out
}

type ViewConfig struct {
	Kind     ViewKind
	Interval time.Duration
	// Loader, when set, resyncs the bus from the store on every tick before the
	// view re-reads its snapshot.
	Loader TicketLoader
	// OnChange runs through the dispatcher whenever the visible list is replaced.
	OnChange   func([]models.TicketView)
	Dispatcher Dispatcher
}

// View is one consumer panel. It takes pushes from the bus and re-reads the bus
// snapshot on a fixed interval, so a missed push is repaired by the next tick.
type View struct {
	bus    *Bus
	cfg    ViewConfig
	logger zerolog.Logger

	mu     sync.Mutex
	raw    []models.KitchenTicket
	closed bool

	sub    *Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

func NewView(bus *Bus, cfg ViewConfig, logger zerolog.Logger) *View {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultResyncInterval
	}
	if cfg.Kind == "" {
		cfg.Kind = ViewPOS
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = InlineDispatcher{}
	}
	return &View{
		bus:    bus,
		cfg:    cfg,
		logger: logger.With().Str("component", "kitchen_view").Str("view", string(cfg.Kind)).Logger(),
		done:   make(chan struct{}),
	}
}

// Start subscribes, takes an initial snapshot and starts the resync timer. The
// timer stops when ctx is cancelled or Close is called.
func (v *View) Start(ctx context.Context) {
	ctx, v.cancel = context.WithCancel(ctx)
	v.sub = v.bus.Subscribe(func(tickets []models.KitchenTicket) {
		v.replace(tickets)
	})
	v.Refresh()

	ticker := v.bus.clock.NewTicker(v.cfg.Interval)
	go func() {
		defer close(v.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				v.resync(ctx)
			}
		}
	}()
}

func (v *View) resync(ctx context.Context) {
	if v.cfg.Loader != nil {
		if _, err := v.bus.Sync(ctx, v.cfg.Loader); err != nil && ctx.Err() == nil {
			v.logger.Warn().Err(err).Msg("ticket resync failed")
		}
	}
	if ctx.Err() != nil {
		return
	}
	v.cfg.Dispatcher.Dispatch(v.Refresh)
}

// Refresh re-reads the bus snapshot.
func (v *View) Refresh() {
	v.replace(v.bus.Tickets())
}

func (v *View) replace(tickets []models.KitchenTicket) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.raw = tickets
	v.mu.Unlock()

	if v.cfg.OnChange != nil {
		v.cfg.OnChange(v.cfg.Kind.Filter(tickets, v.bus.clock.Now()))
	}
}

// Tickets returns the last list the view received, filtered and classified
// against the current time.
func (v *View) Tickets() []models.TicketView {
	v.mu.Lock()
	raw := cloneTickets(v.raw)
	v.mu.Unlock()
	return v.cfg.Kind.Filter(raw, v.bus.clock.Now())
}

// Close unsubscribes, stops the timer and cancels any in-flight load. Callbacks
// arriving afterwards are ignored.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	if v.sub != nil {
		v.sub.Unsubscribe()
	}
	if v.cancel != nil {
		v.cancel()
		<-v.done
	}
}
