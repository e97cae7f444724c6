package caching

import (
	"context"
	"time"

	"restopos/internal/kitchen"
	"restopos/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// SnapshotTTL bounds how long remote displays trust a mirror that stopped updating.
const SnapshotTTL = time.Minute

// Mirror copies the bus ticket list into redis. Pushes never block the bus:
// only the latest list is kept and older unsent lists are replaced.
type Mirror struct {
	cache  CacheService
	clock  clockwork.Clock
	logger zerolog.Logger
	latest chan []models.KitchenTicket
}

func NewMirror(cache CacheService, clock clockwork.Clock, logger zerolog.Logger) *Mirror {
	return &Mirror{
		cache:  cache,
		clock:  clock,
		logger: logger.With().Str("component", "kitchen_mirror").Logger(),
		latest: make(chan []models.KitchenTicket, 1),
	}
}

// Push is a kitchen.Listener.
func (m *Mirror) Push(tickets []models.KitchenTicket) {
	for {
		select {
		case m.latest <- tickets:
			return
		default:
		}
		select {
		case <-m.latest:
		default:
		}
	}
}

// Run writes pushed lists until ctx is done.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case tickets := <-m.latest:
			m.write(ctx, tickets)
		}
	}
}

func (m *Mirror) write(ctx context.Context, tickets []models.KitchenTicket) {
	views := kitchen.ViewPOS.Filter(tickets, m.clock.Now())
	if err := m.cache.SetKitchenSnapshot(ctx, views, SnapshotTTL); err != nil && ctx.Err() == nil {
		m.logger.Warn().Err(err).Int("tickets", len(views)).Msg("failed to mirror kitchen snapshot")
	}
}
