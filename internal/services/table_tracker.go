package services

import (
	"context"
	"slices"
	"strings"
	"sync"

	"restopos/internal/common"
	"restopos/internal/models"
	"restopos/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// TableTracker owns the table state machine:
//
//	AVAILABLE -> OCCUPIED (Open)      OCCUPIED -> AVAILABLE (Close)
//	AVAILABLE -> RESERVED (Reserve)   RESERVED -> AVAILABLE (Release)
//	AVAILABLE -> CLEANING (SetCleaning) CLEANING -> AVAILABLE (Release)
type TableTracker interface {
	Register(table *models.Table)
	Load(ctx context.Context) error
	Get(tableID uuid.UUID) (*models.Table, error)
	List() []*models.Table
	Open(ctx context.Context, tableID, orderID uuid.UUID, guestCount int) error
	Close(ctx context.Context, tableID uuid.UUID) error
	Reserve(ctx context.Context, tableID uuid.UUID) error
	SetCleaning(ctx context.Context, tableID uuid.UUID) error
	Release(ctx context.Context, tableID uuid.UUID) error
}

type tableTracker struct {
	repo   repositories.TableRepository
	clock  clockwork.Clock
	logger zerolog.Logger

	mu      sync.RWMutex
	tables  map[uuid.UUID]*models.Table
	version uint64
	locks   *keyedMutex
}

// NewTableTracker builds a tracker. repo may be nil, in which case state is
// kept in memory only.
func NewTableTracker(repo repositories.TableRepository, clock clockwork.Clock, logger zerolog.Logger) TableTracker {
	return &tableTracker{
		repo:   repo,
		clock:  clock,
		logger: logger.With().Str("component", "table_tracker").Logger(),
		tables: make(map[uuid.UUID]*models.Table),
		locks:  newKeyedMutex(),
	}
}

func (t *tableTracker) Register(table *models.Table) {
	c := *table
	if c.Status == "" {
		c.Status = models.TableStatusAvailable
	}
	t.mu.Lock()
	t.tables[c.ID] = &c
	t.version++
	t.mu.Unlock()
}

// Load replaces the in-memory tables with the store's rows. A load that
// overlaps a transition is discarded, since the transition may be newer than
// the rows that were read.
func (t *tableTracker) Load(ctx context.Context) error {
	if t.repo == nil {
		return nil
	}
	t.mu.RLock()
	version := t.version
	t.mu.RUnlock()

	tables, err := t.repo.List(ctx)
	if err != nil {
		return common.NewPersistenceError("tables.Load", err)
	}
	next := make(map[uuid.UUID]*models.Table, len(tables))
	for _, table := range tables {
		next[table.ID] = table
	}

	t.mu.Lock()
	if t.version != version {
		t.mu.Unlock()
		t.logger.Debug().Msg("discarding stale table load")
		return nil
	}
	t.tables = next
	t.version++
	t.mu.Unlock()
	t.logger.Debug().Int("count", len(tables)).Msg("tables loaded")
	return nil
}

func (t *tableTracker) Get(tableID uuid.UUID) (*models.Table, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	table, ok := t.tables[tableID]
	if !ok {
		return nil, common.NewNotFoundError("tables.Get", "table", tableID)
	}
	c := *table
	return &c, nil
}

// List returns copies of all tables sorted by name.
func (t *tableTracker) List() []*models.Table {
	t.mu.RLock()
	out := make([]*models.Table, 0, len(t.tables))
	for _, table := range t.tables {
		c := *table
		out = append(out, &c)
	}
	t.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.Table) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (t *tableTracker) Open(ctx context.Context, tableID, orderID uuid.UUID, guestCount int) error {
	if guestCount < 1 {
		return common.NewValidationError("tables.Open", "guest count must be at least 1")
	}
	return t.transition(ctx, "tables.Open", tableID, models.TableStatusOccupied,
		[]models.TableStatus{models.TableStatusAvailable},
		func(table *models.Table) error {
			now := table.UpdatedAt
			table.CurrentOrderID = &orderID
			table.GuestCount = guestCount
			table.OccupiedSince = &now
			if t.repo == nil {
				return nil
			}
			return t.repo.Open(ctx, tableID, orderID, guestCount, now)
		})
}

func (t *tableTracker) Close(ctx context.Context, tableID uuid.UUID) error {
	return t.transition(ctx, "tables.Close", tableID, models.TableStatusAvailable,
		[]models.TableStatus{models.TableStatusOccupied},
		func(table *models.Table) error {
			table.CurrentOrderID = nil
			table.GuestCount = 0
			table.OccupiedSince = nil
			if t.repo == nil {
				return nil
			}
			return t.repo.Close(ctx, tableID, table.UpdatedAt)
		})
}

func (t *tableTracker) Reserve(ctx context.Context, tableID uuid.UUID) error {
	return t.simple(ctx, "tables.Reserve", tableID, models.TableStatusReserved, models.TableStatusAvailable)
}

func (t *tableTracker) SetCleaning(ctx context.Context, tableID uuid.UUID) error {
	return t.simple(ctx, "tables.SetCleaning", tableID, models.TableStatusCleaning, models.TableStatusAvailable)
}

func (t *tableTracker) Release(ctx context.Context, tableID uuid.UUID) error {
	return t.simple(ctx, "tables.Release", tableID, models.TableStatusAvailable,
		models.TableStatusReserved, models.TableStatusCleaning)
}

func (t *tableTracker) simple(ctx context.Context, op string, tableID uuid.UUID, to models.TableStatus, from ...models.TableStatus) error {
	return t.transition(ctx, op, tableID, to, from, func(table *models.Table) error {
		if t.repo == nil {
			return nil
		}
		return t.repo.UpdateStatus(ctx, tableID, to, table.UpdatedAt)
	})
}

// transition applies one edge under the table's lock. The new state is only
// installed once persist succeeds.
func (t *tableTracker) transition(ctx context.Context, op string, tableID uuid.UUID, to models.TableStatus,
	from []models.TableStatus, persist func(*models.Table) error) error {
	unlock := t.locks.Lock(tableID)
	defer unlock()

	current, err := t.Get(tableID)
	if err != nil {
		return err
	}
	if !slices.Contains(from, current.Status) {
		return common.NewInvalidTransitionError(op, current.Status, to)
	}

	next := *current
	next.Status = to
	next.UpdatedAt = t.clock.Now()
	if err := persist(&next); err != nil {
		t.logger.Error().Err(err).Str("table_id", tableID.String()).Str("op", op).Msg("failed to persist table state")
		return common.NewPersistenceError(op, err)
	}

	t.mu.Lock()
	t.tables[tableID] = &next
	t.version++
	t.mu.Unlock()

	t.logger.Info().Str("table_id", tableID.String()).Str("from", string(current.Status)).Str("to", string(to)).Msg("table status changed")
	return nil
}
