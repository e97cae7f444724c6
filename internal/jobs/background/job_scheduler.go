package background

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"restopos/internal/caching"
	"restopos/internal/kitchen"
	"restopos/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

const (
	KitchenResyncInterval = 5 * time.Second
	TableResyncInterval   = 30 * time.Second
	tableBoardTTL         = 2 * TableResyncInterval
)

// TicketSyncer replaces the ticket set with the store's view. *kitchen.Bus implements it.
type TicketSyncer interface {
	Sync(ctx context.Context, loader kitchen.TicketLoader) (bool, error)
}

// JobScheduler runs the periodic resyncs that repair state missed by pushes.
type JobScheduler struct {
	scheduler gocron.Scheduler
	bus       TicketSyncer
	loader    kitchen.TicketLoader
	tables    services.TableTracker
	cache     caching.CacheService
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler registers the kitchen and table resync jobs. cache may be nil.
func NewJobScheduler(bus TicketSyncer, loader kitchen.TicketLoader, tables services.TableTracker,
	cache caching.CacheService, logger zerolog.Logger, opts ...gocron.SchedulerOption) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		bus:       bus,
		loader:    loader,
		tables:    tables,
		cache:     cache,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		cancel()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info().Msg("starting background job scheduler")
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.logger.Info().Msg("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	if err := js.AddJob("kitchen-resync", KitchenResyncInterval, js.resyncKitchen); err != nil {
		return err
	}
	if err := js.AddJob("table-resync", TableResyncInterval, js.resyncTables); err != nil {
		return err
	}
	js.logger.Info().Int("jobs", len(js.jobs)).Msg("registered background jobs")
	return nil
}

// resyncKitchen reloads the ticket set so a missed publish heals within one interval.
func (js *JobScheduler) resyncKitchen(ctx context.Context) error {
	applied, err := js.bus.Sync(ctx, js.loader)
	if err != nil {
		if ctx.Err() == nil {
			js.logger.Warn().Err(err).Msg("kitchen resync failed")
		}
		return err
	}
	if !applied {
		js.logger.Debug().Msg("kitchen resync skipped, bus changed during load")
	}
	return nil
}

// resyncTables reloads the table board and republishes it to the cache.
func (js *JobScheduler) resyncTables(ctx context.Context) error {
	if err := js.tables.Load(ctx); err != nil {
		js.logger.Warn().Err(err).Msg("table resync failed")
		return err
	}
	if js.cache == nil {
		return nil
	}
	if err := js.cache.SetTableBoard(ctx, js.tables.List(), tableBoardTTL); err != nil {
		js.logger.Warn().Err(err).Msg("failed to publish table board")
	}
	return nil
}

// AddJob schedules task every interval. A run that overlaps the previous one
// is skipped.
func (js *JobScheduler) AddJob(name string, interval time.Duration, task func(ctx context.Context) error) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task, js.ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", name, err)
	}
	js.jobs[name] = job
	return nil
}

func (js *JobScheduler) RemoveJob(name string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if job, exists := js.jobs[name]; exists {
		err := js.scheduler.RemoveJob(job.ID())
		delete(js.jobs, name)
		return err
	}
	return nil
}

// JobNames lists the scheduled jobs in name order.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
