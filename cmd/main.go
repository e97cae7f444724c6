package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"restopos/internal/caching"
	"restopos/internal/config"
	"restopos/internal/handlers"
	"restopos/internal/jobs/background"
	"restopos/internal/kitchen"
	"restopos/internal/messaging"
	"restopos/internal/middleware"
	"restopos/internal/repositories"
	"restopos/internal/services"
	"restopos/pkg/database"
	"restopos/pkg/logger"
)

const version = "1.0.0"

const eventLoopSize = 1024

func main() {
	cfg, err := config.Load(os.Getenv("RESTOPOS_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLog := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLog); err != nil {
		appLog.Fatal().Err(err).Msg("server stopped")
	}
	appLog.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}

	orderStore := repositories.NewOrderStore(pool)
	tableRepo := repositories.NewTableRepo(pool)
	promotionRepo := repositories.NewPromotionRepo(pool)
	splitRepo := repositories.NewSplitBillRepo(pool)

	clock := clockwork.NewRealClock()
	loop := kitchen.NewEventLoop(eventLoopSize, logger)
	bus := kitchen.NewBus(loop, clock, logger)
	tracker := services.NewTableTracker(tableRepo, clock, logger)
	promotions := services.NewPromotionEngine(promotionRepo, logger)

	var ledgerOpts []services.LedgerOption
	if cfg.Orders.DefaultTaxPercent != "" {
		tax, err := decimal.NewFromString(cfg.Orders.DefaultTaxPercent)
		if err != nil {
			return fmt.Errorf("invalid orders.default_tax_percent: %w", err)
		}
		ledgerOpts = append(ledgerOpts, services.WithDefaultTax(tax))
	}

	var cache caching.CacheService
	codes := services.NewMemoryOrderCodeGenerator(nil)
	if cfg.Redis.Addr != "" {
		cache = caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		codes = services.NewReservingOrderCodeGenerator(cache, nil)
	} else {
		logger.Warn().Msg("redis not configured, order codes are only unique within this process")
	}

	var storage handlers.BucketChecker
	if cfg.MinIO.Endpoint != "" {
		client, err := services.NewMinioClient(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.UseSSL)
		if err != nil {
			return fmt.Errorf("failed to initialize MinIO client: %w", err)
		}
		storage = client
		ledgerOpts = append(ledgerOpts, services.WithReceiptArchiver(services.NewReceiptArchiver(client, cfg.MinIO.Bucket)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })

	if cfg.RabbitMQ.URL != "" {
		publisher, err := messaging.DialAMQP(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer publisher.Close()
		relay := messaging.NewRelay(publisher, logger)
		bus.Subscribe(relay.Push)
		ledgerOpts = append(ledgerOpts, services.WithEventPublisher(relay))
		g.Go(func() error { return relay.Run(gctx) })
	}
	if cache != nil {
		mirror := caching.NewMirror(cache, clock, logger)
		bus.Subscribe(mirror.Push)
		g.Go(func() error { return mirror.Run(gctx) })
	}

	ledger := services.NewOrderLedger(orderStore, tracker, bus, promotions, codes, clock, logger, ledgerOpts...)
	splits := services.NewSplitBillService(ledger, splitRepo, clock, logger)

	if err := hydrate(ctx, tracker, ledger, bus, orderStore.Details()); err != nil {
		return err
	}

	scheduler, err := background.NewJobScheduler(bus, orderStore.Details(), tracker, cache, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	boards := make(map[kitchen.ViewKind]handlers.TicketBoard)
	for _, kind := range []kitchen.ViewKind{kitchen.ViewKitchen, kitchen.ViewWaiter, kitchen.ViewPOS} {
		view := kitchen.NewView(bus, kitchen.ViewConfig{Kind: kind, Dispatcher: loop}, logger)
		view.Start(gctx)
		defer view.Close()
		boards[kind] = view
	}

	e := newServer(cfg, logger, &handlers.Router{
		Orders:  handlers.NewOrderHandlers(ledger),
		Tables:  handlers.NewTableHandlers(tracker),
		Kitchen: handlers.NewKitchenHandlers(boards),
		Splits:  handlers.NewSplitHandlers(splits),
	}, handlers.NewHealthHandlers(pool, cache, storage, cfg.MinIO.Bucket, clock, version))

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info().Str("addr", addr).Str("version", version).Msg("restopos server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// hydrate loads tables, open orders and kitchen tickets in parallel before
// the server accepts requests.
func hydrate(ctx context.Context, tracker services.TableTracker, ledger services.OrderLedger, bus *kitchen.Bus, loader kitchen.TicketLoader) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tracker.Load(gctx) })
	g.Go(func() error { return ledger.Load(gctx) })
	g.Go(func() error {
		_, err := bus.Sync(gctx, loader)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to hydrate state: %w", err)
	}
	return nil
}

func newServer(cfg *config.Config, logger zerolog.Logger, router *handlers.Router, health *handlers.HealthHandlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.RequestLogger(logger.With().Str("component", "http").Logger()))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	e.GET("/health", health.HealthCheck)
	e.GET("/health/live", health.LivenessCheck)

	v1 := e.Group("/v1", middleware.VersionHeader("v1", version))
	router.Register(v1, middleware.StaffAuth(cfg.Auth.JWTSecret))
	return e
}
