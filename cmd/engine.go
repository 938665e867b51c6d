package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/tableside/config"
	"example.com/tableside/internal/api"
	"example.com/tableside/internal/api/handlers"
	"example.com/tableside/internal/collab"
	"example.com/tableside/internal/events"
	"example.com/tableside/internal/identity"
	"example.com/tableside/internal/overlay"
	"example.com/tableside/internal/remote"
	"example.com/tableside/internal/repos"
	"example.com/tableside/internal/search"
	"example.com/tableside/internal/services"
	"example.com/tableside/internal/store"
	"example.com/tableside/internal/syncer"
	"example.com/tableside/internal/tracing"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Start the order engine",
	Long:  `Start the venue's order engine: HTTP API, background sync and automations on top of the durable local store`,
	RunE:  runEngine,
}

func init() {
	rootCmd.AddCommand(engineCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Open the local store. Without it the venue cannot take orders, so
	// failure here is fatal.
	bus := events.NewBus()
	st, err := store.Open(cfg.Store.Path, cfg.Store.MaxBytes, bus)
	if err != nil {
		return errors.Wrap(err, "failed to open local store")
	}
	defer st.Close()

	// Connect to the shared backend. Failure means local-only mode, never
	// a startup failure.
	var rc remote.Client
	if gc, err := remote.Connect(cfg.Remote); err != nil {
		log.Warn().Err(err).Msg("Shared backend unreachable, running local-only")
		rc = remote.Unavailable()
	} else {
		rc = gc
	}
	defer rc.Close()

	// Initialize the reconciliation overlay, falling back to memory
	var ov overlay.Overlay = overlay.NewMemoryOverlay()
	if cfg.Redis.Enabled {
		if ro, err := overlay.NewRedisOverlay(cfg.Redis); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory overlay")
		} else {
			ov = ro
		}
	}

	// Bootstrap identity. Failure is tolerated, repositories retry lazily.
	ids := identity.NewManager(st, rc, cfg.TenantID)
	if _, err := ids.Ensure(ctx); err != nil {
		log.Warn().Err(err).Msg("Identity bootstrap deferred")
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}
	defer tracer.Close()

	// Initialize Elasticsearch client for history search
	elastic, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	// Initialize outbound messaging
	messenger, err := collab.NewMessenger(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize messenger, continuing without messaging")
		messenger, _ = collab.NewMessenger(config.AzureConfig{})
	}
	defer messenger.Close()

	// Initialize repositories
	orders := repos.NewOrders(st, bus, ids, rc, ov)
	settings := repos.NewSettings(st, bus, ids, rc)
	menuItems := repos.NewMenuItems(st, bus, ids, rc)
	reservations := repos.NewReservations(st, bus, ids, rc)
	customers := repos.NewCustomers(st, bus, ids, rc)
	promotions := repos.NewPromotions(st, bus, ids, rc)
	automations := repos.NewAutomations(st, bus, ids, rc)
	posts := repos.NewSocialPosts(st, bus, ids, rc)

	// Initialize services
	orderService := services.NewOrderService(orders, settings, collab.NewLogPrinter(), elastic, tracer)
	engagement := services.NewEngagementService(customers, promotions, automations, posts, messenger)

	// Start the sync scheduler
	feed, err := remote.NewFeedListener(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize change feed listener, relying on heartbeat pulls")
		feed, _ = remote.NewFeedListener(config.AzureConfig{})
	}
	scheduler := syncer.NewScheduler(feed, cfg.TenantID, cfg.Sync.HeartbeatInterval,
		orders, settings, menuItems, reservations, customers, promotions, automations, posts)
	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	// Start the automation watcher
	watcher := services.NewStatusWatcher(orders, engagement)
	g.Go(func() error {
		return watcher.Run(ctx, bus)
	})

	// Start the housekeeping jobs: history pruning and due social posts
	g.Go(func() error {
		return runHousekeeping(ctx, cfg, orderService, engagement)
	})

	// Start the HTTP server
	server := api.NewServer(cfg, api.Deps{
		Orders:     orderService,
		Engagement: engagement,
		Entities:   handlers.NewEntityHandler(menuItems, reservations, customers, promotions, automations, posts),
		Settings:   handlers.NewSettingsHandler(settings),
		Tracer:     tracer,
	})
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Engine error")
		return err
	}

	log.Info().Msg("Engine shutting down gracefully")
	return nil
}

func runHousekeeping(ctx context.Context, cfg config.Config, orderService *services.OrderService, engagement *services.EngagementService) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Sync.PruneInterval),
		gocron.NewTask(func() {
			orderService.PruneHistory(ctx)
		}),
	)
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Sync.HeartbeatInterval),
		gocron.NewTask(func() {
			engagement.PublishDuePosts(ctx)
		}),
	)
	if err != nil {
		return err
	}

	scheduler.Start()

	<-ctx.Done()

	return scheduler.Shutdown()
}
