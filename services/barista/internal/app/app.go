package app

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	aptevents "github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"

	"github.com/appetiteclub/barista/pkg"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/barista"
	"github.com/appetiteclub/barista/services/barista/internal/conversation"
	"github.com/appetiteclub/barista/services/barista/internal/events"
	"github.com/appetiteclub/barista/services/barista/internal/memory"
	"github.com/appetiteclub/barista/services/barista/internal/mongo"
	"github.com/appetiteclub/barista/services/barista/internal/monitor"
	"github.com/appetiteclub/barista/services/barista/internal/notify"
	"github.com/appetiteclub/barista/services/barista/internal/order"
	"github.com/appetiteclub/barista/services/barista/internal/station"
)

const (
	AppName    = "barista"
	AppVersion = "0.1.0"
)

// preferenceStore is implemented by both backends.
type preferenceStore interface {
	assignment.PreferenceRecorder
	conversation.Preferences
}

// backend groups the storage a deployment runs on.
type backend struct {
	stations      station.Repo
	orders        order.Repo
	store         assignment.Store
	preferences   preferenceStore
	conversations conversation.StateStore
	lifecycles    []interface{}
}

// App encapsulates the barista service application
type App struct {
	config   *apt.Config
	logger   apt.Logger
	settings Settings
	micro    *apt.Micro
}

func New(config *apt.Config, logger apt.Logger) (*App, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	settings, err := LoadSettings(config)
	if err != nil {
		return nil, err
	}
	return &App{
		config:   config,
		logger:   logger,
		settings: settings,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	be, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	lifecycles := be.lifecycles

	// Messaging is optional; without it the HTTP API still works.
	var (
		publisher   aptevents.Publisher
		subscriber  *pkg.NATSSubscriber
		supportFeed aptevents.StreamConsumer
		notifySink  aptevents.Publisher
	)
	if a.settings.NATSEnabled {
		natsPublisher, err := pkg.NewNATSPublisher(a.settings.NATSURL)
		if err != nil {
			return fmt.Errorf("cannot connect to NATS publisher: %w", err)
		}
		publisher = natsPublisher
		notifySink = natsPublisher
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error { return natsPublisher.Close() },
		})

		if a.settings.StreamEnabled {
			stream, err := pkg.NewNATSStream(pkg.DefaultSupportStreamConfig(a.settings.NATSURL), a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("NATS stream initialized for support notifications")
			notifySink = stream
			supportFeed = stream
			lifecycles = append(lifecycles, apt.LifecycleHooks{
				OnStop: func(context.Context) error { return stream.Close() },
			})
		}

		subscriber, err = pkg.NewNATSSubscriber(a.settings.NATSURL, a.logger)
		if err != nil {
			return fmt.Errorf("cannot connect to NATS subscriber: %w", err)
		}
	}

	broadcaster := notify.NewBroadcaster(supportFeed, 0, a.logger)
	notifier := notify.Multi{notify.NewLogNotifier(a.logger), broadcaster}
	if notifySink != nil {
		notifier = append(notifier, notify.NewPublisherNotifier(notifySink))
	}

	registry := station.NewRegistry(be.stations, a.logger)

	engine := assignment.NewEngine(assignment.Deps{
		Registry:    registry,
		Orders:      be.orders,
		Store:       be.store,
		Notifier:    notifier,
		Publisher:   publisher,
		Preferences: be.preferences,
	}, a.logger)

	sweeps := monitor.New(be.orders, registry, engine, notifier, monitor.Options{
		ReportAging: a.settings.ReportAging,
	}, a.logger)

	controller := conversation.NewController(
		be.conversations,
		conversation.NewKeywordExtractor(conversation.DefaultVocabulary()),
		engine,
		be.preferences,
		conversation.Config{InactivityTimeout: a.settings.InactivityTimeout},
		a.logger,
	)

	handler := barista.NewHandler(barista.HandlerDeps{
		Conversations:  controller,
		Stations:       registry,
		Orders:         be.orders,
		Status:         engine,
		Sweeper:        sweeps,
		Feed:           broadcaster,
		SweepThreshold: a.settings.MonitorThreshold,
	}, a.logger)

	lifecycles = append(lifecycles,
		apt.LifecycleHooks{
			OnStart: func(ctx context.Context) error {
				return broadcaster.Warm(ctx)
			},
		},
		NewSweepRunner(sweeps, a.settings.MonitorInterval, a.settings.MonitorThreshold, a.logger),
	)

	if subscriber != nil {
		messageSubscriber := events.NewMessageSubscriber(subscriber, controller, publisher, a.logger)
		lifecycles = append(lifecycles, messageSubscriber, apt.LifecycleHooks{
			OnStop: func(context.Context) error { return subscriber.Close() },
		})
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: true,
	})

	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(AppName),
	}
	if a.settings.GRPCEnabled {
		options = append(options, apt.WithGRPCServerModules("grpc.port", notify.NewStreamServer(broadcaster, a.logger)))
	}

	a.micro = apt.NewMicro(options...)
	return nil
}

func (a *App) openBackend(ctx context.Context) (*backend, error) {
	switch a.settings.Backend {
	case BackendMemory:
		return a.openMemory(ctx)
	default:
		return a.openMongo(ctx)
	}
}

func (a *App) openMemory(ctx context.Context) (*backend, error) {
	store := memory.NewStore()
	conversations := conversation.NewMemoryStore(a.settings.InactivityTimeout)

	if a.settings.SeedStations {
		if err := station.ApplySeeds(ctx, store, nil, a.logger); err != nil {
			return nil, err
		}
	}

	cleanupCtx, cancel := context.WithCancel(context.Background())
	conversations.StartCleanup(cleanupCtx, a.settings.InactivityTimeout/2)

	a.logger.Info("Using in-memory backend")
	return &backend{
		stations:      store,
		orders:        store,
		store:         store,
		preferences:   store,
		conversations: conversations,
		lifecycles: []interface{}{apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		}},
	}, nil
}

func (a *App) openMongo(ctx context.Context) (*backend, error) {
	base := mongo.NewBaseRepo(a.config, a.logger)
	if err := base.Start(ctx); err != nil {
		return nil, err
	}
	db := base.GetDatabase()

	stations := mongo.NewStationRepo(db)
	if a.settings.SeedStations {
		if err := station.ApplySeeds(ctx, stations, db, a.logger); err != nil {
			a.logger.Errorf("Station seeding failed (non-fatal): %v", err)
		}
	}

	conversations := mongo.NewConversationRepo(db)
	if err := conversations.EnsureTTL(ctx, a.settings.InactivityTimeout); err != nil {
		a.logger.Errorf("Conversation TTL index failed (non-fatal): %v", err)
	}

	return &backend{
		stations:      stations,
		orders:        mongo.NewOrderRepo(db),
		store:         mongo.NewAssignmentStore(base.GetClient(), db, a.settings.MongoTransactions, a.logger),
		preferences:   mongo.NewPreferenceRepo(db),
		conversations: conversations,
		lifecycles: []interface{}{apt.LifecycleHooks{
			OnStop: base.Stop,
		}},
	}, nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}
