package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bnema/chatlink/internal/adapters/network/netpath"
	"github.com/bnema/chatlink/internal/adapters/protocol/line"
	sqlitequeue "github.com/bnema/chatlink/internal/adapters/queue/sqlite"
	statusadapter "github.com/bnema/chatlink/internal/adapters/render/status"
	tomlrepo "github.com/bnema/chatlink/internal/adapters/repo/toml"
	chainstore "github.com/bnema/chatlink/internal/adapters/secrets/chain"
	standbylocal "github.com/bnema/chatlink/internal/adapters/standby/local"
	"github.com/bnema/chatlink/internal/application"
	"github.com/bnema/chatlink/internal/config"
	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/logging"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type app struct {
	settings       config.Settings
	logger         zerolog.Logger
	repo           *tomlrepo.Repository
	service        *application.Service
	secretStore    ports.SecretStore
	statusRenderer func(application.Overview, statusadapter.RenderOptions) (string, error)
	formatEvent    func(domain.Event, time.Time) string
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg := viper.New()
	settings, err := config.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger := logging.New(settings.LogLevel, os.Stderr)

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	secretStore, err := chainstore.NewPassWithFileFallback(settings.SecretsPath, logging.Component(logger, "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		settings:       settings,
		logger:         logger,
		repo:           repo,
		service:        application.NewService(repo, secretStore),
		secretStore:    secretStore,
		statusRenderer: statusadapter.Render,
		formatEvent:    statusadapter.FormatEvent,
		now:            time.Now,
	}, nil
}

// openQueue opens the durable event store and an EventQueue on top of it.
// The caller closes the returned store.
func (a *app) openQueue(ctx context.Context) (*application.EventQueue, *sqlitequeue.Store, error) {
	store, err := sqlitequeue.Open(ctx, a.settings.QueuePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open event store: %w", err)
	}

	queue := application.NewEventQueue(store, a.settings.LockTimeout, logging.Component(a.logger, "queue"))
	return queue, store, nil
}

// wireDaemon builds the long-running side: every adapter the sessions
// consume plus the Runtime that owns them.
func (a *app) wireDaemon(ctx context.Context) (*daemon, error) {
	queue, store, err := a.openQueue(ctx)
	if err != nil {
		return nil, err
	}

	standby := standbylocal.NewService(standbylocal.Options{
		HardwareSlots: a.settings.HardwareSlots,
		Interval:      a.settings.KeepAliveInterval,
		MinInterval:   a.settings.KeepAliveMinInterval,
	}, logging.Component(a.logger, "standby"))

	network := netpath.NewMonitor(logging.Component(a.logger, "network"))
	bus := application.NewEventBus(0)

	registry, err := application.NewRegistry(application.SessionDeps{
		Clients: line.NewFactory(line.Options{}, logging.Component(a.logger, "protocol")),
		Standby: standby,
		Network: network,
		Store:   a.repo,
		Clock:   ports.SystemClock{},
		Bus:     bus,
		Logger:  logging.Component(a.logger, "session"),
	}, a.secretStore, application.SessionOptions{
		RetryDelay:        a.settings.RetryDelay,
		LockTimeout:       a.settings.LockTimeout,
		MaxRetryPasses:    a.settings.MaxRetryPasses,
		ProcessingTimeout: a.settings.ProcessingTimeout,
	})
	if err != nil {
		_ = store.Close()
		standby.Close()
		return nil, fmt.Errorf("wire registry: %w", err)
	}

	runtime, err := application.NewRuntime(application.RuntimeDeps{
		Registry: registry,
		Queue:    queue,
		Bus:      bus,
		Store:    a.repo,
		Standby:  standby,
		Logger:   logging.Component(a.logger, "runtime"),
	}, application.RuntimeOptions{LifecycleDelay: a.settings.LifecycleDelay})
	if err != nil {
		_ = store.Close()
		standby.Close()
		return nil, fmt.Errorf("wire runtime: %w", err)
	}

	return &daemon{
		runtime:     runtime,
		queue:       queue,
		store:       store,
		standby:     standby,
		network:     network,
		watcher:     tomlrepo.NewWatcher(a.repo.Path(), 0, logging.Component(a.logger, "watcher")),
		logger:      logging.Component(a.logger, "daemon"),
		formatEvent: a.formatEvent,
		now:         a.now,
		overview:    a.service.Overview,
		render:      a.statusRenderer,
	}, nil
}
