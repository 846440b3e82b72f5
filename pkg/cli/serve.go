package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/config"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/health"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/lock"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/media"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/mutex"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/ops"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/preferences"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/recording"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/room"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/scheduler"
	mongostore "github.com/OpenVidu/openvidu-meet-sub010/pkg/store/mongodb"
	redisstore "github.com/OpenVidu/openvidu-meet-sub010/pkg/store/redis"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/version"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/webhook"
)

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the coordination core",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, log)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *logger.ZapLogger) error {
	log.Info("starting", "service", version.Current(cfg.Service.Name).String())

	redisAdapter, err := redisstore.NewAdapter(redisstore.Config{
		URL:              cfg.Redis.URL,
		OperationTimeout: cfg.Redis.OperationTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer func() { _ = redisAdapter.Close() }()

	mongoAdapter, err := mongostore.NewAdapter(mongostore.Config{
		URL:              cfg.Mongo.URL,
		Database:         cfg.Mongo.Database,
		ConnectTimeout:   cfg.Mongo.ConnectTimeout,
		OperationTimeout: cfg.Mongo.OperationTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer func() { _ = mongoAdapter.Close() }()

	provider, err := lock.NewRedisProvider(redisAdapter.Client(), lock.RedisProviderConfig{
		OperationTimeout: cfg.Redis.OperationTimeout,
	})
	if err != nil {
		return err
	}
	locks, err := mutex.NewService(provider)
	if err != nil {
		return err
	}

	engine, err := media.NewHTTPService(media.HTTPServiceConfig{
		URL:              cfg.Media.URL,
		APIKey:           cfg.Media.APIKey,
		OperationTimeout: cfg.Media.OperationTimeout,
	})
	if err != nil {
		return err
	}

	var notifier webhook.Notifier
	if cfg.Webhook.URL != "" {
		notifier, err = webhook.NewHTTPNotifier(webhook.HTTPNotifierConfig{
			URL:         cfg.Webhook.URL,
			APIKey:      cfg.Webhook.APIKey,
			MaxEventAge: cfg.Webhook.MaxEventAge,
		})
		if err != nil {
			return err
		}
	}

	sched, err := scheduler.New(locks, log, scheduler.Config{})
	if err != nil {
		return err
	}
	defer sched.Stop()

	roomRepo, err := room.NewMongoRepository(mongoAdapter)
	if err != nil {
		return err
	}
	recordingRepo, err := recording.NewMongoRepository(mongoAdapter)
	if err != nil {
		return err
	}
	prefsRepo, err := preferences.NewMongoRepository(mongoAdapter)
	if err != nil {
		return err
	}

	recordingSvc, err := recording.NewService(recordingRepo, locks, engine, notifier, log, cfg.Recordings)
	if err != nil {
		return err
	}
	defer func() { _ = recordingSvc.Close() }()

	roomSvc, err := room.NewService(roomRepo, recordingSvc, engine, notifier, log, cfg.Rooms)
	if err != nil {
		return err
	}
	prefsSvc, err := preferences.NewService(prefsRepo, locks, log)
	if err != nil {
		return err
	}

	if err := roomSvc.RegisterGC(sched, true); err != nil {
		return err
	}
	if err := recordingSvc.RegisterSweeps(sched); err != nil {
		return err
	}

	// The scheduler only dispatches while the coordination store is up.
	monitor := redisstore.NewMonitor(redisAdapter.Client(), cfg.Redis.PingInterval, log)
	monitor.Subscribe(sched)
	monitor.Start(ctx)
	defer monitor.Stop()

	if err := prefsSvc.Initialize(ctx); err != nil {
		// Another boot will seed the defaults; nothing here depends on them.
		log.Warn("global preferences initialization failed", "error", err)
	}

	registry := health.NewRegistry()
	registry.Register(health.NewAdapterChecker("redis", redisAdapter, cfg.Redis.OperationTimeout))
	registry.Register(health.NewAdapterChecker("mongodb", mongoAdapter, cfg.Mongo.OperationTimeout))

	opsServer, err := ops.NewServer(cfg.Ops, registry, log)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- opsServer.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		if err := opsServer.Stop(context.Background()); err != nil {
			log.Warn("ops server shutdown failed", "error", err)
		}
		return nil
	case err := <-serveErr:
		return err
	}
}
