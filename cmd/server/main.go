package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	apidoc "github.com/daap14/tempaccess/api"
	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/api"
	"github.com/daap14/tempaccess/internal/api/handler"
	"github.com/daap14/tempaccess/internal/attribute"
	"github.com/daap14/tempaccess/internal/auth"
	"github.com/daap14/tempaccess/internal/config"
	"github.com/daap14/tempaccess/internal/database"
	"github.com/daap14/tempaccess/internal/dispatcher"
	"github.com/daap14/tempaccess/internal/expiry"
	"github.com/daap14/tempaccess/internal/jobs"
	"github.com/daap14/tempaccess/internal/notify"
	"github.com/daap14/tempaccess/internal/session"
	"github.com/daap14/tempaccess/internal/tier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL,
		database.WithMaxConns(cfg.DBMaxConns),
		database.WithMaxConnIdle(cfg.DBMaxConnIdle),
	)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	accounts := account.NewPostgresRepository(db.Pool())
	tiers := tier.NewPostgresRepository(db.Pool())
	attrs := attribute.NewPostgresStore(db.Pool())
	queue := jobs.NewRedisQueue(rdb, jobs.DefaultPrefix)
	sessions := session.NewRedisStore(rdb, jobs.DefaultPrefix, cfg.SessionTTL)

	notifier, closeNotifier, err := setupNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	policy := expiry.Policy{AdminTier: cfg.AdminTier, DefaultTier: cfg.DefaultTier, Location: loc}
	scheduler := expiry.NewScheduler(policy, attrs, queue)
	executor := expiry.NewExecutor(policy, accounts, tiers, attrs, sessions, notifier)
	editor := expiry.NewEditor(policy, scheduler, tiers)

	authSvc := auth.NewService(accounts, sessions, cfg.BcryptCost, cfg.AdminTier)
	if _, err := authSvc.BootstrapAdmin(ctx); err != nil {
		return fmt.Errorf("bootstrapping administrator: %w", err)
	}

	openapi, err := handler.NewOpenAPIHandler(apidoc.OpenAPISpec)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterDeps{
		DBPinger:      db,
		RedisPinger:   handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		Version:       cfg.Version,
		OpenAPI:       openapi,
		Auth:          authSvc,
		Accounts:      accounts,
		Tiers:         tiers,
		Editor:        editor,
		ReservedTiers: []string{cfg.AdminTier, cfg.DefaultTier},
	})

	d := dispatcher.New(queue, cfg.DispatchEvery(),
		dispatcher.WithBatch(cfg.DispatchBatch),
		dispatcher.WithStuckAfter(cfg.StuckTimeout()),
	)
	d.Register(expiry.EventKind, executor)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Start(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting tempaccess server", "port", cfg.Port, "version", cfg.Version, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		stop()
		wg.Wait()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	wg.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

// setupNotifier publishes tier changes to AMQP when a broker is configured
// and only logs them otherwise.
func setupNotifier(cfg *config.Config) (expiry.Notifier, func(), error) {
	if cfg.AMQPURL == "" {
		slog.Info("AMQP_URL not set; tier changes are only logged")
		return notify.LogNotifier{}, func() {}, nil
	}

	conn, err := notify.Connect(cfg.AMQPURL, 5, 2*time.Second)
	if err != nil {
		return nil, nil, err
	}
	ch, err := notify.SetupChannel(conn, cfg.AMQPExchange)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("setting up AMQP channel: %w", err)
	}

	closeFn := func() {
		ch.Close()
		conn.Close()
	}
	return notify.NewPublisher(ch, cfg.AMQPExchange), closeFn, nil
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(logHandler))
}
