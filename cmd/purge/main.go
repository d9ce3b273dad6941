// Command purge removes every expiry attribute and pending fire-event. Run it
// once before decommissioning the service; accounts keep their current tiers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daap14/tempaccess/internal/attribute"
	"github.com/daap14/tempaccess/internal/config"
	"github.com/daap14/tempaccess/internal/database"
	"github.com/daap14/tempaccess/internal/expiry"
	"github.com/daap14/tempaccess/internal/jobs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("purge failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.DatabaseURL,
		database.WithMaxConns(cfg.DBMaxConns),
		database.WithMaxConnIdle(cfg.DBMaxConnIdle),
	)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	res, err := expiry.Purge(ctx, attribute.NewPostgresStore(db.Pool()), jobs.NewRedisQueue(rdb, jobs.DefaultPrefix))
	if err != nil {
		return err
	}

	slog.Info("purge complete", "attributesDeleted", res.Attributes, "eventsCleared", res.Events)
	return nil
}
