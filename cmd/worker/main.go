package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pawsuite/resort-api/internal/config"
	"github.com/pawsuite/resort-api/internal/db"
	"github.com/pawsuite/resort-api/internal/metrics"
	"github.com/pawsuite/resort-api/internal/queue"
	"github.com/pawsuite/resort-api/internal/storage/redis"
	"github.com/pawsuite/resort-api/internal/waitlist"
)

// The worker process owns the waitlist promotion loop: a ticker sweep that
// expires lapsed notifications and promotes successors, plus a consumer that
// drains the notification queue.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(cfg.Server.Mode)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	conn, err := db.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer conn.Close()
	repo := db.NewRepository(conn)

	cache := redis.NewClient(cfg.Redis.URL)
	defer cache.Close()
	jobQueue := queue.NewRedisQueue(cache.Client)

	collector := metrics.NewCollector()
	service := waitlist.NewService(repo, jobQueue, cfg.Waitlist.ConfirmWindow, logger, collector)
	worker := waitlist.NewWorker(service, cfg.Waitlist.SweepInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Start(ctx)
	go consumeNotifications(ctx, jobQueue, logger)

	logger.Info("Waitlist worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()
}

// consumeNotifications drains promotion notifications and dispatches them.
// TODO: wire an email/SMS provider; until then delivery is log-only so the
// promotion flow can be exercised end to end.
func consumeNotifications(ctx context.Context, q *queue.RedisQueue, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := q.Pop(ctx, 5*time.Second)
		if errors.Is(err, queue.ErrTimeout) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to pop notification job", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		logger.Info("Waitlist notification dispatched",
			zap.String("entry_id", job.EntryID),
			zap.String("tenant_id", job.TenantID),
			zap.String("contact_email", job.ContactEmail),
			zap.Time("notify_until", job.NotifyUntil),
		)
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
