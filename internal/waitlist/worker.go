package waitlist

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Worker drives the expiration side of the promotion loop on a fixed ticker.
// All state transitions live in the service/store, so running more than one
// worker instance is safe.
type Worker struct {
	service  *Service
	interval time.Duration
	logger   *zap.Logger
}

func NewWorker(service *Service, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{service: service, interval: interval, logger: logger}
}

func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Waitlist expiry worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Waitlist expiry worker stopped")
			return
		case <-ticker.C:
			expired, err := w.service.ExpireOverdue(ctx)
			if err != nil {
				w.logger.Error("Waitlist expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				w.logger.Info("Waitlist expiry sweep finished", zap.Int("expired", expired))
			}
		}
	}
}
