// Package main is the entry point for the background worker: it relays the
// sale outbox, reconciles deferred stock movements and sweeps expired keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"retailpos/internal/app"
	"retailpos/internal/config"
	"retailpos/internal/infrastructure/storage/postgres"
	"retailpos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.Storage.Driver != config.DriverPostgres {
		log.Fatalw("worker requires the postgres storage driver", "driver", cfg.Storage.Driver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting retailpos worker")

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize services", "error", err)
	}
	defer services.Close()

	worker := NewWorker(services, cfg.Worker, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic background jobs.
type Worker struct {
	services *app.App
	relay    *postgres.OutboxRelay
	cfg      config.WorkerConfig
	log      *logger.Logger
}

func NewWorker(services *app.App, cfg config.WorkerConfig, log *logger.Logger) *Worker {
	w := &Worker{
		services: services,
		cfg:      cfg,
		log:      log.WithComponent("worker"),
	}
	w.relay = postgres.NewOutboxRelay(services.TxManager, cfg.BatchSize, postgres.OutboxHandlerFunc(w.deliver))
	return w
}

// deliver hands one sale event downstream. Consumers read the structured log
// stream; a broker publisher can replace this without touching the relay.
func (w *Worker) deliver(_ context.Context, msg *postgres.OutboxMessage) error {
	w.log.Infow("sale event",
		"event_id", msg.ID,
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return nil
}

// Run polls the outbox and runs maintenance until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	poll := time.NewTicker(w.cfg.PollInterval)
	defer poll.Stop()

	maintenance := time.NewTicker(w.cfg.MaintenanceEvery)
	defer maintenance.Stop()

	// Catch up on anything left by a previous run before the first tick.
	w.maintain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			w.processOutbox(ctx)
		case <-maintenance.C:
			w.maintain(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox batch failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) maintain(ctx context.Context) {
	res, err := w.services.Sales.ReconcileInventory(ctx, w.cfg.ReconcileLimit)
	if err != nil {
		w.log.Errorw("inventory reconciliation failed", "error", err)
	} else if res.Scanned > 0 {
		w.log.Infow("inventory reconciled", "scanned", res.Scanned, "synced", res.Synced, "failed", res.Failed)
	}

	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("move outbox to DLQ failed", "error", err)
	} else if moved > 0 {
		w.log.Warnw("outbox messages moved to DLQ", "count", moved)
	}

	if purged, err := w.relay.PurgePublished(ctx, w.cfg.PurgeAfter); err != nil {
		w.log.Errorw("purge published outbox failed", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}

	if w.services.Pool != nil {
		postgres.LogPoolStats(ctx, w.services.Pool)
	}

	if removed, err := w.services.Idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}
