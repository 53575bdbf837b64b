package worker

import (
	"context"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/log"
)

// CacheInvalidator drops cached dashboard aggregates whenever an import lands.
type CacheInvalidator struct {
	caches  []cache.Flusher
	logger  *log.Logger
	handled atomic.Int64
}

func NewCacheInvalidator(logger *log.Logger, caches ...cache.Flusher) *CacheInvalidator {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &CacheInvalidator{caches: caches, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleImportCompleted is the AMQP handler. It never fails, so messages are always acked.
func (w *CacheInvalidator) HandleImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	for _, c := range w.caches {
		c.Flush()
	}
	w.handled.Add(1)

	w.logger.InfoContext(ctx, "Dashboard cache invalidated",
		log.FieldBatchID, msg.BatchID,
		log.FieldSource, msg.Source,
		log.FieldInserted, msg.Inserted)
	return nil
}

// Handled returns how many import events have been processed.
func (w *CacheInvalidator) Handled() int64 {
	return w.handled.Load()
}

// Consumer is the subset of the AMQP client the worker needs.
type Consumer interface {
	ConsumeImportCompleted(ctx context.Context, handler func(context.Context, *amqp.ImportCompletedMessage) error) error
}

// Run consumes import events until ctx is cancelled.
func (w *CacheInvalidator) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Cache invalidation worker started")
	err := consumer.ConsumeImportCompleted(ctx, w.HandleImportCompleted)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Cache invalidation worker stopped")
		return nil
	}
	return err
}
