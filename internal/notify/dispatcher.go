package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
)

// Dispatcher drains the outbox: for each pending event it publishes
// to the sink, materializes one Notification row per recipient and
// marks the event published, so sink failures never touch the
// business transaction that enqueued the event. Delivery is
// at-least-once; a crash between publish and mark re-publishes.
type Dispatcher struct {
	store    store.Store
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// NewDispatcher builds an outbox dispatcher.
func NewDispatcher(st store.Store, sink Sink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:    st,
		sink:     sink,
		logger:   logger,
		interval: defaultPollInterval,
		batch:    defaultBatchSize,
	}
}

// SetInterval overrides the poll interval.
func (d *Dispatcher) SetInterval(interval time.Duration) {
	if interval > 0 {
		d.interval = interval
	}
}

// Run polls the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DrainOnce(ctx); err != nil {
				d.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce processes one batch of pending events and reports how
// many were dispatched. Events whose sink publish fails stay pending
// and are retried on the next pass.
func (d *Dispatcher) DrainOnce(ctx context.Context) (int, error) {
	pending, err := d.store.ListPendingOutbox(d.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox: %w", err)
	}
	dispatched := 0
	for _, event := range pending {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		if err := d.sink.Publish(ctx, event); err != nil {
			d.logger.Error("publish notification event failed",
				"event_id", event.ID, "error", err)
			continue
		}
		if err := d.materialize(event); err != nil {
			d.logger.Error("materialize notification event failed",
				"event_id", event.ID, "error", err)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// materialize writes the per-recipient notification rows and the
// published stamp as one transaction.
func (d *Dispatcher) materialize(event domain.OutboxEvent) error {
	return d.store.Atomic(func(tx store.Store) error {
		for _, recipientID := range event.RecipientIDs {
			notification := domain.Notification{
				RecipientID: recipientID,
				ActorID:     event.ActorID,
				EntityType:  event.EntityType,
				EntityTitle: event.EntityTitle,
				Action:      event.Action,
				RelatedIDs:  event.RelatedIDs,
				CreatedAt:   event.CreatedAt,
			}
			if err := tx.SaveNotification(&notification); err != nil {
				return fmt.Errorf("save notification: %w", err)
			}
		}
		if err := tx.MarkOutboxPublished(event.ID, time.Now().UTC()); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		return nil
	})
}
