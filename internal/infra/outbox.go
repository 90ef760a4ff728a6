package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
)

const (
	// TopicPrefix prefixes every relayed topic: mxshare.<event type>.
	TopicPrefix     = "mxshare."
	relayBreakerKey = "kafka_relay"
)

// OutboxSource is a store whose transitions leave events to relay.
type OutboxSource interface {
	FetchOutbox(ctx context.Context, limit int) ([]domain.OutboxRow, error)
	AckOutbox(ctx context.Context, rows []domain.OutboxRow) error
}

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxRelay drains pending outbox events to Kafka on a fixed schedule.
// Events are published in order; a failed publish stops the batch so the
// remaining rows are retried next tick (at-least-once).
type OutboxRelay struct {
	source    OutboxSource
	publisher Publisher
	breaker   *guard.CircuitBreaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxRelay creates a relay. breaker may be nil.
func NewOutboxRelay(source OutboxSource, publisher Publisher, breaker *guard.CircuitBreaker, interval time.Duration, batchSize int, logger *slog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		source:    source,
		publisher: publisher,
		breaker:   breaker,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// TopicFor returns the Kafka topic for an outbox event.
func TopicFor(row domain.OutboxRow) string {
	return TopicPrefix + string(row.EventType)
}

type relayedEvent struct {
	EventID       string          `json:"eventId"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     string          `json:"eventType"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// RelayOnce publishes one batch and returns how many events were relayed.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	if r.breaker != nil {
		if res := r.breaker.Check(ctx, relayBreakerKey); !res.Allowed {
			r.logger.Debug("outbox relay paused", "reason", res.Reason)
			return 0, nil
		}
	}

	rows, err := r.source.FetchOutbox(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	published := make([]domain.OutboxRow, 0, len(rows))
	var pubErr error
	for _, row := range rows {
		msg, err := json.Marshal(relayedEvent{
			EventID:       row.EventID.String(),
			AggregateType: string(row.AggregateType),
			AggregateID:   row.AggregateID,
			EventType:     string(row.EventType),
			Payload:       row.Payload,
			OccurredAt:    row.OccurredAt,
		})
		if err != nil {
			pubErr = fmt.Errorf("encode event %s: %w", row.EventID, err)
			break
		}
		key := row.PartitionKey
		if key == "" {
			key = row.AggregateID
		}
		if err := r.publisher.Publish(ctx, TopicFor(row), []byte(key), msg); err != nil {
			pubErr = fmt.Errorf("publish event %s: %w", row.EventID, err)
			break
		}
		published = append(published, row)
	}

	if r.breaker != nil {
		if pubErr != nil {
			r.breaker.RecordFailure(relayBreakerKey)
		} else {
			r.breaker.RecordSuccess(relayBreakerKey)
		}
	}

	if len(published) > 0 {
		if err := r.source.AckOutbox(ctx, published); err != nil {
			return 0, fmt.Errorf("ack outbox: %w", err)
		}
	}
	return len(published), pubErr
}

// Run relays on a gocron schedule until ctx is cancelled. Overlapping ticks
// are skipped.
func (r *OutboxRelay) Run(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				r.logger.Error("outbox relay error", "error", err, "relayed", n)
				return
			}
			if n > 0 {
				r.logger.Info("relayed outbox batch", "count", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule outbox relay: %w", err)
	}

	r.logger.Info("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	sched.Start()
	<-ctx.Done()

	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	r.logger.Info("outbox relay stopped")
	return nil
}
