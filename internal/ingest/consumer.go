// Package ingest turns activity messages from the Kafka topic into progression
// events.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/progression"
)

// MessageReader is the subset of a Kafka consumer group reader in use here.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Recorder applies one activity event.
type Recorder interface {
	RecordEvent(ctx context.Context, userID string, trigger domain.EventTrigger) (*progression.Result, error)
}

// ActivityMessage is published by collaborator backends after a user action.
type ActivityMessage struct {
	UserID         string `json:"userId"`
	Trigger        string `json:"trigger"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Consumer reads activity messages and records them. Offsets are committed
// only after a message is applied or rejected as permanently invalid, so a
// crash mid-batch replays messages (deduplicated by idempotency key).
type Consumer struct {
	reader   MessageReader
	recorder Recorder
	dedupe   *guard.IdempotencyGuard
	logger   *slog.Logger
	backoff  time.Duration
	maxWait  time.Duration
}

// NewConsumer creates a consumer. dedupe may be nil.
func NewConsumer(reader MessageReader, recorder Recorder, dedupe *guard.IdempotencyGuard, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:   reader,
		recorder: recorder,
		dedupe:   dedupe,
		logger:   logger,
		backoff:  200 * time.Millisecond,
		maxWait:  10 * time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// handle applies one message. It returns an error only when the message
// should not be committed.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var am ActivityMessage
	if err := json.Unmarshal(msg.Value, &am); err != nil {
		c.logger.Warn("dropping malformed activity message",
			"partition", msg.Partition, "offset", msg.Offset, "error", err)
		return nil
	}
	trigger, err := domain.ParseEventTrigger(am.Trigger)
	if err != nil {
		c.logger.Warn("dropping activity message with unknown trigger",
			"user_id", am.UserID, "trigger", am.Trigger, "offset", msg.Offset)
		return nil
	}

	key := ""
	if c.dedupe != nil && am.IdempotencyKey != "" {
		key = am.UserID + ":" + am.IdempotencyKey
		if res := c.dedupe.Check(ctx, key); !res.Allowed {
			c.logger.Debug("skipping duplicate activity message", "key", key, "offset", msg.Offset)
			return nil
		}
	}

	wait := c.backoff
	for {
		result, err := c.recorder.RecordEvent(ctx, am.UserID, trigger)
		if err == nil {
			if key != "" {
				c.dedupe.Complete(key, result)
			}
			return nil
		}

		var appErr *domain.AppError
		if !errors.As(err, &appErr) || !appErr.Retryable() {
			if key != "" {
				c.dedupe.Remove(key)
			}
			c.logger.Warn("activity message rejected",
				"user_id", am.UserID, "trigger", trigger, "offset", msg.Offset, "error", err)
			return nil
		}

		c.logger.Warn("store unavailable, retrying activity message",
			"user_id", am.UserID, "offset", msg.Offset, "backoff", wait, "error", err)
		select {
		case <-ctx.Done():
			if key != "" {
				c.dedupe.Remove(key)
			}
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, c.maxWait)
	}
}
