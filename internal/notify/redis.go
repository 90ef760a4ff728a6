package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
)

// DefaultChannel is the Redis pub/sub channel shared by every API instance.
const DefaultChannel = "mxshare:gamification:notify"

const (
	breakerKey  = "redis_fanout"
	queueLength = 1024
)

// envelope is the cross-instance frame.
type envelope struct {
	UserID string          `json:"userId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// RedisFanout relays notifications through Redis so a user connected to any
// instance receives them. Publish only enqueues; Run does the network I/O.
// While Redis is failing (circuit open) or the queue is full, messages are
// delivered to this instance's Hub only.
type RedisFanout struct {
	client  *redis.Client
	channel string
	local   *Hub
	breaker *guard.CircuitBreaker
	queue   chan envelope
	logger  *slog.Logger
}

// NewRedisFanout creates a fan-out gateway in front of local.
func NewRedisFanout(client *redis.Client, channel string, local *Hub, breaker *guard.CircuitBreaker, logger *slog.Logger) *RedisFanout {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisFanout{
		client:  client,
		channel: channel,
		local:   local,
		breaker: breaker,
		queue:   make(chan envelope, queueLength),
		logger:  logger,
	}
}

// Publish enqueues a notification without blocking.
func (f *RedisFanout) Publish(userID string, event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		f.logger.Error("fanout marshal error", "error", err, "event", event)
		return
	}

	if res := f.breaker.Check(context.Background(), breakerKey); !res.Allowed {
		f.local.Publish(userID, event, json.RawMessage(raw))
		return
	}

	select {
	case f.queue <- envelope{UserID: userID, Event: event, Data: raw}:
	default:
		f.logger.Warn("fanout queue full, delivering locally", "user_id", userID, "event", event)
		f.local.Publish(userID, event, json.RawMessage(raw))
	}
}

// Run subscribes to the channel and drains the outbound queue until ctx ends.
func (f *RedisFanout) Run(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	go f.deliver(ctx, sub.Channel())

	f.logger.Info("redis fanout started", "channel", f.channel)
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("redis fanout stopped")
			return nil
		case env := <-f.queue:
			f.send(ctx, env)
		}
	}
}

func (f *RedisFanout) send(ctx context.Context, env envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := f.client.Publish(ctx, f.channel, body).Err(); err != nil {
		f.breaker.RecordFailure(breakerKey)
		f.logger.Warn("redis publish failed, delivering locally", "error", err, "user_id", env.UserID)
		f.local.Publish(env.UserID, env.Event, env.Data)
		return
	}
	f.breaker.RecordSuccess(breakerKey)
}

func (f *RedisFanout) deliver(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				f.logger.Warn("fanout: bad envelope", "error", err)
				continue
			}
			f.local.Publish(env.UserID, env.Event, env.Data)
		}
	}
}
