package infra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
)

type memSource struct {
	mu    sync.Mutex
	rows  []domain.OutboxRow
	acked []int64
}

func (s *memSource) FetchOutbox(_ context.Context, limit int) ([]domain.OutboxRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(limit, len(s.rows))
	return append([]domain.OutboxRow(nil), s.rows[:n]...), nil
}

func (s *memSource) AckOutbox(_ context.Context, rows []domain.OutboxRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.acked = append(s.acked, r.SeqID)
	}
	s.rows = s.rows[len(rows):]
	return nil
}

type sent struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	sent   []sent
	failAt int // 1-based publish attempt that fails; 0 never
	calls  int
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls == p.failAt {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, sent{topic, string(key), value})
	return nil
}

func row(seq int64, agg domain.AggregateType, evt domain.EventType, userID string) domain.OutboxRow {
	return domain.OutboxRow{SeqID: seq, OutboxDraft: domain.OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: agg,
		AggregateID:   userID,
		EventType:     evt,
		PartitionKey:  userID,
		Payload:       json.RawMessage(`{"xp":50}`),
		OccurredAt:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}}
}

func relayLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "mxshare.gamification.quest.completed", TopicFor(row(1, domain.AggregateUser, domain.EventQuestCompleted, "u1")))
	assert.Equal(t, "mxshare.gamification.quests.daily_reset", TopicFor(row(2, domain.AggregateUser, domain.EventQuestsDailyReset, "u1")))
}

func TestRelayOnce_PublishesInOrderAndAcks(t *testing.T) {
	src := &memSource{rows: []domain.OutboxRow{
		row(1, domain.AggregateUser, domain.EventQuestCompleted, "u1"),
		row(2, domain.AggregateUser, domain.EventUserLeveledUp, "u1"),
		row(3, domain.AggregateUser, domain.EventQuestCompleted, "u2"),
	}}
	pub := &fakePublisher{}
	relay := NewOutboxRelay(src, pub, nil, time.Second, 2, relayLogger())

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, src.acked)

	require.Len(t, pub.sent, 2)
	assert.Equal(t, "mxshare.gamification.quest.completed", pub.sent[0].topic)
	assert.Equal(t, "u1", pub.sent[0].key)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.sent[1].value, &msg))
	assert.Equal(t, string(domain.EventUserLeveledUp), msg["eventType"])
	assert.Equal(t, map[string]interface{}{"xp": float64(50)}, msg["payload"])

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayOnce_StopsAtFirstFailure(t *testing.T) {
	src := &memSource{rows: []domain.OutboxRow{
		row(1, domain.AggregateUser, domain.EventQuestCompleted, "u1"),
		row(2, domain.AggregateUser, domain.EventQuestCompleted, "u1"),
		row(3, domain.AggregateUser, domain.EventQuestCompleted, "u1"),
	}}
	pub := &fakePublisher{failAt: 2}
	relay := NewOutboxRelay(src, pub, nil, time.Second, 10, relayLogger())

	n, err := relay.RelayOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, src.acked, "only the published prefix is acked")
	assert.Len(t, src.rows, 2)
}

func TestRelayOnce_BreakerPausesRelay(t *testing.T) {
	src := &memSource{rows: []domain.OutboxRow{row(1, domain.AggregateUser, domain.EventQuestCompleted, "u1")}}
	pub := &fakePublisher{failAt: 1}
	breaker := guard.NewCircuitBreaker(1, time.Minute)
	relay := NewOutboxRelay(src, pub, breaker, time.Second, 10, relayLogger())

	_, err := relay.RelayOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, guard.CircuitOpen, breaker.State(relayBreakerKey))

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, pub.calls, "no publish attempts while open")
}

func TestRelay_RunDrainsOnSchedule(t *testing.T) {
	src := &memSource{rows: []domain.OutboxRow{row(1, domain.AggregateUser, domain.EventQuestsDailyReset, "u1")}}
	pub := &fakePublisher{}
	relay := NewOutboxRelay(src, pub, nil, 20*time.Millisecond, 10, relayLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	assert.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.acked) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
