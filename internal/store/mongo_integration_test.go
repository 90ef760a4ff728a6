//go:build integration

package store_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/infra"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/store"
)

func newMongoStore(t *testing.T) *store.Mongo {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := infra.NewMongoClient(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return store.NewMongo(client.Database("mxshare_test"), "gamification_test", logger)
}

func TestMongo_CreateGetMutate(t *testing.T) {
	s := newMongoStore(t)
	ctx := context.Background()
	userID := "mg_" + uuid.NewString()[:8]

	created, err := s.Create(ctx, domain.NewUserGamificationState(userID, t0))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Create(ctx, domain.NewUserGamificationState(userID, t0))
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, s.Mutate(ctx, userID, func(st *domain.UserGamificationState) (domain.Mutation, error) {
		st.AwardXP(230)
		return domain.Mutation{Dirty: true}, nil
	}))

	got, err := s.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 230, got.XP)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, int64(1), got.Version)
}

func TestMongo_OptimisticRetryKeepsEveryWrite(t *testing.T) {
	s := newMongoStore(t)
	ctx := context.Background()
	userID := "mgcas_" + uuid.NewString()[:8]
	_, err := s.Create(ctx, domain.NewUserGamificationState(userID, t0))
	require.NoError(t, err)

	const writers = 4
	var wg sync.WaitGroup
	var failures sync.Map
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Mutate(ctx, userID, func(st *domain.UserGamificationState) (domain.Mutation, error) {
				st.XP++
				return domain.Mutation{Dirty: true}, nil
			})
			if err != nil {
				failures.Store(i, err)
			}
		}(i)
	}
	wg.Wait()

	failed := 0
	failures.Range(func(_, v any) bool {
		assert.True(t, domain.HasCode(v.(error), domain.CodeStoreUnavailable))
		failed++
		return true
	})

	got, err := s.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, writers-failed, got.XP, "each successful write applied exactly once")
}

func TestMongo_OutboxKeepsAppendOrderOnTimestampTies(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx := context.Background()
	client, err := infra.NewMongoClient(ctx, uri)
	require.NoError(t, err)
	db := client.Database("mxshare_outbox_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	require.NoError(t, infra.EnsureMongoIndexes(ctx, db, store.MongoOutboxCollection))

	s := store.NewMongo(db, "", slog.New(slog.NewTextHandler(os.Stderr, nil)))
	userID := "mgseq_" + uuid.NewString()[:8]
	_, err = s.Create(ctx, domain.NewUserGamificationState(userID, t0))
	require.NoError(t, err)

	draft := func(evt domain.EventType) domain.OutboxDraft {
		return domain.OutboxDraft{
			EventID:       uuid.New(),
			AggregateType: domain.AggregateUser,
			AggregateID:   userID,
			EventType:     evt,
			PartitionKey:  userID,
			Payload:       json.RawMessage(`{}`),
			OccurredAt:    t0,
		}
	}
	want := []domain.EventType{
		domain.EventQuestsDailyReset,
		domain.EventQuestCompleted,
		domain.EventUserLeveledUp,
		domain.EventQuestCompleted,
		domain.EventQuestRerolled,
	}
	for _, batch := range [][]domain.EventType{want[:3], want[3:]} {
		require.NoError(t, s.Mutate(ctx, userID, func(st *domain.UserGamificationState) (domain.Mutation, error) {
			st.XP++
			m := domain.Mutation{Dirty: true}
			for _, evt := range batch {
				m.Events = append(m.Events, draft(evt))
			}
			return m, nil
		}))
	}

	rows, err := s.FetchOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, len(want))
	for i, row := range rows {
		assert.Equal(t, want[i], row.EventType, "row %d", i)
		if i > 0 {
			assert.Greater(t, row.SeqID, rows[i-1].SeqID)
		}
	}
}
