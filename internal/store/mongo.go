package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

const (
	// DefaultMongoCollection holds one document per user keyed by user id.
	DefaultMongoCollection = "users"
	MongoOutboxCollection  = "event_outbox"
	mongoMaxAttempts       = 5
)

// Mongo stores records as documents and serializes writers with an optimistic
// version check: an update only applies if the version it read is still
// current, otherwise the transition is re-run against a fresh read.
type Mongo struct {
	coll   *mongo.Collection
	outbox *mongo.Collection
	seq    *outboxSeq
	logger *slog.Logger
}

// outboxSeq hands out strictly increasing outbox sequence numbers. Values
// track the wall clock in nanoseconds so restarts keep moving forward.
type outboxSeq struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newOutboxSeq() *outboxSeq {
	return &outboxSeq{now: time.Now}
}

// reserve returns the first of n consecutive sequence numbers.
func (q *outboxSeq) reserve(n int) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	first := max(q.last+1, q.now().UnixNano())
	q.last = first + int64(n) - 1
	return first
}

// NewMongo creates a Mongo-backed store on the given database.
func NewMongo(db *mongo.Database, collection string, logger *slog.Logger) *Mongo {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &Mongo{
		coll:   db.Collection(collection),
		outbox: db.Collection(MongoOutboxCollection),
		seq:    newOutboxSeq(),
		logger: logger,
	}
}

func (m *Mongo) Mutate(ctx context.Context, userID string, fn func(*domain.UserGamificationState) (domain.Mutation, error)) error {
	for attempt := 1; attempt <= mongoMaxAttempts; attempt++ {
		state, err := m.find(ctx, userID)
		if err != nil {
			return err
		}
		readVersion := state.Version

		mut, err := fn(state)
		if err != nil {
			return err
		}
		if !mut.Dirty {
			return nil
		}

		res, err := m.coll.UpdateOne(ctx,
			bson.M{"_id": userID, "version": readVersion},
			bson.M{"$set": bson.M{
				"xp":                 state.XP,
				"level":              state.Level,
				"dailyQuestProgress": state.DailyQuestProgress,
				"version":            readVersion + 1,
				"updatedAt":          state.UpdatedAt,
			}},
		)
		if err != nil {
			return domain.ErrStoreUnavailable(fmt.Errorf("update user %s: %w", userID, err))
		}
		if res.MatchedCount == 1 {
			m.appendOutbox(ctx, mut.Events)
			return nil
		}

		m.logger.Debug("version conflict, retrying", "user_id", userID, "attempt", attempt)
	}
	return domain.ErrStoreUnavailable(fmt.Errorf("user %s: too many concurrent writers", userID))
}

func (m *Mongo) Get(ctx context.Context, userID string) (*domain.UserGamificationState, error) {
	return m.find(ctx, userID)
}

func (m *Mongo) Create(ctx context.Context, state *domain.UserGamificationState) (bool, error) {
	_, err := m.coll.InsertOne(ctx, state)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, domain.ErrStoreUnavailable(fmt.Errorf("insert user %s: %w", state.UserID, err))
	}
	return true, nil
}

func (m *Mongo) find(ctx context.Context, userID string) (*domain.UserGamificationState, error) {
	var state domain.UserGamificationState
	err := m.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound("user", userID)
		}
		return nil, domain.ErrStoreUnavailable(fmt.Errorf("find user %s: %w", userID, err))
	}
	if state.DailyQuestProgress.Quests == nil {
		state.DailyQuestProgress.Quests = []domain.QuestInstance{}
	}
	return &state, nil
}

// appendOutbox records events after the state write. Without a replica set
// there is no multi-document transaction, so a failure here is logged and the
// state write stands.
func (m *Mongo) appendOutbox(ctx context.Context, events []domain.OutboxDraft) {
	if len(events) == 0 {
		return
	}
	first := m.seq.reserve(len(events))
	docs := make([]interface{}, 0, len(events))
	for i, e := range events {
		docs = append(docs, bson.M{
			"_id":           e.EventID.String(),
			"seq":           first + int64(i),
			"aggregateType": string(e.AggregateType),
			"aggregateId":   e.AggregateID,
			"eventType":     string(e.EventType),
			"partitionKey":  e.PartitionKey,
			"headers":       string(e.Headers),
			"payload":       string(e.Payload),
			"occurredAt":    e.OccurredAt,
		})
	}
	if _, err := m.outbox.InsertMany(ctx, docs); err != nil {
		m.logger.Error("append outbox events failed", "count", len(events), "error", err)
	}
}
