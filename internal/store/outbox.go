package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

// FetchOutbox returns up to limit pending outbox rows, oldest first.
func (p *Postgres) FetchOutbox(ctx context.Context, limit int) ([]domain.OutboxRow, error) {
	return p.outbox.Pending(ctx, p.pool, limit)
}

// AckOutbox removes relayed rows.
func (p *Postgres) AckOutbox(ctx context.Context, rows []domain.OutboxRow) error {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.SeqID)
	}
	return p.outbox.Delete(ctx, p.pool, ids)
}

type mongoOutboxDoc struct {
	ID            string    `bson:"_id"`
	Seq           int64     `bson:"seq"`
	AggregateType string    `bson:"aggregateType"`
	AggregateID   string    `bson:"aggregateId"`
	EventType     string    `bson:"eventType"`
	PartitionKey  string    `bson:"partitionKey"`
	Headers       string    `bson:"headers"`
	Payload       string    `bson:"payload"`
	OccurredAt    time.Time `bson:"occurredAt"`
}

// FetchOutbox returns up to limit pending outbox documents in append order.
// Events from one transition share occurredAt, so seq breaks the tie.
func (m *Mongo) FetchOutbox(ctx context.Context, limit int) ([]domain.OutboxRow, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "occurredAt", Value: 1}, {Key: "seq", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := m.outbox.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find outbox events: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.OutboxRow
	for cur.Next(ctx) {
		var doc mongoOutboxDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode outbox event: %w", err)
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("outbox event id %q: %w", doc.ID, err)
		}
		row := domain.OutboxRow{SeqID: doc.Seq, OutboxDraft: domain.OutboxDraft{
			EventID:       id,
			AggregateType: domain.AggregateType(doc.AggregateType),
			AggregateID:   doc.AggregateID,
			EventType:     domain.EventType(doc.EventType),
			PartitionKey:  doc.PartitionKey,
			Payload:       json.RawMessage(doc.Payload),
			OccurredAt:    doc.OccurredAt,
		}}
		if doc.Headers != "" {
			row.Headers = json.RawMessage(doc.Headers)
		}
		out = append(out, row)
	}
	return out, cur.Err()
}

// AckOutbox removes relayed documents.
func (m *Mongo) AckOutbox(ctx context.Context, rows []domain.OutboxRow) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EventID.String())
	}
	if _, err := m.outbox.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete outbox events: %w", err)
	}
	return nil
}
