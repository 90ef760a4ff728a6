package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

const insertOutboxSQL = `
	INSERT INTO event_outbox
	  ("eventId", "aggregateType", "aggregateId", "eventType", "partitionKey", "headers", "payload", "occurredAt")
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type outboxRepo struct{}

// NewOutboxRepository returns a pgx-backed OutboxRepository.
func NewOutboxRepository() OutboxRepository {
	return &outboxRepo{}
}

// Append queues every draft in one batch on tx, so the events commit or roll
// back with the state change that produced them.
func (r *outboxRepo) Append(ctx context.Context, tx pgx.Tx, drafts []domain.OutboxDraft) error {
	if len(drafts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range drafts {
		headers := d.Headers
		if len(headers) == 0 {
			headers = json.RawMessage(`{}`)
		}
		batch.Queue(insertOutboxSQL,
			d.EventID, string(d.AggregateType), d.AggregateID, string(d.EventType),
			d.PartitionKey, headers, d.Payload, d.OccurredAt)
	}

	br := tx.SendBatch(ctx, batch)
	for _, d := range drafts {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("append outbox event %s (%s): %w", d.EventID, d.EventType, err)
		}
	}
	return br.Close()
}

func (r *outboxRepo) Pending(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRow, error) {
	rows, err := db.Query(ctx, `
		SELECT "id", "eventId", "aggregateType", "aggregateId", "eventType",
		       "partitionKey", "headers", "payload", "occurredAt"
		FROM event_outbox
		ORDER BY "id"
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OutboxRow, error) {
		var (
			o                domain.OutboxRow
			aggType, evtType string
		)
		err := row.Scan(&o.SeqID, &o.EventID, &aggType, &o.AggregateID,
			&evtType, &o.PartitionKey, &o.Headers, &o.Payload, &o.OccurredAt)
		o.AggregateType = domain.AggregateType(aggType)
		o.EventType = domain.EventType(evtType)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan pending outbox: %w", err)
	}
	return out, nil
}

func (r *outboxRepo) Delete(ctx context.Context, db DBTX, seqIDs []int64) error {
	if len(seqIDs) == 0 {
		return nil
	}
	tag, err := db.Exec(ctx, `DELETE FROM event_outbox WHERE "id" = ANY($1)`, seqIDs)
	if err != nil {
		return fmt.Errorf("delete relayed outbox rows: %w", err)
	}
	if tag.RowsAffected() != int64(len(seqIDs)) {
		return fmt.Errorf("delete relayed outbox rows: removed %d of %d", tag.RowsAffected(), len(seqIDs))
	}
	return nil
}
