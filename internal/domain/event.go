package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventQuestCompleted   EventType = "gamification.quest.completed"
	EventUserLeveledUp    EventType = "gamification.user.leveled_up"
	EventQuestsDailyReset EventType = "gamification.quests.daily_reset"
	EventQuestRerolled    EventType = "gamification.quest.rerolled"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateUser AggregateType = "user"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// OutboxRow is an outbox entry as read back by the relay, with its sequence id.
type OutboxRow struct {
	SeqID int64
	OutboxDraft
}
