package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func newUserEvent(userID string, evtType EventType, payload interface{}, at time.Time) OutboxDraft {
	body, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateUser,
		AggregateID:   userID,
		EventType:     evtType,
		PartitionKey:  userID,
		Headers:       json.RawMessage(`{}`),
		Payload:       body,
		OccurredAt:    at,
	}
}

// NewQuestCompletedEvent records a quest completion and the XP it granted.
func NewQuestCompletedEvent(userID string, quest QuestInstance, at time.Time) OutboxDraft {
	return newUserEvent(userID, EventQuestCompleted, map[string]interface{}{
		"user_id":       userID,
		"quest_id":      quest.QuestID,
		"event_trigger": quest.EventTrigger,
		"xp_reward":     quest.XPReward,
	}, at)
}

// NewLeveledUpEvent records a level transition.
func NewLeveledUpEvent(userID string, fromLevel, toLevel, totalXP int, at time.Time) OutboxDraft {
	return newUserEvent(userID, EventUserLeveledUp, map[string]interface{}{
		"user_id":    userID,
		"from_level": fromLevel,
		"to_level":   toLevel,
		"total_xp":   totalXP,
	}, at)
}

// NewDailyResetEvent records a fresh daily quest assignment.
func NewDailyResetEvent(userID string, progress DailyQuestProgress, at time.Time) OutboxDraft {
	ids := make([]string, 0, len(progress.Quests))
	for _, q := range progress.Quests {
		ids = append(ids, q.QuestID)
	}
	return newUserEvent(userID, EventQuestsDailyReset, map[string]interface{}{
		"user_id":   userID,
		"quest_ids": ids,
		"streak":    progress.Streak,
	}, at)
}

// NewQuestRerolledEvent records a reroll swap.
func NewQuestRerolledEvent(userID, removedID, addedID string, rerollsRemaining int, at time.Time) OutboxDraft {
	return newUserEvent(userID, EventQuestRerolled, map[string]interface{}{
		"user_id":           userID,
		"removed_quest_id":  removedID,
		"added_quest_id":    addedID,
		"rerolls_remaining": rerollsRemaining,
	}, at)
}
