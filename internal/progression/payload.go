package progression

import "github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"

// Live notification event names, delivered to the user's room.
const (
	EventQuestProgress  = "quest_progress"
	EventDailyReset     = "daily_reset"
	EventQuestsRerolled = "quests_rerolled"
)

// QuestProgressPayload is pushed after an event changed at least one quest.
// UpdatedQuests is the full active set, not only the changed entries.
type QuestProgressPayload struct {
	UpdatedQuests     []domain.QuestInstance `json:"updatedQuests"`
	XPGained          int                    `json:"xpGained"`
	TotalXP           int                    `json:"totalXp"`
	CurrentLevel      int                    `json:"currentLevel"`
	CompletedQuestIDs []string               `json:"completedQuestIds"`
	LeveledUp         bool                   `json:"leveledUp"`
}

// DailyResetPayload is pushed when a new daily set is assigned.
type DailyResetPayload struct {
	Quests []domain.QuestInstance `json:"quests"`
	Streak int                    `json:"streak"`
}

// RerolledPayload is pushed after a successful reroll so other open tabs refresh.
type RerolledPayload struct {
	Quests           []domain.QuestInstance `json:"quests"`
	RerollsRemaining int                    `json:"rerollsRemaining"`
}
