package domain

import (
	"fmt"
	"time"
)

// EventTrigger identifies the domain action that advances a quest.
type EventTrigger string

const (
	TriggerNoteUpload    EventTrigger = "NOTE_UPLOAD"
	TriggerVideoUpload   EventTrigger = "VIDEO_UPLOAD"
	TriggerNoteView      EventTrigger = "NOTE_VIEW"
	TriggerNoteDownload  EventTrigger = "NOTE_DOWNLOAD"
	TriggerProfileUpdate EventTrigger = "PROFILE_UPDATE"
)

// AllEventTriggers returns every trigger the engine understands.
func AllEventTriggers() []EventTrigger {
	return []EventTrigger{
		TriggerNoteUpload,
		TriggerVideoUpload,
		TriggerNoteView,
		TriggerNoteDownload,
		TriggerProfileUpdate,
	}
}

// Valid reports whether t is a known trigger.
func (t EventTrigger) Valid() bool {
	switch t {
	case TriggerNoteUpload, TriggerVideoUpload, TriggerNoteView, TriggerNoteDownload, TriggerProfileUpdate:
		return true
	}
	return false
}

// ParseEventTrigger converts a raw string into a known trigger.
func ParseEventTrigger(s string) (EventTrigger, error) {
	t := EventTrigger(s)
	if !t.Valid() {
		return "", ErrValidation(fmt.Sprintf("unknown event trigger: %q", s))
	}
	return t, nil
}

// QuestTemplate is a catalog-defined quest blueprint. Never mutated at runtime.
type QuestTemplate struct {
	ID           string       `json:"id" yaml:"id" toml:"id"`
	Label        string       `json:"label" yaml:"label" toml:"label"`
	Description  string       `json:"description" yaml:"description" toml:"description"`
	EventTrigger EventTrigger `json:"eventTrigger" yaml:"event_trigger" toml:"event_trigger"`
	TargetCount  int          `json:"targetCount" yaml:"target_count" toml:"target_count"`
	XPReward     int          `json:"xpReward" yaml:"xp_reward" toml:"xp_reward"`
}

// NewInstance snapshots the template into a fresh, unstarted quest instance.
func (t QuestTemplate) NewInstance() QuestInstance {
	return QuestInstance{
		QuestID:      t.ID,
		Label:        t.Label,
		Description:  t.Description,
		EventTrigger: t.EventTrigger,
		TargetCount:  t.TargetCount,
		XPReward:     t.XPReward,
	}
}

// QuestInstance is a template snapshot assigned to one user for one day, carrying
// live progress. Template fields are copied so catalog edits never apply
// retroactively.
type QuestInstance struct {
	QuestID      string       `json:"questId" bson:"questId"`
	Label        string       `json:"label" bson:"label"`
	Description  string       `json:"description" bson:"description"`
	EventTrigger EventTrigger `json:"eventTrigger" bson:"eventTrigger"`
	TargetCount  int          `json:"targetCount" bson:"targetCount"`
	XPReward     int          `json:"xpReward" bson:"xpReward"`
	Progress     int          `json:"progress" bson:"progress"`
	Completed    bool         `json:"completed" bson:"completed"`
}

// Advance adds one unit of progress, saturating at TargetCount.
// Returns true if this call completed the quest.
func (q *QuestInstance) Advance() bool {
	if q.Completed {
		return false
	}
	if q.Progress < q.TargetCount {
		q.Progress++
	}
	if q.Progress >= q.TargetCount {
		q.Progress = q.TargetCount
		q.Completed = true
		return true
	}
	return false
}

// Started reports whether any progress has been made.
func (q QuestInstance) Started() bool {
	return q.Progress > 0
}

// DailyQuestProgress is the per-user daily quest record.
type DailyQuestProgress struct {
	Quests           []QuestInstance `json:"quests" bson:"quests"`
	LastReset        time.Time       `json:"lastReset" bson:"lastReset"`
	RerollsRemaining int             `json:"rerollsRemaining" bson:"rerollsRemaining"`
	Streak           int             `json:"streak" bson:"streak"`
}

// CompletedCount returns how many active quests are complete.
func (p DailyQuestProgress) CompletedCount() int {
	n := 0
	for _, q := range p.Quests {
		if q.Completed {
			n++
		}
	}
	return n
}

// IndexOf returns the position of questID in the active set, or -1.
func (p DailyQuestProgress) IndexOf(questID string) int {
	for i, q := range p.Quests {
		if q.QuestID == questID {
			return i
		}
	}
	return -1
}

// ActiveIDs returns the set of quest ids currently assigned.
func (p DailyQuestProgress) ActiveIDs() map[string]bool {
	ids := make(map[string]bool, len(p.Quests))
	for _, q := range p.Quests {
		ids[q.QuestID] = true
	}
	return ids
}

// QuestStage is a derived view over the active quest set.
type QuestStage string

const (
	StageNoQuestsToday     QuestStage = "no_quests_today"
	StageQuestsActive      QuestStage = "quests_active"
	StageAllQuestsComplete QuestStage = "all_quests_complete"
)

// Stage derives the state-machine position from the quest set.
func (p DailyQuestProgress) Stage() QuestStage {
	if len(p.Quests) == 0 {
		return StageNoQuestsToday
	}
	if p.CompletedCount() == len(p.Quests) {
		return StageAllQuestsComplete
	}
	return StageQuestsActive
}

// UserGamificationState is the persisted gamification record owned by a user.
// The progression engine is its only writer.
type UserGamificationState struct {
	UserID             string             `json:"userId" bson:"_id"`
	XP                 int                `json:"xp" bson:"xp"`
	Level              int                `json:"level" bson:"level"`
	DailyQuestProgress DailyQuestProgress `json:"dailyQuestProgress" bson:"dailyQuestProgress"`
	Version            int64              `json:"-" bson:"version"`
	CreatedAt          time.Time          `json:"-" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"-" bson:"updatedAt"`
}

// NewUserGamificationState returns the initial record for a new user.
func NewUserGamificationState(userID string, now time.Time) *UserGamificationState {
	return &UserGamificationState{
		UserID:    userID,
		XP:        0,
		Level:     LevelFromXP(0),
		CreatedAt: now,
		UpdatedAt: now,
		DailyQuestProgress: DailyQuestProgress{
			Quests: []QuestInstance{},
		},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing the quest slice.
func (s *UserGamificationState) Clone() *UserGamificationState {
	if s == nil {
		return nil
	}
	c := *s
	c.DailyQuestProgress.Quests = append([]QuestInstance(nil), s.DailyQuestProgress.Quests...)
	return &c
}

// AwardXP adds xp and recomputes the level. Returns true on level-up.
func (s *UserGamificationState) AwardXP(xp int) bool {
	if xp <= 0 {
		return false
	}
	before := LevelFromXP(s.XP)
	s.XP += xp
	s.Level = LevelFromXP(s.XP)
	return s.Level > before
}

// GamificationConfig holds the tunable progression policy.
type GamificationConfig struct {
	DailyQuestCount int    `json:"daily_quest_count"`
	RerollBudget    int    `json:"reroll_budget"`
	ResetTimezone   string `json:"reset_timezone"`
}

// DefaultGamificationConfig returns the reference policy.
func DefaultGamificationConfig() GamificationConfig {
	return GamificationConfig{
		DailyQuestCount: 3,
		RerollBudget:    1,
		ResetTimezone:   "UTC",
	}
}

// Mutation is what a state transition reports back to the store.
// The store persists only when Dirty is set; Events are written to the outbox
// in the same unit of work.
type Mutation struct {
	Dirty  bool
	Events []OutboxDraft
}
