package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Level Tests ---

func TestLevelFromXP_MatchesFormula(t *testing.T) {
	for xp := 0; xp <= 100_000; xp++ {
		want := xp/100 + 1
		if got := LevelFromXP(xp); got != want {
			t.Fatalf("LevelFromXP(%d) = %d, want %d", xp, got, want)
		}
	}
}

func TestLevelFromXP_Monotonic(t *testing.T) {
	prev := LevelFromXP(0)
	for xp := 1; xp <= 100_000; xp++ {
		cur := LevelFromXP(xp)
		require.GreaterOrEqual(t, cur, prev, "level decreased at xp=%d", xp)
		prev = cur
	}
}

func TestLevelFromXP_Boundaries(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{125, 2},
		{199, 2},
		{200, 3},
		{-5, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("xp=%d", tt.xp), func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromXP(tt.xp))
		})
	}
}

// --- QuestInstance Tests ---

func TestQuestInstance_AdvanceSaturates(t *testing.T) {
	q := QuestTemplate{ID: "view_3", EventTrigger: TriggerNoteView, TargetCount: 3, XPReward: 30}.NewInstance()

	assert.False(t, q.Advance())
	assert.False(t, q.Advance())
	assert.True(t, q.Advance())
	assert.Equal(t, 3, q.Progress)
	assert.True(t, q.Completed)

	// Further events never overflow or re-complete.
	assert.False(t, q.Advance())
	assert.Equal(t, 3, q.Progress)
	assert.True(t, q.Completed)
}

func TestQuestInstance_InvariantAfterEveryMutation(t *testing.T) {
	for target := 1; target <= 6; target++ {
		q := QuestTemplate{ID: "q", EventTrigger: TriggerNoteUpload, TargetCount: target}.NewInstance()
		for i := 0; i < target+3; i++ {
			q.Advance()
			assert.Equal(t, q.Progress >= q.TargetCount, q.Completed)
			assert.LessOrEqual(t, q.Progress, q.TargetCount)
		}
	}
}

func TestQuestTemplate_NewInstanceSnapshots(t *testing.T) {
	tmpl := QuestTemplate{ID: "upload_1", Label: "Upload", Description: "d", EventTrigger: TriggerNoteUpload, TargetCount: 1, XPReward: 50}
	q := tmpl.NewInstance()
	tmpl.XPReward = 999

	assert.Equal(t, 50, q.XPReward)
	assert.Equal(t, 0, q.Progress)
	assert.False(t, q.Completed)
}

// --- DailyQuestProgress Tests ---

func TestDailyQuestProgress_Stage(t *testing.T) {
	var p DailyQuestProgress
	assert.Equal(t, StageNoQuestsToday, p.Stage())

	p.Quests = []QuestInstance{
		{QuestID: "a", TargetCount: 1},
		{QuestID: "b", TargetCount: 1, Progress: 1, Completed: true},
	}
	assert.Equal(t, StageQuestsActive, p.Stage())
	assert.Equal(t, 1, p.CompletedCount())
	assert.Equal(t, 1, p.IndexOf("b"))
	assert.Equal(t, -1, p.IndexOf("zzz"))

	p.Quests[0].Advance()
	assert.Equal(t, StageAllQuestsComplete, p.Stage())
}

func TestUserGamificationState_AwardXP(t *testing.T) {
	s := NewUserGamificationState("u1", time.Now())
	s.XP = 95

	assert.True(t, s.AwardXP(30))
	assert.Equal(t, 125, s.XP)
	assert.Equal(t, 2, s.Level)

	assert.False(t, s.AwardXP(0))
	assert.False(t, s.AwardXP(10))
	assert.Equal(t, 135, s.XP)
}

func TestUserGamificationState_CloneDoesNotAlias(t *testing.T) {
	s := NewUserGamificationState("u1", time.Now())
	s.DailyQuestProgress.Quests = []QuestInstance{{QuestID: "a", TargetCount: 2}}

	c := s.Clone()
	c.DailyQuestProgress.Quests[0].Advance()

	assert.Equal(t, 0, s.DailyQuestProgress.Quests[0].Progress)
	assert.Equal(t, 1, c.DailyQuestProgress.Quests[0].Progress)
}

func TestUserGamificationState_WireShape(t *testing.T) {
	s := NewUserGamificationState("u1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	s.DailyQuestProgress.Quests = []QuestInstance{{QuestID: "a", EventTrigger: TriggerNoteView, TargetCount: 3}}

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "xp")
	assert.Contains(t, m, "level")
	assert.NotContains(t, m, "Version")

	dqp := m["dailyQuestProgress"].(map[string]interface{})
	for _, key := range []string{"quests", "lastReset", "rerollsRemaining", "streak"} {
		assert.Contains(t, dqp, key)
	}
	quest := dqp["quests"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"questId", "label", "description", "eventTrigger", "targetCount", "xpReward", "progress", "completed"} {
		assert.Contains(t, quest, key)
	}
}

// --- Trigger / Validator Tests ---

func TestParseEventTrigger(t *testing.T) {
	for _, trig := range AllEventTriggers() {
		got, err := ParseEventTrigger(string(trig))
		require.NoError(t, err)
		assert.Equal(t, trig, got)
	}

	_, err := ParseEventTrigger("NOTE_DELETE")
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeValidation))
}

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"mongo object id", "65f1c2a9e4b0a1b2c3d4e5f6", false},
		{"uuid", "2b7e1516-28ae-4d2a-a6f7-15887e9a2c3d", false},
		{"empty", "", true},
		{"spaces", "user 1", true},
		{"path chars", "../etc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateQuestTemplate(t *testing.T) {
	valid := QuestTemplate{ID: "upload_1", EventTrigger: TriggerNoteUpload, TargetCount: 1, XPReward: 10}
	require.NoError(t, ValidateQuestTemplate(valid))

	tests := []struct {
		name   string
		mutate func(*QuestTemplate)
		errMsg string
	}{
		{"bad id", func(q *QuestTemplate) { q.ID = "Upload One" }, "quest id"},
		{"unknown trigger", func(q *QuestTemplate) { q.EventTrigger = "LIKE" }, "unknown event trigger"},
		{"zero target", func(q *QuestTemplate) { q.TargetCount = 0 }, "target count"},
		{"negative reward", func(q *QuestTemplate) { q.XPReward = -1 }, "xp reward"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mutate(&q)
			err := ValidateQuestTemplate(q)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

// --- Error Tests ---

func TestAppError_Wrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("record event: %w", ErrStoreUnavailable(cause))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 503, appErr.Status)
	assert.True(t, appErr.Retryable())
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeStoreUnavailable))
	assert.False(t, HasCode(err, CodeNotFound))
}

func TestRerollErrors(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   string
		status int
	}{
		{ErrNoRerollsLeft(), CodeNoRerollsLeft, 409},
		{ErrQuestNotFound("x"), CodeQuestNotFound, 404},
		{ErrQuestInProgress("x"), CodeQuestInProgress, 409},
		{ErrNoReplacementAvailable(), CodeNoReplacementAvailable, 409},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.False(t, tt.err.Retryable())
		})
	}
}

// --- Event Tests ---

func TestNewQuestCompletedEvent(t *testing.T) {
	at := time.Now()
	q := QuestInstance{QuestID: "upload_1", EventTrigger: TriggerNoteUpload, XPReward: 50}
	evt := NewQuestCompletedEvent("u1", q, at)

	assert.Equal(t, EventQuestCompleted, evt.EventType)
	assert.Equal(t, AggregateUser, evt.AggregateType)
	assert.Equal(t, "u1", evt.PartitionKey)
	assert.Equal(t, at, evt.OccurredAt)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "upload_1", payload["quest_id"])
	assert.Equal(t, float64(50), payload["xp_reward"])
}
