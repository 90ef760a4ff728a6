package progression

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/quest"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/store"
)

// --- Test Doubles ---

type published struct {
	UserID string
	Event  string
	Data   interface{}
}

type recordingGateway struct {
	mu   sync.Mutex
	msgs []published
}

func (g *recordingGateway) Publish(userID, event string, data interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.msgs = append(g.msgs, published{UserID: userID, Event: event, Data: data})
}

func (g *recordingGateway) events() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.msgs))
	for _, m := range g.msgs {
		out = append(out, m.Event)
	}
	return out
}

func (g *recordingGateway) last() published {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.msgs[len(g.msgs)-1]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	engine  *Engine
	store   *store.Memory
	gateway *recordingGateway
	clock   *fakeClock
}

var today = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, templates []domain.QuestTemplate, opts ...Option) *fixture {
	t.Helper()
	if templates == nil {
		templates = quest.DefaultTemplates()
	}
	catalog, err := quest.NewCatalog(templates)
	require.NoError(t, err)

	f := &fixture{
		store:   store.NewMemory(),
		gateway: &recordingGateway{},
		clock:   &fakeClock{t: today},
	}
	base := []Option{
		WithClock(f.clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	f.engine = New(f.store, catalog, f.gateway, rand.New(rand.NewPCG(1, 2)), append(base, opts...)...)
	return f
}

// seed stores a user whose quest set was assigned today, so no reset is due.
func (f *fixture) seed(userID string, xp int, quests ...domain.QuestInstance) {
	s := domain.NewUserGamificationState(userID, today)
	s.XP = xp
	s.Level = domain.LevelFromXP(xp)
	s.DailyQuestProgress = domain.DailyQuestProgress{
		Quests:           quests,
		LastReset:        today.Add(-time.Hour),
		RerollsRemaining: 1,
	}
	f.store.Put(s)
}

func (f *fixture) state(t *testing.T, userID string) *domain.UserGamificationState {
	t.Helper()
	s, err := f.store.Get(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func inst(id string, trigger domain.EventTrigger, target, progress, xp int) domain.QuestInstance {
	return domain.QuestInstance{
		QuestID:      id,
		Label:        id,
		EventTrigger: trigger,
		TargetCount:  target,
		XPReward:     xp,
		Progress:     progress,
		Completed:    progress >= target,
	}
}

// --- RecordEvent ---

func TestRecordEvent_FreshUserResetsAndCompletesUploadQuest(t *testing.T) {
	f := newFixture(t, nil)
	s := domain.NewUserGamificationState("u1", today)
	s.DailyQuestProgress.LastReset = today.AddDate(0, 0, -1)
	f.store.Put(s)

	res, err := f.engine.RecordEvent(context.Background(), "u1", domain.TriggerNoteUpload)
	require.NoError(t, err)

	got := f.state(t, "u1")
	require.Len(t, got.DailyQuestProgress.Quests, 3)
	assert.Equal(t, today, got.DailyQuestProgress.LastReset)

	wantXP := 0
	for _, q := range got.DailyQuestProgress.Quests {
		if q.EventTrigger == domain.TriggerNoteUpload && q.TargetCount == 1 {
			assert.True(t, q.Completed, "quest %s should be complete", q.QuestID)
			wantXP += q.XPReward
		}
	}
	assert.Equal(t, wantXP, got.XP)
	assert.Equal(t, wantXP, res.XPGained)
	assert.Equal(t, domain.LevelFromXP(wantXP), res.CurrentLevel)
	assert.Equal(t, res.CurrentLevel, got.Level)
	assert.Equal(t, EventDailyReset, f.gateway.events()[0])
}

func TestRecordEvent_ResetThenCompleteWithKnownCatalog(t *testing.T) {
	templates := []domain.QuestTemplate{
		{ID: "upload_note_1", EventTrigger: domain.TriggerNoteUpload, TargetCount: 1, XPReward: 50},
		{ID: "view_note_3", EventTrigger: domain.TriggerNoteView, TargetCount: 3, XPReward: 30},
		{ID: "download_note_1", EventTrigger: domain.TriggerNoteDownload, TargetCount: 1, XPReward: 20},
	}
	f := newFixture(t, templates)
	s := domain.NewUserGamificationState("u1", today)
	s.DailyQuestProgress.LastReset = today.AddDate(0, 0, -1)
	f.store.Put(s)

	res, err := f.engine.RecordEvent(context.Background(), "u1", domain.TriggerNoteUpload)
	require.NoError(t, err)
	assert.Equal(t, &Result{XPGained: 50, LeveledUp: false, CurrentLevel: 1}, res)

	got := f.state(t, "u1")
	i := got.DailyQuestProgress.IndexOf("upload_note_1")
	require.GreaterOrEqual(t, i, 0)
	assert.True(t, got.DailyQuestProgress.Quests[i].Completed)
	assert.Equal(t, 50, got.XP)
	assert.Equal(t, 1, f.store.Saves("u1"), "reset and progress persist in one write")
}

func TestRecordEvent_CompletesAndLevelsUp(t *testing.T) {
	f := newFixture(t, nil)
	f.seed("u1", 95, inst("view_note_3", domain.TriggerNoteView, 3, 2, 30))

	res, err := f.engine.RecordEvent(context.Background(), "u1", domain.TriggerNoteView)
	require.NoError(t, err)
	assert.Equal(t, 30, res.XPGained)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.CurrentLevel)

	got := f.state(t, "u1")
	q := got.DailyQuestProgress.Quests[0]
	assert.Equal(t, 3, q.Progress)
	assert.True(t, q.Completed)
	assert.Equal(t, 125, got.XP)
	assert.Equal(t, 2, got.Level)

	require.Equal(t, []string{EventQuestProgress}, f.gateway.events())
	payload := f.gateway.last().Data.(QuestProgressPayload)
	assert.Equal(t, 30, payload.XPGained)
	assert.Equal(t, 125, payload.TotalXP)
	assert.Equal(t, 2, payload.CurrentLevel)
	assert.True(t, payload.LeveledUp)
	assert.Equal(t, []string{"view_note_3"}, payload.CompletedQuestIDs)

	types := map[domain.EventType]bool{}
	for _, e := range f.store.Events() {
		types[e.EventType] = true
	}
	assert.True(t, types[domain.EventQuestCompleted])
	assert.True(t, types[domain.EventUserLeveledUp])
}

func TestRecordEvent_NoMatchingQuestIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	f.seed("u1", 10, inst("view_note_3", domain.TriggerNoteView, 3, 1, 30))

	res, err := f.engine.RecordEvent(context.Background(), "u1", domain.TriggerProfileUpdate)
	require.NoError(t, err)
	assert.Equal(t, 0, res.XPGained)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, res.CurrentLevel)

	assert.Equal(t, 0, f.store.Saves("u1"))
	assert.Empty(t, f.gateway.events())
	assert.Equal(t, 1, f.state(t, "u1").DailyQuestProgress.Quests[0].Progress)
}

func TestRecordEvent_PartialProgressPublishesWithoutXP(t *testing.T) {
	f := newFixture(t, nil)
	f.seed("u1", 0, inst("view_note_3", domain.TriggerNoteView, 3, 0, 30))

	res, err := f.engine.RecordEvent(context.Background(), "u1", domain.TriggerNoteView)
	require.NoError(t, err)
	assert.Equal(t, 0, res.XPGained)

	payload := f.gateway.last().Data.(QuestProgressPayload)
	assert.Equal(t, 1, payload.UpdatedQuests[0].Progress)
	assert.Empty(t, payload.CompletedQuestIDs)
	assert.NotNil(t, payload.CompletedQuestIDs)
	assert.Equal(t, 1, f.store.Saves("u1"))
}

func TestRecordEvent_AdvancesEveryMatchingQuest(t *testing.T) {
	f := newFixture(t, nil)
	f.seed("u1", 0,
		inst("view_note_3", domain.TriggerNoteView, 3, 2, 30),
		inst("view_note_10", domain.TriggerNoteView, 10, 4, 80),
		inst("upload_note_1", domain.TriggerNoteUpload, 1, 0, 50),
	)

	res, err := f.engine.RecordEvent(context.Background(), "u1", domain.TriggerNoteView)
	require.NoError(t, err)
	assert.Equal(t, 30, res.XPGained)

	got := f.state(t, "u1").DailyQuestProgress.Quests
	assert.True(t, got[0].Completed)
	assert.Equal(t, 5, got[1].Progress)
	assert.Equal(t, 0, got[2].Progress)
}

func TestRecordEvent_CompletedQuestIsNotAwardedTwice(t *testing.T) {
	f := newFixture(t, nil)
	f.seed("u1", 50, inst("upload_note_1", domain.TriggerNoteUpload, 1, 1, 50))

	res, err := f.engine.RecordEvent(context.Background(), "u1", domain.TriggerNoteUpload)
	require.NoError(t, err)
	assert.Equal(t, 0, res.XPGained)
	assert.Equal(t, 50, f.state(t, "u1").XP)
	assert.Equal(t, 0, f.store.Saves("u1"))
}

func TestRecordEvent_Errors(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.RecordEvent(context.Background(), "ghost", domain.TriggerNoteView)
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))

	_, err = f.engine.RecordEvent(context.Background(), "ghost", domain.EventTrigger("LIKE"))
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	assert.Empty(t, f.gateway.events())
}

func TestRecordEvent_ConcurrentEventsAwardOnce(t *testing.T) {
	const n = 50
	f := newFixture(t, nil)
	f.seed("u1", 0, inst("view_many", domain.TriggerNoteView, n, 0, 70))

	var wg sync.WaitGroup
	var mu sync.Mutex
	gained, completions := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.RecordEvent(context.Background(), "u1", domain.TriggerNoteView)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			gained += res.XPGained
			if res.XPGained > 0 {
				completions++
			}
		}()
	}
	wg.Wait()

	got := f.state(t, "u1")
	assert.Equal(t, n, got.DailyQuestProgress.Quests[0].Progress)
	assert.True(t, got.DailyQuestProgress.Quests[0].Completed)
	assert.Equal(t, 70, got.XP)
	assert.Equal(t, 70, gained)
	assert.Equal(t, 1, completions)

	completed := 0
	for _, e := range f.store.Events() {
		if e.EventType == domain.EventQuestCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

// --- Daily Reset ---

func TestCheckDailyReset_IdempotentWithinDay(t *testing.T) {
	f := newFixture(t, nil)
	_, _, err := f.engine.EnsureUser(context.Background(), "u1")
	require.NoError(t, err)

	first, err := f.engine.CheckDailyReset(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, first.DailyQuestProgress.Quests, 3)

	f.clock.Set(today.Add(5 * time.Hour))
	second, err := f.engine.CheckDailyReset(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first.DailyQuestProgress.Quests, second.DailyQuestProgress.Quests)
	assert.Equal(t, first.DailyQuestProgress.LastReset, second.DailyQuestProgress.LastReset)
	assert.Equal(t, first.DailyQuestProgress.RerollsRemaining, second.DailyQuestProgress.RerollsRemaining)
	assert.Equal(t, 1, f.store.Saves("u1"))
	assert.Equal(t, []string{EventDailyReset}, f.gateway.events())
}

func TestCheckDailyReset_DayBoundary(t *testing.T) {
	f := newFixture(t, nil)
	late := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	s := domain.NewUserGamificationState("u1", late)
	s.DailyQuestProgress = domain.DailyQuestProgress{
		Quests:    []domain.QuestInstance{inst("view_note_3", domain.TriggerNoteView, 3, 3, 30)},
		LastReset: late,
		Streak:    4,
	}
	s.XP = 30
	f.store.Put(s)

	f.clock.Set(late.Add(30 * time.Second))
	same, err := f.engine.CheckDailyReset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "view_note_3", same.DailyQuestProgress.Quests[0].QuestID)

	f.clock.Set(time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC))
	next, err := f.engine.CheckDailyReset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, next.DailyQuestProgress.Quests, 3)
	for _, q := range next.DailyQuestProgress.Quests {
		assert.Equal(t, 0, q.Progress)
		assert.False(t, q.Completed)
	}
	assert.Equal(t, 1, next.DailyQuestProgress.RerollsRemaining)
	assert.Equal(t, 5, next.DailyQuestProgress.Streak)
	assert.Equal(t, 30, next.XP, "reset never touches xp")
}

func TestCheckDailyReset_UsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	f := newFixture(t, nil, WithLocation(loc))

	// 20:00 UTC on the 14th is 01:30 on the 15th in IST.
	assigned := time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)
	s := domain.NewUserGamificationState("u1", assigned)
	s.DailyQuestProgress = domain.DailyQuestProgress{
		Quests:    []domain.QuestInstance{inst("view_note_3", domain.TriggerNoteView, 3, 0, 30)},
		LastReset: assigned,
	}
	f.store.Put(s)

	f.clock.Set(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	got, err := f.engine.CheckDailyReset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, got.DailyQuestProgress.Quests, 3)
}

func TestStreakRules(t *testing.T) {
	f := newFixture(t, nil)
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	done := []domain.QuestInstance{inst("a", domain.TriggerNoteView, 1, 1, 10)}
	open := []domain.QuestInstance{inst("a", domain.TriggerNoteView, 1, 0, 10)}

	tests := []struct {
		name string
		p    domain.DailyQuestProgress
		at   time.Time
		want int
	}{
		{"yesterday with completion extends", domain.DailyQuestProgress{Quests: done, LastReset: now.AddDate(0, 0, -1), Streak: 2}, now, 3},
		{"yesterday without completion breaks", domain.DailyQuestProgress{Quests: open, LastReset: now.AddDate(0, 0, -1), Streak: 2}, now, 0},
		{"missed day breaks", domain.DailyQuestProgress{Quests: done, LastReset: now.AddDate(0, 0, -2), Streak: 7}, now, 0},
		{"same day refill keeps", domain.DailyQuestProgress{LastReset: now.Add(-time.Hour), Streak: 2}, now, 2},
		{"first assignment keeps", domain.DailyQuestProgress{}, now, 0},
		{"month boundary", domain.DailyQuestProgress{Quests: done, LastReset: time.Date(2026, 2, 28, 22, 0, 0, 0, time.UTC), Streak: 1}, time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.engine.nextStreak(tt.p, tt.at))
		})
	}
}

func TestResetDue(t *testing.T) {
	f := newFixture(t, nil)
	q := []domain.QuestInstance{inst("a", domain.TriggerNoteView, 1, 0, 10)}

	assert.True(t, f.engine.resetDue(domain.DailyQuestProgress{}, today))
	assert.True(t, f.engine.resetDue(domain.DailyQuestProgress{LastReset: today}, today), "empty set refills")
	assert.False(t, f.engine.resetDue(domain.DailyQuestProgress{Quests: q, LastReset: today}, today))
	assert.True(t, f.engine.resetDue(domain.DailyQuestProgress{Quests: q, LastReset: today.AddDate(0, 0, -1)}, today))
}

func TestReset_DegenerateCatalog(t *testing.T) {
	templates := []domain.QuestTemplate{
		{ID: "only", EventTrigger: domain.TriggerNoteView, TargetCount: 1, XPReward: 5},
	}
	f := newFixture(t, templates)
	_, _, err := f.engine.EnsureUser(context.Background(), "u1")
	require.NoError(t, err)

	got, err := f.engine.CheckDailyReset(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got.DailyQuestProgress.Quests, 1)
	assert.Equal(t, "only", got.DailyQuestProgress.Quests[0].QuestID)
}

func TestReset_PolicyOverrides(t *testing.T) {
	f := newFixture(t, nil, WithPolicy(domain.GamificationConfig{DailyQuestCount: 5, RerollBudget: 2}))
	_, _, err := f.engine.EnsureUser(context.Background(), "u1")
	require.NoError(t, err)

	got, err := f.engine.CheckDailyReset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, got.DailyQuestProgress.Quests, 5)
	assert.Equal(t, 2, got.DailyQuestProgress.RerollsRemaining)
}

// --- RerollQuest ---

func TestRerollQuest_NoRerollsLeftLeavesQuestsUntouched(t *testing.T) {
	f := newFixture(t, nil)
	f.seed("u1", 0,
		inst("view_note_3", domain.TriggerNoteView, 3, 0, 30),
		inst("upload_note_1", domain.TriggerNoteUpload, 1, 0, 50),
	)
	require.NoError(t, f.store.Mutate(context.Background(), "u1", func(s *domain.UserGamificationState) (domain.Mutation, error) {
		s.DailyQuestProgress.RerollsRemaining = 0
		return domain.Mutation{Dirty: true}, nil
	}))
	before, err := json.Marshal(f.state(t, "u1").DailyQuestProgress.Quests)
	require.NoError(t, err)
	saves := f.store.Saves("u1")

	_, err = f.engine.RerollQuest(context.Background(), "u1", "view_note_3")
	assert.True(t, domain.HasCode(err, domain.CodeNoRerollsLeft))

	after, err := json.Marshal(f.state(t, "u1").DailyQuestProgress.Quests)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, saves, f.store.Saves("u1"))
	assert.Empty(t, f.gateway.events())
}

func TestRerollQuest_Success(t *testing.T) {
	f := newFixture(t, nil)
	f.seed("u1", 40,
		inst("view_note_3", domain.TriggerNoteView, 3, 1, 30),
		inst("upload_note_1", domain.TriggerNoteUpload, 1, 0, 50),
		inst("download_note_1", domain.TriggerNoteDownload, 1, 0, 20),
	)

	res, err := f.engine.RerollQuest(context.Background(), "u1", "upload_note_1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.RerollsRemaining)
	require.Len(t, res.Quests, 3)

	assert.Equal(t, "view_note_3", res.Quests[0].QuestID)
	assert.Equal(t, "download_note_1", res.Quests[2].QuestID)
	replacement := res.Quests[1]
	assert.NotContains(t, []string{"view_note_3", "upload_note_1", "download_note_1"}, replacement.QuestID)
	assert.Equal(t, 0, replacement.Progress)
	assert.False(t, replacement.Completed)

	got := f.state(t, "u1")
	assert.Equal(t, 40, got.XP)
	assert.Equal(t, res.Quests, got.DailyQuestProgress.Quests)

	msg := f.gateway.last()
	assert.Equal(t, EventQuestsRerolled, msg.Event)
	assert.Equal(t, 0, msg.Data.(RerolledPayload).RerollsRemaining)
}

func TestRerollQuest_Rejections(t *testing.T) {
	full := []domain.QuestTemplate{
		{ID: "view_note_3", EventTrigger: domain.TriggerNoteView, TargetCount: 3, XPReward: 30},
		{ID: "upload_note_1", EventTrigger: domain.TriggerNoteUpload, TargetCount: 1, XPReward: 50},
	}

	tests := []struct {
		name      string
		templates []domain.QuestTemplate
		questID   string
		code      string
	}{
		{"unknown quest", nil, "nope", domain.CodeQuestNotFound},
		{"started quest", nil, "view_note_3", domain.CodeQuestInProgress},
		{"catalog exhausted", full, "upload_note_1", domain.CodeNoReplacementAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.templates)
			f.seed("u1", 0,
				inst("view_note_3", domain.TriggerNoteView, 3, 2, 30),
				inst("upload_note_1", domain.TriggerNoteUpload, 1, 0, 50),
			)
			before := f.state(t, "u1")

			_, err := f.engine.RerollQuest(context.Background(), "u1", tt.questID)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, tt.code), "got %v", err)

			after := f.state(t, "u1")
			assert.Equal(t, before.DailyQuestProgress, after.DailyQuestProgress)
			assert.Equal(t, before.XP, after.XP)
			assert.Equal(t, 0, f.store.Saves("u1"))
			assert.Empty(t, f.gateway.events())
		})
	}
}

func TestRerollQuest_AppliesDueResetFirst(t *testing.T) {
	f := newFixture(t, nil)
	s := domain.NewUserGamificationState("u1", today)
	s.DailyQuestProgress = domain.DailyQuestProgress{
		Quests:    []domain.QuestInstance{inst("view_note_3", domain.TriggerNoteView, 3, 0, 30)},
		LastReset: today.AddDate(0, 0, -1),
	}
	f.store.Put(s)

	// Yesterday's quest id is gone once the reset applies, unless redrawn.
	_, err := f.engine.RerollQuest(context.Background(), "u1", "definitely_missing")
	assert.True(t, domain.HasCode(err, domain.CodeQuestNotFound))
	assert.Equal(t, 0, f.store.Saves("u1"), "rejected reroll discards the reset too")

	st, err := f.engine.CheckDailyReset(context.Background(), "u1")
	require.NoError(t, err)
	target := st.DailyQuestProgress.Quests[0].QuestID

	res, err := f.engine.RerollQuest(context.Background(), "u1", target)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RerollsRemaining)
	assert.NotEqual(t, target, res.Quests[0].QuestID)
}

func TestRerollQuest_UnknownUser(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.engine.RerollQuest(context.Background(), "ghost", "x")
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}

// --- EnsureUser / GetState ---

func TestEnsureUser(t *testing.T) {
	f := newFixture(t, nil)

	st, created, err := f.engine.EnsureUser(context.Background(), "6650f1c2a9e4b1d2c3e4f5a6")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, st.XP)
	assert.Equal(t, 1, st.Level)
	assert.Empty(t, st.DailyQuestProgress.Quests)

	_, created, err = f.engine.EnsureUser(context.Background(), "6650f1c2a9e4b1d2c3e4f5a6")
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = f.engine.EnsureUser(context.Background(), "bad id!")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

func TestGetState_DoesNotMutate(t *testing.T) {
	f := newFixture(t, nil)
	s := domain.NewUserGamificationState("u1", today)
	s.DailyQuestProgress.LastReset = today.AddDate(0, 0, -3)
	f.store.Put(s)

	got, err := f.engine.GetState(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, got.DailyQuestProgress.Quests)
	assert.Equal(t, 0, f.store.Saves("u1"))

	_, err = f.engine.GetState(context.Background(), "ghost")
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}
