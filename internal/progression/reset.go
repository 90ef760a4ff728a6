package progression

import (
	"context"
	"fmt"
	"time"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/quest"
)

// civilDate is a calendar day in the engine's location.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func (e *Engine) dateOf(t time.Time) civilDate {
	y, m, d := t.In(e.loc).Date()
	return civilDate{y, m, d}
}

func (e *Engine) yesterday(t time.Time) civilDate {
	y, m, d := t.In(e.loc).Date()
	// noon avoids DST edges when stepping back a day
	return e.dateOf(time.Date(y, m, d-1, 12, 0, 0, 0, e.loc))
}

// resetDue reports whether the daily set must be replaced: the calendar day has
// changed since the last reset, or there are no active quests.
func (e *Engine) resetDue(p domain.DailyQuestProgress, now time.Time) bool {
	if len(p.Quests) == 0 || p.LastReset.IsZero() {
		return true
	}
	return e.dateOf(p.LastReset) != e.dateOf(now)
}

// nextStreak computes the streak carried into a new day. A set assigned
// yesterday with at least one completion extends it; any other day-boundary
// reset breaks it. Same-day refills and the first ever assignment keep it.
func (e *Engine) nextStreak(p domain.DailyQuestProgress, now time.Time) int {
	if p.LastReset.IsZero() {
		return p.Streak
	}
	last := e.dateOf(p.LastReset)
	if last == e.dateOf(now) {
		return p.Streak
	}
	if last == e.yesterday(now) && p.CompletedCount() > 0 {
		return p.Streak + 1
	}
	return 0
}

// applyDailyReset replaces the quest set in place when due. Progress and
// completion of the replaced set are discarded; XP is untouched.
func (e *Engine) applyDailyReset(s *domain.UserGamificationState, now time.Time) (domain.OutboxDraft, bool) {
	p := s.DailyQuestProgress
	if !e.resetDue(p, now) {
		return domain.OutboxDraft{}, false
	}

	s.DailyQuestProgress = domain.DailyQuestProgress{
		Quests:           quest.SelectDaily(e.catalog.ListTemplates(), e.dailyCount, e.rnd),
		LastReset:        now,
		RerollsRemaining: e.rerollBudget,
		Streak:           e.nextStreak(p, now),
	}
	return domain.NewDailyResetEvent(s.UserID, s.DailyQuestProgress, now), true
}

// CheckDailyReset applies the daily reset if due and returns the resulting
// state. Calling it twice within the same day is a no-op the second time.
func (e *Engine) CheckDailyReset(ctx context.Context, userID string) (*domain.UserGamificationState, error) {
	var (
		reset bool
		snap  *domain.UserGamificationState
	)
	err := e.store.Mutate(ctx, userID, func(s *domain.UserGamificationState) (domain.Mutation, error) {
		reset = false
		now := e.now()
		var m domain.Mutation
		if evt, ok := e.applyDailyReset(s, now); ok {
			reset = true
			s.UpdatedAt = now
			m.Dirty = true
			m.Events = append(m.Events, evt)
		}
		snap = s.Clone()
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("check daily reset: %w", err)
	}

	if reset {
		e.publishReset(snap)
		e.logger.Info("daily quests reset",
			"user_id", userID,
			"quest_count", len(snap.DailyQuestProgress.Quests),
			"streak", snap.DailyQuestProgress.Streak,
		)
	}
	return snap, nil
}

func (e *Engine) publishReset(st *domain.UserGamificationState) {
	e.gateway.Publish(st.UserID, EventDailyReset, DailyResetPayload{
		Quests: st.DailyQuestProgress.Quests,
		Streak: st.DailyQuestProgress.Streak,
	})
}
