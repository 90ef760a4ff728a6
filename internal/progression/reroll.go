package progression

import (
	"context"
	"fmt"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/quest"
)

// RerollResult is the post-reroll view returned to the caller.
type RerollResult struct {
	Quests           []domain.QuestInstance `json:"quests"`
	RerollsRemaining int                    `json:"rerollsRemaining"`
}

// RerollQuest swaps one unstarted active quest for a catalog quest not already
// in the set. The replacement takes the removed quest's slot.
//
// Rejections are checked in order and leave state untouched:
// NO_REROLLS_LEFT, QUEST_NOT_FOUND, QUEST_IN_PROGRESS, NO_REPLACEMENT_AVAILABLE.
// A due daily reset is applied first, so yesterday's ids are not rerollable.
func (e *Engine) RerollQuest(ctx context.Context, userID, questID string) (*RerollResult, error) {
	var (
		reset   bool
		removed domain.QuestInstance
		added   domain.QuestInstance
		snap    *domain.UserGamificationState
	)

	err := e.store.Mutate(ctx, userID, func(s *domain.UserGamificationState) (domain.Mutation, error) {
		reset = false
		now := e.now()
		var m domain.Mutation

		if evt, ok := e.applyDailyReset(s, now); ok {
			reset = true
			m.Events = append(m.Events, evt)
		}

		p := &s.DailyQuestProgress
		if p.RerollsRemaining <= 0 {
			return domain.Mutation{}, domain.ErrNoRerollsLeft()
		}
		idx := p.IndexOf(questID)
		if idx < 0 {
			return domain.Mutation{}, domain.ErrQuestNotFound(questID)
		}
		if p.Quests[idx].Started() {
			return domain.Mutation{}, domain.ErrQuestInProgress(questID)
		}
		replacement, ok := quest.DrawReplacement(e.catalog.ListTemplates(), p.ActiveIDs(), e.rnd)
		if !ok {
			return domain.Mutation{}, domain.ErrNoReplacementAvailable()
		}

		removed = p.Quests[idx]
		added = replacement
		p.Quests[idx] = replacement
		p.RerollsRemaining--
		s.UpdatedAt = now

		m.Dirty = true
		m.Events = append(m.Events, domain.NewQuestRerolledEvent(s.UserID, removed.QuestID, added.QuestID, p.RerollsRemaining, now))
		snap = s.Clone()
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reroll quest: %w", err)
	}

	if reset {
		e.publishReset(snap)
	}
	res := &RerollResult{
		Quests:           snap.DailyQuestProgress.Quests,
		RerollsRemaining: snap.DailyQuestProgress.RerollsRemaining,
	}
	e.gateway.Publish(snap.UserID, EventQuestsRerolled, RerolledPayload(*res))

	e.logger.Info("quest rerolled",
		"user_id", userID,
		"removed_quest_id", removed.QuestID,
		"added_quest_id", added.QuestID,
		"rerolls_remaining", res.RerollsRemaining,
	)
	return res, nil
}
