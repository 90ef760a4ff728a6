// Package progression implements the gamification state machine: daily quest
// reset, event application, XP and level-up, and quest rerolls.
package progression

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/quest"
)

// Store persists UserGamificationState records.
type Store interface {
	// Mutate loads the user's state, runs fn, and persists the result (plus
	// fn's outbox events) iff fn reports Dirty, as one atomic unit serialized
	// per user. An error from fn aborts without writing anything.
	// Missing users yield domain.ErrNotFound. Optimistic backends may invoke
	// fn more than once, so fn must only act through the state it is given.
	Mutate(ctx context.Context, userID string, fn func(*domain.UserGamificationState) (domain.Mutation, error)) error

	// Get returns the stored state, or domain.ErrNotFound.
	Get(ctx context.Context, userID string) (*domain.UserGamificationState, error)

	// Create inserts state if no record exists for its user. Reports whether
	// a record was created.
	Create(ctx context.Context, state *domain.UserGamificationState) (bool, error)
}

// Gateway delivers live notifications. Publish must not block on I/O and never
// fails; delivery is best effort.
type Gateway interface {
	Publish(userID string, event string, data interface{})
}

// Result is returned to the collaborator that reported an event.
type Result struct {
	XPGained     int  `json:"xpGained"`
	LeveledUp    bool `json:"leveledUp"`
	CurrentLevel int  `json:"currentLevel"`
}

// Engine is the progression state machine. Safe for concurrent use; per-user
// serialization is delegated to the Store.
type Engine struct {
	store        Store
	catalog      *quest.Catalog
	gateway      Gateway
	rnd          quest.RandomSource
	now          func() time.Time
	loc          *time.Location
	dailyCount   int
	rerollBudget int
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the reference clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone whose calendar days drive the daily reset.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithPolicy applies the daily quest count and reroll budget.
func WithPolicy(cfg domain.GamificationConfig) Option {
	return func(e *Engine) {
		if cfg.DailyQuestCount > 0 {
			e.dailyCount = cfg.DailyQuestCount
		}
		if cfg.RerollBudget >= 0 {
			e.rerollBudget = cfg.RerollBudget
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine. All collaborators are passed in explicitly.
func New(store Store, catalog *quest.Catalog, gateway Gateway, rnd quest.RandomSource, opts ...Option) *Engine {
	def := domain.DefaultGamificationConfig()
	e := &Engine{
		store:        store,
		catalog:      catalog,
		gateway:      gateway,
		rnd:          &lockedSource{src: rnd},
		now:          time.Now,
		loc:          time.UTC,
		dailyCount:   def.DailyQuestCount,
		rerollBudget: def.RerollBudget,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// eventOutcome is captured from inside the mutation and reset on every attempt.
type eventOutcome struct {
	reset     bool
	changed   bool
	xpGained  int
	leveledUp bool
	completed []string
	state     *domain.UserGamificationState
}

// RecordEvent applies one occurrence of trigger to the user's active quests.
//
// Steps, as one atomic read-modify-write:
//  1. load state (missing user -> NOT_FOUND)
//  2. daily reset if due
//  3. advance every incomplete quest matching trigger (saturating)
//  4. award XP for newly completed quests and recompute the level
//  5. persist only if a reset happened or a quest changed
//
// Notifications are published after the write commits.
func (e *Engine) RecordEvent(ctx context.Context, userID string, trigger domain.EventTrigger) (*Result, error) {
	if !trigger.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown event trigger: %q", trigger))
	}

	var out eventOutcome
	err := e.store.Mutate(ctx, userID, func(s *domain.UserGamificationState) (domain.Mutation, error) {
		out = eventOutcome{}
		now := e.now()
		var m domain.Mutation

		if evt, ok := e.applyDailyReset(s, now); ok {
			out.reset = true
			m.Events = append(m.Events, evt)
		}

		pending := 0
		for i := range s.DailyQuestProgress.Quests {
			q := &s.DailyQuestProgress.Quests[i]
			if q.EventTrigger != trigger || q.Completed {
				continue
			}
			out.changed = true
			if q.Advance() {
				out.completed = append(out.completed, q.QuestID)
				pending += q.XPReward
				m.Events = append(m.Events, domain.NewQuestCompletedEvent(s.UserID, *q, now))
			}
		}

		if pending > 0 {
			before := s.Level
			out.xpGained = pending
			out.leveledUp = s.AwardXP(pending)
			if out.leveledUp {
				m.Events = append(m.Events, domain.NewLeveledUpEvent(s.UserID, before, s.Level, s.XP, now))
			}
		}
		s.Level = domain.LevelFromXP(s.XP)

		m.Dirty = out.reset || out.changed
		if m.Dirty {
			s.UpdatedAt = now
		}
		out.state = s.Clone()
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}

	st := out.state
	if out.reset {
		e.publishReset(st)
	}
	if out.changed {
		e.gateway.Publish(st.UserID, EventQuestProgress, QuestProgressPayload{
			UpdatedQuests:     st.DailyQuestProgress.Quests,
			XPGained:          out.xpGained,
			TotalXP:           st.XP,
			CurrentLevel:      st.Level,
			CompletedQuestIDs: nonNil(out.completed),
			LeveledUp:         out.leveledUp,
		})
	}

	if len(out.completed) > 0 {
		e.logger.Info("quests completed",
			"user_id", userID,
			"trigger", trigger,
			"quest_ids", out.completed,
			"xp_gained", out.xpGained,
			"level", st.Level,
			"leveled_up", out.leveledUp,
		)
	}

	return &Result{
		XPGained:     out.xpGained,
		LeveledUp:    out.leveledUp,
		CurrentLevel: st.Level,
	}, nil
}

// GetState returns the stored record without mutating it.
func (e *Engine) GetState(ctx context.Context, userID string) (*domain.UserGamificationState, error) {
	st, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return st, nil
}

// EnsureUser provisions a gamification record for userID if none exists.
func (e *Engine) EnsureUser(ctx context.Context, userID string) (*domain.UserGamificationState, bool, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, false, domain.ErrValidation(err.Error())
	}

	created, err := e.store.Create(ctx, domain.NewUserGamificationState(userID, e.now()))
	if err != nil {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}
	if created {
		e.logger.Info("gamification record created", "user_id", userID)
	}

	st, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}
	return st, created, nil
}

// lockedSource serializes access to a RandomSource; *rand.Rand is not safe for
// concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	src quest.RandomSource
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
