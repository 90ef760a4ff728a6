package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
)

type gamificationRepo struct{}

// NewGamificationRepository returns a pgx-backed GamificationRepository.
// The daily quest set is stored as a JSONB array.
func NewGamificationRepository() GamificationRepository {
	return &gamificationRepo{}
}

const gamificationColumns = `user_id, xp, level, quests, last_reset, rerolls_remaining, streak, version, created_at, updated_at`

func (r *gamificationRepo) FindByID(ctx context.Context, db DBTX, userID string) (*domain.UserGamificationState, error) {
	row := db.QueryRow(ctx, `SELECT `+gamificationColumns+` FROM user_gamification WHERE user_id = $1`, userID)
	return scanGamification(row)
}

func (r *gamificationRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.UserGamificationState, error) {
	row := tx.QueryRow(ctx, `SELECT `+gamificationColumns+` FROM user_gamification WHERE user_id = $1 FOR UPDATE`, userID)
	return scanGamification(row)
}

func (r *gamificationRepo) InsertIfAbsent(ctx context.Context, db DBTX, s *domain.UserGamificationState) (bool, error) {
	quests, err := encodeQuests(s.DailyQuestProgress.Quests)
	if err != nil {
		return false, err
	}
	tag, err := db.Exec(ctx, `
		INSERT INTO user_gamification (`+gamificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO NOTHING`,
		s.UserID,
		s.XP,
		s.Level,
		quests,
		nullTime(s),
		s.DailyQuestProgress.RerollsRemaining,
		s.DailyQuestProgress.Streak,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert user_gamification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *gamificationRepo) Save(ctx context.Context, db DBTX, s *domain.UserGamificationState) error {
	quests, err := encodeQuests(s.DailyQuestProgress.Quests)
	if err != nil {
		return err
	}
	tag, err := db.Exec(ctx, `
		UPDATE user_gamification
		SET xp = $2, level = $3, quests = $4, last_reset = $5,
		    rerolls_remaining = $6, streak = $7, version = version + 1, updated_at = $8
		WHERE user_id = $1`,
		s.UserID,
		s.XP,
		s.Level,
		quests,
		nullTime(s),
		s.DailyQuestProgress.RerollsRemaining,
		s.DailyQuestProgress.Streak,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user_gamification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("user", s.UserID)
	}
	s.Version++
	return nil
}

func scanGamification(row pgx.Row) (*domain.UserGamificationState, error) {
	var s domain.UserGamificationState
	var quests []byte
	var lastReset *time.Time
	err := row.Scan(
		&s.UserID, &s.XP, &s.Level, &quests, &lastReset,
		&s.DailyQuestProgress.RerollsRemaining, &s.DailyQuestProgress.Streak,
		&s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user_gamification: %w", err)
	}
	if lastReset != nil {
		s.DailyQuestProgress.LastReset = *lastReset
	}
	s.DailyQuestProgress.Quests = []domain.QuestInstance{}
	if len(quests) > 0 {
		if err := json.Unmarshal(quests, &s.DailyQuestProgress.Quests); err != nil {
			return nil, fmt.Errorf("decode quests: %w", err)
		}
	}
	return &s, nil
}

func encodeQuests(quests []domain.QuestInstance) ([]byte, error) {
	if quests == nil {
		quests = []domain.QuestInstance{}
	}
	b, err := json.Marshal(quests)
	if err != nil {
		return nil, fmt.Errorf("encode quests: %w", err)
	}
	return b, nil
}

// nullTime maps the zero LastReset (never reset) to SQL NULL.
func nullTime(s *domain.UserGamificationState) *time.Time {
	if s.DailyQuestProgress.LastReset.IsZero() {
		return nil
	}
	t := s.DailyQuestProgress.LastReset
	return &t
}
