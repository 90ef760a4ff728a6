package repository

import (
	"context"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// GamificationRepository provides access to user_gamification.
type GamificationRepository interface {
	// FindByID returns a user's record, or nil if none exists.
	FindByID(ctx context.Context, db DBTX, userID string) (*domain.UserGamificationState, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the record.
	LockForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.UserGamificationState, error)

	// InsertIfAbsent inserts the record unless one exists. Reports whether a row was inserted.
	InsertIfAbsent(ctx context.Context, db DBTX, state *domain.UserGamificationState) (bool, error)

	// Save overwrites the mutable columns and bumps the version.
	Save(ctx context.Context, db DBTX, state *domain.UserGamificationState) error
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Append writes drafts inside the state transaction.
	Append(ctx context.Context, tx pgx.Tx, drafts []domain.OutboxDraft) error

	// Pending returns unrelayed events in sequence order.
	Pending(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRow, error)

	// Delete removes relayed events by sequence id.
	Delete(ctx context.Context, db DBTX, seqIDs []int64) error
}
