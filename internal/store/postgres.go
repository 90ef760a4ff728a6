package store

import (
	"context"
	"fmt"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores records in user_gamification. Each Mutate runs in one
// transaction holding a row lock (SELECT ... FOR UPDATE), and writes the
// transition's outbox events in the same transaction.
type Postgres struct {
	pool   *pgxpool.Pool
	repo   repository.GamificationRepository
	outbox repository.OutboxRepository
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool, repo repository.GamificationRepository, outbox repository.OutboxRepository) *Postgres {
	return &Postgres{pool: pool, repo: repo, outbox: outbox}
}

func (p *Postgres) Mutate(ctx context.Context, userID string, fn func(*domain.UserGamificationState) (domain.Mutation, error)) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.ErrStoreUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	state, err := p.repo.LockForUpdate(ctx, tx, userID)
	if err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	if state == nil {
		return domain.ErrNotFound("user", userID)
	}

	mut, err := fn(state)
	if err != nil {
		return err
	}
	if !mut.Dirty {
		return nil
	}

	if err := p.repo.Save(ctx, tx, state); err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	if err := p.outbox.Append(ctx, tx, mut.Events); err != nil {
		return domain.ErrStoreUnavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrStoreUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, userID string) (*domain.UserGamificationState, error) {
	state, err := p.repo.FindByID(ctx, p.pool, userID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable(err)
	}
	if state == nil {
		return nil, domain.ErrNotFound("user", userID)
	}
	return state, nil
}

func (p *Postgres) Create(ctx context.Context, state *domain.UserGamificationState) (bool, error) {
	created, err := p.repo.InsertIfAbsent(ctx, p.pool, state)
	if err != nil {
		return false, domain.ErrStoreUnavailable(err)
	}
	return created, nil
}
