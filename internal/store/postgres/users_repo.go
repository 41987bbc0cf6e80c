package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/store"
)

type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) FindProviderByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return r.findOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("u.id = ?", id).Where("u.provider = TRUE")
	})
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return r.findOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("u.id = ?", id)
	})
}

func (r *UserRepo) ListProviders(ctx context.Context) ([]domain.User, error) {
	var rows []domain.User
	err := r.db.NewSelect().
		Model(&rows).
		Where("u.provider = TRUE").
		OrderExpr("u.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *UserRepo) findOne(ctx context.Context, apply func(q *bun.SelectQuery) *bun.SelectQuery) (domain.User, error) {
	var u domain.User
	err := apply(r.db.NewSelect().Model(&u)).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, store.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}
