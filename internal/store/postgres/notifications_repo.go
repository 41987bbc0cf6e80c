package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"gobarber/backend/internal/domain"
)

type NotificationRepo struct {
	db *bun.DB
}

func NewNotificationRepo(db *bun.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	m := domain.Notification{
		ID:      n.ID,
		Content: n.Content,
		UserID:  n.UserID,
	}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Notification{}, err
	}
	return m, nil
}
