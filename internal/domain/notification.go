package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Content   string    `bun:"content,notnull"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Read      bool      `bun:"read,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (n *Notification) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if n.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			n.ID = id
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		n.UpdatedAt = now
	}
	return nil
}
