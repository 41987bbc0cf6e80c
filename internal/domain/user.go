package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is either side of a booking; IsProvider only says whether others may book them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID         uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name       string    `bun:"name,notnull" json:"name"`
	Email      string    `bun:"email,notnull" json:"email"`
	IsProvider bool      `bun:"provider,notnull" json:"provider"`
	AvatarRef  *string   `bun:"avatar_ref" json:"avatar_ref,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"-"`
	UpdatedAt  time.Time `bun:"updated_at,notnull" json:"-"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			u.ID = id
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		u.UpdatedAt = now
	}
	return nil
}
