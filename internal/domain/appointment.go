package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CancellationWindow is how long before ScheduledAt a booking stops being cancelable.
const CancellationWindow = 2 * time.Hour

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	ClientID    uuid.UUID  `bun:"client_id,notnull,type:uuid" json:"client_id"`
	ProviderID  uuid.UUID  `bun:"provider_id,notnull,type:uuid" json:"provider_id"`
	ScheduledAt time.Time  `bun:"scheduled_at,notnull" json:"scheduled_at"`
	CanceledAt  *time.Time `bun:"canceled_at" json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull" json:"updated_at"`

	Client   *User `bun:"rel:belongs-to,join:client_id=id" json:"client,omitempty"`
	Provider *User `bun:"rel:belongs-to,join:provider_id=id" json:"provider,omitempty"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

func (a Appointment) Active() bool {
	return a.CanceledAt == nil
}

// CancellationCutoff is the first instant at which the booking can no longer be canceled.
func (a Appointment) CancellationCutoff() time.Time {
	return a.ScheduledAt.Add(-CancellationWindow)
}

func (a Appointment) CancelableAt(now time.Time) bool {
	return now.Before(a.CancellationCutoff())
}

// HourStart drops the sub-hour components of t in its own location.
func HourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
