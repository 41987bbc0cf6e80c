package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gobarber/backend/internal/domain"
)

type UserRepository interface {
	FindProviderByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	ListProviders(ctx context.Context) ([]domain.User, error)
}

type AppointmentRepository interface {
	// InProviderTransaction runs fn in a transaction that serialises all
	// bookings against providerID's calendar.
	InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx CalendarTx) error) error

	ListActiveByProvider(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	ListActiveByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]domain.Appointment, error)
	LoadWithParties(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// Cancel sets canceled_at once; a second call reports ErrAlreadyCanceled.
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (domain.Appointment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n domain.Notification) (domain.Notification, error)
}
