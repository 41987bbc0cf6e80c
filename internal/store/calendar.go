package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gobarber/backend/internal/domain"
)

type CalendarTx interface {
	FindActiveAppointment(ctx context.Context, providerID uuid.UUID, at time.Time) (domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}
