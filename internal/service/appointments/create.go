package appointments

import (
	"context"
	"errors"
	"log/slog"

	"gobarber/backend/internal/cache"
	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/store"
)

type CreateInput struct {
	ClientID   string
	ProviderID string
	Date       string
}

// Create books the hour containing in.Date. Checks run in a fixed order and
// the first failure wins: provider, self-booking, past date, slot taken.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	clientID, err := parseID("client_id", in.ClientID)
	if err != nil {
		return domain.Appointment{}, err
	}
	providerID, err := parseID("provider_id", in.ProviderID)
	if err != nil {
		return domain.Appointment{}, err
	}
	loc, err := s.schedule.Location()
	if err != nil {
		return domain.Appointment{}, err
	}
	when, err := parseDate(in.Date, loc)
	if err != nil {
		return domain.Appointment{}, err
	}

	if _, err := s.users.FindProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, s.reject(ErrNotAProvider)
		}
		return domain.Appointment{}, err
	}

	if providerID == clientID {
		return domain.Appointment{}, s.reject(ErrSelfBookingNotAllowed)
	}

	hourStart := domain.HourStart(when)
	if hourStart.Before(s.now()) {
		return domain.Appointment{}, s.reject(ErrPastDateNotAllowed)
	}

	var created domain.Appointment
	err = s.appointments.InProviderTransaction(ctx, providerID, func(ctx context.Context, tx store.CalendarTx) error {
		_, err := tx.FindActiveAppointment(ctx, providerID, hourStart)
		if err == nil {
			return ErrSlotUnavailable
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		created, err = tx.InsertAppointment(ctx, domain.Appointment{
			ClientID:    clientID,
			ProviderID:  providerID,
			ScheduledAt: hourStart.UTC(),
		})
		if errors.Is(err, store.ErrConflict) {
			return ErrSlotUnavailable
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			return domain.Appointment{}, s.reject(ErrSlotUnavailable)
		}
		return domain.Appointment{}, err
	}

	s.metrics.Created()
	s.log.Info("appointment created",
		slog.String("appointment_id", created.ID.String()),
		slog.String("provider_id", providerID.String()),
		slog.String("client_id", clientID.String()),
		slog.Time("scheduled_at", created.ScheduledAt),
	)

	sctx, cancel := s.detached(ctx)
	defer cancel()
	s.notifyProvider(sctx, created, hourStart)
	s.invalidate(sctx, cache.ClientAppointmentsPrefix(clientID), created)

	return created, nil
}
