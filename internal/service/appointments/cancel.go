package appointments

import (
	"context"
	"errors"
	"log/slog"

	"gobarber/backend/internal/cache"
	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/store"
)

type CancelInput struct {
	AppointmentID    string
	RequestingUserID string
}

// Cancel marks the appointment canceled. Only the booking's client may cancel,
// and only strictly before the cutoff two hours ahead of the slot. Canceling
// twice is rejected with ErrAlreadyCanceled and leaves canceled_at untouched.
func (s *Service) Cancel(ctx context.Context, in CancelInput) (domain.Appointment, error) {
	id, err := parseID("appointment_id", in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	requester, err := parseID("user_id", in.RequestingUserID)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt, err := s.appointments.LoadWithParties(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, s.reject(ErrNotFound)
		}
		return domain.Appointment{}, err
	}

	if appt.ClientID != requester {
		return domain.Appointment{}, s.reject(ErrForbidden)
	}
	if !appt.Active() {
		return domain.Appointment{}, s.reject(ErrAlreadyCanceled)
	}

	now := s.now()
	if !appt.CancelableAt(now) {
		return domain.Appointment{}, s.reject(ErrTooLateToCancel)
	}

	canceled, err := s.appointments.Cancel(ctx, id, now)
	switch {
	case errors.Is(err, store.ErrAlreadyCanceled):
		return domain.Appointment{}, s.reject(ErrAlreadyCanceled)
	case errors.Is(err, store.ErrNotFound):
		return domain.Appointment{}, s.reject(ErrNotFound)
	case err != nil:
		return domain.Appointment{}, err
	}
	canceled.Provider = appt.Provider
	canceled.Client = appt.Client

	s.metrics.Canceled()
	s.log.Info("appointment canceled",
		slog.String("appointment_id", canceled.ID.String()),
		slog.String("client_id", canceled.ClientID.String()),
		slog.Time("scheduled_at", canceled.ScheduledAt),
	)

	sctx, cancel := s.detached(ctx)
	defer cancel()
	s.enqueueCancellationMail(sctx, canceled)
	s.invalidate(sctx, cache.ClientAppointmentsPrefix(canceled.ClientID), canceled)

	return canceled, nil
}
