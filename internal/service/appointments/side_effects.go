package appointments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/mailqueue"
)

var errMailNotConfigured = errors.New("mail queue not configured")

// Side effects run after the state change is durable. Their failures are
// logged and counted, never returned.

func (s *Service) notifyProvider(ctx context.Context, appt domain.Appointment, hourStart time.Time) {
	log := s.log.With(slog.String("appointment_id", appt.ID.String()))

	clientName := appt.ClientID.String()
	client, err := s.users.FindByID(ctx, appt.ClientID)
	if err != nil {
		log.Warn("client lookup for notification failed", slog.Any("err", err))
	} else {
		clientName = client.Name
	}

	_, err = s.notifications.Create(ctx, domain.Notification{
		Content: domain.NewAppointmentMessage(clientName, hourStart, s.locale),
		UserID:  appt.ProviderID,
	})
	if err != nil {
		s.metrics.SideEffectFailed("notification")
		log.Error("provider notification failed", slog.Any("err", err), slog.String("provider_id", appt.ProviderID.String()))
	}
}

func (s *Service) enqueueCancellationMail(ctx context.Context, appt domain.Appointment) {
	err := s.mail.Enqueue(ctx, mailqueue.KindCancellationMail, mailqueue.NewCancellationPayload(appt))
	if err != nil {
		s.metrics.SideEffectFailed("mail_enqueue")
		s.log.Error("cancellation mail enqueue failed",
			slog.Any("err", err),
			slog.String("appointment_id", appt.ID.String()),
		)
	}
}

func (s *Service) invalidate(ctx context.Context, prefix string, appt domain.Appointment) {
	if err := s.cache.InvalidatePrefix(ctx, prefix); err != nil {
		s.metrics.SideEffectFailed("cache_invalidate")
		s.log.Warn("cache invalidation failed",
			slog.Any("err", err),
			slog.String("prefix", prefix),
			slog.String("appointment_id", appt.ID.String()),
		)
	}
}
