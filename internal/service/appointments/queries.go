package appointments

import (
	"context"
	"log/slog"

	"gobarber/backend/internal/cache"
	"gobarber/backend/internal/domain"
)

// ListProviders returns every user flagged as provider, memoized in the cache.
func (s *Service) ListProviders(ctx context.Context) ([]domain.User, error) {
	var cached []domain.User
	if hit, err := s.cache.Get(ctx, cache.ProvidersKey, &cached); err != nil {
		s.log.Warn("cache read failed", slog.Any("err", err), slog.String("key", cache.ProvidersKey))
	} else if hit {
		return cached, nil
	}

	providers, err := s.users.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.ProvidersKey, providers); err != nil {
		s.log.Warn("cache write failed", slog.Any("err", err), slog.String("key", cache.ProvidersKey))
	}
	return providers, nil
}

// ListClientAppointments pages through the client's active appointments,
// earliest first. Pages start at 1; out-of-range pages are clamped.
func (s *Service) ListClientAppointments(ctx context.Context, clientID string, page int) ([]domain.Appointment, error) {
	cid, err := parseID("user_id", clientID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if page > maxClientAppointmentsPage {
		page = maxClientAppointmentsPage
	}

	key := cache.ClientAppointmentsKey(cid, page)
	var cached []domain.Appointment
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("cache read failed", slog.Any("err", err), slog.String("key", key))
	} else if hit {
		return cached, nil
	}

	rows, err := s.appointments.ListActiveByClient(ctx, cid, clientAppointmentsPage, (page-1)*clientAppointmentsPage)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, rows); err != nil {
		s.log.Warn("cache write failed", slog.Any("err", err), slog.String("key", key))
	}
	return rows, nil
}
