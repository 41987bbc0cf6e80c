package appointments

import (
	"context"
	"log/slog"
	"time"

	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/metrics"
	"gobarber/backend/internal/store"
)

const (
	defaultSideEffectTimeout  = 10 * time.Second
	clientAppointmentsPage    = 20
	maxClientAppointmentsPage = 1000
)

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

type MailQueue interface {
	Enqueue(ctx context.Context, kind string, payload any) error
}

type Deps struct {
	Users         store.UserRepository
	Appointments  store.AppointmentRepository
	Notifications store.NotificationRepository
	Cache         Cache
	Mail          MailQueue
}

type Options struct {
	Schedule domain.DailySchedule
	Locale   domain.Locale
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time

	// SideEffectTimeout bounds the post-commit notification, mail and cache work.
	SideEffectTimeout time.Duration
}

type Service struct {
	users         store.UserRepository
	appointments  store.AppointmentRepository
	notifications store.NotificationRepository
	cache         Cache
	mail          MailQueue

	schedule          domain.DailySchedule
	locale            domain.Locale
	log               *slog.Logger
	metrics           *metrics.Metrics
	now               func() time.Time
	sideEffectTimeout time.Duration
}

func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		users:             deps.Users,
		appointments:      deps.Appointments,
		notifications:     deps.Notifications,
		cache:             deps.Cache,
		mail:              deps.Mail,
		schedule:          opts.Schedule,
		locale:            opts.Locale,
		log:               opts.Logger,
		metrics:           opts.Metrics,
		now:               opts.Now,
		sideEffectTimeout: opts.SideEffectTimeout,
	}
	if s.cache == nil {
		s.cache = noCache{}
	}
	if s.mail == nil {
		s.mail = noMail{}
	}
	if len(s.schedule.Times) == 0 {
		s.schedule.Times = domain.DefaultSlotTimes
	}
	if s.locale == "" {
		s.locale = domain.LocalePT
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With(slog.String("component", "appointments_service"))
	if s.now == nil {
		s.now = time.Now
	}
	if s.sideEffectTimeout <= 0 {
		s.sideEffectTimeout = defaultSideEffectTimeout
	}
	return s
}

func (s *Service) reject(err *Error) error {
	s.metrics.Rejected(string(err.Kind))
	return err
}

// detached keeps request values but outlives the caller's cancellation, so
// post-commit work still runs when the client disconnects.
func (s *Service) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
}

type noCache struct{}

func (noCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noCache) Set(context.Context, string, any) error { return nil }
func (noCache) InvalidatePrefix(context.Context, string) error { return nil }

type noMail struct{}

func (noMail) Enqueue(context.Context, string, any) error {
	return errMailNotConfigured
}
