package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"gobarber/backend/internal/config"
	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/mailqueue"
	"gobarber/backend/internal/metrics"
)

const jobTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "mail-worker"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "mail-worker"),
	)
	slog.SetDefault(log)

	schedule := domain.DailySchedule{Timezone: cfg.ScheduleTimezone, Times: cfg.ScheduleTimes}
	loc, err := schedule.Location()
	if err != nil {
		log.Error("invalid schedule timezone", slog.Any("err", err), slog.String("timezone", cfg.ScheduleTimezone))
		os.Exit(1)
	}

	sender, err := newSender(cfg, log)
	if err != nil {
		log.Error("mail sender setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Error("rabbitmq connection failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Error("rabbitmq channel failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = ch.Close() }()

	deliveries, err := mailqueue.Subscribe(ch, cfg.MailQueue, cfg.MailPrefetch)
	if err != nil {
		log.Error("mail queue subscribe failed", slog.Any("err", err), slog.String("queue", cfg.MailQueue))
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	consumer := mailqueue.NewConsumer(log, m, jobTimeout)
	consumer.Register(mailqueue.KindCancellationMail, mailqueue.CancellationHandler(sender, domain.ParseLocale(cfg.NotifyLocale), loc))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped with error", slog.Any("err", err))
			}
		}()
	}

	log.Info("mail worker started", slog.String("queue", cfg.MailQueue), slog.Int("prefetch", cfg.MailPrefetch), slog.Bool("send_enabled", cfg.MailSendOn))

	runErr := consumer.Run(ctx, deliveries)

	if metricsServer != nil {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(sctx); err != nil {
			log.Warn("metrics server shutdown failed", slog.Any("err", err))
		}
	}

	if runErr != nil {
		log.Error("mail worker stopped with error", slog.Any("err", runErr))
		os.Exit(1)
	}
	log.Info("mail worker stopped")
}

func newSender(cfg config.Config, log *slog.Logger) (mailqueue.Sender, error) {
	if !cfg.MailSendOn {
		log.Warn("mail sending disabled; jobs are logged and acknowledged")
		return mailqueue.LogSender{Log: log}, nil
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
		return nil, errors.New("mailgun domain and api key are required when mail sending is enabled")
	}
	return mailqueue.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailSender), nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
