package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"gobarber/backend/internal/cache"
	"gobarber/backend/internal/config"
	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/mailqueue"
	"gobarber/backend/internal/metrics"
	"gobarber/backend/internal/service/appointments"
	"gobarber/backend/internal/store/postgres"
	grpcTransport "gobarber/backend/internal/transport/grpc"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "gobarber-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "gobarber-server"),
	)
	slog.SetDefault(log)

	log.Info("starting", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("log_level", cfg.LogLevel))

	if err := cfg.CheckAuth(); err != nil {
		log.Error("auth not configured", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		log.Warn("auth jwt secret is empty; trusting x-user-id header")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrationsAuto {
		applied, err := postgres.Migrate(cfg.DatabaseURL, cfg.MigrationsDir)
		if err != nil {
			log.Error("migrations failed", slog.Any("err", err), slog.String("dir", cfg.MigrationsDir))
			os.Exit(1)
		}
		log.Info("migrations checked", slog.Bool("applied", applied))
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	deps := appointments.Deps{
		Users:         postgres.NewUserRepo(db),
		Appointments:  postgres.NewAppointmentRepo(db),
		Notifications: postgres.NewNotificationRepo(db),
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Error("redis connection failed", slog.Any("err", err), slog.String("redis_addr", cfg.RedisAddr))
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
		deps.Cache = cache.NewRedis(rdb, cfg.CacheTTL, cfg.CacheNamespace)
	} else {
		log.Warn("redis not configured; listings are not cached")
	}

	if cfg.RabbitMQURL != "" {
		pub, err := mailqueue.DialPublisher(cfg.RabbitMQURL, cfg.MailQueue)
		if err != nil {
			log.Error("rabbitmq connection failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				log.Warn("rabbitmq close failed", slog.Any("err", err))
			}
		}()
		deps.Mail = pub
	} else {
		log.Warn("rabbitmq not configured; cancellation mail is disabled")
	}

	svc := appointments.NewService(deps, appointments.Options{
		Schedule: domain.DailySchedule{Timezone: cfg.ScheduleTimezone, Times: cfg.ScheduleTimes},
		Locale:   domain.ParseLocale(cfg.NotifyLocale),
		Logger:   log,
		Metrics:  m,
	})


	rl := grpcTransport.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rl.Run(ctx)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.MetricsInterceptor(m),
			grpcTransport.DefaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.RateLimitInterceptor(rl),
			grpcTransport.AuthInterceptor(cfg.JWTSecret, cfg.AuthTrustHeader, log),
		),
	)
	grpcTransport.RegisterAppointmentsServiceServer(grpcServer, grpcTransport.NewAppointmentsServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	metricsServer := newMetricsServer(cfg.MetricsAddr)
	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped with error", slog.Any("err", err))
			}
		}()
		log.Info("metrics server started", slog.String("metrics_addr", cfg.MetricsAddr))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()

	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, metricsServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func newMetricsServer(addr string) *http.Server {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func shutdown(log *slog.Logger, s *grpc.Server, metricsServer *http.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown failed", slog.Any("err", err))
		}
	}
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

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
