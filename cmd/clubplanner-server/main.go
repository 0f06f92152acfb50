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

	"github.com/uptrace/bun"
	"google.golang.org/grpc"

	"clubplanner/backend/internal/config"
	"clubplanner/backend/internal/logging"
	"clubplanner/backend/internal/metrics"
	"clubplanner/backend/internal/recurrence"
	"clubplanner/backend/internal/service/events"
	"clubplanner/backend/internal/store/bunstore"
	"clubplanner/backend/internal/store/postgres"
	"clubplanner/backend/internal/store/sqlite"
	grpcTransport "clubplanner/backend/internal/transport/grpc"
	httpTransport "clubplanner/backend/internal/transport/http"
	"clubplanner/backend/internal/worker"
)

func main() {
	log := logging.New("json", "info", os.Stdout).With(slog.String("service", "clubplanner-server"))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout).With(slog.String("service", "clubplanner-server"))
	slog.SetDefault(log)

	log.Info(
		"starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, log, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	m := metrics.New()
	svc := events.NewService(
		bunstore.NewEventRepo(db),
		recurrence.NewExpander(cfg.MaxOccurrences),
		m,
	)

	purge, err := worker.NewPurgeJob(svc, cfg.PurgeSchedule, cfg.PurgeRetention, log)
	if err != nil {
		log.Error("purge job setup failed", slog.Any("err", err), slog.String("schedule", cfg.PurgeSchedule))
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.LoggingInterceptor(log),
			grpcTransport.DefaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
		),
	)
	grpcTransport.RegisterEventsServiceServer(grpcServer, grpcTransport.NewEventsServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpTransport.NewHandler(svc, m.Handler(), log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	purge.Start()

	log.Info("servers started", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("http_addr", cfg.HTTPAddr))

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
			exitCode = 1
		}
	}

	shutdown(log, grpcServer, httpServer, purge, cfg.ShutdownTimeout)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func openStore(ctx context.Context, log *slog.Logger, cfg config.Config) (*bun.DB, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		log.Info("opening sqlite database", slog.String("path", cfg.SQLitePath))
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			log.Error("sqlite open failed", slog.Any("err", err), slog.String("path", cfg.SQLitePath))
			return nil, err
		}
		return db, nil
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
		return nil, err
	}

	if cfg.DatabaseMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			_ = postgres.Close(db)
			return nil, err
		}
		log.Info("database migrated")
	}
	return db, nil
}

func shutdown(log *slog.Logger, s *grpc.Server, hs *http.Server, purge *worker.PurgeJob, timeout time.Duration) {
	log.Info("shutting down", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	purge.Stop(ctx)

	if err := hs.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
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
