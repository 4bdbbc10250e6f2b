package main

import (
	"context"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/walletledger-backend/internal/adapter/exchangerate"
	grpcadapter "github.com/simaogato/walletledger-backend/internal/adapter/grpc"
	"github.com/simaogato/walletledger-backend/internal/adapter/memory"
	"github.com/simaogato/walletledger-backend/internal/adapter/notify"
	redisadapter "github.com/simaogato/walletledger-backend/internal/adapter/redis"
	"github.com/simaogato/walletledger-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/walletledger-backend/internal/config"
	"github.com/simaogato/walletledger-backend/internal/domain"
	"github.com/simaogato/walletledger-backend/internal/logging"
	"github.com/simaogato/walletledger-backend/internal/usecase/exchange"
	"github.com/simaogato/walletledger-backend/internal/usecase/reporting"
	"github.com/simaogato/walletledger-backend/internal/usecase/scheduling"
	"github.com/simaogato/walletledger-backend/internal/usecase/transfer"
	"github.com/simaogato/walletledger-backend/internal/usecase/wallet"
)

// persistence bundles the repositories of one storage backend
type persistence struct {
	wallets      domain.WalletRepository
	transactions domain.TransactionRepository
	payments     domain.ScheduledPaymentRepository
	transactor   domain.Transactor
	close        func() error
}

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("app", cfg.AppName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 2. Storage
	store, err := openPersistence(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer store.close()

	// 3. Locks, events and rates (Redis when configured)
	var locker domain.WalletLocker = memory.NewWalletLocker()
	var publisher domain.EventPublisher = notify.NewLoggingPublisher(logger)
	var rateSource domain.ExchangeRateProvider = exchangerate.NewFallbackProvider()
	if cfg.ExchangeAPIEnabled {
		rateSource = exchangerate.NewOpenExchangeRatesClient(cfg.ExchangeAPIURL, cfg.ExchangeAPIKey, cfg.ExchangeAPITimeout)
	}

	if cfg.RedisURL != "" {
		client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", zap.Error(err))
			return
		}
		defer client.Close()

		locker = redisadapter.NewWalletLocker(client, redisadapter.DefaultLockOptions(), logger)
		publisher = notify.FanOut{
			publisher,
			redisadapter.NewEventPublisher(client, redisadapter.DefaultChannelPrefix),
		}
		if cfg.RateCacheTTL > 0 {
			rateSource = redisadapter.NewRateCache(client, rateSource, cfg.RateCacheTTL, logger)
		}
		logger.Info("redis enabled for locks, events and rate cache")
	}

	rates := exchangerate.NewBreakerProvider(rateSource, exchangerate.NewFallbackProvider(), exchangerate.DefaultBreakerConfig(), logger)

	// 4. Services (Use Cases)
	walletService := wallet.NewWalletService(store.wallets, store.transactor, locker, publisher, logger)
	transferService := transfer.NewTransferService(store.wallets, store.transactions, store.transactor, locker, publisher, logger)
	exchangeService := exchange.NewExchangeService(store.wallets, store.transactions, rates, store.transactor, locker, publisher, logger)
	exchangeService.Exchange.MaxRateAge = cfg.RateMaxAge
	schedulingService := scheduling.NewSchedulingService(
		store.payments, store.wallets, store.transactor, locker,
		transferService, publisher, notify.NewLoggerNotifier(logger), logger,
	)
	schedulingService.Concurrency = cfg.SchedulerConcurrency
	schedulingService.ReminderDaysAhead = cfg.ReminderDaysAhead
	reportingService := reporting.NewReportingService(store.wallets)

	// 5. Scheduler
	if cfg.SchedulerEnabled {
		runner := scheduling.NewRunner(schedulingService, logger, cfg.SchedulerInterval, cfg.ReminderInterval)
		go runner.Run(ctx)
	}

	// 6. gRPC server
	healthServer := health.NewServer()
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.APIToken, "/grpc.health.v1.Health/Check"),
		),
	)
	grpcadapter.RegisterWalletLedgerServer(grpcServer, grpcadapter.NewServer(
		walletService, transferService, exchangeService, schedulingService, reportingService,
	))
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
		return
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		serveErr <- grpcServer.Serve(lis)
	}()
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Graceful shutdown; deferred cleanup runs when main returns
	waitForShutdown(ctx, serveErr, grpcServer, healthServer, cfg.ShutdownTimeout, logger)
}

// openPersistence selects Postgres when DB_ENABLED is set, the in-memory store otherwise
func openPersistence(ctx context.Context, cfg config.Config, logger *zap.Logger) (*persistence, error) {
	if !cfg.DBEnabled {
		logger.Warn("DB_ENABLED is false, using in-memory storage")
		store := memory.NewStore()
		return &persistence{
			wallets:      memory.NewWalletRepository(store),
			transactions: memory.NewTransactionRepository(store),
			payments:     memory.NewScheduledPaymentRepository(store),
			transactor:   memory.NewTransactor(store),
			close:        func() error { return nil },
		}, nil
	}

	db, err := postgres.NewDB(cfg.DBConnStr)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("connected to postgres")

	return &persistence{
		wallets:      postgres.NewWalletRepository(db),
		transactions: postgres.NewTransactionRepository(db),
		payments:     postgres.NewScheduledPaymentRepository(db),
		transactor:   db,
		close:        db.Close,
	}, nil
}

// waitForShutdown blocks until ctx is cancelled by SIGTERM or SIGINT, or Serve fails, then drains the server.
// GracefulStop is abandoned after timeout.
func waitForShutdown(ctx context.Context, serveErr <-chan error, grpcServer *grpclib.Server, healthServer *health.Server, timeout time.Duration, logger *zap.Logger) {
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal, shutting down gracefully")
	case err := <-serveErr:
		logger.Error("failed to serve gRPC server", zap.Error(err))
	}
	healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("gRPC server stopped")
	case <-time.After(timeout):
		logger.Warn("graceful stop timed out, forcing shutdown")
		grpcServer.Stop()
	}
}
