package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/servicehub/config"
	"github.com/Domenick1991/servicehub/internal/cache"
	"github.com/Domenick1991/servicehub/internal/kafka"
	"github.com/Domenick1991/servicehub/internal/repository"
	"github.com/Domenick1991/servicehub/internal/repository/memory"
	"github.com/Domenick1991/servicehub/internal/service/booking"
	"github.com/Domenick1991/servicehub/internal/service/directory"
	"github.com/Domenick1991/servicehub/internal/service/earnings"
	"github.com/Domenick1991/servicehub/internal/service/settlement"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const pingTimeout = 3 * time.Second

// Deps holds the wired use cases and the infrastructure behind them.
type Deps struct {
	Bookings    *booking.BookingService
	Settlements *settlement.SettlementService
	Earnings    *earnings.EarningsService

	ready   func(ctx context.Context) error
	closers []func()
}

// Services returns the use cases in the shape Run expects.
func (d *Deps) Services() Services {
	return Services{
		Bookings:    d.Bookings,
		Settlements: d.Settlements,
		Earnings:    d.Earnings,
		Ready:       d.ready,
	}
}

// Close releases connections in reverse order of creation.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// Build wires storage, cache, event producer and services from cfg. Redis
// and Kafka are optional: an unreachable Redis or an empty broker list runs
// the services without a cache, lock or events.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	d := &Deps{}

	rate, err := cfg.Commission.ParsedRate()
	if err != nil {
		return nil, err
	}

	var (
		bookingRepo   repository.BookingRepository
		paymentRepo   repository.PaymentRepository
		directoryRepo repository.DirectoryRepository
	)

	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		if cfg.Storage.SeedPath != "" {
			if err := store.LoadSeed(cfg.Storage.SeedPath); err != nil {
				return nil, err
			}
		}
		bookingRepo, paymentRepo, directoryRepo = store.Bookings(), store.Payments(), store.Directory()
		logger.Warn("using in-memory storage, data is lost on restart")
	default:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		if cfg.Database.Migrate {
			if err := repository.Migrate(ctx, pool); err != nil {
				d.Close()
				return nil, err
			}
			logger.Info("database schema applied")
		}
		bookingRepo = repository.NewBookingRepository(pool)
		paymentRepo = repository.NewPaymentRepository(pool)
		directoryRepo = repository.NewDirectoryRepository(pool)
		d.ready = pool.Ping
	}

	var (
		dirCache directory.Cache
		lock     settlement.Lock
	)
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Directory.CacheTTL())
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := redisCache.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, running without cache and settlement lock", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = redisCache.Close()
		} else {
			d.closers = append(d.closers, func() { _ = redisCache.Close() })
			dirCache, lock = redisCache, redisCache
		}
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, logger)
		d.closers = append(d.closers, func() { _ = producer.Close() })
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		if err := producer.CheckConnection(pingCtx); err != nil {
			logger.Warn("kafka unreachable at startup, events will be retried per publish", zap.Error(err))
		}
		cancel()
	}

	dir := directory.NewDirectoryService(directoryRepo, dirCache, logger)

	var bookingProducer booking.Producer
	settlementOpts := []settlement.SettlementServiceOption{
		settlement.WithPendingTTL(cfg.Settlement.PendingTTL()),
		settlement.WithLogger(logger),
	}
	if producer != nil {
		bookingProducer = producer
		settlementOpts = append(settlementOpts,
			settlement.WithProducer(producer, cfg.Kafka.PaymentEventsTopic),
			settlement.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}
	if lock != nil {
		settlementOpts = append(settlementOpts, settlement.WithLock(lock, cfg.Settlement.LockTTL()))
	}

	d.Bookings = booking.NewBookingService(bookingRepo, dir, bookingProducer, cfg.Kafka.BookingEventsTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLogger(logger),
	)
	d.Settlements = settlement.NewSettlementService(bookingRepo, paymentRepo, rate, settlementOpts...)
	d.Earnings = earnings.NewEarningsService(paymentRepo, dir, cfg.Earnings.RecentLimit)

	return d, nil
}
