package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/servicehub/api"
	"github.com/Domenick1991/servicehub/config"
	marketplaceapi "github.com/Domenick1991/servicehub/internal/api/marketplace_api"
	"github.com/Domenick1991/servicehub/internal/service/booking"
	"github.com/Domenick1991/servicehub/internal/service/earnings"
	"github.com/Domenick1991/servicehub/internal/service/settlement"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// Services are the use cases both transports expose.
type Services struct {
	Bookings    booking.BookingUseCase
	Settlements settlement.SettlementUseCase
	Earnings    earnings.EarningsUseCase
	// Ready backs the health endpoint.
	Ready func(ctx context.Context) error
}

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
}

// Run starts the gRPC and HTTP servers and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger, svc Services) error {
	s := newServers(cfg, logger, svc)

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("servers started", zap.String("http", cfg.HTTP.Address), zap.String("grpc", cfg.GRPC.Address))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, logger *zap.Logger, svc Services) *Servers {
	secret := []byte(cfg.Auth.JWTSecret)

	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		marketplaceapi.LoggingInterceptor(logger),
		marketplaceapi.AuthInterceptor(secret, cfg.Settlement.CallbackSecret),
	))
	marketplaceapi.RegisterMarketplaceServer(grpcSrv, marketplaceapi.NewServer(svc.Bookings, svc.Settlements, svc.Earnings))

	router := api.NewRouter(api.RouterDeps{
		Logger:            logger,
		JWTSecret:         cfg.Auth.JWTSecret,
		SettlementSecret:  cfg.Settlement.CallbackSecret,
		PaymentsPerMinute: cfg.RateLimit.PaymentsPerMinute,
		PaymentBurst:      cfg.RateLimit.Burst,
		Bookings:          svc.Bookings,
		Settlements:       svc.Settlements,
		Earnings:          svc.Earnings,
		Ready:             svc.Ready,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
	}
}
