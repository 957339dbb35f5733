package api

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/Domenick1991/servicehub/internal/service/booking"
	"github.com/Domenick1991/servicehub/internal/service/earnings"
	"github.com/Domenick1991/servicehub/internal/service/settlement"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

//go:embed openapi.json
var openAPISpec []byte

type RouterDeps struct {
	Logger            *zap.Logger
	JWTSecret         string
	SettlementSecret  string
	PaymentsPerMinute int
	PaymentBurst      int
	Bookings          booking.BookingUseCase
	Settlements       settlement.SettlementUseCase
	Earnings          earnings.EarningsUseCase
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/api/health", health(deps.Ready))
	router.GET("/swagger/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPISpec)
	})
	router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/openapi.json"))))

	payments := NewPaymentHandler(deps.Settlements, deps.Bookings)
	payments.RegisterCallbacks(router.Group("/api/v1/payments", SettlementAuth(deps.SettlementSecret)))

	v1 := router.Group("/api/v1", JWTAuth([]byte(deps.JWTSecret)))
	bookings := NewBookingHandler(deps.Bookings)
	bookings.Register(v1.Group("/bookings"))
	payments.Register(v1.Group("/payments", RateLimit(deps.PaymentsPerMinute, deps.PaymentBurst)))

	providers := v1.Group("/providers")
	NewEarningsHandler(deps.Earnings).Register(providers)
	bookings.RegisterProviderRoutes(providers)

	return router
}

func health(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
