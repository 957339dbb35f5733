package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/servicehub/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	actorKey        = "actor"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

type Actor = auth.Actor

// JWTAuth verifies an HS256 bearer token and stores the Actor on the context.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		actor, err := auth.ParseToken(secret, raw)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// SettlementAuth admits only the payment gateway, identified by the shared
// secret in the X-Settlement-Secret header. Bearer tokens are not accepted.
func SettlementAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.CheckSettlementSecret(secret, c.GetHeader(auth.SettlementHeader)); err != nil {
			abortUnauthorized(c, err.Error())
			return
		}
		c.Request = c.Request.WithContext(auth.WithSettlementAuthority(c.Request.Context()))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: message})
}

func actorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}

// RequestLogger tags each request with an id and logs one line when it ends.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			logger.Error("request failed", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// RateLimit allows each actor perMinute requests with the given burst.
// A non-positive perMinute disables the limit.
func RateLimit(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	var (
		mu       sync.Mutex
		limiters = make(map[int64]*rate.Limiter)
	)
	every := rate.Every(time.Minute / time.Duration(perMinute))

	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			c.Next()
			return
		}

		mu.Lock()
		limiter, exists := limiters[actor.ID]
		if !exists {
			limiter = rate.NewLimiter(every, burst)
			limiters[actor.ID] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "rate_limited", Message: "too many payment requests"})
			return
		}
		c.Next()
	}
}
