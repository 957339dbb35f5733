package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// SettlementHeader carries the shared secret of the payment gateway that
// reports settlement outcomes. gRPC callers send it lowercased as metadata.
const SettlementHeader = "X-Settlement-Secret"

var (
	ErrSettlementDisabled = errors.New("settlement callbacks are not configured")
	ErrBadSettlementKey   = errors.New("invalid settlement credential")
)

// CheckSettlementSecret compares the presented secret with the configured
// one in constant time. An empty configured secret rejects every caller.
func CheckSettlementSecret(configured, presented string) error {
	if configured == "" {
		return ErrSettlementDisabled
	}
	if subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) != 1 {
		return ErrBadSettlementKey
	}
	return nil
}

type settlementKey struct{}

// WithSettlementAuthority marks ctx as coming from the payment gateway.
func WithSettlementAuthority(ctx context.Context) context.Context {
	return context.WithValue(ctx, settlementKey{}, true)
}

func IsSettlementAuthority(ctx context.Context) bool {
	ok, _ := ctx.Value(settlementKey{}).(bool)
	return ok
}
