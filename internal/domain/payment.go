package domain

import "time"

type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateConfirmed PaymentState = "confirmed"
	PaymentStateFailed    PaymentState = "failed"
)

// FailureReasonExpired marks payments failed by the stale-payment sweep.
const FailureReasonExpired = "expired"

// Payment is one settlement attempt for a booking. Amounts are minor units and
// Commission+PayeeAmount always equals Gross.
type Payment struct {
	ID            int64
	BookingID     int64
	PayerHandle   string
	Gross         int64
	Commission    int64
	PayeeAmount   int64
	Receipt       string
	Status        PaymentState
	FailureReason string
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the payment still occupies the booking's settlement slot.
func (p *Payment) IsActive() bool {
	return p.Status == PaymentStatePending || p.Status == PaymentStateConfirmed
}

// EarningsEntry is a confirmed payment joined with its booking context.
type EarningsEntry struct {
	PaymentID    int64
	BookingID    int64
	ServiceTitle string
	Amount       int64
	Gross        int64
	Commission   int64
	Receipt      string
	Date         time.Time
}

type EarningsTotals struct {
	TotalEarnings   int64
	TotalCommission int64
	PaymentCount    int
}

type ProviderEarnings struct {
	ProviderID int64
	EarningsTotals
	RecentPayments []EarningsEntry
}
