package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/service/booking"
	"github.com/Domenick1991/servicehub/internal/service/earnings"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_BookingToEarnings(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	store.AddService(domain.Service{ID: 1, ProviderID: 20, Title: "Plumbing", UnitPrice: 500, PriceType: "hourly"})

	bookings := booking.NewBookingService(store.Bookings(), store.Directory(), nil, "")
	settlements := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)
	reports := earnings.NewEarningsService(store.Payments(), store.Directory(), 10)

	b, err := bookings.CreateBooking(ctx, booking.CreateBookingInput{
		ServiceID:   1,
		BuyerID:     10,
		BookingDate: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
		Duration:    decimal.NewFromInt(2),
		Location:    "Home",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b.TotalPrice)

	_, err = settlements.InitiatePayment(ctx, InitiatePaymentInput{BookingID: b.ID, PayerHandle: phone})
	require.ErrorIs(t, err, domain.ErrNotPayable)

	for _, to := range []domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusInProgress, domain.BookingStatusCompleted} {
		_, err := bookings.TransitionBooking(ctx, booking.TransitionInput{
			BookingID: b.ID, ActorID: 20, ActorRole: domain.RoleProvider, Target: to,
		})
		require.NoError(t, err)
	}

	initiated, err := settlements.InitiatePayment(ctx, InitiatePaymentInput{BookingID: b.ID, PayerHandle: phone})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), initiated.Gross)
	assert.Equal(t, int64(100), initiated.Commission)
	assert.Equal(t, int64(900), initiated.PayeeAmount)

	payment, err := settlements.ConfirmPayment(ctx, initiated.PaymentID, "QK12AB34")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStateConfirmed, payment.Status)

	paid, err := bookings.GetBooking(ctx, b.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)

	unpaid, err := bookings.ListCompletedUnpaid(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unpaid)

	report, err := reports.GetProviderEarnings(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(900), report.TotalEarnings)
	assert.Equal(t, int64(100), report.TotalCommission)
	assert.Equal(t, 1, report.PaymentCount)
	require.Len(t, report.RecentPayments, 1)
	assert.Equal(t, "QK12AB34", report.RecentPayments[0].Receipt)
	assert.Equal(t, "Plumbing", report.RecentPayments[0].ServiceTitle)
}
