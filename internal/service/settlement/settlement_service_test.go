package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/kafka"
	"github.com/Domenick1991/servicehub/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLock struct {
	mock.Mock
}

func (m *MockLock) AcquireSettlementLock(ctx context.Context, bookingID int64, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, bookingID, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLock) ReleaseSettlementLock(ctx context.Context, bookingID int64, token string) error {
	args := m.Called(ctx, bookingID, token)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

const phone = "+254712345678"

var tenPercent = decimal.RequireFromString("0.10")

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	store.AddUser(domain.User{ID: 10, Role: domain.RoleBuyer, Name: "Ann"})
	store.AddUser(domain.User{ID: 20, Role: domain.RoleProvider, Name: "Bo"})
	return store
}

func addBooking(t *testing.T, store *memory.Store, price int64, status domain.BookingStatus) int64 {
	t.Helper()
	b := &domain.Booking{
		ServiceTitle: "Plumbing",
		BuyerID:      10,
		ProviderID:   20,
		BookingDate:  time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		Duration:     decimal.NewFromInt(2),
		TotalPrice:   price,
	}
	require.NoError(t, store.Bookings().Create(context.Background(), b))
	if status != domain.BookingStatusPending {
		store.ForceBookingState(b.ID, status, domain.PaymentStatusUnpaid)
	}
	return b.ID
}

func TestInitiatePayment_Success(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 999, domain.BookingStatusCompleted)
	producer := &MockProducer{}
	producer.On("Publish", mock.Anything, "payment_events", mock.Anything, mock.MatchedBy(func(e kafka.PaymentEvent) bool {
		return e.Type == kafka.EventPaymentInitiated && e.Gross == 999
	})).Return(nil)

	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent, WithProducer(producer, "payment_events"))

	result, err := service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})

	require.NoError(t, err)
	assert.Equal(t, int64(999), result.Gross)
	assert.Equal(t, int64(100), result.Commission)
	assert.Equal(t, int64(899), result.PayeeAmount)
	assert.Equal(t, domain.PaymentStatePending, result.Status)
	producer.AssertExpectations(t)

	payment, err := service.GetPayment(context.Background(), result.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, phone, payment.PayerHandle)
}

func TestInitiatePayment_NotPayable(t *testing.T) {
	store := newStore(t)
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)

	inProgress := addBooking(t, store, 1000, domain.BookingStatusInProgress)
	_, err := service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: inProgress, PayerHandle: phone})
	assert.True(t, errors.Is(err, domain.ErrNotPayable))

	paid := addBooking(t, store, 1000, domain.BookingStatusPending)
	store.ForceBookingState(paid, domain.BookingStatusCompleted, domain.PaymentStatusPaid)
	_, err = service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: paid, PayerHandle: phone})
	assert.True(t, errors.Is(err, domain.ErrNotPayable))

	_, err = service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: 404, PayerHandle: phone})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestInitiatePayment_InvalidPhone(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)

	for _, handle := range []string{"", "12345", "+25471234567890123", "07-1234-5678"} {
		_, err := service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: bookingID, PayerHandle: handle})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), handle)
	}
}

func TestInitiatePayment_DuplicateWhilePending(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)

	_, err := service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
	require.NoError(t, err)

	_, err = service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
	assert.True(t, errors.Is(err, domain.ErrDuplicatePayment))
}

func TestInitiatePayment_LockHeldElsewhere(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	lock := &MockLock{}
	lock.On("AcquireSettlementLock", mock.Anything, bookingID, 30*time.Second).Return("", false, nil)

	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent, WithLock(lock, 30*time.Second))

	_, err := service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
	assert.True(t, errors.Is(err, domain.ErrDuplicatePayment))
	lock.AssertNotCalled(t, "ReleaseSettlementLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiatePayment_LockAcquiredAndReleased(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	lock := &MockLock{}
	lock.On("AcquireSettlementLock", mock.Anything, bookingID, 30*time.Second).Return("tok-1", true, nil)
	lock.On("ReleaseSettlementLock", mock.Anything, bookingID, "tok-1").Return(nil)

	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent, WithLock(lock, 30*time.Second))

	_, err := service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
	require.NoError(t, err)
	lock.AssertExpectations(t)
}

func TestInitiatePayment_LockErrorFallsBackToLedger(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	lock := &MockLock{}
	lock.On("AcquireSettlementLock", mock.Anything, bookingID, time.Second).Return("", false, errors.New("redis down"))

	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent, WithLock(lock, time.Second))

	_, err := service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
	require.NoError(t, err)
}

func TestConfirmPayment_TwiceIsAlreadySettled(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)
	ctx := context.Background()

	initiated, err := service.InitiatePayment(ctx, InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
	require.NoError(t, err)

	payment, err := service.ConfirmPayment(ctx, initiated.PaymentID, "QK12AB34")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStateConfirmed, payment.Status)
	assert.NotNil(t, payment.ConfirmedAt)

	_, err = service.ConfirmPayment(ctx, initiated.PaymentID, "QK12AB34")
	assert.True(t, errors.Is(err, domain.ErrAlreadySettled))

	totals, err := store.Payments().ProviderTotals(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.PaymentCount)
	assert.Equal(t, int64(900), totals.TotalEarnings)
}

func TestConfirmPayment_Rejections(t *testing.T) {
	store := newStore(t)
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)

	_, err := service.ConfirmPayment(context.Background(), 1, "  ")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = service.ConfirmPayment(context.Background(), 404, "R")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFailPayment_FreesSlotForRetry(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)
	ctx := context.Background()

	first, err := service.InitiatePayment(ctx, InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
	require.NoError(t, err)

	failed, err := service.FailPayment(ctx, first.PaymentID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStateFailed, failed.Status)
	assert.Equal(t, "declined", failed.FailureReason)

	_, err = service.ConfirmPayment(ctx, first.PaymentID, "R")
	assert.True(t, errors.Is(err, domain.ErrAlreadySettled))

	second, err := service.InitiatePayment(ctx, InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentID, second.PaymentID)
}

func TestExpireStalePayments(t *testing.T) {
	store := newStore(t)
	now := time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store.SetClock(func() time.Time { return now.Add(-time.Hour) })

	stale := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent,
		WithPendingTTL(30*time.Minute), WithClock(clock))
	ctx := context.Background()

	initiated, err := service.InitiatePayment(ctx, InitiatePaymentInput{BookingID: stale, PayerHandle: phone})
	require.NoError(t, err)

	store.SetClock(clock)
	fresh := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	_, err = service.InitiatePayment(ctx, InitiatePaymentInput{BookingID: fresh, PayerHandle: phone})
	require.NoError(t, err)

	expired, err := service.ExpireStalePayments(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, initiated.PaymentID, expired[0].ID)
	assert.Equal(t, domain.FailureReasonExpired, expired[0].FailureReason)

	disabled := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)
	none, err := disabled.ExpireStalePayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReconcile_RepairsConfirmedUnpaid(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	confirmedAt := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	store.InsertPayment(domain.Payment{
		BookingID: bookingID, Gross: 1000, Commission: 100, PayeeAmount: 900,
		Receipt: "R", Status: domain.PaymentStateConfirmed, ConfirmedAt: &confirmedAt,
	})
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)

	ids, err := service.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{bookingID}, ids)

	booking, err := store.Bookings().GetByID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, booking.PaymentStatus)
}

func TestConcurrentInitiate_OnePaymentPerBooking(t *testing.T) {
	store := newStore(t)
	bookingID := addBooking(t, store, 1000, domain.BookingStatusCompleted)
	service := NewSettlementService(store.Bookings(), store.Payments(), tenPercent)

	const workers = 12
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.InitiatePayment(context.Background(), InitiatePaymentInput{BookingID: bookingID, PayerHandle: phone})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrDuplicatePayment):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, duplicates)
}
