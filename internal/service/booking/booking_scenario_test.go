package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryService(t *testing.T) (*BookingService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddUser(*buyer)
	store.AddUser(*provider)
	store.AddService(*plumbing)
	return NewBookingService(store.Bookings(), store.Directory(), nil, ""), store
}

func createBooking(t *testing.T, service *BookingService) *domain.Booking {
	t.Helper()
	b, err := service.CreateBooking(context.Background(), CreateBookingInput{
		ServiceID:   plumbing.ID,
		BuyerID:     buyer.ID,
		BookingDate: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		Duration:    decimal.NewFromInt(2),
		Location:    "Home",
	})
	require.NoError(t, err)
	return b
}

func move(service *BookingService, id int64, actor *domain.User, to domain.BookingStatus) (*domain.Booking, error) {
	return service.TransitionBooking(context.Background(), TransitionInput{
		BookingID: id, ActorID: actor.ID, ActorRole: actor.Role, Target: to,
	})
}

func TestScenario_HappyPathToCompleted(t *testing.T) {
	service, _ := newMemoryService(t)
	b := createBooking(t, service)
	assert.Equal(t, int64(1000), b.TotalPrice)

	for _, to := range []domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusInProgress, domain.BookingStatusCompleted} {
		updated, err := move(service, b.ID, provider, to)
		require.NoError(t, err)
		assert.Equal(t, to, updated.Status)
	}

	unpaid, err := service.ListCompletedUnpaid(context.Background(), buyer.ID)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, b.ID, unpaid[0].ID)

	_, err = move(service, b.ID, buyer, domain.BookingStatusCancelled)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestScenario_BuyerCancelsConfirmedBooking(t *testing.T) {
	service, store := newMemoryService(t)

	unpaid := createBooking(t, service)
	_, err := move(service, unpaid.ID, provider, domain.BookingStatusConfirmed)
	require.NoError(t, err)

	cancelled, err := move(service, unpaid.ID, buyer, domain.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)

	paid := createBooking(t, service)
	store.ForceBookingState(paid.ID, domain.BookingStatusConfirmed, domain.PaymentStatusPaid)

	_, err = move(service, paid.ID, buyer, domain.BookingStatusCancelled)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	after, err := service.GetBooking(context.Background(), paid.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, after.Status)
}

func TestScenario_FailedTransitionLeavesBookingUntouched(t *testing.T) {
	service, _ := newMemoryService(t)
	b := createBooking(t, service)

	_, err := move(service, b.ID, provider, domain.BookingStatusCompleted)
	require.Error(t, err)

	after, err := service.GetBooking(context.Background(), b.ID, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, after.Status)
	assert.Equal(t, b.Version, after.Version)
}

func TestConcurrentTransitions_ExactlyOneWins(t *testing.T) {
	service, _ := newMemoryService(t)
	b := createBooking(t, service)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := move(service, b.ID, provider, domain.BookingStatusConfirmed)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrConflict), "unexpected %v", err)
	}

	after, err := service.GetBooking(context.Background(), b.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), after.Version)
}
