// Package memory is an in-process implementation of the repository
// interfaces. It backs the "memory" storage driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/repository"
)

// Store owns every record. The repositories it hands out share one lock, so
// a payment confirmation and its booking update are applied atomically.
type Store struct {
	mu sync.Mutex

	users    map[int64]domain.User
	services map[int64]domain.Service
	bookings map[int64]domain.Booking
	payments map[int64]domain.Payment

	nextBookingID int64
	nextPaymentID int64
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[int64]domain.User),
		services: make(map[int64]domain.Service),
		bookings: make(map[int64]domain.Booking),
		payments: make(map[int64]domain.Payment),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) AddService(svc domain.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

func (s *Store) Bookings() *BookingRepository {
	return &BookingRepository{s: s}
}

func (s *Store) Payments() *PaymentRepository {
	return &PaymentRepository{s: s}
}

func (s *Store) Directory() *DirectoryRepository {
	return &DirectoryRepository{s: s}
}

type DirectoryRepository struct {
	s *Store
}

func (r *DirectoryRepository) GetUser(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "user %d not found", id)
	}
	return &u, nil
}

func (r *DirectoryRepository) GetService(_ context.Context, id int64) (*domain.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	svc, ok := r.s.services[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "service %d not found", id)
	}
	return &svc, nil
}

type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) Create(_ context.Context, booking *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextBookingID++
	now := r.s.now()
	booking.ID = r.s.nextBookingID
	booking.Status = domain.BookingStatusPending
	booking.PaymentStatus = domain.PaymentStatusUnpaid
	booking.Version = 1
	booking.CreatedAt = now
	booking.UpdatedAt = now
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r *BookingRepository) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "booking %d not found", id)
	}
	return &b, nil
}

func (r *BookingRepository) UpdateStatus(_ context.Context, upd repository.StatusUpdate) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[upd.BookingID]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "booking %d not found", upd.BookingID)
	}
	if b.Status != upd.From || b.Version != upd.Version ||
		(upd.RequireUnpaid && b.PaymentStatus != domain.PaymentStatusUnpaid) {
		return nil, domain.Errorf(domain.KindConflict, "booking %d changed concurrently", upd.BookingID)
	}

	b.Status = upd.To
	b.Version++
	b.UpdatedAt = r.s.now()
	r.s.bookings[b.ID] = b
	return &b, nil
}

func (r *BookingRepository) ListByBuyer(_ context.Context, buyerID int64) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.BuyerID == buyerID }), nil
}

func (r *BookingRepository) ListByProvider(_ context.Context, providerID int64) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.ProviderID == providerID }), nil
}

func (r *BookingRepository) ListCompletedUnpaid(_ context.Context, buyerID int64) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.BuyerID == buyerID && b.Payable() }), nil
}

func (r *BookingRepository) filter(keep func(domain.Booking) bool) []domain.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

type PaymentRepository struct {
	s *Store
}

func (r *PaymentRepository) Create(_ context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.activeFor(payment.BookingID); ok {
		return domain.Errorf(domain.KindDuplicatePayment, "booking %d already has an active payment", payment.BookingID)
	}

	r.s.nextPaymentID++
	now := r.s.now()
	payment.ID = r.s.nextPaymentID
	payment.Status = domain.PaymentStatePending
	payment.CreatedAt = now
	payment.UpdatedAt = now
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "payment %d not found", id)
	}
	return &p, nil
}

func (r *PaymentRepository) ActiveForBooking(_ context.Context, bookingID int64) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.activeFor(bookingID)
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "booking %d has no active payment", bookingID)
	}
	return &p, nil
}

func (r *PaymentRepository) Confirm(_ context.Context, id int64, receipt string, at time.Time) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, err := r.s.pending(id)
	if err != nil {
		return nil, err
	}
	b, ok := r.s.bookings[p.BookingID]
	if !ok || !b.Payable() {
		return nil, domain.Errorf(domain.KindConflict, "booking %d is no longer awaiting payment", p.BookingID)
	}

	now := r.s.now()
	settledAt := at
	p.Status = domain.PaymentStateConfirmed
	p.Receipt = receipt
	p.ConfirmedAt = &settledAt
	p.UpdatedAt = now
	r.s.payments[p.ID] = p

	b.PaymentStatus = domain.PaymentStatusPaid
	b.Version++
	b.UpdatedAt = now
	r.s.bookings[b.ID] = b
	return &p, nil
}

func (r *PaymentRepository) Fail(_ context.Context, id int64, reason string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, err := r.s.pending(id)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PaymentStateFailed
	p.FailureReason = reason
	p.UpdatedAt = r.s.now()
	r.s.payments[p.ID] = p
	return &p, nil
}

func (r *PaymentRepository) ListConfirmedByProvider(_ context.Context, providerID int64, limit int) ([]domain.EarningsEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries := make([]domain.EarningsEntry, 0)
	for _, p := range r.s.payments {
		b, ok := r.s.bookings[p.BookingID]
		if !ok || b.ProviderID != providerID || p.Status != domain.PaymentStateConfirmed {
			continue
		}
		entries = append(entries, domain.EarningsEntry{
			PaymentID:    p.ID,
			BookingID:    p.BookingID,
			ServiceTitle: b.ServiceTitle,
			Amount:       p.PayeeAmount,
			Gross:        p.Gross,
			Commission:   p.Commission,
			Receipt:      p.Receipt,
			Date:         confirmedAt(p),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].PaymentID > entries[j].PaymentID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *PaymentRepository) ProviderTotals(_ context.Context, providerID int64) (domain.EarningsTotals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var totals domain.EarningsTotals
	for _, p := range r.s.payments {
		b, ok := r.s.bookings[p.BookingID]
		if !ok || b.ProviderID != providerID || p.Status != domain.PaymentStateConfirmed {
			continue
		}
		totals.TotalEarnings += p.PayeeAmount
		totals.TotalCommission += p.Commission
		totals.PaymentCount++
	}
	return totals, nil
}

func (r *PaymentRepository) ExpirePendingBefore(_ context.Context, deadline time.Time) ([]domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	expired := make([]domain.Payment, 0)
	for id, p := range r.s.payments {
		if p.Status != domain.PaymentStatePending || p.CreatedAt.After(deadline) {
			continue
		}
		p.Status = domain.PaymentStateFailed
		p.FailureReason = domain.FailureReasonExpired
		p.UpdatedAt = now
		r.s.payments[id] = p
		expired = append(expired, p)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	return expired, nil
}

func (r *PaymentRepository) ReconcileConfirmedUnpaid(_ context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	ids := make([]int64, 0)
	for _, p := range r.s.payments {
		if p.Status != domain.PaymentStateConfirmed {
			continue
		}
		b, ok := r.s.bookings[p.BookingID]
		if !ok || !b.Payable() {
			continue
		}
		b.PaymentStatus = domain.PaymentStatusPaid
		b.Version++
		b.UpdatedAt = now
		r.s.bookings[b.ID] = b
		ids = append(ids, b.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// InsertPayment stores p bypassing the active-payment check. It lets
// callers stage records such as a confirmed payment whose booking update
// never landed. A confirmed payment without a timestamp gets CreatedAt.
func (s *Store) InsertPayment(p domain.Payment) domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPaymentID++
	p.ID = s.nextPaymentID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
		p.UpdatedAt = p.CreatedAt
	}
	if p.Status == domain.PaymentStateConfirmed && p.ConfirmedAt == nil {
		at := p.CreatedAt
		p.ConfirmedAt = &at
	}
	s.payments[p.ID] = p
	return p
}

// ForceBookingState overwrites a booking's status fields without a version
// check. Used to stage records for recovery paths.
func (s *Store) ForceBookingState(id int64, status domain.BookingStatus, paid domain.PaymentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return
	}
	b.Status = status
	b.PaymentStatus = paid
	b.Version++
	s.bookings[id] = b
}

func confirmedAt(p domain.Payment) time.Time {
	if p.ConfirmedAt != nil {
		return *p.ConfirmedAt
	}
	return p.UpdatedAt
}

func (s *Store) activeFor(bookingID int64) (domain.Payment, bool) {
	for _, p := range s.payments {
		if p.BookingID == bookingID && p.IsActive() {
			return p, true
		}
	}
	return domain.Payment{}, false
}

func (s *Store) pending(id int64) (domain.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, domain.Errorf(domain.KindNotFound, "payment %d not found", id)
	}
	if p.Status != domain.PaymentStatePending {
		return domain.Payment{}, domain.Errorf(domain.KindAlreadySettled, "payment %d is already %s", id, p.Status)
	}
	return p, nil
}

var (
	_ repository.BookingRepository   = (*BookingRepository)(nil)
	_ repository.PaymentRepository   = (*PaymentRepository)(nil)
	_ repository.DirectoryRepository = (*DirectoryRepository)(nil)
)
