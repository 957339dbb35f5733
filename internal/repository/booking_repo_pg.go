package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, upd StatusUpdate) (*domain.Booking, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Booking, error)
	ListByProvider(ctx context.Context, providerID int64) ([]domain.Booking, error)
	ListCompletedUnpaid(ctx context.Context, buyerID int64) ([]domain.Booking, error)
}

// StatusUpdate is a compare-and-swap on a booking's status. It applies only
// while the stored row still has status From and the given Version.
type StatusUpdate struct {
	BookingID     int64
	From          domain.BookingStatus
	To            domain.BookingStatus
	Version       int64
	RequireUnpaid bool
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, service_id, service_title, buyer_id, provider_id, booking_date, duration::text, location, notes, total_price, status, payment_status, version, created_at, updated_at`

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusPending
	booking.PaymentStatus = domain.PaymentStatusUnpaid

	return r.db.QueryRow(ctx, `INSERT INTO bookings (service_id, service_title, buyer_id, provider_id, booking_date, duration, location, notes, total_price, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, $9, $10, $11)
		RETURNING id, version, created_at, updated_at`,
		booking.ServiceID, booking.ServiceTitle, booking.BuyerID, booking.ProviderID, booking.BookingDate,
		booking.Duration.String(), booking.Location, booking.Notes, booking.TotalPrice, booking.Status, booking.PaymentStatus).
		Scan(&booking.ID, &booking.Version, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "booking %d not found", id)
	}
	return b, err
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, upd StatusUpdate) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, version=version+1, updated_at=now()
		WHERE id=$2 AND status=$3 AND version=$4 AND ($5 = false OR payment_status='unpaid')
		RETURNING `+bookingColumns, upd.To, upd.BookingID, upd.From, upd.Version, upd.RequireUnpaid))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id=$1)`, upd.BookingID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.Errorf(domain.KindNotFound, "booking %d not found", upd.BookingID)
	}
	return nil, domain.Errorf(domain.KindConflict, "booking %d changed concurrently", upd.BookingID)
}

func (r *PGBookingRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE buyer_id=$1 ORDER BY created_at DESC, id DESC`, buyerID)
}

func (r *PGBookingRepository) ListByProvider(ctx context.Context, providerID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE provider_id=$1 ORDER BY created_at DESC, id DESC`, providerID)
}

func (r *PGBookingRepository) ListCompletedUnpaid(ctx context.Context, buyerID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE buyer_id=$1 AND status=$2 AND payment_status=$3 ORDER BY updated_at DESC, id DESC`,
		buyerID, domain.BookingStatusCompleted, domain.PaymentStatusUnpaid)
}

func (r *PGBookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b        domain.Booking
		duration string
	)
	if err := row.Scan(&b.ID, &b.ServiceID, &b.ServiceTitle, &b.BuyerID, &b.ProviderID, &b.BookingDate, &duration,
		&b.Location, &b.Notes, &b.TotalPrice, &b.Status, &b.PaymentStatus, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(duration)
	if err != nil {
		return nil, fmt.Errorf("booking %d duration %q: %w", b.ID, duration, err)
	}
	b.Duration = d
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
