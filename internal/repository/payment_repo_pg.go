package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation  = "23505"
	activePaymentIndex = "payments_active_booking_uq"
	paymentColumns     = `id, booking_id, payer_handle, gross, commission, payee_amount, receipt, status, failure_reason, created_at, confirmed_at, updated_at`
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	ActiveForBooking(ctx context.Context, bookingID int64) (*domain.Payment, error)
	// Confirm settles a pending payment and marks its booking paid in one unit.
	Confirm(ctx context.Context, id int64, receipt string, at time.Time) (*domain.Payment, error)
	Fail(ctx context.Context, id int64, reason string) (*domain.Payment, error)
	ListConfirmedByProvider(ctx context.Context, providerID int64, limit int) ([]domain.EarningsEntry, error)
	ProviderTotals(ctx context.Context, providerID int64) (domain.EarningsTotals, error)
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Payment, error)
	ReconcileConfirmedUnpaid(ctx context.Context) ([]int64, error)
}

type PGPaymentRepository struct {
	db DB
}

func NewPaymentRepository(db DB) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

func (r *PGPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	payment.Status = domain.PaymentStatePending

	err := r.db.QueryRow(ctx, `INSERT INTO payments (booking_id, payer_handle, gross, commission, payee_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		payment.BookingID, payment.PayerHandle, payment.Gross, payment.Commission, payment.PayeeAmount, payment.Status).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == activePaymentIndex {
		return domain.Errorf(domain.KindDuplicatePayment, "booking %d already has an active payment", payment.BookingID)
	}
	return err
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "payment %d not found", id)
	}
	return p, err
}

func (r *PGPaymentRepository) ActiveForBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE booking_id=$1 AND status IN ('pending', 'confirmed')`, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "booking %d has no active payment", bookingID)
	}
	return p, err
}

func (r *PGPaymentRepository) Confirm(ctx context.Context, id int64, receipt string, at time.Time) (*domain.Payment, error) {
	var confirmed *domain.Payment
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockPending(ctx, tx, id); err != nil {
			return err
		}

		p, err := scanPayment(tx.QueryRow(ctx, `UPDATE payments SET status=$2, receipt=$3, confirmed_at=$4, updated_at=now()
			WHERE id=$1 RETURNING `+paymentColumns, id, domain.PaymentStateConfirmed, receipt, at))
		if err != nil {
			return err
		}

		res, err := tx.Exec(ctx, `UPDATE bookings SET payment_status=$2, version=version+1, updated_at=now()
			WHERE id=$1 AND status=$3 AND payment_status=$4`,
			p.BookingID, domain.PaymentStatusPaid, domain.BookingStatusCompleted, domain.PaymentStatusUnpaid)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return domain.Errorf(domain.KindConflict, "booking %d is no longer awaiting payment", p.BookingID)
		}
		confirmed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

func (r *PGPaymentRepository) Fail(ctx context.Context, id int64, reason string) (*domain.Payment, error) {
	var failed *domain.Payment
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockPending(ctx, tx, id); err != nil {
			return err
		}

		p, err := scanPayment(tx.QueryRow(ctx, `UPDATE payments SET status=$2, failure_reason=$3, updated_at=now()
			WHERE id=$1 RETURNING `+paymentColumns, id, domain.PaymentStateFailed, reason))
		if err != nil {
			return err
		}
		failed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

// lockPending takes a row lock on the payment and checks it is still pending.
func lockPending(ctx context.Context, tx pgx.Tx, id int64) error {
	var status domain.PaymentState
	err := tx.QueryRow(ctx, `SELECT status FROM payments WHERE id=$1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Errorf(domain.KindNotFound, "payment %d not found", id)
	}
	if err != nil {
		return err
	}
	if status != domain.PaymentStatePending {
		return domain.Errorf(domain.KindAlreadySettled, "payment %d is already %s", id, status)
	}
	return nil
}

func (r *PGPaymentRepository) ListConfirmedByProvider(ctx context.Context, providerID int64, limit int) ([]domain.EarningsEntry, error) {
	// LIMIT NULL returns every row.
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.db.Query(ctx, `SELECT p.id, p.booking_id, b.service_title, p.payee_amount, p.gross, p.commission, p.receipt, p.confirmed_at
		FROM payments p JOIN bookings b ON b.id = p.booking_id
		WHERE b.provider_id=$1 AND p.status=$2
		ORDER BY p.confirmed_at DESC, p.id DESC
		LIMIT $3`, providerID, domain.PaymentStateConfirmed, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.EarningsEntry, 0)
	for rows.Next() {
		var e domain.EarningsEntry
		if err := rows.Scan(&e.PaymentID, &e.BookingID, &e.ServiceTitle, &e.Amount, &e.Gross, &e.Commission, &e.Receipt, &e.Date); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PGPaymentRepository) ProviderTotals(ctx context.Context, providerID int64) (domain.EarningsTotals, error) {
	var (
		totals domain.EarningsTotals
		count  int64
	)
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(p.payee_amount), 0)::bigint, COALESCE(SUM(p.commission), 0)::bigint, COUNT(*)
		FROM payments p JOIN bookings b ON b.id = p.booking_id
		WHERE b.provider_id=$1 AND p.status=$2`, providerID, domain.PaymentStateConfirmed).
		Scan(&totals.TotalEarnings, &totals.TotalCommission, &count)
	totals.PaymentCount = int(count)
	return totals, err
}

func (r *PGPaymentRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, `UPDATE payments SET status=$1, failure_reason=$2, updated_at=now()
		WHERE status=$3 AND created_at <= $4
		RETURNING `+paymentColumns, domain.PaymentStateFailed, domain.FailureReasonExpired, domain.PaymentStatePending, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expired := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *p)
	}
	return expired, rows.Err()
}

func (r *PGPaymentRepository) ReconcileConfirmedUnpaid(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings b SET payment_status=$1, version=b.version+1, updated_at=now()
		FROM payments p
		WHERE p.booking_id = b.id AND p.status=$2 AND b.status=$3 AND b.payment_status=$4
		RETURNING b.id`, domain.PaymentStatusPaid, domain.PaymentStateConfirmed, domain.BookingStatusCompleted, domain.PaymentStatusUnpaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.PayerHandle, &p.Gross, &p.Commission, &p.PayeeAmount, &p.Receipt,
		&p.Status, &p.FailureReason, &p.CreatedAt, &p.ConfirmedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
