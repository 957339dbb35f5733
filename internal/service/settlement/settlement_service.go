// Package settlement runs the two-phase payment flow for completed bookings:
// initiate records a pending payment with its commission split, confirm
// finalizes it together with the booking's paid flag.
package settlement

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/kafka"
	"github.com/Domenick1991/servicehub/internal/money"
	"github.com/Domenick1991/servicehub/internal/obs"
	"github.com/Domenick1991/servicehub/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultFailureReason = "declined"

var payerHandlePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

type SettlementUseCase interface {
	InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*InitiateResult, error)
	ConfirmPayment(ctx context.Context, paymentID int64, receipt string) (*domain.Payment, error)
	FailPayment(ctx context.Context, paymentID int64, reason string) (*domain.Payment, error)
	GetPayment(ctx context.Context, paymentID int64) (*domain.Payment, error)
	ExpireStalePayments(ctx context.Context) ([]domain.Payment, error)
	Reconcile(ctx context.Context) ([]int64, error)
}

// Lock serializes settlement attempts per booking across processes.
type Lock interface {
	AcquireSettlementLock(ctx context.Context, bookingID int64, ttl time.Duration) (token string, ok bool, err error)
	ReleaseSettlementLock(ctx context.Context, bookingID int64, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type InitiatePaymentInput struct {
	BookingID   int64  `json:"booking_id"`
	PayerHandle string `json:"phone_number"`
}

type InitiateResult struct {
	PaymentID   int64               `json:"payment_id"`
	BookingID   int64               `json:"booking_id"`
	Gross       int64               `json:"gross"`
	Commission  int64               `json:"commission"`
	PayeeAmount int64               `json:"payee_amount"`
	Status      domain.PaymentState `json:"status"`
}

type SettlementService struct {
	bookings           repository.BookingRepository
	payments           repository.PaymentRepository
	rate               decimal.Decimal
	lock               Lock
	lockTTL            time.Duration
	producer           Producer
	paymentTopic       string
	notificationsTopic string
	pendingTTL         time.Duration
	logger             *zap.Logger
	tracer             trace.Tracer
	now                func() time.Time
}

type SettlementServiceOption func(*SettlementService)

func WithLock(lock Lock, ttl time.Duration) SettlementServiceOption {
	return func(s *SettlementService) {
		s.lock = lock
		s.lockTTL = ttl
	}
}

func WithProducer(producer Producer, paymentTopic string) SettlementServiceOption {
	return func(s *SettlementService) {
		s.producer = producer
		s.paymentTopic = paymentTopic
	}
}

func WithNotificationsTopic(topic string) SettlementServiceOption {
	return func(s *SettlementService) {
		s.notificationsTopic = topic
	}
}

// WithPendingTTL sets how long a payment may stay pending before
// ExpireStalePayments fails it. Zero disables expiry.
func WithPendingTTL(ttl time.Duration) SettlementServiceOption {
	return func(s *SettlementService) {
		s.pendingTTL = ttl
	}
}

func WithLogger(logger *zap.Logger) SettlementServiceOption {
	return func(s *SettlementService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) SettlementServiceOption {
	return func(s *SettlementService) {
		s.now = now
	}
}

func NewSettlementService(
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	rate decimal.Decimal,
	opts ...SettlementServiceOption,
) *SettlementService {
	service := &SettlementService{
		bookings: bookings,
		payments: payments,
		rate:     rate,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("servicehub/settlement"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *SettlementService) InitiatePayment(ctx context.Context, input InitiatePaymentInput) (_ *InitiateResult, err error) {
	ctx, span := s.tracer.Start(ctx, "settlement.Initiate", trace.WithAttributes(attribute.Int64("booking.id", input.BookingID)))
	defer func() { obs.End(span, err) }()

	handle := strings.TrimSpace(input.PayerHandle)
	if !payerHandlePattern.MatchString(handle) {
		return nil, domain.Errorf(domain.KindInvalidInput, "invalid phone number %q", handle)
	}

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Payable() {
		return nil, domain.Errorf(domain.KindNotPayable, "booking %d is %s and %s", booking.ID, booking.Status, booking.PaymentStatus)
	}

	if s.lock != nil {
		token, locked, err := s.lock.AcquireSettlementLock(ctx, booking.ID, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("settlement lock unavailable, relying on ledger uniqueness", zap.Int64("booking_id", booking.ID), zap.Error(err))
		case !locked:
			return nil, domain.Errorf(domain.KindDuplicatePayment, "settlement for booking %d is already in progress", booking.ID)
		default:
			defer func() {
				if err := s.lock.ReleaseSettlementLock(ctx, booking.ID, token); err != nil {
					s.logger.Warn("failed to release settlement lock", zap.Int64("booking_id", booking.ID), zap.Error(err))
				}
			}()
		}
	}

	commission, payee, err := money.Split(booking.TotalPrice, s.rate)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		BookingID:   booking.ID,
		PayerHandle: handle,
		Gross:       booking.TotalPrice,
		Commission:  commission,
		PayeeAmount: payee,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment initiated",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", booking.ID),
		zap.Int64("gross", payment.Gross),
		zap.Int64("commission", payment.Commission),
	)
	s.publish(ctx, kafka.EventPaymentInitiated, payment)

	return &InitiateResult{
		PaymentID:   payment.ID,
		BookingID:   payment.BookingID,
		Gross:       payment.Gross,
		Commission:  payment.Commission,
		PayeeAmount: payment.PayeeAmount,
		Status:      payment.Status,
	}, nil
}

func (s *SettlementService) ConfirmPayment(ctx context.Context, paymentID int64, receipt string) (_ *domain.Payment, err error) {
	ctx, span := s.tracer.Start(ctx, "settlement.Confirm", trace.WithAttributes(attribute.Int64("payment.id", paymentID)))
	defer func() { obs.End(span, err) }()

	receipt = strings.TrimSpace(receipt)
	if receipt == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, "receipt is required")
	}

	payment, err := s.payments.Confirm(ctx, paymentID, receipt, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment confirmed",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", payment.BookingID),
		zap.String("receipt", payment.Receipt),
	)
	s.publish(ctx, kafka.EventPaymentConfirmed, payment)
	s.notifyProvider(ctx, payment, fmt.Sprintf("Payment of %d received, receipt %s", payment.PayeeAmount, payment.Receipt))
	return payment, nil
}

func (s *SettlementService) FailPayment(ctx context.Context, paymentID int64, reason string) (_ *domain.Payment, err error) {
	ctx, span := s.tracer.Start(ctx, "settlement.Fail", trace.WithAttributes(attribute.Int64("payment.id", paymentID)))
	defer func() { obs.End(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultFailureReason
	}

	payment, err := s.payments.Fail(ctx, paymentID, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment failed",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", payment.BookingID),
		zap.String("reason", reason),
	)
	s.publish(ctx, kafka.EventPaymentFailed, payment)
	return payment, nil
}

func (s *SettlementService) GetPayment(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	return s.payments.GetByID(ctx, paymentID)
}

// ExpireStalePayments fails payments left pending longer than the pending
// TTL, which frees their bookings for a new attempt.
func (s *SettlementService) ExpireStalePayments(ctx context.Context) ([]domain.Payment, error) {
	if s.pendingTTL <= 0 {
		return nil, nil
	}

	expired, err := s.payments.ExpirePendingBefore(ctx, s.now().Add(-s.pendingTTL))
	if err != nil {
		return nil, fmt.Errorf("expire pending payments: %w", err)
	}
	for i := range expired {
		s.logger.Info("payment expired", zap.Int64("payment_id", expired[i].ID), zap.Int64("booking_id", expired[i].BookingID))
		s.publish(ctx, kafka.EventPaymentExpired, &expired[i])
	}
	return expired, nil
}

// Reconcile marks paid every completed booking that has a confirmed payment
// but still reads unpaid. It returns the repaired booking ids.
func (s *SettlementService) Reconcile(ctx context.Context) ([]int64, error) {
	ids, err := s.payments.ReconcileConfirmedUnpaid(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile settlements: %w", err)
	}
	for _, id := range ids {
		s.logger.Warn("reconciled booking with confirmed payment", zap.Int64("booking_id", id))
		s.publish(ctx, kafka.EventBookingReconciled, &domain.Payment{BookingID: id, Status: domain.PaymentStateConfirmed})
	}
	return ids, nil
}

func (s *SettlementService) publish(ctx context.Context, eventType string, p *domain.Payment) {
	if s.producer == nil || s.paymentTopic == "" {
		return
	}
	event := kafka.PaymentEvent{
		Type:          eventType,
		PaymentID:     p.ID,
		BookingID:     p.BookingID,
		Status:        string(p.Status),
		Gross:         p.Gross,
		Commission:    p.Commission,
		PayeeAmount:   p.PayeeAmount,
		Receipt:       p.Receipt,
		FailureReason: p.FailureReason,
		OccurredAt:    s.now(),
	}
	if err := s.producer.Publish(ctx, s.paymentTopic, strconv.FormatInt(p.BookingID, 10), event); err != nil {
		s.logger.Warn("failed to publish payment event",
			zap.String("type", eventType), zap.Int64("booking_id", p.BookingID), zap.Error(err))
	}
}

func (s *SettlementService) notifyProvider(ctx context.Context, p *domain.Payment, message string) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	booking, err := s.bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		s.logger.Warn("skipping payment notification", zap.Int64("booking_id", p.BookingID), zap.Error(err))
		return
	}
	n := kafka.Notification{
		Type:        kafka.EventPaymentConfirmed,
		RecipientID: booking.ProviderID,
		BookingID:   booking.ID,
		PaymentID:   p.ID,
		Message:     message,
		OccurredAt:  s.now(),
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, strconv.FormatInt(booking.ProviderID, 10), n); err != nil {
		s.logger.Warn("failed to publish notification", zap.Int64("payment_id", p.ID), zap.Error(err))
	}
}

var _ SettlementUseCase = (*SettlementService)(nil)
