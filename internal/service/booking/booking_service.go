package booking

import (
	"context"
	"errors"
	"fmt"
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

// Durations are stored as NUMERIC(10, 2), so anything finer than hundredths
// or beyond maxDuration would not survive the round trip.
const durationPlaces = 2

var maxDuration = decimal.NewFromInt(10000)

const defaultDashboardRecent = 5

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	TransitionBooking(ctx context.Context, input TransitionInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListCompletedUnpaid(ctx context.Context, userID int64) ([]domain.Booking, error)
	ProviderDashboard(ctx context.Context, providerID int64) (*Dashboard, error)
}

// Dashboard summarizes every booking a provider has received.
// CompletedValue sums the totals of completed bookings, paid or not.
type Dashboard struct {
	ProviderID     int64
	TotalBookings  int
	ByStatus       map[domain.BookingStatus]int
	CompletedValue int64
	Recent         []domain.Booking
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	directory          repository.DirectoryRepository
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	dashboardRecent    int
	logger             *zap.Logger
	tracer             trace.Tracer
	now                func() time.Time
}

type CreateBookingInput struct {
	ServiceID   int64           `json:"service_id"`
	BuyerID     int64           `json:"buyer_id"`
	BookingDate time.Time       `json:"booking_date"`
	Duration    decimal.Decimal `json:"duration"`
	Location    string          `json:"location"`
	Notes       string          `json:"notes"`
}

type TransitionInput struct {
	BookingID int64                `json:"booking_id"`
	ActorID   int64                `json:"actor_id"`
	ActorRole domain.Role          `json:"actor_role"`
	Target    domain.BookingStatus `json:"status"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithDashboardRecent sets how many recent bookings ProviderDashboard returns.
func WithDashboardRecent(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.dashboardRecent = n
		}
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

// NewBookingService wires the state machine to its stores. producer may be
// nil, in which case no events are published.
func NewBookingService(
	bookings repository.BookingRepository,
	directory repository.DirectoryRepository,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		directory:    directory,
		producer:     producer,
		bookingTopic:    bookingTopic,
		dashboardRecent: defaultDashboardRecent,
		logger:          zap.NewNop(),
		tracer:          otel.Tracer("servicehub/booking"),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (_ *domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Create", trace.WithAttributes(
		attribute.Int64("service.id", input.ServiceID),
		attribute.Int64("buyer.id", input.BuyerID),
	))
	defer func() { obs.End(span, err) }()

	if input.BookingDate.IsZero() {
		return nil, domain.Errorf(domain.KindInvalidInput, "booking date is required")
	}
	location := strings.TrimSpace(input.Location)
	if location == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, "location is required")
	}
	duration := input.Duration
	if duration.IsZero() {
		duration = decimal.NewFromInt(1)
	}
	if !duration.Equal(duration.Round(durationPlaces)) {
		return nil, domain.Errorf(domain.KindInvalidInput, "duration %s has more than %d decimal places", duration.String(), durationPlaces)
	}
	if duration.GreaterThan(maxDuration) {
		return nil, domain.Errorf(domain.KindInvalidInput, "duration %s exceeds %s units", duration.String(), maxDuration.String())
	}

	buyer, err := s.directory.GetUser(ctx, input.BuyerID)
	if err != nil {
		return nil, err
	}
	if buyer.Role != domain.RoleBuyer {
		return nil, domain.Errorf(domain.KindForbidden, "user %d is not a buyer", buyer.ID)
	}

	svc, err := s.directory.GetService(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}

	total, err := money.Total(svc.UnitPrice, duration)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ServiceID:    svc.ID,
		ServiceTitle: svc.Title,
		BuyerID:      buyer.ID,
		ProviderID:   svc.ProviderID,
		BookingDate:  input.BookingDate,
		Duration:     duration,
		Location:     location,
		Notes:        strings.TrimSpace(input.Notes),
		TotalPrice:   total,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("service_id", booking.ServiceID),
		zap.Int64("buyer_id", booking.BuyerID),
		zap.Int64("total_price", booking.TotalPrice),
	)
	s.publish(ctx, kafka.EventBookingCreated, "", booking, 0)
	s.notify(ctx, booking.ProviderID, booking, fmt.Sprintf("New booking request for %s", booking.ServiceTitle))
	return booking, nil
}

func (s *BookingService) TransitionBooking(ctx context.Context, input TransitionInput) (_ *domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Transition", trace.WithAttributes(
		attribute.Int64("booking.id", input.BookingID),
		attribute.Int64("actor.id", input.ActorID),
		attribute.String("booking.target", string(input.Target)),
	))
	defer func() { obs.End(span, err) }()

	if !input.Target.Valid() {
		return nil, domain.Errorf(domain.KindInvalidInput, "unknown booking status %q", input.Target)
	}
	if !input.ActorRole.Valid() {
		return nil, domain.Errorf(domain.KindInvalidInput, "unknown role %q", input.ActorRole)
	}

	actor, err := s.directory.GetUser(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != input.ActorRole {
		return nil, domain.Errorf(domain.KindForbidden, "user %d is not a %s", actor.ID, input.ActorRole)
	}

	current, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if !isParty(current, actor.ID, input.ActorRole) {
		return nil, domain.Errorf(domain.KindForbidden, "user %d is not the %s of booking %d", actor.ID, input.ActorRole, current.ID)
	}

	rule, err := CheckTransition(current, input.ActorRole, input.Target)
	if err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, repository.StatusUpdate{
		BookingID:     current.ID,
		From:          current.Status,
		To:            input.Target,
		Version:       current.Version,
		RequireUnpaid: rule.RequireUnpaid,
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil, s.explainConflict(ctx, input, err)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking status changed",
		zap.Int64("booking_id", updated.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
		zap.Int64("actor_id", actor.ID),
	)
	s.publish(ctx, kafka.EventBookingTransition, current.Status, updated, actor.ID)
	s.notify(ctx, counterpart(updated, input.ActorRole), updated,
		fmt.Sprintf("Booking for %s is now %s", updated.ServiceTitle, updated.Status))
	return updated, nil
}

// explainConflict re-reads a booking that lost a compare-and-swap. If the
// requested edge is no longer legal the caller gets that error instead of
// a retriable conflict.
func (s *BookingService) explainConflict(ctx context.Context, input TransitionInput, conflict error) error {
	latest, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return conflict
	}
	if _, err := CheckTransition(latest, input.ActorRole, input.Target); err != nil {
		return err
	}
	return conflict
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.BuyerID != actorID && b.ProviderID != actorID {
		return nil, domain.Errorf(domain.KindForbidden, "user %d is not a party to booking %d", actorID, bookingID)
	}
	return b, nil
}

func (s *BookingService) ListBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleProvider {
		bookings, err := s.bookings.ListByProvider(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		s.fillBuyerNames(ctx, bookings)
		return bookings, nil
	}
	return s.bookings.ListByBuyer(ctx, user.ID)
}

func (s *BookingService) ProviderDashboard(ctx context.Context, providerID int64) (_ *Dashboard, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.ProviderDashboard", trace.WithAttributes(attribute.Int64("provider.id", providerID)))
	defer func() { obs.End(span, err) }()

	user, err := s.directory.GetUser(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleProvider {
		return nil, domain.Errorf(domain.KindForbidden, "user %d is not a provider", user.ID)
	}

	bookings, err := s.bookings.ListByProvider(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		ProviderID:    user.ID,
		TotalBookings: len(bookings),
		ByStatus:      make(map[domain.BookingStatus]int),
	}
	for i := range bookings {
		dash.ByStatus[bookings[i].Status]++
		if bookings[i].Status == domain.BookingStatusCompleted {
			dash.CompletedValue += bookings[i].TotalPrice
		}
	}
	// ListByProvider is newest first.
	dash.Recent = bookings[:min(len(bookings), s.dashboardRecent)]
	s.fillBuyerNames(ctx, dash.Recent)
	return dash, nil
}

// fillBuyerNames is best effort: a directory miss leaves the name empty.
func (s *BookingService) fillBuyerNames(ctx context.Context, bookings []domain.Booking) {
	names := make(map[int64]string)
	for i := range bookings {
		id := bookings[i].BuyerID
		name, ok := names[id]
		if !ok {
			if u, err := s.directory.GetUser(ctx, id); err == nil {
				name = u.Name
			} else {
				s.logger.Warn("buyer lookup failed", zap.Int64("buyer_id", id), zap.Error(err))
			}
			names[id] = name
		}
		bookings[i].BuyerName = name
	}
}

func (s *BookingService) ListCompletedUnpaid(ctx context.Context, userID int64) ([]domain.Booking, error) {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.bookings.ListCompletedUnpaid(ctx, user.ID)
}

func isParty(b *domain.Booking, actorID int64, role domain.Role) bool {
	switch role {
	case domain.RoleBuyer:
		return b.BuyerID == actorID
	case domain.RoleProvider:
		return b.ProviderID == actorID
	}
	return false
}

func counterpart(b *domain.Booking, actorRole domain.Role) int64 {
	if actorRole == domain.RoleProvider {
		return b.BuyerID
	}
	return b.ProviderID
}

// publish is best effort: the booking is already stored, so a broker
// failure is logged and not returned.
func (s *BookingService) publish(ctx context.Context, eventType string, from domain.BookingStatus, b *domain.Booking, actorID int64) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		ServiceID:     b.ServiceID,
		BuyerID:       b.BuyerID,
		ProviderID:    b.ProviderID,
		FromStatus:    string(from),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TotalPrice:    b.TotalPrice,
		ActorID:       actorID,
		OccurredAt:    s.now(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, strconv.FormatInt(b.ID, 10), event); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("type", eventType), zap.Int64("booking_id", b.ID), zap.Error(err))
	}
}

func (s *BookingService) notify(ctx context.Context, recipientID int64, b *domain.Booking, message string) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	n := kafka.Notification{
		Type:        "booking_" + string(b.Status),
		RecipientID: recipientID,
		BookingID:   b.ID,
		Message:     message,
		OccurredAt:  s.now(),
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, strconv.FormatInt(recipientID, 10), n); err != nil {
		s.logger.Warn("failed to publish notification",
			zap.Int64("booking_id", b.ID), zap.Int64("recipient_id", recipientID), zap.Error(err))
	}
}

var _ BookingUseCase = (*BookingService)(nil)
