package marketplace_api

import (
	"context"
	"strings"
	"time"

	"github.com/Domenick1991/servicehub/internal/auth"
	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/service/booking"
	"github.com/Domenick1991/servicehub/internal/service/earnings"
	"github.com/Domenick1991/servicehub/internal/service/settlement"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Server implements servicehub.v1.Marketplace on top of the use cases.
type Server struct {
	bookings    booking.BookingUseCase
	settlements settlement.SettlementUseCase
	earnings    earnings.EarningsUseCase
}

func NewServer(bookings booking.BookingUseCase, settlements settlement.SettlementUseCase, earnings earnings.EarningsUseCase) *Server {
	return &Server{bookings: bookings, settlements: settlements, earnings: earnings}
}

func (s *Server) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*Booking, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(time.RFC3339, req.BookingDate)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "booking_date must be RFC3339: %v", err)
	}
	var duration decimal.Decimal
	if req.Duration != "" {
		if duration, err = decimal.NewFromString(req.Duration); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid duration %q", req.Duration)
		}
	}

	created, err := s.bookings.CreateBooking(ctx, booking.CreateBookingInput{
		ServiceID:   req.ServiceID,
		BuyerID:     actor.ID,
		BookingDate: date,
		Duration:    duration,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toBooking(created), nil
}

func (s *Server) TransitionBooking(ctx context.Context, req *TransitionBookingRequest) (*Booking, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := s.bookings.TransitionBooking(ctx, booking.TransitionInput{
		BookingID: req.BookingID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Target:    domain.BookingStatus(req.Status),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toBooking(updated), nil
}

func (s *Server) ListBookings(ctx context.Context, _ *ListBookingsRequest) (*ListBookingsResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.ListBookings(ctx, actor.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toListResponse(bookings), nil
}

func (s *Server) ListCompletedUnpaid(ctx context.Context, _ *ListBookingsRequest) (*ListBookingsResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.ListCompletedUnpaid(ctx, actor.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toListResponse(bookings), nil
}

func (s *Server) InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.GetBooking(ctx, req.BookingID, actor.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	if b.BuyerID != actor.ID {
		return nil, status.Errorf(codes.PermissionDenied, "only the buyer can pay for booking %d", b.ID)
	}

	result, err := s.settlements.InitiatePayment(ctx, settlement.InitiatePaymentInput{
		BookingID:   req.BookingID,
		PayerHandle: req.PhoneNumber,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &InitiatePaymentResponse{
		PaymentID:   result.PaymentID,
		BookingID:   result.BookingID,
		Amount:      result.Gross,
		Commission:  result.Commission,
		PayeeAmount: result.PayeeAmount,
		Status:      string(result.Status),
	}, nil
}

func (s *Server) ConfirmPayment(ctx context.Context, req *ConfirmPaymentRequest) (*Payment, error) {
	if !auth.IsSettlementAuthority(ctx) {
		return nil, status.Error(codes.PermissionDenied, "only the payment gateway can confirm payments")
	}

	payment, err := s.settlements.ConfirmPayment(ctx, req.PaymentID, req.Receipt)
	if err != nil {
		return nil, toStatus(err)
	}
	return &Payment{
		ID:            payment.ID,
		BookingID:     payment.BookingID,
		Amount:        payment.Gross,
		Commission:    payment.Commission,
		PayeeAmount:   payment.PayeeAmount,
		Receipt:       payment.Receipt,
		Status:        string(payment.Status),
		FailureReason: payment.FailureReason,
	}, nil
}

func (s *Server) GetProviderEarnings(ctx context.Context, req *GetProviderEarningsRequest) (*ProviderEarnings, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.ID != req.ProviderID {
		return nil, status.Errorf(codes.PermissionDenied, "user %d cannot view earnings of provider %d", actor.ID, req.ProviderID)
	}

	report, err := s.earnings.GetProviderEarnings(ctx, req.ProviderID)
	if err != nil {
		return nil, toStatus(err)
	}

	recent := make([]EarningsEntry, 0, len(report.RecentPayments))
	for _, e := range report.RecentPayments {
		recent = append(recent, EarningsEntry{
			PaymentID:    e.PaymentID,
			BookingID:    e.BookingID,
			ServiceTitle: e.ServiceTitle,
			Amount:       e.Amount,
			Receipt:      e.Receipt,
			Date:         e.Date.Format(time.RFC3339),
		})
	}
	return &ProviderEarnings{
		ProviderID:      report.ProviderID,
		TotalEarnings:   report.TotalEarnings,
		TotalCommission: report.TotalCommission,
		PaymentCount:    report.PaymentCount,
		RecentPayments:  recent,
	}, nil
}

func (s *Server) GetProviderDashboard(ctx context.Context, req *GetProviderDashboardRequest) (*ProviderDashboard, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.ID != req.ProviderID {
		return nil, status.Errorf(codes.PermissionDenied, "user %d cannot view the dashboard of provider %d", actor.ID, req.ProviderID)
	}

	dash, err := s.bookings.ProviderDashboard(ctx, req.ProviderID)
	if err != nil {
		return nil, toStatus(err)
	}

	byStatus := make(map[string]int, len(dash.ByStatus))
	for st, n := range dash.ByStatus {
		byStatus[string(st)] = n
	}
	return &ProviderDashboard{
		ProviderID:     dash.ProviderID,
		TotalBookings:  dash.TotalBookings,
		ByStatus:       byStatus,
		CompletedValue: dash.CompletedValue,
		RecentBookings: toListResponse(dash.Recent).Bookings,
	}, nil
}

// AuthInterceptor reads the bearer token from the "authorization" metadata
// key and puts the caller on the context. ConfirmPayment instead requires
// the payment gateway's shared secret and ignores bearer tokens.
func AuthInterceptor(secret []byte, settlementSecret string) grpc.UnaryServerInterceptor {
	confirmMethod := fullMethod("ConfirmPayment")
	settlementKey := strings.ToLower(auth.SettlementHeader)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if info.FullMethod == confirmMethod {
			var presented string
			if values := md.Get(settlementKey); len(values) > 0 {
				presented = values[0]
			}
			if err := auth.CheckSettlementSecret(settlementSecret, presented); err != nil {
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
			return handler(auth.WithSettlementAuthority(ctx), req)
		}

		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		raw, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok || raw == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		actor, err := auth.ParseToken(secret, raw)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(auth.WithActor(ctx, actor), req)
	}
}

// LoggingInterceptor logs every call with its method, code and latency.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		}
		if status.Code(err) == codes.Internal {
			logger.Error("grpc call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Info("grpc call", fields...)
		}
		return resp, err
	}
}

func requireActor(ctx context.Context) (auth.Actor, error) {
	actor, ok := auth.ActorFrom(ctx)
	if !ok {
		return auth.Actor{}, status.Error(codes.Unauthenticated, "missing caller identity")
	}
	return actor, nil
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		code = codes.NotFound
	case domain.KindForbidden:
		code = codes.PermissionDenied
	case domain.KindInvalidTransition, domain.KindNotPayable, domain.KindAlreadySettled:
		code = codes.FailedPrecondition
	case domain.KindDuplicatePayment:
		code = codes.AlreadyExists
	case domain.KindConflict:
		code = codes.Aborted
	case domain.KindInvalidInput, domain.KindInvalidAmount:
		code = codes.InvalidArgument
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, domain.MessageOf(err))
}

func toBooking(b *domain.Booking) *Booking {
	return &Booking{
		ID:            b.ID,
		ServiceID:     b.ServiceID,
		ServiceTitle:  b.ServiceTitle,
		BuyerID:       b.BuyerID,
		BuyerName:     b.BuyerName,
		ProviderID:    b.ProviderID,
		BookingDate:   b.BookingDate.Format(time.RFC3339),
		Duration:      b.Duration.String(),
		Location:      b.Location,
		Notes:         b.Notes,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Version:       b.Version,
	}
}

func toListResponse(bookings []domain.Booking) *ListBookingsResponse {
	out := make([]Booking, 0, len(bookings))
	for i := range bookings {
		out = append(out, *toBooking(&bookings[i]))
	}
	return &ListBookingsResponse{Bookings: out}
}

var _ MarketplaceServer = (*Server)(nil)
