package marketplace_api

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "servicehub.v1.Marketplace"

type MarketplaceServer interface {
	CreateBooking(context.Context, *CreateBookingRequest) (*Booking, error)
	TransitionBooking(context.Context, *TransitionBookingRequest) (*Booking, error)
	ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error)
	ListCompletedUnpaid(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error)
	InitiatePayment(context.Context, *InitiatePaymentRequest) (*InitiatePaymentResponse, error)
	ConfirmPayment(context.Context, *ConfirmPaymentRequest) (*Payment, error)
	GetProviderEarnings(context.Context, *GetProviderEarningsRequest) (*ProviderEarnings, error)
	GetProviderDashboard(context.Context, *GetProviderDashboardRequest) (*ProviderDashboard, error)
}

// ServiceDesc describes servicehub.v1.Marketplace. Messages travel as JSON
// through the codec registered in this package.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MarketplaceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBooking", Handler: unaryHandler("CreateBooking", MarketplaceServer.CreateBooking)},
		{MethodName: "TransitionBooking", Handler: unaryHandler("TransitionBooking", MarketplaceServer.TransitionBooking)},
		{MethodName: "ListBookings", Handler: unaryHandler("ListBookings", MarketplaceServer.ListBookings)},
		{MethodName: "ListCompletedUnpaid", Handler: unaryHandler("ListCompletedUnpaid", MarketplaceServer.ListCompletedUnpaid)},
		{MethodName: "InitiatePayment", Handler: unaryHandler("InitiatePayment", MarketplaceServer.InitiatePayment)},
		{MethodName: "ConfirmPayment", Handler: unaryHandler("ConfirmPayment", MarketplaceServer.ConfirmPayment)},
		{MethodName: "GetProviderEarnings", Handler: unaryHandler("GetProviderEarnings", MarketplaceServer.GetProviderEarnings)},
		{MethodName: "GetProviderDashboard", Handler: unaryHandler("GetProviderDashboard", MarketplaceServer.GetProviderDashboard)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "servicehub/v1/marketplace.json",
}

func RegisterMarketplaceServer(s grpc.ServiceRegistrar, srv MarketplaceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(MarketplaceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MarketplaceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MarketplaceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls the marketplace service with the JSON codec selected.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func (c *Client) CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpc.CallOption) (*Booking, error) {
	out := new(Booking)
	if err := c.invoke(ctx, "CreateBooking", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TransitionBooking(ctx context.Context, in *TransitionBookingRequest, opts ...grpc.CallOption) (*Booking, error) {
	out := new(Booking)
	if err := c.invoke(ctx, "TransitionBooking", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListBookings(ctx context.Context, in *ListBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	out := new(ListBookingsResponse)
	if err := c.invoke(ctx, "ListBookings", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCompletedUnpaid(ctx context.Context, in *ListBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	out := new(ListBookingsResponse)
	if err := c.invoke(ctx, "ListCompletedUnpaid", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InitiatePayment(ctx context.Context, in *InitiatePaymentRequest, opts ...grpc.CallOption) (*InitiatePaymentResponse, error) {
	out := new(InitiatePaymentResponse)
	if err := c.invoke(ctx, "InitiatePayment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ConfirmPayment(ctx context.Context, in *ConfirmPaymentRequest, opts ...grpc.CallOption) (*Payment, error) {
	out := new(Payment)
	if err := c.invoke(ctx, "ConfirmPayment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProviderEarnings(ctx context.Context, in *GetProviderEarningsRequest, opts ...grpc.CallOption) (*ProviderEarnings, error) {
	out := new(ProviderEarnings)
	if err := c.invoke(ctx, "GetProviderEarnings", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProviderDashboard(ctx context.Context, in *GetProviderDashboardRequest, opts ...grpc.CallOption) (*ProviderDashboard, error) {
	out := new(ProviderDashboard)
	if err := c.invoke(ctx, "GetProviderDashboard", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
