package api

import (
	"time"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/service/booking"
)

type bookingResponse struct {
	ID            int64  `json:"id"`
	ServiceID     int64  `json:"service_id"`
	ServiceTitle  string `json:"service_title"`
	BuyerID       int64  `json:"buyer_id"`
	BuyerName     string `json:"buyer_name,omitempty"`
	ProviderID    int64  `json:"provider_id"`
	BookingDate   string `json:"booking_date"`
	Duration      string `json:"duration"`
	Location      string `json:"location"`
	Notes         string `json:"notes"`
	TotalPrice    int64  `json:"total_price"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Version       int64  `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type dashboardResponse struct {
	ProviderID     int64             `json:"provider_id"`
	TotalBookings  int               `json:"total_bookings"`
	ByStatus       map[string]int    `json:"by_status"`
	CompletedValue int64             `json:"completed_value"`
	RecentBookings []bookingResponse `json:"recent_bookings"`
}

type paymentResponse struct {
	ID            int64   `json:"id"`
	BookingID     int64   `json:"booking_id"`
	PhoneNumber   string  `json:"phone_number"`
	Amount        int64   `json:"amount"`
	Commission    int64   `json:"commission"`
	PayeeAmount   int64   `json:"payee_amount"`
	Receipt       string  `json:"receipt,omitempty"`
	Status        string  `json:"status"`
	FailureReason string  `json:"failure_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
	ConfirmedAt   *string `json:"confirmed_at,omitempty"`
}

type earningsEntryResponse struct {
	PaymentID    int64  `json:"payment_id"`
	BookingID    int64  `json:"booking_id"`
	ServiceTitle string `json:"service_title"`
	Amount       int64  `json:"amount"`
	Receipt      string `json:"receipt"`
	Date         string `json:"date"`
}

type earningsResponse struct {
	ProviderID      int64                   `json:"provider_id"`
	TotalEarnings   int64                   `json:"total_earnings"`
	TotalCommission int64                   `json:"total_commission"`
	PaymentCount    int                     `json:"payment_count"`
	RecentPayments  []earningsEntryResponse `json:"recent_payments"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
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
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	return out
}

func toDashboardResponse(d *booking.Dashboard) dashboardResponse {
	byStatus := make(map[string]int, len(d.ByStatus))
	for status, n := range d.ByStatus {
		byStatus[string(status)] = n
	}
	return dashboardResponse{
		ProviderID:     d.ProviderID,
		TotalBookings:  d.TotalBookings,
		ByStatus:       byStatus,
		CompletedValue: d.CompletedValue,
		RecentBookings: toBookingResponses(d.Recent),
	}
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	resp := paymentResponse{
		ID:            p.ID,
		BookingID:     p.BookingID,
		PhoneNumber:   p.PayerHandle,
		Amount:        p.Gross,
		Commission:    p.Commission,
		PayeeAmount:   p.PayeeAmount,
		Receipt:       p.Receipt,
		Status:        string(p.Status),
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.ConfirmedAt != nil {
		at := p.ConfirmedAt.Format(time.RFC3339)
		resp.ConfirmedAt = &at
	}
	return resp
}

func toEarningsResponse(e *domain.ProviderEarnings) earningsResponse {
	recent := make([]earningsEntryResponse, 0, len(e.RecentPayments))
	for _, entry := range e.RecentPayments {
		recent = append(recent, earningsEntryResponse{
			PaymentID:    entry.PaymentID,
			BookingID:    entry.BookingID,
			ServiceTitle: entry.ServiceTitle,
			Amount:       entry.Amount,
			Receipt:      entry.Receipt,
			Date:         entry.Date.Format(time.RFC3339),
		})
	}
	return earningsResponse{
		ProviderID:      e.ProviderID,
		TotalEarnings:   e.TotalEarnings,
		TotalCommission: e.TotalCommission,
		PaymentCount:    e.PaymentCount,
		RecentPayments:  recent,
	}
}
