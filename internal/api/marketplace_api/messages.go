package marketplace_api

type Booking struct {
	ID            int64  `json:"id"`
	ServiceID     int64  `json:"service_id"`
	ServiceTitle  string `json:"service_title"`
	BuyerID       int64  `json:"buyer_id"`
	BuyerName     string `json:"buyer_name,omitempty"`
	ProviderID    int64  `json:"provider_id"`
	BookingDate   string `json:"booking_date"`
	Duration      string `json:"duration"`
	Location      string `json:"location"`
	Notes         string `json:"notes,omitempty"`
	TotalPrice    int64  `json:"total_price"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Version       int64  `json:"version"`
}

type CreateBookingRequest struct {
	ServiceID   int64  `json:"service_id"`
	BookingDate string `json:"booking_date"`
	Duration    string `json:"duration,omitempty"`
	Location    string `json:"location"`
	Notes       string `json:"notes,omitempty"`
}

type TransitionBookingRequest struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
}

type ListBookingsRequest struct{}

type ListBookingsResponse struct {
	Bookings []Booking `json:"bookings"`
}

type InitiatePaymentRequest struct {
	BookingID   int64  `json:"booking_id"`
	PhoneNumber string `json:"phone_number"`
}

type InitiatePaymentResponse struct {
	PaymentID   int64  `json:"payment_id"`
	BookingID   int64  `json:"booking_id"`
	Amount      int64  `json:"amount"`
	Commission  int64  `json:"commission"`
	PayeeAmount int64  `json:"payee_amount"`
	Status      string `json:"status"`
}

type ConfirmPaymentRequest struct {
	PaymentID int64  `json:"payment_id"`
	Receipt   string `json:"receipt"`
}

type Payment struct {
	ID            int64  `json:"id"`
	BookingID     int64  `json:"booking_id"`
	Amount        int64  `json:"amount"`
	Commission    int64  `json:"commission"`
	PayeeAmount   int64  `json:"payee_amount"`
	Receipt       string `json:"receipt,omitempty"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type GetProviderEarningsRequest struct {
	ProviderID int64 `json:"provider_id"`
}

type EarningsEntry struct {
	PaymentID    int64  `json:"payment_id"`
	BookingID    int64  `json:"booking_id"`
	ServiceTitle string `json:"service_title"`
	Amount       int64  `json:"amount"`
	Receipt      string `json:"receipt"`
	Date         string `json:"date"`
}

type ProviderEarnings struct {
	ProviderID      int64           `json:"provider_id"`
	TotalEarnings   int64           `json:"total_earnings"`
	TotalCommission int64           `json:"total_commission"`
	PaymentCount    int             `json:"payment_count"`
	RecentPayments  []EarningsEntry `json:"recent_payments"`
}

type GetProviderDashboardRequest struct {
	ProviderID int64 `json:"provider_id"`
}

type ProviderDashboard struct {
	ProviderID     int64          `json:"provider_id"`
	TotalBookings  int            `json:"total_bookings"`
	ByStatus       map[string]int `json:"by_status"`
	CompletedValue int64          `json:"completed_value"`
	RecentBookings []Booking      `json:"recent_bookings"`
}
