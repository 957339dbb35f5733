package kafka

import "time"

const (
	EventBookingCreated    = "booking_created"
	EventBookingTransition = "booking_status_changed"
	EventPaymentInitiated  = "payment_initiated"
	EventPaymentConfirmed  = "payment_confirmed"
	EventPaymentFailed     = "payment_failed"
	EventPaymentExpired    = "payment_expired"
	EventBookingReconciled = "booking_reconciled"
)

type BookingEvent struct {
	Type          string    `json:"type"`
	BookingID     int64     `json:"booking_id"`
	ServiceID     int64     `json:"service_id"`
	BuyerID       int64     `json:"buyer_id"`
	ProviderID    int64     `json:"provider_id"`
	FromStatus    string    `json:"from_status,omitempty"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalPrice    int64     `json:"total_price"`
	ActorID       int64     `json:"actor_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type PaymentEvent struct {
	Type          string    `json:"type"`
	PaymentID     int64     `json:"payment_id"`
	BookingID     int64     `json:"booking_id"`
	Status        string    `json:"status"`
	Gross         int64     `json:"gross"`
	Commission    int64     `json:"commission"`
	PayeeAmount   int64     `json:"payee_amount"`
	Receipt       string    `json:"receipt,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notification is a message for one marketplace user, delivered by the worker.
type Notification struct {
	Type        string    `json:"type"`
	RecipientID int64     `json:"recipient_id"`
	BookingID   int64     `json:"booking_id"`
	PaymentID   int64     `json:"payment_id,omitempty"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e BookingEvent) EventType() string { return e.Type }

func (e PaymentEvent) EventType() string { return e.Type }

func (n Notification) EventType() string { return n.Type }
