package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// Booking is a scheduled purchase of a provider's service by a buyer.
// TotalPrice is in minor units and never changes after creation.
// BuyerName is not stored; provider-side reads fill it from the directory.
type Booking struct {
	ID            int64
	ServiceID     int64
	ServiceTitle  string
	BuyerID       int64
	BuyerName     string
	ProviderID    int64
	BookingDate   time.Time
	Duration      decimal.Decimal
	Location      string
	Notes         string
	TotalPrice    int64
	Status        BookingStatus
	PaymentStatus PaymentStatus
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// Payable reports whether a settlement may be started for the booking.
func (b *Booking) Payable() bool {
	return b.Status == BookingStatusCompleted && b.PaymentStatus == PaymentStatusUnpaid
}
