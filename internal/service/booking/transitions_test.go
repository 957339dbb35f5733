package booking

import (
	"errors"
	"testing"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []domain.BookingStatus{
	domain.BookingStatusPending,
	domain.BookingStatusConfirmed,
	domain.BookingStatusInProgress,
	domain.BookingStatusCompleted,
	domain.BookingStatusCancelled,
}

func TestCheckTransition_Grid(t *testing.T) {
	type edge struct {
		from, to domain.BookingStatus
	}
	allowed := map[edge][]domain.Role{
		{domain.BookingStatusPending, domain.BookingStatusConfirmed}:    {domain.RoleProvider},
		{domain.BookingStatusPending, domain.BookingStatusCancelled}:    {domain.RoleProvider, domain.RoleBuyer},
		{domain.BookingStatusConfirmed, domain.BookingStatusInProgress}: {domain.RoleProvider},
		{domain.BookingStatusConfirmed, domain.BookingStatusCancelled}:  {domain.RoleBuyer},
		{domain.BookingStatusInProgress, domain.BookingStatusCompleted}: {domain.RoleProvider},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			for _, role := range []domain.Role{domain.RoleBuyer, domain.RoleProvider} {
				b := &domain.Booking{ID: 1, Status: from, PaymentStatus: domain.PaymentStatusUnpaid}
				_, err := CheckTransition(b, role, to)

				roles, inTable := allowed[edge{from, to}]
				switch {
				case !inTable:
					assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "%s -> %s by %s", from, to, role)
				case containsRole(roles, role):
					assert.NoError(t, err, "%s -> %s by %s", from, to, role)
				default:
					assert.True(t, errors.Is(err, domain.ErrForbidden), "%s -> %s by %s", from, to, role)
				}
			}
		}
	}
}

func TestCheckTransition_BuyerCancelRequiresUnpaid(t *testing.T) {
	b := &domain.Booking{ID: 1, Status: domain.BookingStatusConfirmed, PaymentStatus: domain.PaymentStatusUnpaid}

	rule, err := CheckTransition(b, domain.RoleBuyer, domain.BookingStatusCancelled)
	assert.NoError(t, err)
	assert.True(t, rule.RequireUnpaid)

	b.PaymentStatus = domain.PaymentStatusPaid
	_, err = CheckTransition(b, domain.RoleBuyer, domain.BookingStatusCancelled)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestCheckTransition_TerminalStatesHaveNoEdges(t *testing.T) {
	for _, from := range []domain.BookingStatus{domain.BookingStatusCompleted, domain.BookingStatusCancelled} {
		assert.Empty(t, transitions[from])
	}
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
