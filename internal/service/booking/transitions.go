package booking

import "github.com/Domenick1991/servicehub/internal/domain"

// Rule is one edge of the booking state machine.
type Rule struct {
	Roles []domain.Role
	// RequireUnpaid holds the edge closed once the booking is paid.
	RequireUnpaid bool
}

func (r Rule) allows(role domain.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var transitions = map[domain.BookingStatus]map[domain.BookingStatus]Rule{
	domain.BookingStatusPending: {
		domain.BookingStatusConfirmed: {Roles: []domain.Role{domain.RoleProvider}},
		domain.BookingStatusCancelled: {Roles: []domain.Role{domain.RoleProvider, domain.RoleBuyer}},
	},
	domain.BookingStatusConfirmed: {
		domain.BookingStatusInProgress: {Roles: []domain.Role{domain.RoleProvider}},
		domain.BookingStatusCancelled:  {Roles: []domain.Role{domain.RoleBuyer}, RequireUnpaid: true},
	},
	domain.BookingStatusInProgress: {
		domain.BookingStatusCompleted: {Roles: []domain.Role{domain.RoleProvider}},
	},
}

// CheckTransition returns the rule that lets role move b to target. An edge
// missing from the table or a failed guard is InvalidTransition; an existing
// edge taken by the wrong role is Forbidden.
func CheckTransition(b *domain.Booking, role domain.Role, target domain.BookingStatus) (Rule, error) {
	rule, ok := transitions[b.Status][target]
	if !ok {
		return Rule{}, domain.Errorf(domain.KindInvalidTransition, "cannot move booking %d from %s to %s", b.ID, b.Status, target)
	}
	if !rule.allows(role) {
		return Rule{}, domain.Errorf(domain.KindForbidden, "a %s cannot move booking %d from %s to %s", role, b.ID, b.Status, target)
	}
	if rule.RequireUnpaid && b.PaymentStatus != domain.PaymentStatusUnpaid {
		return Rule{}, domain.Errorf(domain.KindInvalidTransition, "booking %d is already paid", b.ID)
	}
	return rule, nil
}
