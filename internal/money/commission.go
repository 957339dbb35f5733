// Package money holds the fixed-point arithmetic used for booking totals and
// settlement splits. Amounts are int64 minor units; rates and quantities are
// decimals so no binary floating point ever touches a price.
package money

import (
	"math"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	one      = decimal.NewFromInt(1)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// Split divides gross into the platform commission and the payee share.
// The commission is rounded half away from zero and the payee share is the
// remainder, so commission+payee == gross for every input.
func Split(gross int64, rate decimal.Decimal) (commission, payee int64, err error) {
	if gross < 0 {
		return 0, 0, domain.Errorf(domain.KindInvalidAmount, "gross amount must not be negative")
	}
	if err := checkRate(rate); err != nil {
		return 0, 0, err
	}

	commission = decimal.NewFromInt(gross).Mul(rate).Round(0).IntPart()
	payee = gross - commission
	return commission, payee, nil
}

// Total returns unitPrice × quantity rounded to whole minor units. Products
// that do not fit in int64 are rejected.
func Total(unitPrice int64, quantity decimal.Decimal) (int64, error) {
	if unitPrice < 0 {
		return 0, domain.Errorf(domain.KindInvalidAmount, "unit price must not be negative")
	}
	if !quantity.IsPositive() {
		return 0, domain.Errorf(domain.KindInvalidAmount, "duration must be positive")
	}
	total := decimal.NewFromInt(unitPrice).Mul(quantity).Round(0)
	if total.GreaterThan(maxMinor) {
		return 0, domain.Errorf(domain.KindInvalidAmount, "total %s exceeds the largest supported amount", total.String())
	}
	return total.IntPart(), nil
}

// ParseRate parses a commission rate such as "0.10".
func ParseRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.Errorf(domain.KindInvalidAmount, "invalid commission rate %q", s)
	}
	if err := checkRate(rate); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

func checkRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(one) {
		return domain.Errorf(domain.KindInvalidAmount, "commission rate %s outside [0,1)", rate.String())
	}
	return nil
}
