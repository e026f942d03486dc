package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func MoneyFromMinor(minor int64, unit currency.Unit) Money {
	return Money{
		Amount:   decimal.New(minor, -int32(minorScale(unit))),
		Currency: unit,
	}
}

// MinorUnits converts the amount into integer minor units (paise, cents).
// Amounts with more precision than the currency allows are rejected.
func (m Money) MinorUnits() (int64, error) {
	shifted := m.Amount.Shift(int32(minorScale(m.Currency)))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more precision than %s allows", m.Amount, m.Currency)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s %s overflows minor units", m.Amount, m.Currency)
	}

	return shifted.IntPart(), nil
}

func (m Money) Mul(quantity int64) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(quantity)),
		Currency: m.Currency,
	}
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s and %s", m.Currency, other.Currency)
	}

	return Money{
		Amount:   m.Amount.Add(other.Amount),
		Currency: m.Currency,
	}, nil
}

// FixedString renders the amount with exactly the currency's minor digits.
func (m Money) FixedString() string {
	return m.Amount.StringFixed(int32(minorScale(m.Currency)))
}

func (m Money) String() string {
	return m.FixedString() + " " + m.Currency.String()
}

func minorScale(unit currency.Unit) int {
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}
