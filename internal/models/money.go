package models

import (
	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units.
type Money int64

var hundred = decimal.NewFromInt(100)

// PercentHalfUp returns m × pct / 100 rounded HALF_UP to the minor unit.
func (m Money) PercentHalfUp(pct decimal.Decimal) Money {
	v := decimal.NewFromInt(int64(m)).Mul(pct).Div(hundred).Round(0)
	return Money(v.IntPart())
}

// PercentFloor returns m × pct / 100 truncated toward negative infinity.
func (m Money) PercentFloor(pct decimal.Decimal) Money {
	v := decimal.NewFromInt(int64(m)).Mul(pct).Div(hundred).Floor()
	return Money(v.IntPart())
}

// CeilDiv divides m into n parts rounding up.
func (m Money) CeilDiv(n int) Money {
	d := Money(n)
	q := m / d
	if m%d != 0 && m > 0 {
		q++
	}
	return q
}

func MinMoney(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

func SumMoney(amounts []Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}
