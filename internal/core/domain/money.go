package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in minor units (cents). R18.50 is stored as 1850.
// Integer arithmetic keeps wallet balances exact; floats only appear at
// the JSON boundary.
type Money int64

// MoneyFromFloat converts a decimal amount (rands) to Money, rounding
// half away from zero to the nearest cent.
func MoneyFromFloat(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Float64 returns the amount in rands.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// String formats the amount with two decimals, e.g. "18.50".
func (m Money) String() string {
	return strconv.FormatFloat(m.Float64(), 'f', 2, 64)
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number (decimal rands).
func (m *Money) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = MoneyFromFloat(v)
	return nil
}
