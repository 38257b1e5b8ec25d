package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in minor currency units (paise).
// The store API sends decimals as strings ("1200.00"); some fields arrive as bare numbers.
type Money int64

// Rupees builds a Money value from whole rupees.
func Rupees(r int64) Money {
	return Money(r * 100)
}

// ParseMoney converts a decimal rupee amount to paise.
// Examples: "99.00" → 9900, "1234.56" → 123456, "100" → 10000.
// Malformed, non-finite and out-of-range input is an error.
func ParseMoney(s string) (Money, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return fromRupees(f)
}

func fromRupees(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid amount %v", f)
	}
	paise := math.Round(f * 100)
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if paise >= math.MaxInt64 || paise < math.MinInt64 {
		return 0, fmt.Errorf("amount %v out of range", f)
	}
	return Money(paise), nil
}

// String renders the amount with two decimals, e.g. 120000 → "1200.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// UnmarshalJSON accepts "1200.00", 1200.00, 1200 and null. An empty string is
// zero; anything else that is not a finite amount is an error.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		v, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid money value %s: %w", data, err)
	}
	v, err := fromRupees(f)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalJSON writes the decimal string form the API uses.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}
