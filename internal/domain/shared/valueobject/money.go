package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a value object representing a monetary amount.
// The system operates in a single implicit currency, so Money wraps
// only the decimal amount. It is immutable - all operations return
// new Money instances.
type Money struct {
	amount decimal.Decimal
}

// NewMoney wraps a decimal amount.
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

func NewMoneyFromFloat(amount float64) Money {
	return Money{amount: decimal.NewFromFloat(amount)}
}

// NewMoneyFromString parses a decimal string into Money.
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return Money{amount: d}, nil
}

func Zero() Money {
	return Money{amount: decimal.Zero}
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

func (m Money) Subtract(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor)}
}

func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg()}
}

// Round returns a new Money rounded to the specified decimal places
// using half-away-from-zero rounding.
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places)}
}

func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

func (m Money) LessThanOrEqual(other Money) bool {
	return m.amount.LessThanOrEqual(other.amount)
}

func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// String renders the amount with two decimal places.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

// CalculatePercentage returns percent per hundred of the amount, useful
// for late fee surcharges.
func (m Money) CalculatePercentage(percent decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(percent).Div(decimal.NewFromInt(100))}
}

// MarshalJSON encodes the amount as a JSON string to avoid float
// precision loss in API payloads.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.String())
}

// UnmarshalJSON implements json.Unmarshaler. Accepts either a JSON
// string ("12.34") or a bare number (12.34).
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var d decimal.Decimal
		if derr := json.Unmarshal(data, &d); derr != nil {
			return fmt.Errorf("invalid money value: %w", derr)
		}
		m.amount = d
		return nil
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	return nil
}

// Value stores the amount as its decimal string form.
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan accepts the numeric representations Postgres and SQLite produce
// for decimal columns.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	case float64:
		m.amount = decimal.NewFromFloat(v)
		return nil
	case int64:
		m.amount = decimal.NewFromInt(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = amount
	return nil
}
