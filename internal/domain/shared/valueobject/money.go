package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
)

// DefaultCurrency is used when an agreement or order does not name one
const DefaultCurrency = EUR

// MoneyScale is the number of places amounts are stored and shown with.
const MoneyScale int32 = 2

// ParseCurrency upper-cases and checks a three-letter code.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", shared.NewValidationError(shared.CodeInvalidInput, fmt.Sprintf("invalid currency code %q", code))
	}
	return Currency(code), nil
}

// Money is an exact amount in one currency. Values are immutable.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney pairs amount with currency, which must be set.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, shared.NewValidationError(shared.CodeInvalidInput, "currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses a plain decimal string such as "1250.00".
// Locale forms like "1 250,00" are rejected.
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, shared.NewValidationError(shared.CodeInvalidInput, fmt.Sprintf("invalid amount %q", amount))
	}
	return NewMoney(d, currency)
}

// Zero is nothing in currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub subtracts other, which must share the currency.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Share returns fraction of m (0.04 for 4%) rounded half up to cents.
func (m Money) Share(fraction decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(fraction).Round(MoneyScale), currency: m.currency}
}

// Cents rounds half up to MoneyScale.
func (m Money) Cents() Money {
	return Money{amount: m.amount.Round(MoneyScale), currency: m.currency}
}

// Equals compares currency and numeric value; 1.5 equals 1.50.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency == other.currency {
		return nil
	}
	return shared.NewValidationError(shared.CodeInvalidInput,
		fmt.Sprintf("currency mismatch: %s and %s", m.currency, other.currency))
}

// String renders "50.00 EUR".
func (m Money) String() string {
	return m.StringFixed(MoneyScale) + " " + string(m.currency)
}

// StringFixed renders the amount alone with places decimals.
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON writes {"amount":"50.00","currency":"EUR"}. Amounts are
// strings so no consumer parses them as binary floats.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(MoneyScale), Currency: m.currency})
}

// UnmarshalJSON accepts only the string form written by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
