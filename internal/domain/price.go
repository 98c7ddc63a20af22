package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a non-negative decimal amount. It is persisted as a bare JSON number with
// at least two decimals, so 1.50 reloads as 1.50.
type Price struct {
	decimal.Decimal
}

func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: withCents(d)}
}

// ParsePrice parses a user supplied amount such as "10.50".
func ParsePrice(raw string) (Price, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Price{}, fmt.Errorf("price is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Price{}, fmt.Errorf("price %q is not a number", raw)
	}
	if d.IsNegative() {
		return Price{}, fmt.Errorf("price %q is negative", raw)
	}
	return Price{Decimal: withCents(d)}, nil
}

// Format renders the amount with exactly two decimals.
func (p Price) Format() string {
	return p.StringFixed(2)
}

func (p Price) MarshalJSON() ([]byte, error) {
	places := int32(2)
	if -p.Exponent() > places {
		places = -p.Exponent()
	}
	return []byte(p.StringFixed(places)), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	if err := p.Decimal.UnmarshalJSON(data); err != nil {
		return err
	}
	p.Decimal = withCents(p.Decimal)
	return nil
}

func (p Price) MarshalYAML() (interface{}, error) {
	return p.InexactFloat64(), nil
}

// withCents widens the scale to two decimals. Amounts with more decimals are kept as is.
func withCents(d decimal.Decimal) decimal.Decimal {
	if d.Exponent() >= -2 {
		return decimal.RequireFromString(d.StringFixed(2))
	}
	return d
}
