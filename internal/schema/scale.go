package schema

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// Price is a scaled integer. The scale is defined per symbol.
type Price int64

// Quantity is a scaled integer. The scale is defined per symbol.
type Quantity int64

// Scale is the number of decimal places used by a scaled integer.
// Example: Scale=2 means the integer value counts cents.
type Scale int32

const maxScale Scale = 12

// Validate checks the scale is usable for int64 arithmetic.
func (s Scale) Validate() error {
	if s < 0 || s > maxScale {
		return errors.Errorf("scale out of range: %d", s)
	}
	return nil
}

// ParsePrice converts a decimal string into ticks of the given scale.
// Values with more precision than the scale are rounded half away from zero.
func ParsePrice(s string, scale Scale) (Price, error) {
	v, err := parseScaled(s, scale)
	return Price(v), err
}

// ParseQuantity converts a decimal string into lots of the given scale.
func ParseQuantity(s string, scale Scale) (Quantity, error) {
	v, err := parseScaled(s, scale)
	return Quantity(v), err
}

// PriceFromFloat converts a float into ticks of the given scale.
func PriceFromFloat(f float64, scale Scale) Price {
	return Price(decimal.NewFromFloat(f).Shift(int32(scale)).Round(0).IntPart())
}

// Decimal returns the price as a decimal in display units.
func (p Price) Decimal(scale Scale) decimal.Decimal {
	return decimal.New(int64(p), -int32(scale))
}

// Float returns the price in display units.
func (p Price) Float(scale Scale) float64 {
	f, _ := p.Decimal(scale).Float64()
	return f
}

// Decimal returns the quantity as a decimal in display units.
func (q Quantity) Decimal(scale Scale) decimal.Decimal {
	return decimal.New(int64(q), -int32(scale))
}

// Float returns the quantity in display units.
func (q Quantity) Float(scale Scale) float64 {
	f, _ := q.Decimal(scale).Float64()
	return f
}

func parseScaled(s string, scale Scale) (int64, error) {
	if err := scale.Validate(); err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrap(err, "parse decimal")
	}
	shifted := d.Shift(int32(scale)).Round(0)
	if !shifted.IsInteger() {
		return 0, errors.Errorf("value %s not representable at scale %d", s, scale)
	}
	return shifted.IntPart(), nil
}
