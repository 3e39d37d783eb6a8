// Package currency converts between human decimal amounts and integer
// smallest units. Smallest units are carried as integer-valued
// decimal.Decimal values so that 18-decimal currencies never overflow.
package currency

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Code is an upper-case currency ticker.
type Code string

const (
	BTC  Code = "BTC"
	ETH  Code = "ETH"
	SOL  Code = "SOL"
	USDC Code = "USDC"
	USDT Code = "USDT"
)

var ErrInvalidAmount = errors.New("invalid amount")

// exponents is the number of fractional digits each currency supports.
var exponents = map[Code]int32{
	BTC:  8,
	ETH:  18,
	SOL:  9,
	USDC: 6,
	USDT: 6,
}

var amountRE = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Parse normalizes a ticker and checks that it is supported.
func Parse(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := exponents[c]; !ok {
		return "", fmt.Errorf("%w: unsupported currency %q", ErrInvalidAmount, s)
	}

	return c, nil
}

// Supported returns every supported currency in a stable order.
func Supported() []Code {
	out := make([]Code, 0, len(exponents))
	for c := range exponents {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Exponent returns the decimal exponent of c.
func Exponent(c Code) (int32, error) {
	exp, ok := exponents[c]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported currency %q", ErrInvalidAmount, c)
	}

	return exp, nil
}

// ToSmallestUnits parses a positive decimal string. Digits beyond the
// currency exponent are truncated, never rounded.
func ToSmallestUnits(amount string, c Code) (decimal.Decimal, error) {
	exp, err := Exponent(c)
	if err != nil {
		return decimal.Zero, err
	}

	amount = strings.TrimSpace(amount)
	if !amountRE.MatchString(amount) {
		return decimal.Zero, fmt.Errorf("%w: malformed %q", ErrInvalidAmount, amount)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	units := d.Shift(exp).Truncate(0)
	if !units.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}

	return units, nil
}

// FromSmallestUnits renders units with trailing fractional zeros removed.
func FromSmallestUnits(units decimal.Decimal, c Code) (string, error) {
	exp, err := Exponent(c)
	if err != nil {
		return "", err
	}

	return units.Truncate(0).Shift(-exp).String(), nil
}
