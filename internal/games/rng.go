package games

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// RNGDivisor is 2^32: a draw is the 32-bit digest prefix divided by it,
// never by 2^32-1, so a draw is always below 1.
const RNGDivisor = uint64(1) << 32

var (
	pow5to32 = new(big.Int).Exp(big.NewInt(5), big.NewInt(32), nil)
	spanDec  = decimal.NewFromInt(int64(RNGDivisor))
	one      = decimal.NewFromInt(1)
)

// RNG is one fairness-derived draw in [0,1), held as the raw prefix so
// every game can compare against it exactly.
type RNG struct {
	Prefix uint32
}

// Decimal returns Prefix / 2^32 exactly (32 fractional digits).
func (r RNG) Decimal() decimal.Decimal {
	n := new(big.Int).Mul(new(big.Int).SetUint64(uint64(r.Prefix)), pow5to32)

	return decimal.NewFromBigInt(n, -32)
}

func (r RNG) String() string {
	return r.Decimal().String()
}

// RNGFromDecimal returns the largest draw that does not exceed v.
func RNGFromDecimal(v decimal.Decimal) (RNG, error) {
	if v.IsNegative() || !v.LessThan(one) {
		return RNG{}, fmt.Errorf("rng %s outside [0,1)", v)
	}

	return RNG{Prefix: uint32(v.Mul(spanDec).Floor().IntPart())}, nil
}

func frac(d decimal.Decimal) decimal.Decimal {
	return d.Sub(d.Floor())
}
