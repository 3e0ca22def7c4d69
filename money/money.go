// Package money implements fixed-point arithmetic and formatting for the
// settlement token. Amounts are integers scaled by 10^6; floating point is
// never used.
package money

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chainmarket/storefront/types"
)

// Decimals is the implied decimal count of the settlement token.
const Decimals = 6

var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// ToDisplay formats a raw fixed-point amount as a human decimal string,
// stripping trailing zero fractional digits. A nil or zero value formats
// as "0".
func ToDisplay(raw *big.Int) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}
	n := new(big.Int).Abs(raw)
	whole, frac := new(big.Int).DivMod(n, scale, new(big.Int))

	var b strings.Builder
	if raw.Sign() < 0 {
		b.WriteByte('-')
	}
	b.WriteString(whole.String())

	if frac.Sign() != 0 {
		digits := frac.String()
		for len(digits) < Decimals {
			digits = "0" + digits
		}
		digits = strings.TrimRight(digits, "0")
		b.WriteByte('.')
		b.WriteString(digits)
	}
	return b.String()
}

// ToRaw parses a human decimal string into a raw fixed-point amount.
// Non-numeric, non-positive, or over-precise input is rejected with a
// validation error.
func ToRaw(display string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(display))
	if err != nil {
		return nil, types.ValidationError(types.ErrCodeInvalidAmount,
			"amount must be a decimal number")
	}
	if d.Sign() <= 0 {
		return nil, types.ValidationError(types.ErrCodeInvalidAmount,
			"amount must be greater than zero")
	}
	shifted := d.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, types.ValidationError(types.ErrCodeInvalidAmount,
			"amount has more than 6 decimal places")
	}
	return shifted.BigInt(), nil
}

// Mul returns price * qty in integer arithmetic.
func Mul(price *big.Int, qty uint64) *big.Int {
	return new(big.Int).Mul(price, new(big.Int).SetUint64(qty))
}
