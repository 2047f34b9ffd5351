// Package amount holds the unsigned 128-bit quantity used for every balance,
// position and percentage in the custody core.
package amount

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Bits is the width every Amount is held to.
const Bits = 128

var (
	ErrInvalid        = errors.New("invalid amount")
	ErrOverflow       = errors.New("amount exceeds 128 bits")
	ErrDivisionByZero = errors.New("division by zero")
)

// Amount is an unsigned integer in minor units, bounded to 128 bits.
// The zero value is 0 and values are comparable, so an Amount can be used
// inside map keys.
type Amount struct {
	v uint256.Int
}

var Zero Amount

func New(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Parse reads a base-10 string.
func Parse(s string) (Amount, error) {
	var a Amount
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalid)
	}
	if err := a.v.SetFromDecimal(s); err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if a.v.BitLen() > Bits {
		return Zero, fmt.Errorf("%w: %s", ErrOverflow, s)
	}
	return a, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func FromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Zero, nil
	}
	if b.Sign() < 0 {
		return Zero, fmt.Errorf("%w: negative value %s", ErrInvalid, b.String())
	}
	if b.BitLen() > Bits {
		return Zero, fmt.Errorf("%w: %s", ErrOverflow, b.String())
	}
	v, _ := uint256.FromBig(b)
	return Amount{v: *v}, nil
}

// FromHuman converts a decimal quantity into minor units.
func FromHuman(d decimal.Decimal, decimals int32) (Amount, error) {
	if d.IsNegative() {
		return Zero, fmt.Errorf("%w: negative value %s", ErrInvalid, d.String())
	}
	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Zero, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalid, d.String(), decimals)
	}
	return FromBig(shifted.BigInt())
}

func (a Amount) Add(b Amount) (Amount, error) {
	var r Amount
	r.v.Add(&a.v, &b.v)
	if r.v.BitLen() > Bits {
		return Zero, fmt.Errorf("%w: %s + %s", ErrOverflow, a.String(), b.String())
	}
	return r, nil
}

// Sub returns a-b and false when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, bool) {
	if a.v.Lt(&b.v) {
		return Zero, false
	}
	var r Amount
	r.v.Sub(&a.v, &b.v)
	return r, true
}

// AbsDiff returns |a-b|.
func (a Amount) AbsDiff(b Amount) Amount {
	if d, ok := a.Sub(b); ok {
		return d
	}
	d, _ := b.Sub(a)
	return d
}

// MulDiv returns floor(a*mul/div). The product is held in 256 bits, so only
// the quotient is bounded to 128 bits.
func (a Amount) MulDiv(mul uint64, div Amount) (Amount, error) {
	if div.IsZero() {
		return Zero, ErrDivisionByZero
	}
	var r Amount
	r.v.Mul(&a.v, uint256.NewInt(mul))
	r.v.Div(&r.v, &div.v)
	if r.v.BitLen() > Bits {
		return Zero, fmt.Errorf("%w: %s * %d / %s", ErrOverflow, a.String(), mul, div.String())
	}
	return r, nil
}

func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

// Human renders the amount in whole units for the given precision.
func (a Amount) Human(decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(a.v.ToBig(), -decimals)
}

func (a Amount) String() string {
	return a.v.Dec()
}

// MarshalJSON writes the amount as a quoted decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalid)
	}
	s := string(bytes.Trim(data, `"`))
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
