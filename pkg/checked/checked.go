// Package checked provides overflow-checked integer and decimal arithmetic
// for monetary quantities. Every operation returns ErrMathOverflow instead of
// wrapping around; 128-bit intermediates are carried as big.Int and narrowed
// back to uint64 only through AsU64.
package checked

import (
	"math"
	"math/big"
	"math/bits"

	"github.com/uhyunpark/launchpad/pkg/errcode"
)

var (
	maxU64  = new(big.Int).SetUint64(math.MaxUint64)
	maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// Add returns a+b or ErrMathOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errcode.ErrMathOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrMathOverflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, errcode.ErrMathOverflow
	}
	return diff, nil
}

// Mul returns a*b or ErrMathOverflow.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, errcode.ErrMathOverflow
	}
	return lo, nil
}

// Div returns a/b; division by zero reports ErrMathOverflow.
func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, errcode.ErrMathOverflow
	}
	return a / b, nil
}

// CeilDiv returns ceil(a/b), computed as (a-1)/b+1 so that no intermediate
// sum is formed and no input can overflow.
func CeilDiv(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, errcode.ErrMathOverflow
	}
	if a == 0 {
		return 0, nil
	}
	// (a + b - 1) / b without overflowing the sum
	return (a-1)/b + 1, nil
}

// AddInt returns a+b on int64 or ErrMathOverflow.
func AddInt(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, errcode.ErrMathOverflow
	}
	return sum, nil
}

// SubInt returns a-b on int64 or ErrMathOverflow.
func SubInt(a, b int64) (int64, error) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, errcode.ErrMathOverflow
	}
	return diff, nil
}

// U128 lifts a uint64 into a 128-bit-capable big.Int.
func U128(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// AddU128 returns a+b constrained to 128 bits.
func AddU128(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(maxU128) > 0 {
		return nil, errcode.ErrMathOverflow
	}
	return sum, nil
}

// MulU128 returns a*b constrained to 128 bits.
func MulU128(a, b *big.Int) (*big.Int, error) {
	prod := new(big.Int).Mul(a, b)
	if prod.Cmp(maxU128) > 0 {
		return nil, errcode.ErrMathOverflow
	}
	return prod, nil
}

// DivU128 returns a/b; division by zero reports ErrMathOverflow.
func DivU128(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, errcode.ErrMathOverflow
	}
	return new(big.Int).Quo(a, b), nil
}

// CeilDivU128 returns ceil(a/b) on 128-bit values.
func CeilDivU128(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, errcode.ErrMathOverflow
	}
	if a.Sign() == 0 {
		return new(big.Int), nil
	}
	res := new(big.Int).Sub(a, big.NewInt(1))
	res.Quo(res, b)
	return res.Add(res, big.NewInt(1)), nil
}

// AsU64 narrows a 128-bit value to uint64 or reports ErrMathOverflow.
func AsU64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || v.Cmp(maxU64) > 0 {
		return 0, errcode.ErrMathOverflow
	}
	return v.Uint64(), nil
}

// FloatMul returns a*b, rejecting NaN and infinities.
func FloatMul(a, b float64) (float64, error) {
	res := a * b
	if math.IsNaN(res) || math.IsInf(res, 0) {
		return 0, errcode.ErrMathOverflow
	}
	return res, nil
}

// FloatDiv returns a/b, rejecting NaN, infinities and division by zero.
func FloatDiv(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errcode.ErrMathOverflow
	}
	res := a / b
	if math.IsNaN(res) || math.IsInf(res, 0) {
		return 0, errcode.ErrMathOverflow
	}
	return res, nil
}

// U128FromFloat truncates a non-negative float into a 128-bit integer.
func U128FromFloat(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil, errcode.ErrMathOverflow
	}
	res, _ := new(big.Float).SetFloat64(f).Int(nil)
	if res.Cmp(maxU128) > 0 {
		return nil, errcode.ErrMathOverflow
	}
	return res, nil
}

// pow10 computes 10^exp for every exponent whose power fits 128 bits.
func pow10(exp uint32) (*big.Int, error) {
	if exp > 38 {
		return nil, errcode.ErrMathOverflow
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil), nil
}

// DecimalCeilMul computes round_up(a*10^expA * b*10^expB / 10^expOut) with
// 128-bit intermediates, used for cross-decimal asset pricing.
func DecimalCeilMul(a uint64, expA int32, b uint64, expB int32, expOut int32) (uint64, error) {
	prod, err := MulU128(U128(a), U128(b))
	if err != nil {
		return 0, err
	}
	shift := int64(expA) + int64(expB) - int64(expOut)
	if shift >= 0 {
		scale, err := pow10(uint32(shift))
		if err != nil {
			return 0, err
		}
		scaled, err := MulU128(prod, scale)
		if err != nil {
			return 0, err
		}
		return AsU64(scaled)
	}
	scale, err := pow10(uint32(-shift))
	if err != nil {
		return 0, err
	}
	scaled, err := CeilDivU128(prod, scale)
	if err != nil {
		return 0, err
	}
	return AsU64(scaled)
}

// DecimalMul is the floor-rounded sibling of DecimalCeilMul.
func DecimalMul(a uint64, expA int32, b uint64, expB int32, expOut int32) (uint64, error) {
	prod, err := MulU128(U128(a), U128(b))
	if err != nil {
		return 0, err
	}
	shift := int64(expA) + int64(expB) - int64(expOut)
	if shift >= 0 {
		scale, err := pow10(uint32(shift))
		if err != nil {
			return 0, err
		}
		scaled, err := MulU128(prod, scale)
		if err != nil {
			return 0, err
		}
		return AsU64(scaled)
	}
	scale, err := pow10(uint32(-shift))
	if err != nil {
		return 0, err
	}
	scaled, err := DivU128(prod, scale)
	if err != nil {
		return 0, err
	}
	return AsU64(scaled)
}
