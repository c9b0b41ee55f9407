package checked

import (
	"errors"
	"math"
	"testing"

	"github.com/uhyunpark/launchpad/pkg/errcode"
)

func TestAddSubMul(t *testing.T) {
	if v, err := Add(2, 3); err != nil || v != 5 {
		t.Fatalf("Add(2,3) = %d, %v", v, err)
	}
	if _, err := Add(math.MaxUint64, 1); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("Add overflow not detected: %v", err)
	}
	if _, err := Sub(2, 3); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("Sub underflow not detected")
	}
	if v, err := Mul(1<<32, 1<<31); err != nil || v != 1<<63 {
		t.Fatalf("Mul = %d, %v", v, err)
	}
	if _, err := Mul(1<<32, 1<<32); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("Mul overflow not detected")
	}
}

func TestDivAndCeilDiv(t *testing.T) {
	if _, err := Div(1, 0); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("Div by zero not detected")
	}
	tests := []struct {
		a, b, want uint64
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{math.MaxUint64, 1, math.MaxUint64},
		{math.MaxUint64, 20, math.MaxUint64/20 + 1},
	}
	for _, tt := range tests {
		got, err := CeilDiv(tt.a, tt.b)
		if err != nil || got != tt.want {
			t.Errorf("CeilDiv(%d,%d) = %d, %v; want %d", tt.a, tt.b, got, err, tt.want)
		}
	}
}

func TestAddSubInt(t *testing.T) {
	if v, err := AddInt(100, 10); err != nil || v != 110 {
		t.Fatalf("AddInt = %d, %v", v, err)
	}
	if _, err := AddInt(math.MaxInt64, 1); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("AddInt overflow not detected")
	}
	if v, err := SubInt(400, 360); err != nil || v != 40 {
		t.Fatalf("SubInt = %d, %v", v, err)
	}
	if _, err := SubInt(math.MinInt64, 1); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("SubInt overflow not detected")
	}
}

func TestU128Ops(t *testing.T) {
	prod, err := MulU128(U128(math.MaxUint64), U128(math.MaxUint64))
	if err != nil {
		t.Fatalf("MulU128 within 128 bits failed: %v", err)
	}
	if _, err := MulU128(prod, U128(3)); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("MulU128 overflow not detected")
	}
	if _, err := AsU64(prod); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("AsU64 should reject values above u64 range")
	}
	q, err := DivU128(U128(1000), U128(3))
	if err != nil || q.Uint64() != 333 {
		t.Fatalf("DivU128 = %v, %v", q, err)
	}
	c, err := CeilDivU128(U128(1000), U128(3))
	if err != nil || c.Uint64() != 334 {
		t.Fatalf("CeilDivU128 = %v, %v", c, err)
	}
}

func TestFloatBridge(t *testing.T) {
	v, err := FloatMul(0.5, 10000.0)
	if err != nil || v != 5000.0 {
		t.Fatalf("FloatMul = %f, %v", v, err)
	}
	if _, err := FloatDiv(1, 0); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("FloatDiv by zero not detected")
	}
	if _, err := FloatMul(math.MaxFloat64, 2); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("FloatMul infinity not detected")
	}
	b, err := U128FromFloat(10000.0)
	if err != nil || b.Uint64() != 10000 {
		t.Fatalf("U128FromFloat = %v, %v", b, err)
	}
	if _, err := U128FromFloat(-1); !errors.Is(err, errcode.ErrMathOverflow) {
		t.Errorf("negative float not rejected")
	}
}

func TestDecimalCeilMul(t *testing.T) {
	// 2.5 tokens priced at 1.25 each, expressed with different scales
	tests := []struct {
		name                string
		a                   uint64
		expA                int32
		b                   uint64
		expB                int32
		expOut              int32
		want                uint64
	}{
		{"same scale", 1000, -6, 2000, 0, -6, 2000000},
		{"scale down rounds up", 1001, -6, 1, -3, -6, 2},
		{"scale up", 5, -2, 3, 0, -4, 1500},
		{"exact", 250, -2, 125, -2, -4, 31250},
	}
	for _, tt := range tests {
		got, err := DecimalCeilMul(tt.a, tt.expA, tt.b, tt.expB, tt.expOut)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
	// floor sibling must not round up
	got, err := DecimalMul(1001, -6, 1, -3, -6)
	if err != nil || got != 1 {
		t.Errorf("DecimalMul = %d, %v; want 1", got, err)
	}
}
