package primitives

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned by Int256 arithmetic that would exceed the
// representable range (256-bit magnitude, signed).
var ErrOverflow = errors.New("primitives: integer overflow")

// Int256 is a signed 256-bit integer: a magnitude (github.com/holiman/uint256,
// the fixed-width integer type already present in the pack via go-ethereum)
// plus a sign bit. Amount's underlying value, and typed-data's intN/uintN
// encoding, both need exactly this shape: unbounded-looking 256-bit width
// with checked, not wrapping, arithmetic.
type Int256 struct {
	mag      uint256.Int
	negative bool
}

// ZeroInt256 returns the additive identity.
func ZeroInt256() Int256 { return Int256{} }

// Int256FromInt64 builds an Int256 from a machine int64.
func Int256FromInt64(v int64) Int256 {
	if v < 0 {
		return Int256{mag: *uint256.NewInt(uint64(-v)), negative: true}
	}
	return Int256{mag: *uint256.NewInt(uint64(v))}
}

// Int256FromDecimal parses a signed decimal string, the common wire format
// for typed-data integer members arriving as JSON strings (spec.md §4.4).
func Int256FromDecimal(s string) (Int256, error) {
	negative := false
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		negative = s[0] == '-'
		s = s[1:]
	}
	mag, err := uint256.FromDecimal(s)
	if err != nil {
		return Int256{}, fmt.Errorf("primitives: invalid decimal integer %q: %w", s, err)
	}
	if mag.IsZero() {
		negative = false
	}
	return Int256{mag: *mag, negative: negative}, nil
}

// Int256FromBig converts from math/big, the interchange type most of the
// pack's chain SDKs (go-ethereum, btcd) use at their own boundaries.
func Int256FromBig(v *big.Int) (Int256, error) {
	if v == nil {
		return Int256{}, nil
	}
	abs := new(big.Int).Abs(v)
	mag, overflow := uint256.FromBig(abs)
	if overflow {
		return Int256{}, ErrOverflow
	}
	return Int256{mag: *mag, negative: v.Sign() < 0}, nil
}

// IsNegative reports the sign.
func (i Int256) IsNegative() bool { return i.negative && !i.mag.IsZero() }

// IsZero reports whether the value is exactly zero.
func (i Int256) IsZero() bool { return i.mag.IsZero() }

// BigInt renders the value as a math/big.Int for interop with chain SDKs.
func (i Int256) BigInt() *big.Int {
	b := i.mag.ToBig()
	if i.IsNegative() {
		b.Neg(b)
	}
	return b
}

// String renders the signed decimal form.
func (i Int256) String() string {
	return i.BigInt().String()
}

// Cmp compares two Int256 values, returning -1, 0, or 1.
func (i Int256) Cmp(other Int256) int {
	return i.BigInt().Cmp(other.BigInt())
}

// Add returns i+j, or ErrOverflow if the magnitude would exceed 256 bits.
func (i Int256) Add(j Int256) (Int256, error) {
	return addSigned(i, j)
}

// Sub returns i-j, or ErrOverflow if the magnitude would exceed 256 bits.
func (i Int256) Sub(j Int256) (Int256, error) {
	return addSigned(i, Int256{mag: j.mag, negative: !j.negative})
}

// Neg returns -i.
func (i Int256) Neg() Int256 {
	if i.mag.IsZero() {
		return i
	}
	return Int256{mag: i.mag, negative: !i.negative}
}

// Mul returns i*j, or ErrOverflow if the magnitude would exceed 256 bits.
func (i Int256) Mul(j Int256) (Int256, error) {
	var mag uint256.Int
	overflow := mag.MulOverflow(&i.mag, &j.mag)
	if overflow {
		return Int256{}, ErrOverflow
	}
	return Int256{mag: mag, negative: i.negative != j.negative && !mag.IsZero()}, nil
}

func addSigned(i, j Int256) (Int256, error) {
	if i.negative == j.negative {
		var mag uint256.Int
		overflow := mag.AddOverflow(&i.mag, &j.mag)
		if overflow {
			return Int256{}, ErrOverflow
		}
		return Int256{mag: mag, negative: i.negative && !mag.IsZero()}, nil
	}
	// Opposite signs: subtract the smaller magnitude from the larger, and
	// take the sign of the larger-magnitude operand.
	if i.mag.Cmp(&j.mag) >= 0 {
		var mag uint256.Int
		mag.Sub(&i.mag, &j.mag)
		return Int256{mag: mag, negative: i.negative && !mag.IsZero()}, nil
	}
	var mag uint256.Int
	mag.Sub(&j.mag, &i.mag)
	return Int256{mag: mag, negative: j.negative && !mag.IsZero()}, nil
}

// Bytes32TwosComplement renders the value as a big-endian 256-bit two's
// complement word, as spec.md §4.4 requires for encoding a typed-data
// intN/uintN member.
func (i Int256) Bytes32TwosComplement() [32]byte {
	if !i.negative || i.mag.IsZero() {
		return i.mag.Bytes32()
	}
	// Two's complement of a nonzero magnitude m is 2^256 - m, which as a
	// 256-bit wrapping subtraction is simply 0 - m.
	var result uint256.Int
	result.Sub(&zeroInt, &i.mag)
	return result.Bytes32()
}

var zeroInt uint256.Int

// FitsSignedBits reports whether the value fits in a signed integer of the
// given bit width (8,16,...,256), as required when validating a typed-data
// intN member (spec.md §4.4: "signed values outside range fail").
func (i Int256) FitsSignedBits(bits int) bool {
	if bits <= 0 || bits > 256 {
		return false
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	v := i.BigInt()
	min := new(big.Int).Neg(limit)
	max := new(big.Int).Sub(limit, big.NewInt(1))
	return v.Cmp(min) >= 0 && v.Cmp(max) <= 0
}

// FitsUnsignedBits reports whether the value fits in an unsigned integer of
// the given bit width, as required when validating a typed-data uintN
// member.
func (i Int256) FitsUnsignedBits(bits int) bool {
	if i.IsNegative() || bits <= 0 || bits > 256 {
		return false
	}
	if bits == 256 {
		return true
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return i.BigInt().Cmp(limit) < 0
}
