package pallas

import (
	"encoding/binary"
	"errors"
)

// p = 0x40000000000000000000000000000000224698fc094cf91b992d30ed00000001
var fp = &modulus{
	m:   [4]uint64{0x992d30ed00000001, 0x224698fc094cf91b, 0x0000000000000000, 0x4000000000000000},
	inv: 0x992d30ecffffffff,
	r:   [4]uint64{0x34786d38fffffffd, 0x992c350be41914ad, 0xffffffffffffffff, 0x3fffffffffffffff},
	r2:  [4]uint64{0x8c78ecb30000000f, 0xd7d30dbd8b0de0e7, 0x7797a99bc3c95d18, 0x096d41af7b9cb714},
	r3:  [4]uint64{0xf185a5993a9e10f9, 0xf6a68f3b6ac5b1d1, 0xdf8d1014353fd42c, 0x2ae309222d2d9910},
}

// ErrNonCanonical is returned when a 32-byte encoding is not the canonical
// little-endian representation of a field element.
var ErrNonCanonical = errors.New("pallas: non-canonical field encoding")

// Base is an element of the Pallas base field F_p. The zero value is 0.
type Base struct {
	l [4]uint64
}

// NewBase returns a new zero element.
func NewBase() *Base { return new(Base) }

// Zero sets z = 0.
func (z *Base) Zero() *Base {
	z.l = [4]uint64{}
	return z
}

// One sets z = 1.
func (z *Base) One() *Base {
	z.l = fp.r
	return z
}

// Set sets z = x.
func (z *Base) Set(x *Base) *Base {
	*z = *x
	return z
}

// SetUint64 sets z = v.
func (z *Base) SetUint64(v uint64) *Base {
	x := [4]uint64{v}
	montMul(&z.l, &x, &fp.r2, fp)
	return z
}

// Add sets z = x + y.
func (z *Base) Add(x, y *Base) *Base {
	addMod(&z.l, &x.l, &y.l, fp)
	return z
}

// Sub sets z = x - y.
func (z *Base) Sub(x, y *Base) *Base {
	subMod(&z.l, &x.l, &y.l, fp)
	return z
}

// Neg sets z = -x.
func (z *Base) Neg(x *Base) *Base {
	negMod(&z.l, &x.l, fp)
	return z
}

// Mul sets z = x * y.
func (z *Base) Mul(x, y *Base) *Base {
	montMul(&z.l, &x.l, &y.l, fp)
	return z
}

// Square sets z = x * x.
func (z *Base) Square(x *Base) *Base {
	montMul(&z.l, &x.l, &x.l, fp)
	return z
}

// Invert sets z = 1/x, or 0 if x = 0.
func (z *Base) Invert(x *Base) *Base {
	invertLimbs(&z.l, &x.l, fp)
	return z
}

// Pow sets z = x^e for a public exponent e given as little-endian limbs.
func (z *Base) Pow(x *Base, e [4]uint64) *Base {
	powLimbs(&z.l, &x.l, e, fp)
	return z
}

// Select sets z to a if cond == 1 and to b if cond == 0.
func (z *Base) Select(a, b *Base, cond int) *Base {
	selectLimbs(&z.l, &a.l, &b.l, cond)
	return z
}

// Equal returns 1 if z and x are equal, and 0 otherwise.
func (z *Base) Equal(x *Base) int {
	return equalLimbs(&z.l, &x.l)
}

// IsZero returns 1 if z = 0, and 0 otherwise.
func (z *Base) IsZero() int {
	return isZeroLimbs(&z.l)
}

// IsOdd returns the low bit of the canonical encoding of z.
func (z *Base) IsOdd() int {
	b := toCanonical(&z.l, fp)
	return int(b[0] & 1)
}

// Bytes returns the canonical 32-byte little-endian encoding of z.
func (z *Base) Bytes() [32]byte {
	return toCanonical(&z.l, fp)
}

// SetBytes sets z from a canonical 32-byte little-endian encoding.
func (z *Base) SetBytes(b []byte) (*Base, error) {
	if len(b) != 32 {
		return nil, errors.New("pallas: base field encoding must be 32 bytes")
	}
	var buf [32]byte
	copy(buf[:], b)
	var t [4]uint64
	if fromCanonical(&t, &buf, fp) != 1 {
		return nil, ErrNonCanonical
	}
	z.l = t
	return z, nil
}

// SetWideBytes sets z to a 64-byte little-endian integer reduced mod p.
// This is ToBase in the protocol specification.
func (z *Base) SetWideBytes(b []byte) *Base {
	var buf [64]byte
	copy(buf[:], b)
	fromWide(&z.l, &buf, fp)
	return z
}

// SetBits255 sets z from a 255-bit integer given as 32 little-endian bytes
// with the top bit ignored. The value is reduced mod p, which needs at most
// one subtraction since 2^255 < 2p.
func (z *Base) SetBits255(b [32]byte) *Base {
	b[31] &= 0x7f
	var x [4]uint64
	for i := 0; i < 4; i++ {
		x[i] = binary.LittleEndian.Uint64(b[8*i:])
	}
	reduceOnce(&x, &x, 0, fp)
	montMul(&z.l, &x, &fp.r2, fp)
	return z
}

// baseFromHex converts a big-endian hex constant into a field element.
func baseFromHex(s string) Base {
	var z Base
	x := limbsFromHex(s)
	montMul(&z.l, &x, &fp.r2, fp)
	return z
}

// Tonelli-Shanks constants for p - 1 = 2^32 * t with t odd.
var (
	sqrtTMinus1Over2 = limbsFromHex("0x2000000000000000000000000000000011234c7e04a67c8dcc969876")
	// 5^t, a primitive 2^32-th root of unity
	rootOfUnity = baseFromHex("0x2bce74deac30ebda362120830561f81aea322bf2b7bb7584bdad6fabd87ea32f")
)

const twoAdicity = 32

// Sqrt sets z to a square root of x and returns true, or leaves z unchanged
// and returns false if x is not a square. It is not constant time.
func (z *Base) Sqrt(x *Base) bool {
	if x.IsZero() == 1 {
		z.Zero()
		return true
	}
	var w, r, b, c, one Base
	one.One()
	w.Pow(x, sqrtTMinus1Over2)
	r.Mul(x, &w)  // x^((t+1)/2)
	b.Mul(&r, &w) // x^t
	c = rootOfUnity
	v := twoAdicity
	for b.Equal(&one) != 1 {
		k := 0
		var t Base
		t.Set(&b)
		for t.Equal(&one) != 1 {
			t.Square(&t)
			k++
			if k == v {
				return false
			}
		}
		w.Set(&c)
		for i := 0; i < v-k-1; i++ {
			w.Square(&w)
		}
		v = k
		c.Square(&w)
		b.Mul(&b, &c)
		r.Mul(&r, &w)
	}
	z.Set(&r)
	return true
}
