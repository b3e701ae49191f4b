package pallas

import "errors"

// q = 0x40000000000000000000000000000000224698fc0994a8dd8c46eb2100000001
var fq = &modulus{
	m:   [4]uint64{0x8c46eb2100000001, 0x224698fc0994a8dd, 0x0000000000000000, 0x4000000000000000},
	inv: 0x8c46eb20ffffffff,
	r:   [4]uint64{0x5b2b3e9cfffffffd, 0x992c350be3420567, 0xffffffffffffffff, 0x3fffffffffffffff},
	r2:  [4]uint64{0xfc9678ff0000000f, 0x67bb433d891a16e3, 0x7fae231004ccf590, 0x096d41af7ccfdaa9},
	r3:  [4]uint64{0x008b421c249dae4c, 0xe13bda50dba41326, 0x88fececb8e15cb63, 0x07dd97a06e6792c8},
}

// Scalar is an element of F_q, the scalar field of Pallas. The zero value
// is 0.
type Scalar struct {
	l [4]uint64
}

// NewScalar returns a new zero scalar.
func NewScalar() *Scalar { return new(Scalar) }

// Zero sets s = 0.
func (s *Scalar) Zero() *Scalar {
	s.l = [4]uint64{}
	return s
}

// One sets s = 1.
func (s *Scalar) One() *Scalar {
	s.l = fq.r
	return s
}

// Set sets s = x.
func (s *Scalar) Set(x *Scalar) *Scalar {
	*s = *x
	return s
}

// SetUint64 sets s = v.
func (s *Scalar) SetUint64(v uint64) *Scalar {
	x := [4]uint64{v}
	montMul(&s.l, &x, &fq.r2, fq)
	return s
}

// SetInt64 sets s = v mod q.
func (s *Scalar) SetInt64(v int64) *Scalar {
	if v >= 0 {
		return s.SetUint64(uint64(v))
	}
	s.SetUint64(uint64(-(v + 1)) + 1)
	return s.Neg(s)
}

// Add sets s = x + y.
func (s *Scalar) Add(x, y *Scalar) *Scalar {
	addMod(&s.l, &x.l, &y.l, fq)
	return s
}

// Sub sets s = x - y.
func (s *Scalar) Sub(x, y *Scalar) *Scalar {
	subMod(&s.l, &x.l, &y.l, fq)
	return s
}

// Neg sets s = -x.
func (s *Scalar) Neg(x *Scalar) *Scalar {
	negMod(&s.l, &x.l, fq)
	return s
}

// Mul sets s = x * y.
func (s *Scalar) Mul(x, y *Scalar) *Scalar {
	montMul(&s.l, &x.l, &y.l, fq)
	return s
}

// Invert sets s = 1/x, or 0 if x = 0.
func (s *Scalar) Invert(x *Scalar) *Scalar {
	invertLimbs(&s.l, &x.l, fq)
	return s
}

// Select sets s to a if cond == 1 and to b if cond == 0.
func (s *Scalar) Select(a, b *Scalar, cond int) *Scalar {
	selectLimbs(&s.l, &a.l, &b.l, cond)
	return s
}

// Equal returns 1 if s and x are equal, and 0 otherwise.
func (s *Scalar) Equal(x *Scalar) int {
	return equalLimbs(&s.l, &x.l)
}

// IsZero returns 1 if s = 0, and 0 otherwise.
func (s *Scalar) IsZero() int {
	return isZeroLimbs(&s.l)
}

// Bytes returns the canonical 32-byte little-endian encoding of s.
func (s *Scalar) Bytes() [32]byte {
	return toCanonical(&s.l, fq)
}

// SetBytes sets s from a canonical 32-byte little-endian encoding.
func (s *Scalar) SetBytes(b []byte) (*Scalar, error) {
	if len(b) != 32 {
		return nil, errors.New("pallas: scalar encoding must be 32 bytes")
	}
	var buf [32]byte
	copy(buf[:], b)
	var t [4]uint64
	if fromCanonical(&t, &buf, fq) != 1 {
		return nil, ErrNonCanonical
	}
	s.l = t
	return s, nil
}

// SetWideBytes sets s to a 64-byte little-endian integer reduced mod q.
// This is ToScalar in the protocol specification.
func (s *Scalar) SetWideBytes(b []byte) *Scalar {
	var buf [64]byte
	copy(buf[:], b)
	fromWide(&s.l, &buf, fq)
	return s
}

// SetBase sets s to the integer value of x. Since p < q this never reduces.
func (s *Scalar) SetBase(x *Base) *Scalar {
	b := x.Bytes()
	var t [4]uint64
	fromCanonical(&t, &b, fq)
	s.l = t
	return s
}
