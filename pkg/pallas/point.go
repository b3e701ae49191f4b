package pallas

import (
	"errors"
)

// ErrInvalidPoint is returned when an encoding does not decode to a point
// on the curve.
var ErrInvalidPoint = errors.New("pallas: invalid point encoding")

// curveB3 is 3*b for y^2 = x^3 + 5.
var curveB3 = baseFromHex("0x0f")

var curveB = baseFromHex("0x05")

// Point is a point on Pallas in homogeneous projective coordinates
// (X : Y : Z) with x = X/Z, y = Y/Z. The identity is (0 : 1 : 0).
//
// The zero value is not a valid point; use NewIdentityPoint.
type Point struct {
	x, y, z Base
}

// NewIdentityPoint returns the identity.
func NewIdentityPoint() *Point {
	p := new(Point)
	p.y.One()
	return p
}

// Identity sets v to the identity.
func (v *Point) Identity() *Point {
	v.x.Zero()
	v.y.One()
	v.z.Zero()
	return v
}

// Set sets v = p.
func (v *Point) Set(p *Point) *Point {
	*v = *p
	return v
}

// setAffine sets v to (x, y) without checking that it lies on the curve.
func (v *Point) setAffine(x, y *Base) *Point {
	v.x.Set(x)
	v.y.Set(y)
	v.z.One()
	return v
}

// Add sets v = p + q using the complete formulas for a = 0 (Algorithm 7 of
// Renes–Costello–Batina). It is correct for every pair of inputs.
func (v *Point) Add(p, q *Point) *Point {
	var t0, t1, t2, t3, t4, x3, y3, z3 Base

	t0.Mul(&p.x, &q.x)
	t1.Mul(&p.y, &q.y)
	t2.Mul(&p.z, &q.z)
	t3.Add(&p.x, &p.y)
	t4.Add(&q.x, &q.y)
	t3.Mul(&t3, &t4)
	t4.Add(&t0, &t1)
	t3.Sub(&t3, &t4)
	t4.Add(&p.y, &p.z)
	x3.Add(&q.y, &q.z)
	t4.Mul(&t4, &x3)
	x3.Add(&t1, &t2)
	t4.Sub(&t4, &x3)
	x3.Add(&p.x, &p.z)
	y3.Add(&q.x, &q.z)
	x3.Mul(&x3, &y3)
	y3.Add(&t0, &t2)
	y3.Sub(&x3, &y3)
	x3.Add(&t0, &t0)
	t0.Add(&x3, &t0)
	t2.Mul(&curveB3, &t2)
	z3.Add(&t1, &t2)
	t1.Sub(&t1, &t2)
	y3.Mul(&curveB3, &y3)
	x3.Mul(&t4, &y3)
	t2.Mul(&t3, &t1)
	x3.Sub(&t2, &x3)
	y3.Mul(&y3, &t0)
	t1.Mul(&t1, &z3)
	y3.Add(&t1, &y3)
	t0.Mul(&t0, &t3)
	z3.Mul(&z3, &t4)
	z3.Add(&z3, &t0)

	v.x.Set(&x3)
	v.y.Set(&y3)
	v.z.Set(&z3)
	return v
}

// Double sets v = p + p.
func (v *Point) Double(p *Point) *Point {
	return v.Add(p, p)
}

// Neg sets v = -p.
func (v *Point) Neg(p *Point) *Point {
	v.x.Set(&p.x)
	v.y.Neg(&p.y)
	v.z.Set(&p.z)
	return v
}

// Subtract sets v = p - q.
func (v *Point) Subtract(p, q *Point) *Point {
	var nq Point
	nq.Neg(q)
	return v.Add(p, &nq)
}

// Select sets v to a if cond == 1 and to b if cond == 0.
func (v *Point) Select(a, b *Point, cond int) *Point {
	v.x.Select(&a.x, &b.x, cond)
	v.y.Select(&a.y, &b.y, cond)
	v.z.Select(&a.z, &b.z, cond)
	return v
}

// Equal returns 1 if v and p represent the same point, and 0 otherwise.
func (v *Point) Equal(p *Point) int {
	var a, b, c, d Base
	a.Mul(&v.x, &p.z)
	b.Mul(&p.x, &v.z)
	c.Mul(&v.y, &p.z)
	d.Mul(&p.y, &v.z)
	return a.Equal(&b) & c.Equal(&d)
}

// IsIdentity returns 1 if v is the identity, and 0 otherwise.
func (v *Point) IsIdentity() int {
	return v.z.IsZero()
}

// ScalarMult sets v = [s]p. It uses a fixed 4-bit window with a
// constant-time table lookup, so its timing does not depend on s.
func (v *Point) ScalarMult(s *Scalar, p *Point) *Point {
	var table [16]Point
	table[0].Identity()
	for i := 1; i < 16; i++ {
		table[i].Add(&table[i-1], p)
	}

	k := s.Bytes()
	var acc, sel Point
	acc.Identity()
	for i := 63; i >= 0; i-- {
		acc.Double(&acc)
		acc.Double(&acc)
		acc.Double(&acc)
		acc.Double(&acc)

		nibble := int(k[i/2]>>(4*uint(i%2))) & 0x0f
		sel.Identity()
		for j := 1; j < 16; j++ {
			sel.Select(&table[j], &sel, eqInt(j, nibble))
		}
		acc.Add(&acc, &sel)
	}
	return v.Set(&acc)
}

// eqInt returns 1 if a == b and 0 otherwise, for small non-negative ints.
func eqInt(a, b int) int {
	x := uint32(a ^ b)
	return int(((x | -x) >> 31) ^ 1)
}

// affine returns the affine coordinates of v. The identity maps to (0, 0).
func (v *Point) affine() (x, y Base) {
	var zinv Base
	zinv.Invert(&v.z)
	x.Mul(&v.x, &zinv)
	y.Mul(&v.y, &zinv)
	return x, y
}

// Bytes returns the 32-byte encoding of v: the x-coordinate in little-endian
// order with the parity of y in the top bit. The identity encodes as all
// zeros.
func (v *Point) Bytes() [32]byte {
	x, y := v.affine()
	out := x.Bytes()
	out[31] |= byte(y.IsOdd()) << 7
	return out
}

// SetBytes decodes a 32-byte point encoding. Non-canonical x-coordinates
// and x-coordinates with no matching point are rejected.
func (v *Point) SetBytes(b []byte) (*Point, error) {
	if len(b) != 32 {
		return nil, ErrInvalidPoint
	}
	var buf [32]byte
	copy(buf[:], b)
	sign := int(buf[31] >> 7)
	buf[31] &= 0x7f

	var x Base
	if _, err := x.SetBytes(buf[:]); err != nil {
		return nil, ErrInvalidPoint
	}
	if x.IsZero() == 1 && sign == 0 {
		return v.Identity(), nil
	}

	var y, rhs Base
	rhs.Square(&x)
	rhs.Mul(&rhs, &x)
	rhs.Add(&rhs, &curveB)
	if !y.Sqrt(&rhs) {
		return nil, ErrInvalidPoint
	}
	var negY Base
	negY.Neg(&y)
	y.Select(&negY, &y, y.IsOdd()^sign)
	v.setAffine(&x, &y)
	return v, nil
}

// Extract returns the x-coordinate of v, mapping the identity to 0. This is
// Extract_P in the protocol specification.
func (v *Point) Extract() Base {
	x, _ := v.affine()
	return x
}

// AddIncomplete sets v = p + q and reports false, leaving v unspecified,
// in the exceptional cases of incomplete addition: either input is the
// identity, or both have the same x-coordinate.
func (v *Point) AddIncomplete(p, q *Point) bool {
	var a, b Base
	a.Mul(&p.x, &q.z)
	b.Mul(&q.x, &p.z)
	if p.IsIdentity() == 1 || q.IsIdentity() == 1 || a.Equal(&b) == 1 {
		return false
	}
	v.Add(p, q)
	return true
}
