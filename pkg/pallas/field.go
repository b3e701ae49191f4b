// Package pallas implements the Pallas curve used by the Orchard shielded
// pool: its base field F_p, its scalar field F_q, group arithmetic and the
// GroupHash^P hash-to-curve.
//
// Both fields are prime fields of 255 bits kept in Montgomery form over four
// 64-bit limbs. All arithmetic that can touch secret values (add, sub, mul,
// square, inversion, selection, scalar multiplication) runs in time
// independent of the operands. Square roots are variable time and are only
// used on public inputs: point decompression and hash-to-curve.
//
// Corresponds to:
//   - pasta_curves/src/fields/{fp,fq}.rs
//   - pasta_curves/src/curves.rs
//   - pasta_curves/src/hashtocurve.rs
//
// References:
//   - Zcash Protocol Specification, §5.4.9.6 (Pallas and Vesta)
//   - RFC 9380 (hashing to elliptic curves)
//   - Renes, Costello, Batina: "Complete addition formulas for prime order
//     elliptic curves" (2015)
package pallas

import (
	"encoding/binary"
	"math/bits"
	"strconv"
)

// modulus carries the Montgomery constants of one prime field.
type modulus struct {
	m   [4]uint64
	inv uint64    // -m^-1 mod 2^64
	r   [4]uint64 // 2^256 mod m, the Montgomery form of 1
	r2  [4]uint64 // 2^512 mod m
	r3  [4]uint64 // 2^768 mod m
}

// montMul sets z = x * y * 2^-256 mod m. Inputs must be below m.
func montMul(z, x, y *[4]uint64, md *modulus) {
	var t [6]uint64
	for i := 0; i < 4; i++ {
		var c, cc, hi, lo uint64
		for j := 0; j < 4; j++ {
			hi, lo = bits.Mul64(x[j], y[i])
			lo, cc = bits.Add64(lo, t[j], 0)
			hi += cc
			lo, cc = bits.Add64(lo, c, 0)
			hi += cc
			t[j] = lo
			c = hi
		}
		t[4], cc = bits.Add64(t[4], c, 0)
		t[5] = cc

		k := t[0] * md.inv
		hi, lo = bits.Mul64(k, md.m[0])
		_, cc = bits.Add64(lo, t[0], 0)
		c = hi + cc
		for j := 1; j < 4; j++ {
			hi, lo = bits.Mul64(k, md.m[j])
			lo, cc = bits.Add64(lo, t[j], 0)
			hi += cc
			lo, cc = bits.Add64(lo, c, 0)
			hi += cc
			t[j-1] = lo
			c = hi
		}
		t[3], cc = bits.Add64(t[4], c, 0)
		t[4] = t[5] + cc
		t[5] = 0
	}
	reduceOnce(z, &[4]uint64{t[0], t[1], t[2], t[3]}, t[4], md)
}

// reduceOnce sets z = x - m if x (with carry bit hi) is at least m, else x.
func reduceOnce(z, x *[4]uint64, hi uint64, md *modulus) {
	var r [4]uint64
	var b uint64
	r[0], b = bits.Sub64(x[0], md.m[0], 0)
	r[1], b = bits.Sub64(x[1], md.m[1], b)
	r[2], b = bits.Sub64(x[2], md.m[2], b)
	r[3], b = bits.Sub64(x[3], md.m[3], b)
	_, b = bits.Sub64(hi, 0, b)
	// b == 1 means x < m
	mask := -b
	for i := 0; i < 4; i++ {
		z[i] = (x[i] & mask) | (r[i] &^ mask)
	}
}

func addMod(z, x, y *[4]uint64, md *modulus) {
	var s [4]uint64
	var c uint64
	s[0], c = bits.Add64(x[0], y[0], 0)
	s[1], c = bits.Add64(x[1], y[1], c)
	s[2], c = bits.Add64(x[2], y[2], c)
	s[3], c = bits.Add64(x[3], y[3], c)
	reduceOnce(z, &s, c, md)
}

func subMod(z, x, y *[4]uint64, md *modulus) {
	var d [4]uint64
	var b uint64
	d[0], b = bits.Sub64(x[0], y[0], 0)
	d[1], b = bits.Sub64(x[1], y[1], b)
	d[2], b = bits.Sub64(x[2], y[2], b)
	d[3], b = bits.Sub64(x[3], y[3], b)
	// add m back when the subtraction borrowed
	mask := -b
	var c uint64
	z[0], c = bits.Add64(d[0], md.m[0]&mask, 0)
	z[1], c = bits.Add64(d[1], md.m[1]&mask, c)
	z[2], c = bits.Add64(d[2], md.m[2]&mask, c)
	z[3], _ = bits.Add64(d[3], md.m[3]&mask, c)
}

func negMod(z, x *[4]uint64, md *modulus) {
	var zero [4]uint64
	subMod(z, &zero, x, md)
}

func isZeroLimbs(x *[4]uint64) int {
	v := x[0] | x[1] | x[2] | x[3]
	return int(((v | -v) >> 63) ^ 1)
}

func equalLimbs(x, y *[4]uint64) int {
	v := (x[0] ^ y[0]) | (x[1] ^ y[1]) | (x[2] ^ y[2]) | (x[3] ^ y[3])
	return int(((v | -v) >> 63) ^ 1)
}

// selectLimbs sets z to a if cond == 1 and to b if cond == 0.
func selectLimbs(z, a, b *[4]uint64, cond int) {
	mask := -uint64(cond)
	for i := 0; i < 4; i++ {
		z[i] = (a[i] & mask) | (b[i] &^ mask)
	}
}

// powLimbs sets z = x^e in Montgomery form. The exponent is public.
func powLimbs(z, x *[4]uint64, e [4]uint64, md *modulus) {
	acc := md.r
	base := *x
	for i := 255; i >= 0; i-- {
		montMul(&acc, &acc, &acc, md)
		if (e[i/64]>>(uint(i)%64))&1 == 1 {
			montMul(&acc, &acc, &base, md)
		}
	}
	*z = acc
}

func invertLimbs(z, x *[4]uint64, md *modulus) {
	e := md.m
	e[0] -= 2
	powLimbs(z, x, e, md)
}

// fromCanonical parses 32 little-endian bytes into Montgomery form. It
// reports 0 when the value is not below the modulus.
func fromCanonical(z *[4]uint64, b *[32]byte, md *modulus) int {
	var x [4]uint64
	for i := 0; i < 4; i++ {
		x[i] = binary.LittleEndian.Uint64(b[8*i:])
	}
	var bw uint64
	_, bw = bits.Sub64(x[0], md.m[0], 0)
	_, bw = bits.Sub64(x[1], md.m[1], bw)
	_, bw = bits.Sub64(x[2], md.m[2], bw)
	_, bw = bits.Sub64(x[3], md.m[3], bw)
	montMul(z, &x, &md.r2, md)
	return int(bw)
}

func toCanonical(x *[4]uint64, md *modulus) [32]byte {
	var t [4]uint64
	one := [4]uint64{1}
	montMul(&t, x, &one, md)
	var out [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(out[8*i:], t[i])
	}
	return out
}

// fromWide reduces a 512-bit little-endian integer modulo m.
func fromWide(z *[4]uint64, b *[64]byte, md *modulus) {
	var lo, hi [4]uint64
	for i := 0; i < 4; i++ {
		lo[i] = binary.LittleEndian.Uint64(b[8*i:])
		hi[i] = binary.LittleEndian.Uint64(b[32+8*i:])
	}
	montMul(&lo, &lo, &md.r2, md)
	montMul(&hi, &hi, &md.r3, md)
	addMod(z, &lo, &hi, md)
}

// limbsFromHex parses a big-endian hex constant of at most 64 digits.
func limbsFromHex(s string) [4]uint64 {
	if len(s) > 2 && s[:2] == "0x" {
		s = s[2:]
	}
	for len(s) < 64 {
		s = "0" + s
	}
	var l [4]uint64
	for i := 0; i < 4; i++ {
		chunk := s[64-16*(i+1) : 64-16*i]
		v, err := strconv.ParseUint(chunk, 16, 64)
		if err != nil {
			panic("pallas: bad constant " + s)
		}
		l[i] = v
	}
	return l
}
