package pallas

import (
	blake2b "github.com/minio/blake2b-simd"
)

// Simplified SWU runs on iso-Pallas, y^2 = x^3 + A'x + B', which is
// 3-isogenous to Pallas.
var (
	isoA = baseFromHex("0x18354a2eb0ea8c9c49be2d7258370742b74134581a27a59f92bb4b0b657a014b")
	isoB = baseFromHex("0x04f1") // 1265
	// Z = -13
	isoZ = baseFromHex("0x40000000000000000000000000000000224698fc094cf91b992d30ecfffffff4")
	// -B'/A'
	sswuMinusBOverA = baseFromHex("0x3d115d87af7b3324d97cab452a13c1eb7612d2d7211b7b101c3006d89470d7f8")
	// B'/(Z*A'), used when the denominator vanishes
	sswuBOverZA = baseFromHex("0x2c150731d26bf03de9585bf1a0c67160f6ca6e5ce0e2b674af333253bca63800")
)

// Coefficients of the 3-isogeny iso-Pallas -> Pallas.
var isoMapCoeffs = [13]Base{
	baseFromHex("0x0e38e38e38e38e38e38e38e38e38e38e4081775473d8375b775f6034aaaaaaab"),
	baseFromHex("0x3509afd51872d88e267c7ffa51cf412a0f93b82ee4b994958cf863b02814fb76"),
	baseFromHex("0x17329b9ec525375398c7d7ac3d98fd13380af066cfeb6d690eb64faef37ea4f7"),
	baseFromHex("0x1c71c71c71c71c71c71c71c71c71c71c8102eea8e7b06eb6eebec06955555580"),
	baseFromHex("0x1d572e7ddc099cff5a607fcce0494a799c434ac1c96b6980c47f2ab668bcd71f"),
	baseFromHex("0x325669becaecd5d11d13bf2a7f22b105b4abf9fb9a1fc81c2aa3af1eae5b6604"),
	baseFromHex("0x1a12f684bda12f684bda12f684bda12f7642b01ad461bad25ad985b5e38e38e4"),
	baseFromHex("0x1a84d7ea8c396c47133e3ffd28e7a09507c9dc17725cca4ac67c31d8140a7dbb"),
	baseFromHex("0x3fb98ff0d2ddcadd303216cce1db9ff11765e924f745937802e2be87d225b234"),
	baseFromHex("0x025ed097b425ed097b425ed097b425ed0ac03e8e134eb3e493e53ab371c71c4f"),
	baseFromHex("0x0c02c5bcca0e6b7f0790bfb3506defb65941a3a4a97aa1b35a28279b1d1b42ae"),
	baseFromHex("0x17033d3c60c68173573b3d7f7d681310d976bbfabbc5661d4d90ab820b12320a"),
	baseFromHex("0x40000000000000000000000000000000224698fc094cf91b992d30ecfffffde5"),
}

const hashToCurveSuite = "-pallas_XMD:BLAKE2b_SSWU_RO_"

// GroupHash returns GroupHash^P(domain, msg): hash_to_field with
// expand_message_xmd over BLAKE2b-512, simplified SWU on iso-Pallas, the
// isogeny map, and the sum of the two resulting points.
//
// Inputs are public; this function is not constant time.
func GroupHash(domain string, msg []byte) *Point {
	u := hashToField(domain, msg)
	var p0, p1 Point
	isoMap(&p0, mapToIso(&u[0]))
	isoMap(&p1, mapToIso(&u[1]))
	return new(Point).Add(&p0, &p1)
}

// hashToField derives two base field elements from msg, using
// DST = domain || "-pallas_XMD:BLAKE2b_SSWU_RO_".
func hashToField(domain string, msg []byte) [2]Base {
	dst := []byte(domain + hashToCurveSuite)
	dstPrime := append(dst, byte(len(dst)))

	h := blake2b.New512()
	h.Write(make([]byte, 128)) // Z_pad, one BLAKE2b block
	h.Write(msg)
	h.Write([]byte{0, 128, 0}) // I2OSP(len_in_bytes, 2) || I2OSP(0, 1)
	h.Write(dstPrime)
	b0 := h.Sum(nil)

	h = blake2b.New512()
	h.Write(b0)
	h.Write([]byte{1})
	h.Write(dstPrime)
	b1 := h.Sum(nil)

	xored := make([]byte, 64)
	for i := range xored {
		xored[i] = b0[i] ^ b1[i]
	}
	h = blake2b.New512()
	h.Write(xored)
	h.Write([]byte{2})
	h.Write(dstPrime)
	b2 := h.Sum(nil)

	var out [2]Base
	for i, b := range [][]byte{b1, b2} {
		// OS2IP is big-endian
		var le [64]byte
		for j := 0; j < 64; j++ {
			le[j] = b[63-j]
		}
		out[i].SetWideBytes(le[:])
	}
	return out
}

type affinePoint struct {
	x, y Base
}

// mapToIso is the simplified SWU map onto iso-Pallas.
func mapToIso(u *Base) affinePoint {
	var u2, zu2, tv, tv2, x1, gx, y Base
	u2.Square(u)
	zu2.Mul(&isoZ, &u2)
	tv.Square(&zu2)
	tv.Add(&tv, &zu2) // Z^2 u^4 + Z u^2

	if tv.IsZero() == 1 {
		x1 = sswuBOverZA
	} else {
		var one Base
		tv2.Invert(&tv)
		tv2.Add(&tv2, one.One())
		x1.Mul(&sswuMinusBOverA, &tv2)
	}

	isoCurveRHS(&gx, &x1)
	x := x1
	if !y.Sqrt(&gx) {
		x.Mul(&zu2, &x1)
		isoCurveRHS(&gx, &x)
		if !y.Sqrt(&gx) {
			panic("pallas: simplified SWU produced a non-square")
		}
	}
	if u.IsOdd() != y.IsOdd() {
		y.Neg(&y)
	}
	return affinePoint{x: x, y: y}
}

func isoCurveRHS(out, x *Base) {
	var t Base
	t.Square(x)
	t.Add(&t, &isoA)
	t.Mul(&t, x)
	out.Add(&t, &isoB)
}

// isoMap sets v to the image of p under the 3-isogeny. If a denominator
// vanishes the result is the identity.
func isoMap(v *Point, p affinePoint) {
	c := &isoMapCoeffs
	x := &p.x
	var xn, xd, yn, yd Base

	xn.Mul(&c[0], x)
	xn.Add(&xn, &c[1])
	xn.Mul(&xn, x)
	xn.Add(&xn, &c[2])
	xn.Mul(&xn, x)
	xn.Add(&xn, &c[3])

	xd.Add(x, &c[4])
	xd.Mul(&xd, x)
	xd.Add(&xd, &c[5])

	yn.Mul(&c[6], x)
	yn.Add(&yn, &c[7])
	yn.Mul(&yn, x)
	yn.Add(&yn, &c[8])
	yn.Mul(&yn, x)
	yn.Add(&yn, &c[9])

	yd.Add(x, &c[10])
	yd.Mul(&yd, x)
	yd.Add(&yd, &c[11])
	yd.Mul(&yd, x)
	yd.Add(&yd, &c[12])

	if xd.IsZero() == 1 || yd.IsZero() == 1 {
		v.Identity()
		return
	}
	var ox, oy Base
	ox.Invert(&xd)
	ox.Mul(&ox, &xn)
	oy.Invert(&yd)
	oy.Mul(&oy, &yn)
	oy.Mul(&oy, &p.y)
	v.setAffine(&ox, &oy)
}
