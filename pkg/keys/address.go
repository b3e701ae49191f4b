package keys

import (
	"encoding/binary"

	"github.com/suffix-labs/orchardlib/pkg/ff1"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

const gdDomain = "z.cash:Orchard-gd"

// DiversifierIndex is an 88-bit little-endian diversifier index.
type DiversifierIndex [orchard.DiversifierSize]byte

// IndexFromUint64 widens j to a diversifier index.
func IndexFromUint64(j uint64) DiversifierIndex {
	var idx DiversifierIndex
	binary.LittleEndian.PutUint64(idx[:], j)
	return idx
}

// Uint64 returns the index if it fits in 64 bits.
func (j DiversifierIndex) Uint64() (uint64, bool) {
	if j[8]|j[9]|j[10] != 0 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(j[:8]), true
}

// DiversifyHash returns g_d = GroupHash("z.cash:Orchard-gd", d), falling
// back to the hash of the empty string if that is the identity.
func DiversifyHash(d [orchard.DiversifierSize]byte) *pallas.Point {
	g := pallas.GroupHash(gdDomain, d[:])
	if g.IsIdentity() == 1 {
		g = pallas.GroupHash(gdDomain, nil)
	}
	return g
}

// Address is an Orchard payment address (d, pk_d).
type Address struct {
	d   [orchard.DiversifierSize]byte
	pkd pallas.Point
}

// AddressFromBytes decodes d || pk_d. pk_d must be a valid non-identity
// point.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != orchard.AddressSize {
		return Address{}, orchard.Errorf(orchard.CodeInvalidEncoding,
			"address must be %d bytes, got %d", orchard.AddressSize, len(b))
	}
	var a Address
	copy(a.d[:], b[:orchard.DiversifierSize])
	if _, err := a.pkd.SetBytes(b[orchard.DiversifierSize:]); err != nil || a.pkd.IsIdentity() == 1 {
		return Address{}, orchard.Errorf(orchard.CodeInvalidEncoding, "invalid pk_d")
	}
	return a, nil
}

// Bytes returns d || pk_d.
func (a Address) Bytes() [orchard.AddressSize]byte {
	var out [orchard.AddressSize]byte
	copy(out[:], a.d[:])
	pkd := a.pkd.Bytes()
	copy(out[orchard.DiversifierSize:], pkd[:])
	return out
}

// Diversifier returns d.
func (a Address) Diversifier() [orchard.DiversifierSize]byte { return a.d }

// GD returns the diversified base g_d.
func (a Address) GD() *pallas.Point { return DiversifyHash(a.d) }

// PkD returns the diversified transmission key.
func (a Address) PkD() *pallas.Point { return new(pallas.Point).Set(&a.pkd) }

// Equal reports whether a and b encode the same address.
func (a Address) Equal(b Address) bool {
	return a.d == b.d && a.pkd.Equal(&b.pkd) == 1
}

// IncomingViewingKey is (dk, ivk).
type IncomingViewingKey struct {
	dk  [32]byte
	ivk pallas.Scalar
}

// IncomingViewingKeyFromBytes decodes dk || ivk. ivk must be a canonical,
// non-zero base field element.
func IncomingViewingKeyFromBytes(b []byte) (IncomingViewingKey, error) {
	if len(b) != orchard.IncomingViewingKeySize {
		return IncomingViewingKey{}, orchard.Errorf(orchard.CodeInvalidEncoding,
			"incoming viewing key must be %d bytes, got %d", orchard.IncomingViewingKeySize, len(b))
	}
	var x pallas.Base
	if _, err := x.SetBytes(b[32:]); err != nil || x.IsZero() == 1 {
		return IncomingViewingKey{}, orchard.Errorf(orchard.CodeInvalidEncoding, "invalid ivk")
	}
	var k IncomingViewingKey
	copy(k.dk[:], b[:32])
	k.ivk.SetBase(&x)
	return k, nil
}

// Bytes returns dk || ivk.
func (k IncomingViewingKey) Bytes() [orchard.IncomingViewingKeySize]byte {
	var out [orchard.IncomingViewingKeySize]byte
	copy(out[:32], k.dk[:])
	ivk := k.ivk.Bytes()
	copy(out[32:], ivk[:])
	return out
}

// Scalar returns ivk, the key agreement private key.
func (k IncomingViewingKey) Scalar() pallas.Scalar { return k.ivk }

func (k IncomingViewingKey) cipher() *ff1.Cipher {
	c, err := ff1.NewCipher(k.dk[:])
	if err != nil {
		// dk is always 32 bytes
		panic(err)
	}
	return c
}

// Address returns the address at diversifier index j: d = FF1-AES256_dk(j)
// and pk_d = [ivk] g_d.
func (k IncomingViewingKey) Address(j DiversifierIndex) (Address, error) {
	d := k.cipher().Encrypt(j)
	gd := DiversifyHash(d)
	if gd.IsIdentity() == 1 {
		return Address{}, orchard.Errorf(orchard.CodeInvalidDiversifier, "g_d is the identity")
	}
	a := Address{d: d}
	a.pkd.ScalarMult(&k.ivk, gd)
	if a.pkd.IsIdentity() == 1 {
		return Address{}, orchard.Errorf(orchard.CodeInvalidDiversifier, "pk_d is the identity")
	}
	return a, nil
}

// DiversifierIndex recovers the index of addr if it was derived from k.
func (k IncomingViewingKey) DiversifierIndex(addr Address) (DiversifierIndex, bool) {
	j := DiversifierIndex(k.cipher().Decrypt(addr.d))
	derived, err := k.Address(j)
	if err != nil || !derived.Equal(addr) {
		return DiversifierIndex{}, false
	}
	return j, true
}
