// Package redpallas implements RedDSA over Pallas with the two Orchard
// parameterizations: spend authorization, with basepoint
// GroupHash("z.cash:Orchard", "G"), and binding, with basepoint
// GroupHash("z.cash:Orchard-cv", "r").
//
// Keys are rerandomizable: a signing key sk and a randomizer alpha give
// rsk = sk + alpha, whose verification key is vk + [alpha]B. Signatures made
// under different randomizers are unlinkable to each other and to vk.
//
// Corresponds to:
//   - reddsa/src/{signing_key,verification_key,signature}.rs
//   - reddsa/src/orchard.rs
//
// References:
//   - Zcash Protocol Specification, §5.4.7 (RedDSA, RedJubjub, RedPallas)
package redpallas

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"

	blake2b "github.com/minio/blake2b-simd"

	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

// HStarPersonalization personalizes H*, the hash-to-scalar of RedPallas.
const HStarPersonalization = "Zcash_RedPallasH"

// SignatureSize is the length of an encoded signature.
const SignatureSize = 64

var (
	// ErrInvalidSignature is returned by Verify for any rejected signature.
	ErrInvalidSignature = errors.New("redpallas: invalid signature")
	// ErrZeroKey is returned for a zero signing key.
	ErrZeroKey = errors.New("redpallas: zero signing key")
)

// SigType selects the basepoint of a RedPallas instance.
type SigType struct {
	name string
	base func() *pallas.Point
}

func (t SigType) String() string { return t.name }

var (
	spendAuthBase = sync.OnceValue(func() *pallas.Point {
		return pallas.GroupHash("z.cash:Orchard", []byte("G"))
	})
	bindingBase = sync.OnceValue(func() *pallas.Point {
		return pallas.GroupHash("z.cash:Orchard-cv", []byte("r"))
	})
)

var (
	// SpendAuth signs spend authorizations.
	SpendAuth = SigType{name: "SpendAuth", base: spendAuthBase}
	// Binding signs the value balance of a bundle.
	Binding = SigType{name: "Binding", base: bindingBase}
)

// Basepoint returns the basepoint of t.
func (t SigType) Basepoint() *pallas.Point {
	return new(pallas.Point).Set(t.base())
}

func blake2bNew512(personalization string) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   64,
		Person: []byte(personalization),
	})
	if err != nil {
		panic(err)
	}
	return h
}

// hStar is H*(parts...) = LEOS2IP(BLAKE2b-512("Zcash_RedPallasH", parts)) mod q.
func hStar(parts ...[]byte) pallas.Scalar {
	h := blake2bNew512(HStarPersonalization)
	for _, p := range parts {
		h.Write(p)
	}
	var s pallas.Scalar
	s.SetWideBytes(h.Sum(nil))
	return s
}

// Signature is an encoded RedPallas signature: R̄ || S̄.
type Signature [SignatureSize]byte

// VerificationKey is a RedPallas verification key.
type VerificationKey struct {
	typ   SigType
	point pallas.Point
	bytes [32]byte
}

// NewVerificationKey wraps a point as a verification key of type typ.
func NewVerificationKey(typ SigType, p *pallas.Point) VerificationKey {
	vk := VerificationKey{typ: typ}
	vk.point.Set(p)
	vk.bytes = p.Bytes()
	return vk
}

// VerificationKeyFromBytes decodes a verification key.
func VerificationKeyFromBytes(typ SigType, b []byte) (VerificationKey, error) {
	var p pallas.Point
	if _, err := p.SetBytes(b); err != nil {
		return VerificationKey{}, fmt.Errorf("redpallas: verification key: %w", err)
	}
	return NewVerificationKey(typ, &p), nil
}

// Bytes returns the encoding of vk.
func (vk VerificationKey) Bytes() [32]byte { return vk.bytes }

// Point returns the underlying curve point.
func (vk VerificationKey) Point() *pallas.Point { return new(pallas.Point).Set(&vk.point) }

// Randomize returns vk + [alpha]B.
func (vk VerificationKey) Randomize(alpha *pallas.Scalar) VerificationKey {
	var t pallas.Point
	t.ScalarMult(alpha, vk.typ.base())
	t.Add(&t, &vk.point)
	return NewVerificationKey(vk.typ, &t)
}

// Verify checks sig over msg. It returns ErrInvalidSignature if R̄ is not
// a valid point, S̄ is not canonical, or [S]B != R + [c]vk.
func (vk VerificationKey) Verify(msg []byte, sig Signature) error {
	var r pallas.Point
	if _, err := r.SetBytes(sig[:32]); err != nil {
		return ErrInvalidSignature
	}
	var s pallas.Scalar
	if _, err := s.SetBytes(sig[32:]); err != nil {
		return ErrInvalidSignature
	}
	c := hStar(sig[:32], vk.bytes[:], msg)

	var lhs, rhs pallas.Point
	lhs.ScalarMult(&s, vk.typ.base())
	rhs.ScalarMult(&c, &vk.point)
	rhs.Add(&rhs, &r)
	if lhs.Equal(&rhs) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// SigningKey is a RedPallas signing key with its cached verification key.
type SigningKey struct {
	sk pallas.Scalar
	vk VerificationKey
}

// NewSigningKey returns the signing key sk of type typ.
func NewSigningKey(typ SigType, sk *pallas.Scalar) (*SigningKey, error) {
	if sk.IsZero() == 1 {
		return nil, ErrZeroKey
	}
	k := &SigningKey{}
	k.sk.Set(sk)
	var p pallas.Point
	p.ScalarMult(sk, typ.base())
	k.vk = NewVerificationKey(typ, &p)
	return k, nil
}

// VerificationKey returns the verification key of k.
func (k *SigningKey) VerificationKey() VerificationKey { return k.vk }

// Randomize returns the signing key sk + alpha. A result of zero is
// reported as ErrZeroKey.
func (k *SigningKey) Randomize(alpha *pallas.Scalar) (*SigningKey, error) {
	var rsk pallas.Scalar
	rsk.Add(&k.sk, alpha)
	return NewSigningKey(k.vk.typ, &rsk)
}

// Sign signs msg. rand supplies the 80 bytes T hashed into the nonce.
func (k *SigningKey) Sign(rand io.Reader, msg []byte) (Signature, error) {
	var t [80]byte
	if _, err := io.ReadFull(rand, t[:]); err != nil {
		return Signature{}, fmt.Errorf("redpallas: reading nonce randomness: %w", err)
	}
	r := hStar(t[:], k.vk.bytes[:], msg)
	if r.IsZero() == 1 {
		return Signature{}, errors.New("redpallas: zero nonce")
	}

	var rPoint pallas.Point
	rPoint.ScalarMult(&r, k.vk.typ.base())
	rBar := rPoint.Bytes()

	c := hStar(rBar[:], k.vk.bytes[:], msg)
	var s pallas.Scalar
	s.Mul(&c, &k.sk)
	s.Add(&s, &r)

	var sig Signature
	copy(sig[:32], rBar[:])
	sBar := s.Bytes()
	copy(sig[32:], sBar[:])
	return sig, nil
}

// Zeroize clears the secret scalar.
func (k *SigningKey) Zeroize() {
	k.sk.Zero()
}
