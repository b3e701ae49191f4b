// Package keys implements the Orchard key hierarchy for a single spending
// key: the spend authorizing key, the full, incoming and outgoing viewing
// keys for both the external and internal (change) scopes, and diversified
// payment addresses.
//
//	sk ─┬─ ask ── ak ─┐
//	    ├─ nk ────────┼── fvk ─┬─ ivk = CommitIvk_rivk(ak, nk) ── pk_d = [ivk] g_d
//	    └─ rivk ──────┘        └─ dk || ovk = PRF^expand_rivk(0x82 || ak || nk)
//
// The internal scope replaces rivk with
// rivk_internal = ToScalar(PRF^expand_rivk(0x83 || ak || nk)); ak and nk are
// shared by both scopes.
//
// Secret scalars are handled with constant-time field arithmetic. In
// particular the sign correction of ask, which negates it when ak would
// have an odd y-coordinate, is a conditional select rather than a branch.
//
// Corresponds to:
//   - orchard/src/keys.rs
//   - orchard/src/spec.rs (commit_ivk, diversify_hash, ka_orchard)
//
// References:
//   - Zcash Protocol Specification, §4.2.3 (Orchard Key Components)
//   - ZIP 32 §Orchard internal key derivation
package keys

import (
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/redpallas"
	"github.com/suffix-labs/orchardlib/pkg/sinsemilla"
)

const commitIvkDomain = "z.cash:Orchard-CommitIvk"

// Scope distinguishes externally published addresses from change addresses.
type Scope int

const (
	External Scope = iota
	Internal
)

func (s Scope) String() string {
	if s == Internal {
		return "internal"
	}
	return "external"
}

// SpendingKey is a 32-byte Orchard spending key.
type SpendingKey struct {
	b [orchard.SpendingKeySize]byte
}

// SpendingKeyFromBytes copies b into a SpendingKey and checks that it
// derives usable keys: ask != 0 and both scopes' ivk are neither 0 nor ⊥.
func SpendingKeyFromBytes(b []byte) (*SpendingKey, error) {
	if len(b) != orchard.SpendingKeySize {
		return nil, orchard.Errorf(orchard.CodeInvalidSpendingKey,
			"spending key must be %d bytes, got %d", orchard.SpendingKeySize, len(b))
	}
	sk := &SpendingKey{}
	copy(sk.b[:], b)
	if _, err := DeriveFullViewingKey(sk, false); err != nil {
		sk.Zeroize()
		return nil, err
	}
	return sk, nil
}

// Bytes returns a copy of the key bytes.
func (sk *SpendingKey) Bytes() [orchard.SpendingKeySize]byte { return sk.b }

// Zeroize overwrites the key bytes.
func (sk *SpendingKey) Zeroize() {
	for i := range sk.b {
		sk.b[i] = 0
	}
}

// spendAuthorizingKey returns ask, negated if needed so that [ask]G has an
// even y-coordinate, together with ak = [ask]G.
func (sk *SpendingKey) spendAuthorizingKey() (pallas.Scalar, pallas.Point, error) {
	ask := ExpandToScalar(sk.b[:], []byte{tagAsk})
	if ask.IsZero() == 1 {
		return pallas.Scalar{}, pallas.Point{}, orchard.Errorf(orchard.CodeInvalidSpendingKey, "ask is zero")
	}
	var ak pallas.Point
	ak.ScalarMult(&ask, redpallas.SpendAuth.Basepoint())
	enc := ak.Bytes()
	odd := int(enc[31] >> 7)

	var negAsk pallas.Scalar
	negAsk.Neg(&ask)
	ask.Select(&negAsk, &ask, odd)
	var negAk pallas.Point
	negAk.Neg(&ak)
	ak.Select(&negAk, &ak, odd)
	return ask, ak, nil
}

// FullViewingKey is (ak, nk, rivk) for one scope.
type FullViewingKey struct {
	ak    pallas.Point
	nk    pallas.Base
	rivk  pallas.Scalar
	scope Scope
}

// DeriveFullViewingKey derives the full viewing key of sk. With internal set
// the internal-scope key is returned.
func DeriveFullViewingKey(sk *SpendingKey, internal bool) (FullViewingKey, error) {
	_, ak, err := sk.spendAuthorizingKey()
	if err != nil {
		return FullViewingKey{}, err
	}
	fvk := FullViewingKey{
		ak:    ak,
		nk:    ExpandToBase(sk.b[:], []byte{tagNk}),
		rivk:  ExpandToScalar(sk.b[:], []byte{tagRivk}),
		scope: External,
	}
	if err := fvk.validate(); err != nil {
		return FullViewingKey{}, orchard.Wrap(orchard.CodeInvalidSpendingKey, err, "spending key derives a degenerate viewing key")
	}
	if internal {
		return DeriveInternalFullViewingKey(fvk), nil
	}
	return fvk, nil
}

// DeriveInternalFullViewingKey returns the internal-scope counterpart of
// fvk. It returns fvk unchanged if it already is internal.
func DeriveInternalFullViewingKey(fvk FullViewingKey) FullViewingKey {
	if fvk.scope == Internal {
		return fvk
	}
	akb, nkb := fvk.akBytes(), fvk.nk.Bytes()
	rivkb := fvk.rivk.Bytes()
	return FullViewingKey{
		ak:    fvk.ak,
		nk:    fvk.nk,
		rivk:  ExpandToScalar(rivkb[:], []byte{tagRivkInternal}, akb[:], nkb[:]),
		scope: Internal,
	}
}

// FullViewingKeyFromBytes decodes ak || nk || rivk. The result is treated as
// an external-scope key; decoding the bytes of an internal key yields a key
// whose "external" scope is that internal scope.
func FullViewingKeyFromBytes(b []byte) (FullViewingKey, error) {
	if len(b) != orchard.FullViewingKeySize {
		return FullViewingKey{}, orchard.Errorf(orchard.CodeInvalidEncoding,
			"full viewing key must be %d bytes, got %d", orchard.FullViewingKeySize, len(b))
	}
	var fvk FullViewingKey
	// ak must be a non-identity point with even y
	if b[31]&0x80 != 0 {
		return FullViewingKey{}, orchard.Errorf(orchard.CodeInvalidEncoding, "ak has odd y-coordinate")
	}
	if _, err := fvk.ak.SetBytes(b[:32]); err != nil || fvk.ak.IsIdentity() == 1 {
		return FullViewingKey{}, orchard.Errorf(orchard.CodeInvalidEncoding, "invalid ak")
	}
	if _, err := fvk.nk.SetBytes(b[32:64]); err != nil {
		return FullViewingKey{}, orchard.Errorf(orchard.CodeInvalidEncoding, "non-canonical nk")
	}
	if _, err := fvk.rivk.SetBytes(b[64:96]); err != nil {
		return FullViewingKey{}, orchard.Errorf(orchard.CodeInvalidEncoding, "non-canonical rivk")
	}
	if err := fvk.validate(); err != nil {
		return FullViewingKey{}, orchard.Wrap(orchard.CodeInvalidEncoding, err, "degenerate viewing key")
	}
	return fvk, nil
}

// validate checks that both scopes have a usable ivk.
func (fvk FullViewingKey) validate() error {
	if _, err := fvk.ivk(); err != nil {
		return err
	}
	_, err := DeriveInternalFullViewingKey(fvk).ivk()
	return err
}

// Bytes returns ak || nk || rivk.
func (fvk FullViewingKey) Bytes() [orchard.FullViewingKeySize]byte {
	var out [orchard.FullViewingKeySize]byte
	ak, nk, rivk := fvk.akBytes(), fvk.nk.Bytes(), fvk.rivk.Bytes()
	copy(out[:32], ak[:])
	copy(out[32:64], nk[:])
	copy(out[64:], rivk[:])
	return out
}

// KeyScope reports which scope fvk belongs to.
func (fvk FullViewingKey) KeyScope() Scope { return fvk.scope }

// SpendValidatingKey returns ak as a spend authorization verification key.
func (fvk FullViewingKey) SpendValidatingKey() redpallas.VerificationKey {
	return redpallas.NewVerificationKey(redpallas.SpendAuth, &fvk.ak)
}

// NullifierKey returns nk.
func (fvk FullViewingKey) NullifierKey() pallas.Base { return fvk.nk }

func (fvk FullViewingKey) akBytes() [32]byte {
	return fvk.ak.Bytes()
}

// ivk computes CommitIvk_rivk(Extract_P(ak), nk) as a scalar.
func (fvk FullViewingKey) ivk() (pallas.Scalar, error) {
	akx := fvk.ak.Extract()
	msg := sinsemilla.Bits(nil).AppendBase(&akx).AppendBase(&fvk.nk)
	x, err := sinsemilla.ShortCommit(commitIvkDomain, msg, &fvk.rivk)
	if err != nil {
		return pallas.Scalar{}, orchard.Wrap(orchard.CodeInvalidSpendingKey, err, "ivk is ⊥")
	}
	if x.IsZero() == 1 {
		return pallas.Scalar{}, orchard.Errorf(orchard.CodeInvalidSpendingKey, "ivk is zero")
	}
	var s pallas.Scalar
	return *s.SetBase(&x), nil
}

// dkOvk returns PRF^expand_rivk(0x82 || ak || nk) split into dk and ovk.
func (fvk FullViewingKey) dkOvk() (dk, ovk [32]byte) {
	akb, nkb := fvk.akBytes(), fvk.nk.Bytes()
	rivkb := fvk.rivk.Bytes()
	wide := Expand(rivkb[:], []byte{tagDkOvk}, akb[:], nkb[:])
	copy(dk[:], wide[:32])
	copy(ovk[:], wide[32:])
	return dk, ovk
}

func (fvk FullViewingKey) scoped(internal bool) FullViewingKey {
	if internal {
		return DeriveInternalFullViewingKey(fvk)
	}
	return fvk
}

// DeriveIncomingViewingKey returns the incoming viewing key of fvk, or of
// its internal counterpart when internal is set.
func DeriveIncomingViewingKey(fvk FullViewingKey, internal bool) (IncomingViewingKey, error) {
	fvk = fvk.scoped(internal)
	ivk, err := fvk.ivk()
	if err != nil {
		return IncomingViewingKey{}, err
	}
	dk, _ := fvk.dkOvk()
	return IncomingViewingKey{dk: dk, ivk: ivk}, nil
}

// OutgoingViewingKey recovers output notes from out_ciphertext.
type OutgoingViewingKey [orchard.OutgoingViewingKeySize]byte

// DeriveOutgoingViewingKey returns the outgoing viewing key of fvk, or of
// its internal counterpart when internal is set.
func DeriveOutgoingViewingKey(fvk FullViewingKey, internal bool) OutgoingViewingKey {
	_, ovk := fvk.scoped(internal).dkOvk()
	return OutgoingViewingKey(ovk)
}

// DeriveAddress returns the address at diversifier index index.
func DeriveAddress(fvk FullViewingKey, index uint64, internal bool) (Address, error) {
	ivk, err := DeriveIncomingViewingKey(fvk, internal)
	if err != nil {
		return Address{}, err
	}
	return ivk.Address(IndexFromUint64(index))
}

// Scope reports which of fvk's scopes owns addr. The boolean is false if
// neither does.
func (fvk FullViewingKey) Scope(addr Address) (Scope, bool) {
	for _, internal := range []bool{false, true} {
		ivk, err := DeriveIncomingViewingKey(fvk, internal)
		if err != nil {
			continue
		}
		if _, ok := ivk.DiversifierIndex(addr); ok {
			return fvk.scoped(internal).scope, true
		}
	}
	return External, false
}
