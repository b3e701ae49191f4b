package shield

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/note"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/redpallas"
	"github.com/suffix-labs/orchardlib/pkg/rng"
)

// ErrNotAuthorized is returned when serializing a bundle that still lacks
// signatures.
var ErrNotAuthorized = errors.New("shield: bundle is not fully authorized")

// Bundle is the result of Shield.
//
// Corresponds to: orchard::Bundle<InProgress<Unproven, Unauthorized>>
// followed by the authorization steps of orchard::bundle.
type Bundle struct {
	Actions      []Action
	Flags        uint8
	ValueBalance int64
	Anchor       [32]byte
	Proof        []byte // zero-length placeholder; proving is out of scope
	BindingSig   *redpallas.Signature

	// NextRNG continues the randomness configuration passed to Shield.
	NextRNG rng.Config

	bsk       pallas.Scalar
	dummyKeys []*keys.SpendingKey
}

// Bsk returns the binding signing key Σ rcv.
func (b *Bundle) Bsk() pallas.Scalar { return b.bsk }

// BindingValidatingKey returns bvk = Σ cv_net − ValueCommit_0(value_balance).
func (b *Bundle) BindingValidatingKey() redpallas.VerificationKey {
	sum := note.ValueCommit(0, new(pallas.Scalar))
	for i := range b.Actions {
		sum = sum.Add(b.Actions[i].CvNet)
	}
	sum = sum.Sub(note.ValueCommit(b.ValueBalance, new(pallas.Scalar)))
	return redpallas.NewVerificationKey(redpallas.Binding, sum.Point())
}

// SignDummySpends signs every dummy spend over sighash and zeroes the
// throwaway keys.
func (b *Bundle) SignDummySpends(sighash []byte, rand io.Reader) error {
	for i, sk := range b.dummyKeys {
		if sk == nil {
			continue
		}
		sig, err := keys.Sign(sk, &b.Actions[i].Alpha, sighash, rand)
		if err != nil {
			return err
		}
		b.Actions[i].SpendAuthSig = &sig
		sk.Zeroize()
		b.dummyKeys[i] = nil
	}
	return nil
}

// DummySpendingKey returns the throwaway key of action i if it is an
// unsigned dummy spend. The key controls only a zero-valued note.
func (b *Bundle) DummySpendingKey(i int) (*keys.SpendingKey, bool) {
	if i < 0 || i >= len(b.dummyKeys) || b.dummyKeys[i] == nil {
		return nil, false
	}
	return b.dummyKeys[i], true
}

// ApplySpendAuth stores sig for action i after checking it against rk_i.
func (b *Bundle) ApplySpendAuth(i int, sighash []byte, sig redpallas.Signature) error {
	if i < 0 || i >= len(b.Actions) {
		return orchard.Errorf(orchard.CodeMalformedActionInfo, "action index %d out of range", i)
	}
	if err := b.Actions[i].Rk.Verify(sighash, sig); err != nil {
		return orchard.Wrap(orchard.CodeSigning, err, "spend authorization does not verify under rk")
	}
	b.Actions[i].SpendAuthSig = &sig
	return nil
}

// SignBinding signs sighash with bsk and checks the result against the
// binding validating key derived from the public action data.
func (b *Bundle) SignBinding(sighash []byte, rand io.Reader) error {
	sk, err := redpallas.NewSigningKey(redpallas.Binding, &b.bsk)
	if err != nil {
		return orchard.Wrap(orchard.CodeSigning, err, "binding signing key")
	}
	defer sk.Zeroize()
	if sk.VerificationKey().Bytes() != b.BindingValidatingKey().Bytes() {
		return orchard.Errorf(orchard.CodeSigning, "bsk does not match the value commitments")
	}
	sig, err := sk.Sign(rand, sighash)
	if err != nil {
		var oe *orchard.Error
		if errors.As(err, &oe) {
			return oe
		}
		return orchard.Wrap(orchard.CodeSigning, err, "binding signature")
	}
	b.BindingSig = &sig
	return nil
}

// Authorized reports whether every action and the binding are signed.
func (b *Bundle) Authorized() bool {
	if b.BindingSig == nil {
		return false
	}
	for i := range b.Actions {
		if b.Actions[i].SpendAuthSig == nil {
			return false
		}
	}
	return true
}

// Zeroize clears bsk and any unused dummy spending keys.
func (b *Bundle) Zeroize() {
	b.bsk.Zero()
	for i, sk := range b.dummyKeys {
		if sk != nil {
			sk.Zeroize()
			b.dummyKeys[i] = nil
		}
	}
}

// writeCompactSize writes a Bitcoin-style variable-length integer.
func writeCompactSize(w *bytes.Buffer, n uint64) {
	switch {
	case n < 0xfd:
		w.WriteByte(byte(n))
	case n <= 0xffff:
		w.WriteByte(0xfd)
		binary.Write(w, binary.LittleEndian, uint16(n))
	case n <= 0xffffffff:
		w.WriteByte(0xfe)
		binary.Write(w, binary.LittleEndian, uint32(n))
	default:
		w.WriteByte(0xff)
		binary.Write(w, binary.LittleEndian, n)
	}
}

// MarshalBinary writes the Orchard part of a v5 transaction:
//
//	compactSize(n) || n × (cv || nf || rk || cmx || epk || enc || out)
//	|| flags || valueBalance || anchor || compactSize(|proof|) || proof
//	|| n × spendAuthSig || bindingSig
func (b *Bundle) MarshalBinary() ([]byte, error) {
	if !b.Authorized() {
		return nil, ErrNotAuthorized
	}
	var buf bytes.Buffer
	writeCompactSize(&buf, uint64(len(b.Actions)))
	for i := range b.Actions {
		a := &b.Actions[i]
		cv, nf, rk, cmx := a.CvNet.Bytes(), a.Nullifier.Bytes(), a.Rk.Bytes(), a.Cmx.Bytes()
		buf.Write(cv[:])
		buf.Write(nf[:])
		buf.Write(rk[:])
		buf.Write(cmx[:])
		buf.Write(a.Ciphertext.EphemeralKey[:])
		buf.Write(a.Ciphertext.EncCiphertext[:])
		buf.Write(a.Ciphertext.OutCiphertext[:])
	}
	buf.WriteByte(b.Flags)
	binary.Write(&buf, binary.LittleEndian, b.ValueBalance)
	buf.Write(b.Anchor[:])
	writeCompactSize(&buf, uint64(len(b.Proof)))
	buf.Write(b.Proof)
	for i := range b.Actions {
		buf.Write(b.Actions[i].SpendAuthSig[:])
	}
	buf.Write(b.BindingSig[:])
	return buf.Bytes(), nil
}
