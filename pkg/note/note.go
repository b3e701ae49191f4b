// Package note implements Orchard notes: their commitments, nullifiers,
// value commitments, and the in-band encryption that carries a note to its
// recipient and, optionally, back to the sender's outgoing viewing key.
//
// A note is (recipient, value, ρ, rseed). ψ, rcm and the ephemeral secret
// esk are all derived from rseed and ρ, so the 115-byte note encoding is
// sufficient to recompute every commitment.
//
// Corresponds to:
//   - orchard/src/note.rs, note/commitment.rs, note/nullifier.rs
//   - orchard/src/value.rs (ValueCommitment)
//   - orchard/src/note_encryption.rs
//
// References:
//   - Zcash Protocol Specification, §3.2 (Notes), §5.4.8.4 (Sinsemilla
//     commitments), §4.16 (Note Commitments and Nullifiers)
//   - ZIP 212
package note

import (
	"encoding/binary"
	"sync"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/poseidon"
	"github.com/suffix-labs/orchardlib/pkg/rng"
	"github.com/suffix-labs/orchardlib/pkg/sinsemilla"
)

const noteCommitDomain = "z.cash:Orchard-NoteCommit"

// nullifierBase is K = GroupHash("z.cash:Orchard", "K").
var nullifierBase = sync.OnceValue(func() *pallas.Point {
	return pallas.GroupHash("z.cash:Orchard", []byte("K"))
})

// Note is an Orchard note.
type Note struct {
	Recipient keys.Address
	Value     uint64
	Rho       pallas.Base
	Rseed     [32]byte
}

// New checks that the parts form a valid note: esk must be non-zero and
// the commitment must not be ⊥.
func New(recipient keys.Address, value uint64, rho pallas.Base, rseed [32]byte) (Note, error) {
	n := Note{Recipient: recipient, Value: value, Rho: rho, Rseed: rseed}
	if esk := n.Esk(); esk.IsZero() == 1 {
		return Note{}, orchard.Errorf(orchard.CodeMalformedActionInfo, "note: rseed derives a zero esk")
	}
	if _, err := n.Commitment(); err != nil {
		return Note{}, err
	}
	return n, nil
}

// NewRandom draws rseed from src until the note is valid.
func NewRandom(recipient keys.Address, value uint64, rho pallas.Base, src rng.Source) (Note, error) {
	for {
		b, err := src.NextBytes(32)
		if err != nil {
			return Note{}, err
		}
		var rseed [32]byte
		copy(rseed[:], b)
		n, err := New(recipient, value, rho, rseed)
		if err == nil {
			return n, nil
		}
	}
}

// FromBytes decodes address || LE64(value) || ρ || rseed.
func FromBytes(b []byte) (Note, error) {
	if len(b) != orchard.NoteSize {
		return Note{}, orchard.Errorf(orchard.CodeMalformedActionInfo,
			"note must be %d bytes, got %d", orchard.NoteSize, len(b))
	}
	addr, err := keys.AddressFromBytes(b[:43])
	if err != nil {
		return Note{}, orchard.Wrap(orchard.CodeMalformedActionInfo, err, "note recipient")
	}
	var rho pallas.Base
	if _, err := rho.SetBytes(b[51:83]); err != nil {
		return Note{}, orchard.Errorf(orchard.CodeMalformedActionInfo, "note: non-canonical rho")
	}
	var rseed [32]byte
	copy(rseed[:], b[83:])
	return New(addr, binary.LittleEndian.Uint64(b[43:51]), rho, rseed)
}

// Bytes encodes n as address || LE64(value) || ρ || rseed.
func (n Note) Bytes() [orchard.NoteSize]byte {
	var out [orchard.NoteSize]byte
	addr := n.Recipient.Bytes()
	copy(out[:43], addr[:])
	binary.LittleEndian.PutUint64(out[43:51], n.Value)
	rho := n.Rho.Bytes()
	copy(out[51:83], rho[:])
	copy(out[83:], n.Rseed[:])
	return out
}

func (n Note) expand(tag byte) [64]byte {
	rho := n.Rho.Bytes()
	return keys.Expand(n.Rseed[:], []byte{tag}, rho[:])
}

// Psi returns ψ = ToBase(PRF^expand_rseed(0x09 || ρ)).
func (n Note) Psi() pallas.Base {
	wide := n.expand(keys.TagPsi)
	var x pallas.Base
	x.SetWideBytes(wide[:])
	return x
}

// Rcm returns the commitment trapdoor ToScalar(PRF^expand_rseed(0x05 || ρ)).
func (n Note) Rcm() pallas.Scalar {
	wide := n.expand(keys.TagRcm)
	var s pallas.Scalar
	s.SetWideBytes(wide[:])
	return s
}

// Esk returns the ephemeral secret ToScalar(PRF^expand_rseed(0x04 || ρ)).
func (n Note) Esk() pallas.Scalar {
	wide := n.expand(keys.TagEsk)
	var s pallas.Scalar
	s.SetWideBytes(wide[:])
	return s
}

// Commitment returns cm = NoteCommit_rcm(repr(g_d), repr(pk_d), v, ρ, ψ).
func (n Note) Commitment() (*pallas.Point, error) {
	gd := n.Recipient.GD().Bytes()
	pkd := n.Recipient.PkD().Bytes()
	psi := n.Psi()
	msg := sinsemilla.Bits(nil).
		AppendBytes(gd[:]).
		AppendBytes(pkd[:]).
		AppendUint64(n.Value, 64).
		AppendBase(&n.Rho).
		AppendBase(&psi)
	rcm := n.Rcm()
	cm, err := sinsemilla.Commit(noteCommitDomain, msg, &rcm)
	if err != nil {
		return nil, orchard.Wrap(orchard.CodeMalformedActionInfo, err, "note commitment")
	}
	return cm, nil
}

// ExtractedCommitment returns cmx = Extract_P(cm).
func (n Note) ExtractedCommitment() (pallas.Base, error) {
	cm, err := n.Commitment()
	if err != nil {
		return pallas.Base{}, err
	}
	return cm.Extract(), nil
}

// Nullifier returns nf = Extract_P([(PRF^nf_nk(ρ) + ψ) mod p] K + cm).
func (n Note) Nullifier(nk *pallas.Base) (pallas.Base, error) {
	cm, err := n.Commitment()
	if err != nil {
		return pallas.Base{}, err
	}
	prf := poseidon.Hash(nk, &n.Rho)
	psi := n.Psi()
	prf.Add(&prf, &psi)

	var s pallas.Scalar
	s.SetBase(&prf)
	var p pallas.Point
	p.ScalarMult(&s, nullifierBase())
	p.Add(&p, cm)
	return p.Extract(), nil
}
