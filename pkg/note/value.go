package note

import (
	"sync"

	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/redpallas"
)

var valueBase = sync.OnceValue(func() *pallas.Point {
	return pallas.GroupHash("z.cash:Orchard-cv", []byte("v"))
})

// ValueCommitment is a homomorphic commitment [v] V + [rcv] R to a signed
// value.
type ValueCommitment struct {
	p pallas.Point
}

// ValueCommit commits to v with trapdoor rcv. R is the binding signature
// basepoint, so a sum of commitments to zero is a binding verification key.
func ValueCommit(v int64, rcv *pallas.Scalar) ValueCommitment {
	var s pallas.Scalar
	s.SetInt64(v)
	var c ValueCommitment
	c.p.ScalarMult(&s, valueBase())
	var blind pallas.Point
	blind.ScalarMult(rcv, redpallas.Binding.Basepoint())
	c.p.Add(&c.p, &blind)
	return c
}

// ValueCommitmentFromBytes decodes a value commitment.
func ValueCommitmentFromBytes(b []byte) (ValueCommitment, error) {
	var c ValueCommitment
	if _, err := c.p.SetBytes(b); err != nil {
		return ValueCommitment{}, err
	}
	return c, nil
}

// Add returns c + d.
func (c ValueCommitment) Add(d ValueCommitment) ValueCommitment {
	var out ValueCommitment
	out.p.Add(&c.p, &d.p)
	return out
}

// Sub returns c - d.
func (c ValueCommitment) Sub(d ValueCommitment) ValueCommitment {
	var out ValueCommitment
	out.p.Subtract(&c.p, &d.p)
	return out
}

// Point returns the committed point.
func (c ValueCommitment) Point() *pallas.Point { return new(pallas.Point).Set(&c.p) }

// Bytes returns the point encoding of c.
func (c ValueCommitment) Bytes() [32]byte { return c.p.Bytes() }
