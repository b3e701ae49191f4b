// Package poseidon implements the Poseidon permutation P128Pow5T3 over the
// Pallas base field and the fixed-length sponge used by Orchard as
// PRF^nfOrchard.
//
// Parameters: width 3, rate 2, S-box x^5, 8 full rounds and 56 partial
// rounds. Round constants and the MDS matrix are produced at first use by
// the Grain LFSR procedure from the Poseidon reference implementation.
//
// Corresponds to:
//   - halo2_gadgets/src/poseidon/primitives.rs
//   - halo2_gadgets/src/poseidon/primitives/p128pow5t3.rs
//   - halo2_gadgets/src/poseidon/primitives/grain.rs
//
// References:
//   - Zcash Protocol Specification, §5.4.2 (PRF^nfOrchard)
//   - https://eprint.iacr.org/2019/458
package poseidon

import (
	"sync"

	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

const (
	width         = 3
	rate          = 2
	fullRounds    = 8
	partialRounds = 56
)

type constants struct {
	rc  [fullRounds + partialRounds][width]pallas.Base
	mds [width][width]pallas.Base
}

var loadConstants = sync.OnceValue(func() *constants {
	c := new(constants)
	g := newGrain(fullRounds, partialRounds)
	for r := range c.rc {
		for i := 0; i < width; i++ {
			c.rc[r][i] = g.nextFieldElement()
		}
	}

	var xs, ys [width]pallas.Base
	for {
		for i := 0; i < width; i++ {
			xs[i] = g.nextFieldElementReduced()
		}
		for i := 0; i < width; i++ {
			ys[i] = g.nextFieldElementReduced()
		}
		if distinct(xs, ys) {
			break
		}
	}
	for i := 0; i < width; i++ {
		for j := 0; j < width; j++ {
			var s pallas.Base
			s.Add(&xs[i], &ys[j])
			c.mds[i][j].Invert(&s)
		}
	}
	return c
})

func distinct(xs, ys [width]pallas.Base) bool {
	all := append(xs[:], ys[:]...)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Equal(&all[j]) == 1 {
				return false
			}
		}
	}
	for i := range xs {
		for j := range ys {
			var s pallas.Base
			if s.Add(&xs[i], &ys[j]).IsZero() == 1 {
				return false
			}
		}
	}
	return true
}

// State is the Poseidon permutation state.
type State [width]pallas.Base

func sbox(x *pallas.Base) {
	var x2, x4 pallas.Base
	x2.Square(x)
	x4.Square(&x2)
	x.Mul(x, &x4)
}

func (s *State) applyMDS(c *constants) {
	var out State
	for i := 0; i < width; i++ {
		for j := 0; j < width; j++ {
			var t pallas.Base
			t.Mul(&c.mds[i][j], &s[j])
			out[i].Add(&out[i], &t)
		}
	}
	*s = out
}

// Permute applies the P128Pow5T3 permutation in place.
func (s *State) Permute() {
	c := loadConstants()
	r := 0
	fullRound := func() {
		for i := 0; i < width; i++ {
			s[i].Add(&s[i], &c.rc[r][i])
			sbox(&s[i])
		}
		s.applyMDS(c)
		r++
	}
	partialRound := func() {
		for i := 0; i < width; i++ {
			s[i].Add(&s[i], &c.rc[r][i])
		}
		sbox(&s[0])
		s.applyMDS(c)
		r++
	}

	for i := 0; i < fullRounds/2; i++ {
		fullRound()
	}
	for i := 0; i < partialRounds; i++ {
		partialRound()
	}
	for i := 0; i < fullRounds/2; i++ {
		fullRound()
	}
}

// Hash returns Poseidon(a, b) with the ConstantLength<2> domain: the
// capacity element is initialized to 2 * 2^64.
func Hash(a, b *pallas.Base) pallas.Base {
	var s State
	s[0].Set(a)
	s[1].Set(b)
	var capacity [32]byte
	capacity[8] = 2 // two inputs, shifted left by 64 bits
	s[2].SetBits255(capacity)
	s.Permute()
	return s[0]
}
