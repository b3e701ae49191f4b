package poseidon

import (
	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

// grain is the self-shrinking Grain LFSR used to derive Poseidon round
// constants and the MDS matrix.
type grain struct {
	state [80]byte
	head  int
}

func newGrain(fullRounds, partialRounds int) *grain {
	g := &grain{}
	bits := make([]byte, 0, 80)
	push := func(v, n int) {
		for i := n - 1; i >= 0; i-- {
			bits = append(bits, byte(v>>i)&1)
		}
	}
	push(1, 2)    // prime field
	push(0, 4)    // x^alpha S-box
	push(255, 12) // field size
	push(width, 12)
	push(fullRounds, 10)
	push(partialRounds, 10)
	for len(bits) < 80 {
		bits = append(bits, 1)
	}
	copy(g.state[:], bits)
	for i := 0; i < 160; i++ {
		g.clock()
	}
	return g
}

func (g *grain) at(i int) byte {
	return g.state[(g.head+i)%80]
}

func (g *grain) clock() byte {
	b := g.at(62) ^ g.at(51) ^ g.at(38) ^ g.at(23) ^ g.at(13) ^ g.at(0)
	g.state[g.head] = b
	g.head = (g.head + 1) % 80
	return b
}

// nextBit applies the shrinking rule: pairs (1, b) output b, pairs
// (0, b) are discarded.
func (g *grain) nextBit() byte {
	for {
		first := g.clock()
		second := g.clock()
		if first == 1 {
			return second
		}
	}
}

// next255 reads 255 bits, most significant first.
func (g *grain) next255() [32]byte {
	var le [32]byte
	for i := 254; i >= 0; i-- {
		le[i/8] |= g.nextBit() << (uint(i) % 8)
	}
	return le
}

// nextFieldElement draws elements until one is below p.
func (g *grain) nextFieldElement() pallas.Base {
	for {
		b := g.next255()
		var x pallas.Base
		if _, err := x.SetBytes(b[:]); err == nil {
			return x
		}
	}
}

// nextFieldElementReduced draws one element and reduces it mod p.
func (g *grain) nextFieldElementReduced() pallas.Base {
	var x pallas.Base
	x.SetBits255(g.next255())
	return x
}
