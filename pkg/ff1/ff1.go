// Package ff1 implements the FF1 format-preserving encryption mode with
// AES-256 for 88-bit binary numeral strings and an empty tweak. This is the
// exact instance Orchard uses to turn a diversifier index into a
// diversifier and back.
//
// Corresponds to:
//   - fpe crate, ff1::FF1<Aes256> with BinaryNumeralString
//   - orchard/src/keys.rs (DiversifierKey::get, diversifier_index)
//
// References:
//   - NIST SP 800-38G, Algorithms 7 and 8
//   - Zcash Protocol Specification, §5.4.4 (Pseudo Random Permutations)
package ff1

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

const (
	// Bits is the message length in binary numerals.
	Bits  = 88
	u     = Bits / 2
	v     = Bits - u
	b     = (v + 7) / 8     // bytes of NUM(B)
	d     = 4*((b+3)/4) + 4 // bytes of S kept per round
	radix = 2
	mask  = (uint64(1) << u) - 1
)

// Cipher is FF1-AES-256 keyed for 88-bit messages.
type Cipher struct {
	block cipher.Block
	p     [16]byte
}

// NewCipher returns an FF1 instance keyed with a 32-byte AES-256 key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("ff1: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ff1: %w", err)
	}
	c := &Cipher{block: block}
	c.p = [16]byte{1, 2, 1, 0, 0, radix, 10, u % 256}
	binary.BigEndian.PutUint32(c.p[8:], Bits)
	// tweak length is zero
	return c, nil
}

// round computes the low 64 bits of NUM(S) for round i over the numeral
// value x of the half being fed into the PRF.
func (c *Cipher) round(i int, x uint64) uint64 {
	var q [16]byte
	// zero tweak padding occupies q[0:9]
	q[15-b] = byte(i)
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], x)
	copy(q[16-b:], nb[8-b:])

	var y [16]byte
	c.block.Encrypt(y[:], c.p[:])
	for k := range y {
		y[k] ^= q[k]
	}
	c.block.Encrypt(y[:], y[:])
	// y mod 2^44 only depends on the last 8 of the d bytes of S
	return binary.BigEndian.Uint64(y[d-8 : d])
}

// Encrypt maps an 88-bit message, given as 11 bytes with bits in
// little-endian order, to its ciphertext in the same representation.
func (c *Cipher) Encrypt(msg [11]byte) [11]byte {
	a, bb := split(msg)
	for i := 0; i < 10; i++ {
		y := c.round(i, bb)
		cc := (a + y) & mask
		a, bb = bb, cc
	}
	return join(a, bb)
}

// Decrypt inverts Encrypt.
func (c *Cipher) Decrypt(ct [11]byte) [11]byte {
	a, bb := split(ct)
	for i := 9; i >= 0; i-- {
		y := c.round(i, a)
		cc := (bb - y) & mask
		bb, a = a, cc
	}
	return join(a, bb)
}

// split converts the little-endian bit string into the numeral values of
// its two halves. Numeral 0 of each half is its most significant digit.
func split(msg [11]byte) (a, bb uint64) {
	for k := 0; k < Bits; k++ {
		bit := uint64(msg[k/8]>>(k%8)) & 1
		if k < u {
			a |= bit << (u - 1 - k)
		} else {
			bb |= bit << (v - 1 - (k - u))
		}
	}
	return a, bb
}

func join(a, bb uint64) [11]byte {
	var out [11]byte
	for k := 0; k < Bits; k++ {
		var bit uint64
		if k < u {
			bit = (a >> (u - 1 - k)) & 1
		} else {
			bit = (bb >> (v - 1 - (k - u))) & 1
		}
		out[k/8] |= byte(bit) << (k % 8)
	}
	return out
}
