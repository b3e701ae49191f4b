// Package f4jumble implements F4Jumble, the length-preserving unkeyed
// permutation applied to unified address and viewing key encodings.
//
// The message is split into a left part of min(64, ℓ/2) bytes and a right
// part holding the rest. Four Feistel rounds then XOR pad streams into the
// halves in turn:
//
//	x = b ⊕ G_0(a)
//	y = a ⊕ H_0(x)
//	d = x ⊕ G_1(y)
//	c = y ⊕ H_1(d)
//
// and the output is c || d. Unjumble runs the same rounds in reverse order.
// Nothing here depends on the content of the message except the XORed
// bytes themselves, so the running time only depends on its length.
//
// Corresponds to:
//   - librustzcash/components/f4jumble/src/lib.rs
//
// References:
//   - ZIP 316 §Jumbling: https://zips.z.cash/zip-0316#jumbling
package f4jumble

import (
	"encoding/binary"
	"hash"

	blake2b "github.com/minio/blake2b-simd"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
)

const (
	// MinLength is the shortest message F4Jumble accepts.
	MinLength = 48
	// MaxLength is the longest message F4Jumble accepts: 2^16 G blocks of
	// 64 bytes for the right part plus a 64-byte left part.
	MaxLength = 4194368

	hPersonalization = "UA_F4Jumble_H"
	gPersonalization = "UA_F4Jumble_G"
)

func blake2bNew(size int, personalization []byte) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   uint8(size),
		Person: personalization,
	})
	if err != nil {
		// sizes and personalizations are fixed by this package
		panic(err)
	}
	return h
}

type state struct {
	left, right []byte
}

func newState(msg []byte) (*state, error) {
	if len(msg) < MinLength || len(msg) > MaxLength {
		return nil, orchard.Errorf(orchard.CodeInvalidLength,
			"f4jumble: message length %d outside [%d, %d]", len(msg), MinLength, MaxLength)
	}
	out := make([]byte, len(msg))
	copy(out, msg)
	leftLen := len(msg) / 2
	if leftLen > 64 {
		leftLen = 64
	}
	return &state{left: out[:leftLen], right: out[leftLen:]}, nil
}

// hRound XORs H_i(right) into left.
func (s *state) hRound(i byte) {
	h := blake2bNew(len(s.left), append([]byte(hPersonalization), i, 0, 0))
	h.Write(s.right)
	xorInto(s.left, h.Sum(nil))
}

// gRound XORs G_i(left) into right. G_i is the concatenation of 64-byte
// BLAKE2b outputs with personalization "UA_F4Jumble_G" || i || LE16(j).
func (s *state) gRound(i byte) {
	person := make([]byte, 16)
	copy(person, gPersonalization)
	person[13] = i
	for j := 0; j*64 < len(s.right); j++ {
		binary.LittleEndian.PutUint16(person[14:], uint16(j))
		h := blake2bNew(64, person)
		h.Write(s.left)
		end := (j + 1) * 64
		if end > len(s.right) {
			end = len(s.right)
		}
		xorInto(s.right[j*64:end], h.Sum(nil))
	}
}

func (s *state) bytes() []byte {
	// left and right share one backing array
	return s.left[:len(s.left)+len(s.right)]
}

func xorInto(dst, pad []byte) {
	for i := range dst {
		dst[i] ^= pad[i]
	}
}

// Jumble applies F4Jumble to msg and returns a new slice of the same
// length. It fails with orchard.ErrInvalidLength outside
// [MinLength, MaxLength].
func Jumble(msg []byte) ([]byte, error) {
	s, err := newState(msg)
	if err != nil {
		return nil, err
	}
	s.gRound(0)
	s.hRound(0)
	s.gRound(1)
	s.hRound(1)
	return s.bytes(), nil
}

// Unjumble inverts Jumble.
func Unjumble(msg []byte) ([]byte, error) {
	s, err := newState(msg)
	if err != nil {
		return nil, err
	}
	s.hRound(1)
	s.gRound(1)
	s.hRound(0)
	s.gRound(0)
	return s.bytes(), nil
}
