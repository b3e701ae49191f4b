// Package sinsemilla implements the Sinsemilla hash and commitment over
// Pallas.
//
// Sinsemilla hashes a bit string in 10-bit chunks. Each chunk selects one
// of 1024 fixed generators S(j), which are accumulated with incomplete
// addition starting from a per-domain point Q(D):
//
//	Acc_0 = Q(D)
//	Acc_{i+1} = (Acc_i + S(m_{i+1})) + Acc_i
//
// Corresponds to:
//   - orchard/src/spec.rs (sinsemilla helpers)
//   - sinsemilla/src/primitives.rs
//
// References:
//   - Zcash Protocol Specification, §5.4.1.9 (Sinsemilla hash function)
//   - Zcash Protocol Specification, §5.4.8.4 (Sinsemilla commitments)
package sinsemilla

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

const (
	// K is the chunk size in bits.
	K = 10
	// C is the maximum number of chunks in one message.
	C = 253

	qPersonalization = "z.cash:SinsemillaQ"
	sPersonalization = "z.cash:SinsemillaS"
)

// ErrTooLong is returned for messages longer than K*C bits.
var ErrTooLong = errors.New("sinsemilla: message too long")

// ErrExceptional is returned when an incomplete addition hits an
// exceptional case. This happens with negligible probability.
var ErrExceptional = errors.New("sinsemilla: exceptional case in incomplete addition")

var (
	generatorsOnce sync.Once
	generators     [1 << K]pallas.Point
)

// s returns S(j).
func s(j uint32) *pallas.Point {
	generatorsOnce.Do(func() {
		var msg [4]byte
		for i := range generators {
			binary.LittleEndian.PutUint32(msg[:], uint32(i))
			generators[i].Set(pallas.GroupHash(sPersonalization, msg[:]))
		}
	})
	return &generators[j]
}

// Bits is a little-endian bit string, one bit per byte (0 or 1).
type Bits []byte

// AppendBytes appends the bits of b, least significant bit first.
func (m Bits) AppendBytes(b []byte) Bits {
	for _, x := range b {
		for i := 0; i < 8; i++ {
			m = append(m, (x>>i)&1)
		}
	}
	return m
}

// AppendUint64 appends the low n bits of v, least significant bit first.
func (m Bits) AppendUint64(v uint64, n int) Bits {
	for i := 0; i < n; i++ {
		m = append(m, byte(v>>i)&1)
	}
	return m
}

// AppendBase appends the low 255 bits of the canonical encoding of x.
func (m Bits) AppendBase(x *pallas.Base) Bits {
	b := x.Bytes()
	return m.AppendBytes(b[:])[:len(m)+255]
}

// HashToPoint returns SinsemillaHashToPoint(D, M).
func HashToPoint(domain string, msg Bits) (*pallas.Point, error) {
	if len(msg) > K*C {
		return nil, ErrTooLong
	}
	acc := pallas.GroupHash(qPersonalization, []byte(domain))

	var tmp pallas.Point
	for i := 0; i < len(msg); i += K {
		var chunk uint32
		for j := 0; j < K && i+j < len(msg); j++ {
			chunk |= uint32(msg[i+j]&1) << j
		}
		if !tmp.AddIncomplete(acc, s(chunk)) {
			return nil, ErrExceptional
		}
		if !acc.AddIncomplete(&tmp, acc) {
			return nil, ErrExceptional
		}
	}
	return acc, nil
}

// Hash returns SinsemillaHash(D, M), the x-coordinate of HashToPoint.
func Hash(domain string, msg Bits) (pallas.Base, error) {
	p, err := HashToPoint(domain, msg)
	if err != nil {
		return pallas.Base{}, err
	}
	return p.Extract(), nil
}

// Commit returns SinsemillaCommit_r(D, M) =
// HashToPoint(D || "-M", M) + [r] GroupHash(D || "-r", "").
func Commit(domain string, msg Bits, r *pallas.Scalar) (*pallas.Point, error) {
	h, err := HashToPoint(domain+"-M", msg)
	if err != nil {
		return nil, err
	}
	var blind pallas.Point
	blind.ScalarMult(r, pallas.GroupHash(domain+"-r", nil))
	return h.Add(h, &blind), nil
}

// ShortCommit returns SinsemillaShortCommit_r(D, M), the x-coordinate of
// Commit.
func ShortCommit(domain string, msg Bits, r *pallas.Scalar) (pallas.Base, error) {
	p, err := Commit(domain, msg, r)
	if err != nil {
		return pallas.Base{}, err
	}
	return p.Extract(), nil
}
