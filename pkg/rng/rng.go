// Package rng provides the randomness source consumed by key handling,
// signing and shielding.
//
// Exactly one of two modes is selected per invocation through Config:
//
//   - Deterministic: the ChaCha20 keystream under a 32-byte seed with a
//     zero nonce, read from byte offset Pos. Used for reproducible test
//     vectors and for devices that persist a position between calls.
//   - Hardware: the operating system entropy source (crypto/rand).
//
// A Config is a plain value. Opening it yields a Stream that tracks how far
// it has read; the caller decides whether to persist Stream.Next() after a
// successful operation, so a failed operation never advances the caller's
// configuration.
package rng

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
)

// Mode selects the kind of randomness.
type Mode string

const (
	Deterministic Mode = "deterministic"
	Hardware      Mode = "hardware"
)

// maxStreamBytes is the length of one ChaCha20 keystream with a 32-bit
// block counter.
const maxStreamBytes = uint64(1) << 38

// Config selects and parameterizes a randomness source.
type Config struct {
	Mode  Mode
	Seed  [32]byte
	Pos   uint64
	Limit uint64 // bytes one Stream may draw, 0 = unbounded
}

// Source supplies random bytes.
type Source interface {
	NextBytes(n int) ([]byte, error)
}

// Stream is an opened Config. It implements Source and io.Reader.
type Stream struct {
	cfg    Config
	cipher *chacha20.Cipher
	drawn  uint64
	reader io.Reader
}

// Open validates c and returns a Stream positioned at c.Pos.
func (c Config) Open() (*Stream, error) {
	s := &Stream{cfg: c}
	switch c.Mode {
	case Deterministic:
		if c.Pos >= maxStreamBytes {
			return nil, orchard.Errorf(orchard.CodeRandomSourceExhausted,
				"rng: position %d beyond keystream", c.Pos)
		}
		var nonce [chacha20.NonceSize]byte
		cipher, err := chacha20.NewUnauthenticatedCipher(c.Seed[:], nonce[:])
		if err != nil {
			return nil, fmt.Errorf("rng: %w", err)
		}
		cipher.SetCounter(uint32(c.Pos / 64))
		if skip := c.Pos % 64; skip > 0 {
			discard := make([]byte, skip)
			cipher.XORKeyStream(discard, discard)
		}
		s.cipher = cipher
	case Hardware:
		s.reader = rand.Reader
	default:
		return nil, fmt.Errorf("rng: unknown mode %q", c.Mode)
	}
	return s, nil
}

// NextBytes returns n fresh random bytes, or ErrRandomSourceExhausted when
// the configured limit or the keystream would be exceeded, or the hardware
// source fails.
func (s *Stream) NextBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("rng: negative length %d", n)
	}
	want := uint64(n)
	if s.cfg.Limit != 0 && s.drawn+want > s.cfg.Limit {
		return nil, orchard.Errorf(orchard.CodeRandomSourceExhausted,
			"rng: limit of %d bytes reached", s.cfg.Limit)
	}
	out := make([]byte, n)
	if s.cipher != nil {
		if s.cfg.Pos+s.drawn+want > maxStreamBytes {
			return nil, orchard.Errorf(orchard.CodeRandomSourceExhausted, "rng: keystream exhausted")
		}
		s.cipher.XORKeyStream(out, out)
	} else {
		if _, err := io.ReadFull(s.reader, out); err != nil {
			return nil, orchard.Wrap(orchard.CodeRandomSourceExhausted, err, "rng: hardware source")
		}
	}
	s.drawn += want
	return out, nil
}

// Read fills p, so a Stream can be passed where an io.Reader is expected.
func (s *Stream) Read(p []byte) (int, error) {
	b, err := s.NextBytes(len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, b), nil
}

// Drawn returns the number of bytes read so far.
func (s *Stream) Drawn() uint64 {
	return s.drawn
}

// Pos returns the keystream offset of the next byte. It is always 0 for
// hardware sources.
func (s *Stream) Pos() uint64 {
	if s.cipher == nil {
		return 0
	}
	return s.cfg.Pos + s.drawn
}

// Next returns the configuration that continues where this stream stopped.
// For hardware sources it is the original configuration.
func (s *Stream) Next() Config {
	next := s.cfg
	if next.Mode == Deterministic {
		next.Pos += s.drawn
	}
	return next
}

// Reader adapts any Source to io.Reader.
func Reader(src Source) io.Reader {
	if s, ok := src.(*Stream); ok {
		return s
	}
	return sourceReader{src}
}

type sourceReader struct {
	src Source
}

func (r sourceReader) Read(p []byte) (int, error) {
	b, err := r.src.NextBytes(len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, b), nil
}
