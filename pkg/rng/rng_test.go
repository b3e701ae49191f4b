package rng

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
)

func TestDeterministicKeystream(t *testing.T) {
	// ChaCha20 block 0 under the all-zero key and nonce
	s, err := Config{Mode: Deterministic}.Open()
	require.NoError(t, err)
	b, err := s.NextBytes(32)
	require.NoError(t, err)
	assert.Equal(t, "76b8e0ada0f13d90405d6ae55386bd28bdd219b8a08ded1aa836efcc8b770dc7", hex.EncodeToString(b))
}

func TestPositionContinuation(t *testing.T) {
	cfg := Config{Mode: Deterministic, Seed: [32]byte{7, 7, 7}}

	whole, err := cfg.Open()
	require.NoError(t, err)
	all, err := whole.NextBytes(200)
	require.NoError(t, err)

	first, err := cfg.Open()
	require.NoError(t, err)
	a, err := first.NextBytes(77)
	require.NoError(t, err)

	next := first.Next()
	assert.Equal(t, uint64(77), next.Pos)
	assert.Equal(t, uint64(77), first.Pos())
	assert.Equal(t, uint64(0), cfg.Pos, "caller config is a value")

	second, err := next.Open()
	require.NoError(t, err)
	b, err := second.NextBytes(123)
	require.NoError(t, err)

	assert.Equal(t, all, append(a, b...))
}

func TestLimitExhaustion(t *testing.T) {
	s, err := Config{Mode: Deterministic, Limit: 40}.Open()
	require.NoError(t, err)

	_, err = s.NextBytes(32)
	require.NoError(t, err)
	_, err = s.NextBytes(9)
	assert.ErrorIs(t, err, orchard.ErrRandomSourceExhausted)
	assert.Equal(t, uint64(32), s.Drawn())
}

func TestPositionBeyondKeystream(t *testing.T) {
	_, err := Config{Mode: Deterministic, Pos: maxStreamBytes}.Open()
	assert.ErrorIs(t, err, orchard.ErrRandomSourceExhausted)
}

func TestHardwareSource(t *testing.T) {
	s, err := Config{Mode: Hardware}.Open()
	require.NoError(t, err)
	a, err := s.NextBytes(32)
	require.NoError(t, err)
	b, err := s.NextBytes(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, Config{Mode: Hardware}, s.Next())
}

func TestUnknownMode(t *testing.T) {
	_, err := Config{Mode: "dice"}.Open()
	assert.Error(t, err)
}

type failingSource struct{}

func (failingSource) NextBytes(int) ([]byte, error) {
	return nil, orchard.Errorf(orchard.CodeRandomSourceExhausted, "empty")
}

func TestReaderAdapter(t *testing.T) {
	_, err := Reader(failingSource{}).Read(make([]byte, 4))
	assert.ErrorIs(t, err, orchard.ErrRandomSourceExhausted)

	s, err := Config{Mode: Deterministic}.Open()
	require.NoError(t, err)
	assert.Same(t, s, Reader(s))
}
