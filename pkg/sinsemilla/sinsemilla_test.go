package sinsemilla

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func decodeBase(t *testing.T, s string) *pallas.Base {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	x, err := new(pallas.Base).SetBytes(b)
	require.NoError(t, err)
	return x
}

// CommitIvk over the first Orchard key test vector.
func TestShortCommitIvkVector(t *testing.T) {
	ak := decodeBase(t, "740bbe5d0580b2cad430180d02cc128b9a140d5e07c151721dc16d25d4e20f15")
	nk := decodeBase(t, "9f2f826738945ad01f47f70db0c367c246c20c61ff5583948c39dea968fefd1b")
	rivkBytes, _ := hex.DecodeString("021ccf89604f5f7cc6e034b32d338908b819fbe325fee6458b56b4ca71a7e43d")
	rivk, err := new(pallas.Scalar).SetBytes(rivkBytes)
	require.NoError(t, err)

	msg := Bits(nil).AppendBase(ak).AppendBase(nk)
	require.Len(t, msg, 510)

	ivk, err := ShortCommit("z.cash:Orchard-CommitIvk", msg, rivk)
	require.NoError(t, err)
	got := ivk.Bytes()
	assert.Equal(t, "85c8b5cd1ac3ec3ad7092132f97f0178b075c81a139fd460bbe0dfcd75514724", hex.EncodeToString(got[:]))
}

func TestHashIsDeterministic(t *testing.T) {
	msg := Bits(nil).AppendUint64(0x2a5, 10).AppendBytes([]byte("orchard"))
	a, err := Hash("z.cash:test-Sinsemilla", msg)
	require.NoError(t, err)
	b, err := Hash("z.cash:test-Sinsemilla", msg)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Equal(&b))

	c, err := Hash("z.cash:other-domain", msg)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Equal(&c))
}

func TestMessageTooLong(t *testing.T) {
	msg := make(Bits, K*C+1)
	_, err := HashToPoint("z.cash:test-Sinsemilla", msg)
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestAppendBits(t *testing.T) {
	m := Bits(nil).AppendBytes([]byte{0x05}).AppendUint64(2, 3)
	assert.Equal(t, Bits{1, 0, 1, 0, 0, 0, 0, 0, 0, 1, 0}, m)
}
