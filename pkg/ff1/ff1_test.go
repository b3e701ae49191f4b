package ff1

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dk from the first Orchard key test vector.
const testDK = "31d6a685be570f9faf3ca8b052e887840b2c9f8d67224ca82aefb9e2ee5bedaf"

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := hex.DecodeString(testDK)
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)
	return c
}

func TestEncryptDiversifierVectors(t *testing.T) {
	c := newTestCipher(t)

	cases := []struct {
		index uint64
		want  string
	}{
		{0, "8ff3386971cb64b8e77899"},
		{1, "58d291e1780d7fe4eb9464"},
	}
	for _, tc := range cases {
		var in [11]byte
		for i := 0; i < 8; i++ {
			in[i] = byte(tc.index >> (8 * i))
		}
		out := c.Encrypt(in)
		assert.Equal(t, tc.want, hex.EncodeToString(out[:]), "index %d", tc.index)
	}
}

func TestDecryptInvertsEncrypt(t *testing.T) {
	c := newTestCipher(t)
	for _, in := range [][11]byte{
		{},
		{1},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x0f, 0xed, 0xcb},
	} {
		ct := c.Encrypt(in)
		assert.Equal(t, in, c.Decrypt(ct))
	}
}

func TestNewCipherKeyLength(t *testing.T) {
	_, err := NewCipher(make([]byte, 16))
	assert.Error(t, err)
}
