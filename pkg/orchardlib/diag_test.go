//go:build diag

package orchardlib

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

func TestDiagPassthrough(t *testing.T) {
	data := []byte("payload")
	out, err := Diag("echo", data)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out, err = Diag("sinsemilla-bench:2", data)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = Diag("sinsemilla-bench:1", make([]byte, 317))
	requireCode(t, err, orchard.CodeInvalidLength)
	out, err = Diag("sinsemilla-bench:1", make([]byte, 316))
	require.NoError(t, err)
	assert.Len(t, out, 316)

	_, err = Diag("sinsemilla-bench:x", data)
	requireCode(t, err, orchard.CodeMalformedActionInfo)

	_, err = Diag("reboot", nil)
	requireCode(t, err, orchard.CodeMalformedActionInfo)
}

func TestDiagKeyComponents(t *testing.T) {
	sk := mustHex(t, vectorSK)
	for ins, want := range map[string]string{
		"ask":  "8eb8c401c287a6c13a2c345ad82172d86be4a8853525db602d14f630f4e61c17",
		"nk":   "9f2f826738945ad01f47f70db0c367c246c20c61ff5583948c39dea968fefd1b",
		"rivk": "021ccf89604f5f7cc6e034b32d338908b819fbe325fee6458b56b4ca71a7e43d",
		"ivk":  "85c8b5cd1ac3ec3ad7092132f97f0178b075c81a139fd460bbe0dfcd75514724",
		"dk":   "31d6a685be570f9faf3ca8b052e887840b2c9f8d67224ca82aefb9e2ee5bedaf",
		"ovk":  vectorOVK,
	} {
		out, err := Diag(ins, sk)
		require.NoError(t, err, ins)
		assert.Equal(t, want, hex.EncodeToString(out), ins)
	}
	t.Logf("✓ diag key components match vector #0")

	_, err := Diag("ask", sk[:31])
	requireCode(t, err, orchard.CodeInvalidSpendingKey)
}

func TestDiagDiversifyHash(t *testing.T) {
	addr := mustHex(t, vectorAddr0)
	gd, err := Diag("gd", addr[:orchard.DiversifierSize])
	require.NoError(t, err)

	var g pallas.Point
	_, err = g.SetBytes(gd)
	require.NoError(t, err)

	ivk, err := Diag("ivk", mustHex(t, vectorSK))
	require.NoError(t, err)
	var s pallas.Scalar
	_, err = s.SetBytes(ivk)
	require.NoError(t, err)

	var pkd pallas.Point
	pkd.ScalarMult(&s, &g)
	b := pkd.Bytes()
	assert.Equal(t, addr[orchard.DiversifierSize:], b[:])
	t.Logf("✓ [ivk] g_d equals pk_d of the default address")

	_, err = Diag("gd", addr[:10])
	requireCode(t, err, orchard.CodeInvalidLength)
}
