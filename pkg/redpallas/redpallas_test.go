package redpallas

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

func scalarHex(t *testing.T, s string) *pallas.Scalar {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	x, err := new(pallas.Scalar).SetBytes(b)
	require.NoError(t, err)
	return x
}

func fixedRand(b byte) *bytes.Reader {
	return bytes.NewReader(bytes.Repeat([]byte{b}, 80))
}

// ask of the first Orchard key test vector.
const vectorAsk = "8eb8c401c287a6c13a2c345ad82172d86be4a8853525db602d14f630f4e61c17"

func TestSpendAuthVerificationKey(t *testing.T) {
	sk, err := NewSigningKey(SpendAuth, scalarHex(t, vectorAsk))
	require.NoError(t, err)
	vk := sk.VerificationKey().Bytes()
	assert.Equal(t, "740bbe5d0580b2cad430180d02cc128b9a140d5e07c151721dc16d25d4e20f15", hex.EncodeToString(vk[:]))
}

func TestRandomizedKeysAgree(t *testing.T) {
	sk, err := NewSigningKey(SpendAuth, scalarHex(t, vectorAsk))
	require.NoError(t, err)
	alpha := new(pallas.Scalar).SetUint64(7)

	rsk, err := sk.Randomize(alpha)
	require.NoError(t, err)
	rk := sk.VerificationKey().Randomize(alpha)
	assert.Equal(t, rsk.VerificationKey().Bytes(), rk.Bytes())

	b := rk.Bytes()
	assert.Equal(t, "1768d8d66ca1f1dc6d82c387043fb2b19592a39ebbbccf8273010a4409a18d83", hex.EncodeToString(b[:]))
}

func TestSignVerify(t *testing.T) {
	msg := []byte("sighash")
	for _, typ := range []SigType{SpendAuth, Binding} {
		t.Run(typ.String(), func(t *testing.T) {
			sk, err := NewSigningKey(typ, new(pallas.Scalar).SetUint64(123456789))
			require.NoError(t, err)
			sig, err := sk.Sign(fixedRand(1), msg)
			require.NoError(t, err)
			vk := sk.VerificationKey()
			require.NoError(t, vk.Verify(msg, sig))

			assert.ErrorIs(t, vk.Verify([]byte("other"), sig), ErrInvalidSignature)

			tampered := sig
			tampered[40] ^= 1
			assert.ErrorIs(t, vk.Verify(msg, tampered), ErrInvalidSignature)
		})
	}
}

func TestSignatureDependsOnRandomness(t *testing.T) {
	sk, err := NewSigningKey(SpendAuth, new(pallas.Scalar).SetUint64(99))
	require.NoError(t, err)
	a, err := sk.Sign(fixedRand(1), []byte("m"))
	require.NoError(t, err)
	b, err := sk.Sign(fixedRand(2), []byte("m"))
	require.NoError(t, err)
	c, err := sk.Sign(fixedRand(1), []byte("m"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}

func TestRandomizedSignatureOnlyVerifiesUnderRk(t *testing.T) {
	sk, err := NewSigningKey(SpendAuth, scalarHex(t, vectorAsk))
	require.NoError(t, err)
	alpha := new(pallas.Scalar).SetUint64(31337)
	rsk, err := sk.Randomize(alpha)
	require.NoError(t, err)

	msg := []byte("sighash")
	sig, err := rsk.Sign(fixedRand(9), msg)
	require.NoError(t, err)

	require.NoError(t, sk.VerificationKey().Randomize(alpha).Verify(msg, sig))
	assert.ErrorIs(t, sk.VerificationKey().Verify(msg, sig), ErrInvalidSignature)
	other := new(pallas.Scalar).SetUint64(31338)
	assert.ErrorIs(t, sk.VerificationKey().Randomize(other).Verify(msg, sig), ErrInvalidSignature)
}

func TestCrossTypeVerificationFails(t *testing.T) {
	x := new(pallas.Scalar).SetUint64(5)
	spend, err := NewSigningKey(SpendAuth, x)
	require.NoError(t, err)
	sig, err := spend.Sign(fixedRand(3), []byte("m"))
	require.NoError(t, err)

	binding, err := NewSigningKey(Binding, x)
	require.NoError(t, err)
	assert.ErrorIs(t, binding.VerificationKey().Verify([]byte("m"), sig), ErrInvalidSignature)
}

func TestNonCanonicalS(t *testing.T) {
	sk, err := NewSigningKey(SpendAuth, new(pallas.Scalar).SetUint64(5))
	require.NoError(t, err)
	sig, err := sk.Sign(fixedRand(4), []byte("m"))
	require.NoError(t, err)
	for i := 32; i < 64; i++ {
		sig[i] = 0xff
	}
	assert.ErrorIs(t, sk.VerificationKey().Verify([]byte("m"), sig), ErrInvalidSignature)
}

func TestZeroKeys(t *testing.T) {
	_, err := NewSigningKey(SpendAuth, new(pallas.Scalar))
	assert.ErrorIs(t, err, ErrZeroKey)

	one := new(pallas.Scalar).SetUint64(1)
	sk, err := NewSigningKey(SpendAuth, one)
	require.NoError(t, err)
	_, err = sk.Randomize(new(pallas.Scalar).Neg(one))
	assert.ErrorIs(t, err, ErrZeroKey)
}

func TestShortRandomness(t *testing.T) {
	sk, err := NewSigningKey(SpendAuth, new(pallas.Scalar).SetUint64(5))
	require.NoError(t, err)
	_, err = sk.Sign(bytes.NewReader(make([]byte, 10)), []byte("m"))
	assert.Error(t, err)
}

func TestVerificationKeyRoundTrip(t *testing.T) {
	sk, err := NewSigningKey(Binding, new(pallas.Scalar).SetUint64(77))
	require.NoError(t, err)
	b := sk.VerificationKey().Bytes()
	vk, err := VerificationKeyFromBytes(Binding, b[:])
	require.NoError(t, err)
	assert.Equal(t, b, vk.Bytes())
	assert.Equal(t, 1, vk.Point().Equal(sk.VerificationKey().Point()))
}
