package shield

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/note"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/redpallas"
	"github.com/suffix-labs/orchardlib/pkg/rng"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type wallet struct {
	sk   *keys.SpendingKey
	fvk  keys.FullViewingKey
	ivk  keys.IncomingViewingKey
	ovk  keys.OutgoingViewingKey
	addr keys.Address
}

func newWallet(t *testing.T, skHex string) wallet {
	t.Helper()
	raw, err := hex.DecodeString(skHex)
	require.NoError(t, err)
	sk, err := keys.SpendingKeyFromBytes(raw)
	require.NoError(t, err)
	fvk, err := keys.DeriveFullViewingKey(sk, false)
	require.NoError(t, err)
	ivk, err := keys.DeriveIncomingViewingKey(fvk, false)
	require.NoError(t, err)
	addr, err := ivk.Address(keys.IndexFromUint64(0))
	require.NoError(t, err)
	return wallet{sk: sk, fvk: fvk, ivk: ivk, ovk: keys.DeriveOutgoingViewingKey(fvk, false), addr: addr}
}

func alice(t *testing.T) wallet {
	return newWallet(t, "5d7a8f739a2d9e945b0ce152a8049e294c4d6e66b164939daffa2ef6ee692148")
}

func bob(t *testing.T) wallet {
	return newWallet(t, "1111111111111111111111111111111111111111111111111111111111111111")
}

func ownedNote(t *testing.T, w wallet, value uint64) note.Note {
	t.Helper()
	var rho pallas.Base
	rho.SetUint64(42)
	n, err := note.New(w.addr, value, rho, [32]byte{9, 9, 9})
	require.NoError(t, err)
	return n
}

func testConfig() rng.Config {
	return rng.Config{Mode: rng.Deterministic, Seed: [32]byte{0xaa}}
}

func TestShieldFromTransparent(t *testing.T) {
	a, b := alice(t), bob(t)
	info := ActionInfo{
		Outputs:       []OutputInfo{{Recipient: b.addr, Value: 70000, Memo: []byte("hi bob"), OVK: &a.ovk}},
		TransparentIn: 100000,
	}
	bundle, err := Shield(info, testConfig())
	require.NoError(t, err)

	require.Len(t, bundle.Actions, MinActions)
	assert.Equal(t, int64(-70000), bundle.ValueBalance)
	assert.Equal(t, FlagsEnabled, bundle.Flags)
	for i, act := range bundle.Actions {
		assert.True(t, act.DummySpend, "action %d", i)
	}
	assert.False(t, bundle.Actions[0].DummyOutput)
	assert.True(t, bundle.Actions[1].DummyOutput)
	assert.Greater(t, bundle.NextRNG.Pos, uint64(0))

	act := bundle.Actions[0]
	got, memo, err := note.TryDecrypt(b.ivk, &act.Nullifier, &act.Cmx, &act.Ciphertext)
	require.NoError(t, err)
	assert.Equal(t, uint64(70000), got.Value)
	assert.Equal(t, "hi bob", string(memo[:6]))
	assert.Equal(t, 1, got.Rho.Equal(&act.Nullifier), "output rho is the spent nullifier")

	got, _, err = note.RecoverWithOVK(a.ovk, act.CvNet, &act.Nullifier, &act.Cmx, &act.Ciphertext)
	require.NoError(t, err)
	assert.Equal(t, uint64(70000), got.Value)
	t.Logf("✓ recipient and sender both recover the output")
}

func TestShieldIsDeterministic(t *testing.T) {
	a, b := alice(t), bob(t)
	info := ActionInfo{
		Spends:  []SpendInfo{{FVK: a.fvk, Note: ownedNote(t, a, 50000)}},
		Outputs: []OutputInfo{{Recipient: b.addr, Value: 30000, OVK: &a.ovk}},
	}
	cfg := testConfig()
	first, err := Shield(info, cfg)
	require.NoError(t, err)
	second, err := Shield(info, cfg)
	require.NoError(t, err)

	assert.Equal(t, testConfig(), cfg)
	assert.Equal(t, first.NextRNG, second.NextRNG)
	fb, sb := first.Bsk(), second.Bsk()
	assert.Equal(t, fb.Bytes(), sb.Bytes())
	for i := range first.Actions {
		x, y := first.Actions[i], second.Actions[i]
		assert.Equal(t, x.Nullifier.Bytes(), y.Nullifier.Bytes())
		assert.Equal(t, x.Cmx.Bytes(), y.Cmx.Bytes())
		assert.Equal(t, x.CvNet.Bytes(), y.CvNet.Bytes())
		assert.Equal(t, x.Rk.Bytes(), y.Rk.Bytes())
		assert.Equal(t, x.Alpha.Bytes(), y.Alpha.Bytes())
		assert.Equal(t, x.Ciphertext, y.Ciphertext)
	}

	other := cfg
	other.Pos = first.NextRNG.Pos
	third, err := Shield(info, other)
	require.NoError(t, err)
	assert.NotEqual(t, first.Actions[0].Alpha.Bytes(), third.Actions[0].Alpha.Bytes())
}

func TestShieldAndAuthorize(t *testing.T) {
	a, b := alice(t), bob(t)
	spent := ownedNote(t, a, 50000)
	info := ActionInfo{
		Spends: []SpendInfo{{FVK: a.fvk, Note: spent}},
		Outputs: []OutputInfo{
			{Recipient: b.addr, Value: 30000, OVK: &a.ovk},
			{Recipient: a.addr, Value: 15000, OVK: &a.ovk},
		},
	}
	bundle, err := Shield(info, testConfig())
	require.NoError(t, err)
	require.Len(t, bundle.Actions, 2)
	assert.Equal(t, int64(5000), bundle.ValueBalance)
	assert.False(t, bundle.Actions[0].DummySpend)
	assert.True(t, bundle.Actions[1].DummySpend)

	nk := a.fvk.NullifierKey()
	nf, err := spent.Nullifier(&nk)
	require.NoError(t, err)
	assert.Equal(t, nf.Bytes(), bundle.Actions[0].Nullifier.Bytes())

	sighash := bytes.Repeat([]byte{0x5a}, 32)
	signer, err := rng.Config{Mode: rng.Deterministic, Seed: [32]byte{1}}.Open()
	require.NoError(t, err)

	require.NoError(t, bundle.SignDummySpends(sighash, signer))
	assert.False(t, bundle.Authorized())

	sig, err := keys.Sign(a.sk, &bundle.Actions[0].Alpha, sighash, signer)
	require.NoError(t, err)
	assert.ErrorIs(t, bundle.ApplySpendAuth(0, []byte("other"), sig), orchard.ErrSigning)
	assert.ErrorIs(t, bundle.ApplySpendAuth(1, sighash, sig), orchard.ErrSigning)
	require.NoError(t, bundle.ApplySpendAuth(0, sighash, sig))

	_, err = bundle.MarshalBinary()
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, bundle.SignBinding(sighash, signer))
	require.True(t, bundle.Authorized())
	require.NoError(t, bundle.BindingValidatingKey().Verify(sighash, *bundle.BindingSig))

	wire, err := bundle.MarshalBinary()
	require.NoError(t, err)
	n := len(bundle.Actions)
	assert.Len(t, wire, 1+n*820+1+8+32+1+n*64+64)
	t.Logf("✓ bundle authorized, %d bytes on the wire", len(wire))
}

func TestBindingKeyBalances(t *testing.T) {
	a, b := alice(t), bob(t)
	info := ActionInfo{
		Spends:        []SpendInfo{{FVK: a.fvk, Note: ownedNote(t, a, 10)}},
		Outputs:       []OutputInfo{{Recipient: b.addr, Value: 7}, {Recipient: b.addr, Value: 20}, {Recipient: a.addr, Value: 1}},
		TransparentIn: 18,
	}
	bundle, err := Shield(info, testConfig())
	require.NoError(t, err)
	require.Len(t, bundle.Actions, 3)
	assert.Equal(t, int64(-18), bundle.ValueBalance)

	bsk := bundle.Bsk()
	var want pallas.Point
	want.ScalarMult(&bsk, redpallas.Binding.Basepoint())
	assert.Equal(t, want.Bytes(), bundle.BindingValidatingKey().Bytes())
}

func TestInsufficientFundsDrawsNothing(t *testing.T) {
	a, b := alice(t), bob(t)
	info := ActionInfo{
		Spends:        []SpendInfo{{FVK: a.fvk, Note: ownedNote(t, a, 100)}},
		Outputs:       []OutputInfo{{Recipient: b.addr, Value: 200}},
		TransparentIn: 50,
	}
	// an unopenable configuration shows validation precedes any draw
	bundle, err := Shield(info, rng.Config{Mode: "unset"})
	assert.ErrorIs(t, err, orchard.ErrInsufficientFunds)
	assert.Nil(t, bundle)
}

func TestMalformedActionInfo(t *testing.T) {
	a, b := alice(t), bob(t)
	for name, info := range map[string]ActionInfo{
		"empty":         {},
		"long memo":     {Outputs: []OutputInfo{{Recipient: b.addr, Memo: make([]byte, orchard.MemoSize+1)}}},
		"foreign note":  {Spends: []SpendInfo{{FVK: b.fvk, Note: ownedNote(t, a, 1)}}},
		"no recipient":  {Outputs: []OutputInfo{{Value: 0}}},
		"too much":      {Outputs: []OutputInfo{{Recipient: b.addr, Value: orchard.MaxMoney + 1}}},
		"unknown flags": {Outputs: []OutputInfo{{Recipient: b.addr}}, Flags: 0x80},
		"outputs off":   {Outputs: []OutputInfo{{Recipient: b.addr}}, Flags: FlagSpendsEnabled},
	} {
		bundle, err := Shield(info, testConfig())
		assert.ErrorIs(t, err, orchard.ErrMalformedActionInfo, name)
		assert.Nil(t, bundle, name)
	}
}

func TestShieldReportsExhaustedSource(t *testing.T) {
	b := bob(t)
	cfg := testConfig()
	cfg.Limit = 200
	bundle, err := Shield(ActionInfo{Outputs: []OutputInfo{{Recipient: b.addr}}}, cfg)
	assert.ErrorIs(t, err, orchard.ErrRandomSourceExhausted)
	assert.Nil(t, bundle)
}

func TestShieldLogsWithoutSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := bob(t)
	_, err := Shield(ActionInfo{Outputs: []OutputInfo{{Recipient: b.addr, Value: 1}}, TransparentIn: 1},
		testConfig(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	entries := logs.FilterMessage("shielding").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(2), fields["actions"])
	assert.Equal(t, int64(-1), fields["value_balance"])
	assert.Equal(t, 2, logs.FilterMessage("padded dummy spend").Len())
	for _, e := range logs.All() {
		for k := range e.ContextMap() {
			assert.NotContains(t, []string{"sk", "bsk", "rcv", "esk", "alpha"}, k)
		}
	}
}

func TestZeroizeClearsSecrets(t *testing.T) {
	b := bob(t)
	bundle, err := Shield(ActionInfo{Outputs: []OutputInfo{{Recipient: b.addr}}}, testConfig())
	require.NoError(t, err)
	bundle.Zeroize()
	bsk := bundle.Bsk()
	assert.Equal(t, 1, bsk.IsZero())
	for _, sk := range bundle.dummyKeys {
		assert.Nil(t, sk)
	}
}
