package zip244

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/rng"
	"github.com/suffix-labs/orchardlib/pkg/shield"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func digestHex(d [32]byte) string { return hex.EncodeToString(d[:]) }

// p2pkh is a pay-to-public-key-hash script with a fixed hash.
func p2pkh() []byte {
	s := []byte{0x76, 0xa9, 0x14}
	s = append(s, bytes.Repeat([]byte{0x02}, 20)...)
	return append(s, 0x88, 0xac)
}

// fixtureTransaction has one transparent input, one transparent output and
// a two-action Orchard bundle filled with patterned bytes.
func fixtureTransaction() *Transaction {
	b := &OrchardBundle{
		Actions:      make([]OrchardAction, 2),
		Flags:        shield.FlagsEnabled,
		ValueBalance: -5000,
	}
	copy(b.Anchor[:], bytes.Repeat([]byte{0xaa}, 32))
	for i := range b.Actions {
		a := &b.Actions[i]
		for k, f := range []*[32]byte{&a.CvNet, &a.Nullifier, &a.Rk, &a.Cmx, &a.EphemeralKey} {
			copy(f[:], bytes.Repeat([]byte{byte(0x10*(k+1) + i)}, 32))
		}
		for j := range a.EncCiphertext {
			a.EncCiphertext[j] = byte(j + i)
		}
		for j := range a.OutCiphertext {
			a.OutCiphertext[j] = byte(3*j + i)
		}
	}

	var prev [32]byte
	copy(prev[:], bytes.Repeat([]byte{0x01}, 32))
	return &Transaction{
		Header: Header{ConsensusBranchID: BranchNU5, ExpiryHeight: 1000},
		Inputs: []TransparentInput{{
			PrevoutTxID:  prev,
			PrevoutIndex: 1,
			Sequence:     0xffffffff,
			Value:        100000,
			ScriptPubKey: p2pkh(),
		}},
		Outputs: []TransparentOutput{{Value: 50000, ScriptPubKey: p2pkh()}},
		Orchard: b,
	}
}

func TestEmptyTransactionDigests(t *testing.T) {
	tx := &Transaction{Header: Header{ConsensusBranchID: BranchNU5}}

	assert.Equal(t, "142d89e807d38de3629d6b58cab85444c17d77ad8b3472c1e9eadb67cec68219", digestHex(HeaderDigest(tx.Header)))
	assert.Equal(t, "6f2fc8f98feafd94e74a0df4bed74391ee0b5a69945e4ced8ca8a095206f00ae", digestHex(SaplingDigest()))
	assert.Equal(t, OrchardDigest(nil), OrchardDigest(&OrchardBundle{}))

	txid := tx.TxID()
	assert.Equal(t, "df7658cf55510d71cf17d5ad45924b1485ff2bb385aa2d16ef53c61f726d6b8e", digestHex(txid))
	assert.Equal(t, txid, tx.ShieldedSighash(), "without transparent inputs the sighash is the txid")
	t.Logf("✓ empty transaction txid %x", txid)
}

func TestFixtureDigests(t *testing.T) {
	tx := fixtureTransaction()
	d := tx.Digests()

	assert.Equal(t, "80581fa56a10ea412f2996f5916167e33e64455650efa7095d591866d8251281", digestHex(d.Header))
	assert.Equal(t, "b0a8607cc16e4020ac38862d06ac674660e619ef7fea40f39cb9daeae51808da", digestHex(d.Transparent))
	assert.Equal(t, "150090c66f4eade222464186083ab7c955cd33935baec59cccd4cfc135760a43", digestHex(d.Orchard))
	t.Logf("✓ component digests")

	assert.Equal(t, "e94362cbb923384c8fd8da0d59d8357968d2b1557902de286b2b3f6852dbab23", digestHex(tx.TxID()))
	assert.Equal(t, "7efdb56b9a335d306d88d7c62bea98239d183844a4340f5149d1d6e28e7f9b9e", digestHex(tx.ShieldedSighash()))
	t.Logf("✓ txid and shielded sighash")
}

func TestSighashCommitsToPrevouts(t *testing.T) {
	tx := fixtureTransaction()
	base := tx.ShieldedSighash()
	txid := tx.TxID()

	tx.Inputs[0].Value++
	assert.NotEqual(t, base, tx.ShieldedSighash(), "input amount is signed")
	assert.Equal(t, txid, tx.TxID(), "input amount is not part of the txid")
}

func TestSignaturesDoNotAffectDigests(t *testing.T) {
	tx := fixtureTransaction()
	txid, sighash := tx.TxID(), tx.ShieldedSighash()

	tx.Orchard.Actions[0].SpendAuthSig[0] = 0xff
	tx.Orchard.BindingSig[5] = 0xff
	tx.Orchard.Proof = []byte{1, 2, 3}
	assert.Equal(t, txid, tx.TxID())
	assert.Equal(t, sighash, tx.ShieldedSighash())
}

func TestCoinbaseUsesTxidTransparentDigest(t *testing.T) {
	tx := fixtureTransaction()
	tx.Inputs[0].PrevoutTxID = [32]byte{}
	tx.Inputs[0].PrevoutIndex = 0xffffffff
	assert.Equal(t, tx.TxID(), tx.ShieldedSighash())
}

func TestTransactionRoundTrip(t *testing.T) {
	tx := fixtureTransaction()
	tx.Inputs[0].ScriptSig = []byte{0x51}
	tx.Orchard.Proof = bytes.Repeat([]byte{0x07}, 300)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	parsed, err := ParseTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, tx.Header, parsed.Header)
	assert.Equal(t, tx.Orchard, parsed.Orchard)
	assert.Equal(t, tx.TxID(), parsed.TxID())

	require.NoError(t, parsed.SetPrevouts([]uint64{100000}, [][]byte{p2pkh()}))
	assert.Equal(t, tx.ShieldedSighash(), parsed.ShieldedSighash())

	again, err := parsed.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestParseRejectsMalformed(t *testing.T) {
	raw, err := fixtureTransaction().MarshalBinary()
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":     nil,
		"truncated": raw[:len(raw)-1],
		"trailing":  append(append([]byte{}, raw...), 0),
		"version":   append([]byte{4, 0, 0, 0x80}, raw[4:]...),
	}

	// one Sapling spend
	empty, err := (&Transaction{Header: Header{ConsensusBranchID: BranchNU5}}).MarshalBinary()
	require.NoError(t, err)
	sapling := append([]byte{}, empty...)
	sapling[len(sapling)-3] = 1
	cases["sapling"] = sapling

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTransaction(data)
			assert.ErrorIs(t, err, orchard.ErrInvalidEncoding)
		})
	}
}

func TestSetPrevoutsLengthMismatch(t *testing.T) {
	tx := fixtureTransaction()
	err := tx.SetPrevouts(nil, nil)
	assert.ErrorIs(t, err, orchard.ErrMalformedActionInfo)
}

func TestShieldedBundleEndToEnd(t *testing.T) {
	sk, err := keys.SpendingKeyFromBytes(bytes.Repeat([]byte{0x11}, 32))
	require.NoError(t, err)
	fvk, err := keys.DeriveFullViewingKey(sk, false)
	require.NoError(t, err)
	addr, err := keys.DeriveAddress(fvk, 0, false)
	require.NoError(t, err)

	bundle, err := shield.Shield(shield.ActionInfo{
		Outputs:       []shield.OutputInfo{{Recipient: addr, Value: 40000}},
		TransparentIn: 40000,
	}, rng.Config{Mode: rng.Deterministic, Seed: [32]byte{0x24}})
	require.NoError(t, err)
	defer bundle.Zeroize()

	tx := fixtureTransaction()
	tx.Outputs = nil
	tx.Orchard = FromBundle(bundle)
	sighash := tx.ShieldedSighash()
	t.Logf("✓ sighash over shielded bundle %x", sighash)

	src, err := rng.Config{Mode: rng.Deterministic, Seed: [32]byte{0x42}}.Open()
	require.NoError(t, err)
	require.NoError(t, bundle.SignDummySpends(sighash[:], src))
	require.NoError(t, bundle.SignBinding(sighash[:], src))
	require.True(t, bundle.Authorized())
	t.Logf("✓ bundle authorized")

	signed := FromBundle(bundle)
	assert.Equal(t, sighash, (&Transaction{
		Header:  tx.Header,
		Inputs:  tx.Inputs,
		Orchard: signed,
	}).ShieldedSighash(), "signing does not change the sighash")

	for i := range bundle.Actions {
		assert.NoError(t, bundle.Actions[i].Rk.Verify(sighash[:], signed.Actions[i].SpendAuthSig))
	}
	assert.NoError(t, bundle.BindingValidatingKey().Verify(sighash[:], signed.BindingSig))

	want, err := bundle.MarshalBinary()
	require.NoError(t, err)
	var got bytes.Buffer
	signed.writeTo(&got)
	assert.Equal(t, want, got.Bytes())
}
