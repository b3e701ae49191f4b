package unified

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Orchard key vector #0.
const (
	vectorSK    = "5d7a8f739a2d9e945b0ce152a8049e294c4d6e66b164939daffa2ef6ee692148"
	vectorAddr0 = "u1qylzskzykhk5l5vk6zlyqqruvskzv74hk20lmrllzy3vdz6pvny5t9zwlrm86ukw77y5pu8uep2m33s7sc7gn6aq0jm9neg5tsektyn9"
	vectorUFVK  = "uview1hp2f9pawrvznv7hmrxd4a6w8swanpmafq5md59ecwxg66v6uqj7khl7uq506rqhj58d5gaw9yt0l870ryfxy6wyl48r8ytwaxpwdycv6fhhptlz8dnrwgy4ggtel5waqpzaaf2h0a5h49dhevxjy99k5t2rvgvlyrhk4av856uwkzzhlhmclqpgrp0qea"
	vectorUIVK  = "uivk15faj7g4a2plkera7cgtky85z8kur7h2v93euac63f8q6qhtteclfrruj8shdx36dp6fnkcqt06juq2ay20y7sp0gqfedzv8gcu5zqv7ysxlf50srksgqprp8fu2hjd2ugnzs7u8p4h"
	vectorTest0 = "utest1s5r7n6az4zajnjrm3mqfg55xe3eahpe8l72k6rpm9d7c058gzj44txeudpflmhywyfvq6xp7ky8jzpfp8kg872pzawyl080tuslyh0z0"
)

type vectorKeys struct {
	fvk   keys.FullViewingKey
	ivk   keys.IncomingViewingKey
	addr0 keys.Address
}

func vector(t *testing.T) vectorKeys {
	t.Helper()
	raw, err := hex.DecodeString(vectorSK)
	require.NoError(t, err)
	sk, err := keys.SpendingKeyFromBytes(raw)
	require.NoError(t, err)
	fvk, err := keys.DeriveFullViewingKey(sk, false)
	require.NoError(t, err)
	ivk, err := keys.DeriveIncomingViewingKey(fvk, false)
	require.NoError(t, err)
	addr, err := keys.DeriveAddress(fvk, 0, false)
	require.NoError(t, err)
	return vectorKeys{fvk: fvk, ivk: ivk, addr0: addr}
}

func TestUnifiedAddressVector(t *testing.T) {
	v := vector(t)

	s, err := EncodeAddress(Mainnet, v.addr0)
	require.NoError(t, err)
	assert.Equal(t, vectorAddr0, s)
	t.Logf("✓ unified address %s", s)

	net, addr, err := DecodeAddress(s)
	require.NoError(t, err)
	assert.Equal(t, Mainnet, net)
	assert.True(t, addr.Equal(v.addr0))
	raw := addr.Bytes()
	assert.Equal(t, "8ff33869", hex.EncodeToString(raw[:4]))
	t.Logf("✓ decodes to the default address")

	s, err = EncodeAddress(Testnet, v.addr0)
	require.NoError(t, err)
	assert.Equal(t, vectorTest0, s)
	net, _, err = DecodeAddress(s)
	require.NoError(t, err)
	assert.Equal(t, Testnet, net)
}

func TestUnifiedViewingKeyVectors(t *testing.T) {
	v := vector(t)

	s, err := EncodeFullViewingKey(Mainnet, v.fvk)
	require.NoError(t, err)
	assert.Equal(t, vectorUFVK, s)
	_, fvk, err := DecodeFullViewingKey(s)
	require.NoError(t, err)
	assert.Equal(t, v.fvk.Bytes(), fvk.Bytes())
	t.Logf("✓ unified full viewing key")

	s, err = EncodeIncomingViewingKey(Mainnet, v.ivk)
	require.NoError(t, err)
	assert.Equal(t, vectorUIVK, s)
	_, ivk, err := DecodeIncomingViewingKey(s)
	require.NoError(t, err)
	assert.Equal(t, v.ivk.Bytes(), ivk.Bytes())
	t.Logf("✓ unified incoming viewing key")
}

func TestDecodeKindMismatch(t *testing.T) {
	_, _, err := DecodeAddress(vectorUFVK)
	assert.ErrorIs(t, err, orchard.ErrInvalidEncoding)
	_, _, err = DecodeFullViewingKey(vectorAddr0)
	assert.ErrorIs(t, err, orchard.ErrInvalidEncoding)
}

func TestDecodeAcceptsOtherItems(t *testing.T) {
	v := vector(t)
	cases := map[string]uint32{
		"u1ntvxv6397rfl8fryj2h58jwmrkkuec0zr3mvwe0pu5at2tm0aamemz44njjauycv5eayhlxlc7wlyupl652wtyj0te4k9g6edfsd9rs9r2ecjz8ltqazg2pv4yl07wcygfq9v3yjmuv":                                      TypeP2PKH,
		"u1yy7vssvvvvrnu5yt65g6a34egjdgfg7wde73syc77yh4nj8dgdn9z2pnyeuqkvvudchpvr6449yt4s2mtmhvvfz7d3a7xm76j5eml4w73jmlmx2wk0er4286t0zqf64s3d7hjsgkukng94rempvx2zdpet442aj6m56z7ez9hcsxwlv3": TypeSapling,
	}
	for s, other := range cases {
		c, err := Decode(s)
		require.NoError(t, err)
		require.Len(t, c.Items, 2)
		assert.Equal(t, other, c.Items[0].Typecode)

		_, addr, err := DecodeAddress(s)
		require.NoError(t, err)
		assert.True(t, addr.Equal(v.addr0))
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"unsorted items": "u1fjurg7r6whqmkfua25x5lpldss4pehmrzhkw62vegtjpjdvslhzn0yf2rqyh3vhe30q88ftsdfw5zf6pz8tmw8zepmp0mmvd0mp4luj6qu23ppsh0glmc243s8gmlfgd4ch0jrp26sm",
		"no orchard":     "u1d2udnm29xpx7p6z5e3w3s30yqsqql97w6d7dklkdgmke7kdakwzas52etauaf7ktnq7gws0kaxddmu235mtfzwvr874daugemsjaefq9",
		"bad padding":    "u1c5mj9g89teetec238ktxd0rch8cjnjkmxupkqm4f5cz43xdz83xynz3fc3kjvqnk5ppt88x4ly0asl8hyws3xeaypy9a0kxgxclv9803",
		"bad checksum":   vectorAddr0[:len(vectorAddr0)-1] + "q",
		"mixed case":     "U" + vectorAddr0[1:],
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(s)
			assert.ErrorIs(t, err, orchard.ErrInvalidEncoding)
		})
	}
}

func TestDecodeRejectsUnknownPrefix(t *testing.T) {
	v := vector(t)
	b := v.addr0.Bytes()
	payload := append([]byte{0x03, 0x2b}, b[:]...)
	payload = append(payload, []byte("zz")...)
	payload = append(payload, make([]byte, 14)...)
	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	require.NoError(t, err)
	s, err := bech32.EncodeM("zz", conv)
	require.NoError(t, err)

	_, err = Decode(s)
	assert.ErrorIs(t, err, orchard.ErrInvalidEncoding)
}

func TestDecodeRejectsBech32Checksum(t *testing.T) {
	hrp, data, version, err := bech32.DecodeNoLimitWithVersion(vectorAddr0)
	require.NoError(t, err)
	require.Equal(t, bech32.VersionM, version)
	s, err := bech32.Encode(hrp, data)
	require.NoError(t, err)

	_, err = Decode(s)
	assert.ErrorIs(t, err, orchard.ErrInvalidEncoding)
}

func TestEncodeRejectsUnsortedItems(t *testing.T) {
	_, err := Encode(Container{Items: []Item{
		{Typecode: TypeOrchard, Data: bytes.Repeat([]byte{1}, 43)},
		{Typecode: TypeSapling, Data: bytes.Repeat([]byte{2}, 43)},
	}})
	assert.ErrorIs(t, err, orchard.ErrInvalidEncoding)
}

func TestHRPs(t *testing.T) {
	assert.Equal(t, "u", Mainnet.HRP(KindAddress))
	assert.Equal(t, "uviewtest", Testnet.HRP(KindFullViewingKey))
	assert.Equal(t, "uivktest", Testnet.HRP(KindIncomingViewingKey))
}
