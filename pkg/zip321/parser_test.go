package zip321

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/suffix-labs/orchardlib/pkg/unified"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Default address of Orchard key vector #0.
const (
	testUA     = "u1qylzskzykhk5l5vk6zlyqqruvskzv74hk20lmrllzy3vdz6pvny5t9zwlrm86ukw77y5pu8uep2m33s7sc7gn6aq0jm9neg5tsektyn9"
	testUATest = "utest1s5r7n6az4zajnjrm3mqfg55xe3eahpe8l72k6rpm9d7c058gzj44txeudpflmhywyfvq6xp7ky8jzpfp8kg872pzawyl080tuslyh0z0"
)

func TestParseSinglePayment(t *testing.T) {
	req, err := Parse("zcash:" + testUA + "?amount=1.5&memo=dGhhbmtz&label=Coffee%20Shop&message=latte")
	require.NoError(t, err)
	require.Len(t, req.Payments, 1)

	p := req.Payments[0]
	assert.Equal(t, testUA, p.Address)
	assert.True(t, p.HasAmount)
	assert.Equal(t, uint64(150_000_000), p.Amount)
	assert.Equal(t, []byte("thanks"), p.Memo)
	assert.Equal(t, "Coffee Shop", p.Label)
	assert.Equal(t, "latte", p.Message)
	t.Logf("✓ single payment parsed")
}

func TestParseIndexedPayments(t *testing.T) {
	req, err := Parse("ZCASH:?address=" + testUA + "&amount=0.0001&address.2=" + testUA + "&amount.2=2&address.1=" + testUA)
	require.NoError(t, err)
	require.Len(t, req.Payments, 3)
	assert.Equal(t, uint64(10_000), req.Payments[0].Amount)
	assert.False(t, req.Payments[1].HasAmount)
	assert.Equal(t, uint64(200_000_000), req.Payments[2].Amount)

	total, err := req.Total()
	require.NoError(t, err)
	assert.Equal(t, uint64(200_010_000), total)
}

func TestParseRejects(t *testing.T) {
	for name, uri := range map[string]string{
		"no scheme":         testUA,
		"empty":             "zcash:",
		"missing address":   "zcash:?amount=1",
		"indexed no addr":   "zcash:" + testUA + "?amount.1=1",
		"duplicate":         "zcash:" + testUA + "?amount=1&amount=2",
		"address twice":     "zcash:" + testUA + "?address=" + testUA,
		"leading zero":      "zcash:?address.01=" + testUA,
		"index zero suffix": "zcash:?address.0=" + testUA,
		"index too large":   "zcash:?address.10000=" + testUA,
		"required param":    "zcash:" + testUA + "?req-future=1",
		"no value":          "zcash:" + testUA + "?amount",
		"bad memo":          "zcash:" + testUA + "?memo=!!",
	} {
		_, err := Parse(uri)
		assert.Error(t, err, name)
	}

	req, err := Parse("zcash:" + testUA + "?future=1")
	require.NoError(t, err, "unknown optional parameters are ignored")
	assert.Len(t, req.Payments, 1)
}

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]uint64{
		"0":          0,
		"1":          100_000_000,
		"0.00000001": 1,
		"21000000":   2_100_000_000_000_000,
		"123.4567":   12_345_670_000,
		"0001.10":    110_000_000,
	} {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", ".5", "1.", "1.000000001", "-1", "1e3", "21000000.00000001", "99999999999999999999"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "0.00000001", FormatAmount(1))
	assert.Equal(t, "1.5", FormatAmount(150_000_000))
	assert.Equal(t, "21000000", FormatAmount(2_100_000_000_000_000))
}

func TestEncodeRoundTrip(t *testing.T) {
	req := &PaymentRequest{Payments: []Payment{
		{Address: testUA, Amount: 12_345, HasAmount: true, Memo: []byte("memo one"), Label: "a b"},
		{Address: testUA, Message: "pay me"},
	}}
	uri := req.Encode()
	back, err := Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, req, back)
	t.Logf("✓ %s", uri)
}

func TestOutputs(t *testing.T) {
	req, err := Parse("zcash:" + testUA + "?amount=0.001&memo=aGk")
	require.NoError(t, err)

	outs, err := req.Outputs(unified.Mainnet, nil)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, uint64(100_000), outs[0].Value)
	assert.Equal(t, []byte("hi"), outs[0].Memo)
	raw := outs[0].Recipient.Bytes()
	assert.Equal(t, byte(0x8f), raw[0])

	_, err = req.Outputs(unified.Testnet, nil)
	assert.ErrorContains(t, err, "main address on test")

	testReq, err := Parse("zcash:" + testUATest + "?amount=1")
	require.NoError(t, err)
	_, err = testReq.Outputs(unified.Testnet, nil)
	assert.NoError(t, err)

	noAmount, err := Parse("zcash:" + testUA)
	require.NoError(t, err)
	_, err = noAmount.Outputs(unified.Mainnet, nil)
	assert.ErrorContains(t, err, "no amount")

	transparent, err := Parse("zcash:t1Hsc1LR8yKnbbe3twRp88p6vFfC5t7DLbs?amount=1")
	require.NoError(t, err)
	_, err = transparent.Outputs(unified.Mainnet, nil)
	assert.Error(t, err)
}
