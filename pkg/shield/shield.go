// Package shield turns a description of a value transfer into a bundle of
// Orchard actions.
//
// Each action pairs one spend with one output. Real spends and outputs are
// placed in the order given, action i carrying spend i and output i; the
// shorter list, and the bundle as a whole up to two actions, is padded with
// dummies. A dummy spend consumes a zero-valued note owned by a throwaway
// key, which the bundle keeps until SignDummySpends. A dummy output sends
// zero to a throwaway address and is encrypted without an outgoing viewing
// key.
//
// The engine does not sign. It returns the per-action randomizers alpha so
// the holder of the spending key can produce spend authorizations, and the
// net value commitment trapdoor bsk so the binding signature can be made
// once the sighash is known:
//
//	bsk = Σ rcv_i
//	bvk = Σ cv_net_i − ValueCommit_0(value_balance) = [bsk] R
//
// Corresponds to:
//   - orchard/src/builder.rs (Builder, SpendInfo, OutputInfo, ActionInfo)
//   - orchard/src/bundle.rs
//   - librustzcash/pczt/src/roles/{constructor,io_finalizer}
//
// References:
//   - Zcash Protocol Specification, §4.7.3 (Sending Notes (Orchard)),
//     §4.8.3 (Dummy Notes (Orchard)), §4.14 (Balance and Binding Signature)
package shield

import (
	"fmt"
	"math/bits"

	"go.uber.org/zap"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/note"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/redpallas"
	"github.com/suffix-labs/orchardlib/pkg/rng"
)

// Orchard bundle flags.
const (
	FlagSpendsEnabled  uint8 = 1 << 0
	FlagOutputsEnabled uint8 = 1 << 1
	FlagsEnabled             = FlagSpendsEnabled | FlagOutputsEnabled
)

// MinActions is the smallest number of actions in a bundle.
const MinActions = 2

// SpendInfo is a note to spend and the full viewing key that owns it.
type SpendInfo struct {
	FVK  keys.FullViewingKey
	Note note.Note
}

// OutputInfo is a payment to create. A nil OVK makes the output
// unrecoverable by the sender.
type OutputInfo struct {
	Recipient keys.Address
	Value     uint64
	Memo      []byte
	OVK       *keys.OutgoingViewingKey
}

// ActionInfo describes a shielding request.
type ActionInfo struct {
	Spends  []SpendInfo
	Outputs []OutputInfo

	// TransparentIn is the value entering the Orchard pool from
	// transparent inputs; it funds outputs beyond the spent notes.
	TransparentIn uint64

	Anchor [32]byte
	// Flags defaults to FlagsEnabled when zero.
	Flags uint8
}

func (info *ActionInfo) flags() uint8 {
	if info.Flags == 0 {
		return FlagsEnabled
	}
	return info.Flags
}

// Action is one spend paired with one output.
type Action struct {
	Nullifier  pallas.Base
	Rk         redpallas.VerificationKey
	Cmx        pallas.Base
	Ciphertext note.Ciphertext
	CvNet      note.ValueCommitment

	// Alpha randomizes the spend authorizing key for this action.
	Alpha pallas.Scalar
	// SpendAuthSig is set by ApplySpendAuth or SignDummySpends.
	SpendAuthSig *redpallas.Signature

	// DummySpend and DummyOutput mark padding.
	DummySpend  bool
	DummyOutput bool

	SpendNote  note.Note
	OutputNote note.Note

	rcv pallas.Scalar
}

type options struct {
	logger *zap.Logger
}

// Option configures Shield.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Validate checks info without drawing any randomness. It returns the
// value balance Σ spends − Σ outputs.
func (info *ActionInfo) Validate() (int64, error) {
	if len(info.Spends) == 0 && len(info.Outputs) == 0 {
		return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "no spends or outputs")
	}
	flags := info.flags()
	if flags&^FlagsEnabled != 0 {
		return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "unknown flags %#x", flags)
	}
	if len(info.Spends) > 0 && flags&FlagSpendsEnabled == 0 {
		return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "spends present but disabled")
	}
	if len(info.Outputs) > 0 && flags&FlagOutputsEnabled == 0 {
		return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "outputs present but disabled")
	}

	var spent, paid uint64
	for i, s := range info.Spends {
		if _, ok := s.FVK.Scope(s.Note.Recipient); !ok {
			return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "spend %d: note not owned by the viewing key", i)
		}
		var err error
		if spent, err = AddValue(spent, s.Note.Value); err != nil {
			return 0, fmt.Errorf("spend %d: %w", i, err)
		}
	}
	for i, o := range info.Outputs {
		if len(o.Memo) > orchard.MemoSize {
			return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "output %d: memo is %d bytes", i, len(o.Memo))
		}
		if o.Recipient.PkD().IsIdentity() == 1 {
			return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "output %d: invalid recipient", i)
		}
		var err error
		if paid, err = AddValue(paid, o.Value); err != nil {
			return 0, fmt.Errorf("output %d: %w", i, err)
		}
	}
	available, err := AddValue(spent, info.TransparentIn)
	if err != nil {
		return 0, fmt.Errorf("transparent input: %w", err)
	}
	if paid > available {
		return 0, orchard.Errorf(orchard.CodeInsufficientFunds,
			"outputs total %d, only %d available", paid, available)
	}
	return int64(spent) - int64(paid), nil
}

// AddValue returns sum + v, failing with MALFORMED_ACTION_INFO when v or
// the result exceeds MaxMoney.
func AddValue(sum, v uint64) (uint64, error) {
	if v > orchard.MaxMoney {
		return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "value %d exceeds MAX_MONEY", v)
	}
	s, carry := bits.Add64(sum, v, 0)
	if carry != 0 || s > orchard.MaxMoney {
		return 0, orchard.Errorf(orchard.CodeMalformedActionInfo, "value sum exceeds MAX_MONEY")
	}
	return s, nil
}

// Shield builds the actions for info. Randomness is read from a stream
// opened on cfg; cfg itself is never modified, and the continuing
// configuration is returned in Bundle.NextRNG. On error no bundle is
// returned.
func Shield(info ActionInfo, cfg rng.Config, opts ...Option) (*Bundle, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	valueBalance, err := info.Validate()
	if err != nil {
		return nil, err
	}

	src, err := cfg.Open()
	if err != nil {
		return nil, err
	}

	n := max(MinActions, len(info.Spends), len(info.Outputs))
	o.logger.Debug("shielding",
		zap.Int("spends", len(info.Spends)),
		zap.Int("outputs", len(info.Outputs)),
		zap.Int("actions", n),
		zap.Int64("value_balance", valueBalance))

	b := &Bundle{
		Actions:      make([]Action, 0, n),
		Flags:        info.flags(),
		ValueBalance: valueBalance,
		Anchor:       info.Anchor,
		Proof:        []byte{},
		dummyKeys:    make([]*keys.SpendingKey, n),
	}
	for i := 0; i < n; i++ {
		var spend *SpendInfo
		if i < len(info.Spends) {
			spend = &info.Spends[i]
		}
		var output *OutputInfo
		if i < len(info.Outputs) {
			output = &info.Outputs[i]
		}
		a, dummySk, err := buildAction(spend, output, src)
		if err != nil {
			b.Zeroize()
			return nil, err
		}
		if dummySk != nil {
			b.dummyKeys[i] = dummySk
			o.logger.Debug("padded dummy spend", zap.Int("action", i))
		}
		if a.DummyOutput {
			o.logger.Debug("padded dummy output", zap.Int("action", i))
		}
		b.bsk.Add(&b.bsk, &a.rcv)
		b.Actions = append(b.Actions, a)
	}
	b.NextRNG = src.Next()
	o.logger.Debug("shielded", zap.Int("actions", len(b.Actions)), zap.Uint64("rng_pos", b.NextRNG.Pos))
	return b, nil
}

// randomSpendingKey draws spending keys until one is valid.
func randomSpendingKey(src rng.Source) (*keys.SpendingKey, error) {
	for {
		b, err := src.NextBytes(orchard.SpendingKeySize)
		if err != nil {
			return nil, err
		}
		sk, err := keys.SpendingKeyFromBytes(b)
		if err == nil {
			return sk, nil
		}
	}
}

// dummySpend returns a zero-valued note to a fresh key, and that key.
func dummySpend(src rng.Source) (SpendInfo, *keys.SpendingKey, error) {
	sk, err := randomSpendingKey(src)
	if err != nil {
		return SpendInfo{}, nil, err
	}
	info, err := dummySpendNote(sk, src)
	if err != nil {
		sk.Zeroize()
		return SpendInfo{}, nil, err
	}
	return info, sk, nil
}

func dummySpendNote(sk *keys.SpendingKey, src rng.Source) (SpendInfo, error) {
	fvk, err := keys.DeriveFullViewingKey(sk, false)
	if err != nil {
		return SpendInfo{}, err
	}
	addr, err := keys.DeriveAddress(fvk, 0, false)
	if err != nil {
		return SpendInfo{}, err
	}
	wide, err := src.NextBytes(64)
	if err != nil {
		return SpendInfo{}, err
	}
	var rho pallas.Base
	rho.SetWideBytes(wide)
	n, err := note.NewRandom(addr, 0, rho, src)
	if err != nil {
		return SpendInfo{}, err
	}
	return SpendInfo{FVK: fvk, Note: n}, nil
}

// dummyOutput returns a zero-valued payment to a fresh address.
func dummyOutput(src rng.Source) (OutputInfo, error) {
	sk, err := randomSpendingKey(src)
	if err != nil {
		return OutputInfo{}, err
	}
	defer sk.Zeroize()
	fvk, err := keys.DeriveFullViewingKey(sk, false)
	if err != nil {
		return OutputInfo{}, err
	}
	addr, err := keys.DeriveAddress(fvk, 0, false)
	if err != nil {
		return OutputInfo{}, err
	}
	return OutputInfo{Recipient: addr}, nil
}

// buildAction draws randomness in a fixed order: dummy spend, alpha, dummy
// output, output rseed, rcv, and finally the outgoing ciphertext padding
// when there is no OVK.
func buildAction(spend *SpendInfo, output *OutputInfo, src rng.Source) (Action, *keys.SpendingKey, error) {
	var a Action
	var dummySk *keys.SpendingKey
	if spend == nil {
		s, sk, err := dummySpend(src)
		if err != nil {
			return Action{}, nil, err
		}
		spend, dummySk, a.DummySpend = &s, sk, true
	}
	fail := func(err error) (Action, *keys.SpendingKey, error) {
		if dummySk != nil {
			dummySk.Zeroize()
		}
		return Action{}, nil, err
	}

	nk := spend.FVK.NullifierKey()
	nf, err := spend.Note.Nullifier(&nk)
	if err != nil {
		return fail(err)
	}
	a.Nullifier = nf
	a.SpendNote = spend.Note

	if a.Alpha, err = keys.AlphaFromSource(src); err != nil {
		return fail(err)
	}
	a.Rk = keys.RandomizedVerificationKey(spend.FVK, &a.Alpha)

	if output == nil {
		out, err := dummyOutput(src)
		if err != nil {
			return fail(err)
		}
		output, a.DummyOutput = &out, true
	}
	if a.OutputNote, err = note.NewRandom(output.Recipient, output.Value, nf, src); err != nil {
		return fail(err)
	}
	if a.Cmx, err = a.OutputNote.ExtractedCommitment(); err != nil {
		return fail(err)
	}

	wide, err := src.NextBytes(64)
	if err != nil {
		return fail(err)
	}
	a.rcv.SetWideBytes(wide)
	a.CvNet = note.ValueCommit(int64(spend.Note.Value)-int64(output.Value), &a.rcv)

	if a.Ciphertext, err = note.Encrypt(a.OutputNote, output.Memo, output.OVK, a.CvNet, src); err != nil {
		return fail(err)
	}
	return a, dummySk, nil
}
