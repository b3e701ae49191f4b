package orchardlib

import (
	"fmt"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/note"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/shield"
)

// Shield builds a bundle from a CBOR ActionInfo and a CBOR RNGConfig and
// returns it as a CBOR Bundle. The result carries bsk, the per-action
// alphas, the dummy spend keys and the advanced randomness position.
func Shield(actionInfo, rngConfig []byte) ([]byte, error) {
	var wire ActionInfo
	if err := Unmarshal(actionInfo, &wire); err != nil {
		return nil, err
	}
	info, err := wire.decode()
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRNGConfig(rngConfig)
	if err != nil {
		return nil, err
	}

	b, err := shield.Shield(info, cfg)
	if err != nil {
		return nil, boundary(orchard.CodeMalformedActionInfo, err)
	}
	defer b.Zeroize()

	out := encodeBundle(b)
	defer zero(out.Bsk)
	return Marshal(out)
}

func (w *ActionInfo) decode() (shield.ActionInfo, error) {
	info := shield.ActionInfo{
		TransparentIn: w.TransparentIn,
		Flags:         w.Flags,
	}
	if len(w.Anchor) != 0 {
		if len(w.Anchor) != len(info.Anchor) {
			return info, orchard.Errorf(orchard.CodeMalformedActionInfo, "anchor must be 32 bytes")
		}
		copy(info.Anchor[:], w.Anchor)
	}

	for i, s := range w.Spends {
		fvk, err := keys.FullViewingKeyFromBytes(s.FVK)
		if err != nil {
			return info, orchard.Wrap(orchard.CodeMalformedActionInfo, err, spendField(i, "fvk"))
		}
		n, err := note.FromBytes(s.Note)
		if err != nil {
			return info, orchard.Wrap(orchard.CodeMalformedActionInfo, err, spendField(i, "note"))
		}
		info.Spends = append(info.Spends, shield.SpendInfo{FVK: fvk, Note: n})
	}

	for i, o := range w.Outputs {
		addr, err := keys.AddressFromBytes(o.Address)
		if err != nil {
			return info, orchard.Wrap(orchard.CodeMalformedActionInfo, err, outputField(i, "address"))
		}
		out := shield.OutputInfo{Recipient: addr, Value: o.Value, Memo: o.Memo}
		if o.OVK != nil {
			var ovk keys.OutgoingViewingKey
			if len(o.OVK) != len(ovk) {
				return info, orchard.Errorf(orchard.CodeMalformedActionInfo, "%s must be 32 bytes", outputField(i, "ovk"))
			}
			copy(ovk[:], o.OVK)
			out.OVK = &ovk
		}
		info.Outputs = append(info.Outputs, out)
	}
	return info, nil
}

func spendField(i int, f string) string  { return fmt.Sprintf("spends[%d].%s", i, f) }
func outputField(i int, f string) string { return fmt.Sprintf("outputs[%d].%s", i, f) }

func encodeBundle(b *shield.Bundle) Bundle {
	bsk := b.Bsk()
	out := Bundle{
		Actions:      make([]Action, len(b.Actions)),
		Flags:        b.Flags,
		ValueBalance: b.ValueBalance,
		Anchor:       append([]byte(nil), b.Anchor[:]...),
		Bsk:          bytesOf(bsk.Bytes()),
		NextRNG:      FromRNGConfig(b.NextRNG),
	}
	bsk.Zero()
	for i := range b.Actions {
		a := &b.Actions[i]
		alpha := a.Alpha.Bytes()
		out.Actions[i] = Action{
			CvNet:         bytesOf(a.CvNet.Bytes()),
			Nullifier:     bytesOf(a.Nullifier.Bytes()),
			Rk:            bytesOf(a.Rk.Bytes()),
			Cmx:           bytesOf(a.Cmx.Bytes()),
			EphemeralKey:  bytesOf(a.Ciphertext.EphemeralKey),
			EncCiphertext: append([]byte(nil), a.Ciphertext.EncCiphertext[:]...),
			OutCiphertext: append([]byte(nil), a.Ciphertext.OutCiphertext[:]...),
			Alpha:         bytesOf(alpha),
			DummyOutput:   a.DummyOutput,
		}
		if sk, ok := b.DummySpendingKey(i); ok {
			out.Actions[i].DummySK = bytesOf(sk.Bytes())
		}
	}
	return out
}

func bytesOf(b [32]byte) []byte { return b[:] }

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
