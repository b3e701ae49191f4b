package zip244

import (
	"encoding/binary"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/shield"
)

// memoStart and memoEnd delimit the memo inside enc_ciphertext.
const (
	memoStart = 52
	memoEnd   = 52 + orchard.MemoSize
)

// OrchardAction is the serialized form of one action.
type OrchardAction struct {
	CvNet         [32]byte
	Nullifier     [32]byte
	Rk            [32]byte
	Cmx           [32]byte
	EphemeralKey  [32]byte
	EncCiphertext [orchard.EncCiphertextSize]byte
	OutCiphertext [orchard.OutCiphertextSize]byte
	SpendAuthSig  [64]byte
}

// OrchardBundle is the serialized form of an Orchard bundle.
type OrchardBundle struct {
	Actions      []OrchardAction
	Flags        uint8
	ValueBalance int64
	Anchor       [32]byte
	Proof        []byte
	BindingSig   [64]byte
}

// FromBundle copies the public data of b. Missing signatures are left zero;
// they do not enter any digest.
func FromBundle(b *shield.Bundle) *OrchardBundle {
	out := &OrchardBundle{
		Actions:      make([]OrchardAction, len(b.Actions)),
		Flags:        b.Flags,
		ValueBalance: b.ValueBalance,
		Anchor:       b.Anchor,
		Proof:        append([]byte(nil), b.Proof...),
	}
	for i := range b.Actions {
		a, o := &b.Actions[i], &out.Actions[i]
		o.CvNet = a.CvNet.Bytes()
		o.Nullifier = a.Nullifier.Bytes()
		o.Rk = a.Rk.Bytes()
		o.Cmx = a.Cmx.Bytes()
		o.EphemeralKey = a.Ciphertext.EphemeralKey
		o.EncCiphertext = a.Ciphertext.EncCiphertext
		o.OutCiphertext = a.Ciphertext.OutCiphertext
		if a.SpendAuthSig != nil {
			o.SpendAuthSig = *a.SpendAuthSig
		}
	}
	if b.BindingSig != nil {
		out.BindingSig = *b.BindingSig
	}
	return out
}

// OrchardDigest is T.4. A nil or empty bundle hashes to the personalized
// hash of the empty string.
func OrchardDigest(b *OrchardBundle) [32]byte {
	h := blake2bNew256([]byte(OrchardDigestPersonalization))
	if b == nil || len(b.Actions) == 0 {
		return sum(h)
	}

	compact := blake2bNew256([]byte(OrchardActionsCompactPersonalization))
	memos := blake2bNew256([]byte(OrchardActionsMemosPersonalization))
	noncompact := blake2bNew256([]byte(OrchardActionsNoncompactPersonalization))
	for i := range b.Actions {
		a := &b.Actions[i]
		compact.Write(a.Nullifier[:])
		compact.Write(a.Cmx[:])
		compact.Write(a.EphemeralKey[:])
		compact.Write(a.EncCiphertext[:memoStart])

		memos.Write(a.EncCiphertext[memoStart:memoEnd])

		noncompact.Write(a.CvNet[:])
		noncompact.Write(a.Rk[:])
		noncompact.Write(a.EncCiphertext[memoEnd:])
		noncompact.Write(a.OutCiphertext[:])
	}
	h.Write(compact.Sum(nil))
	h.Write(memos.Sum(nil))
	h.Write(noncompact.Sum(nil))

	var tail [1 + 8 + 32]byte
	tail[0] = b.Flags
	binary.LittleEndian.PutUint64(tail[1:], uint64(b.ValueBalance))
	copy(tail[9:], b.Anchor[:])
	h.Write(tail[:])
	return sum(h)
}
