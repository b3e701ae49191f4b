// Package zip244 computes the v5 transaction identifier and the signature
// digest that Orchard spend authorizations and the binding signature sign.
//
// A shielding transaction carries transparent inputs funding the Orchard
// pool, no Sapling components, and one Orchard bundle. The digest tree is
//
//	txid    = H("ZcashTxHash_" || branch, header || transparent || sapling || orchard)
//	sighash = the same, with the transparent part replaced by its
//	          SIGHASH_ALL signature digest when transparent inputs exist
//
// Corresponds to:
//   - librustzcash/zcash_primitives/src/transaction/txid.rs
//   - librustzcash/zcash_primitives/src/transaction/sighash_v5.rs
//
// References:
//   - ZIP 244: https://zips.z.cash/zip-0244
//   - ZIP 225: https://zips.z.cash/zip-0225
package zip244

import (
	"encoding/binary"
	"hash"
	"io"

	blake2b "github.com/minio/blake2b-simd"
)

// Personalization strings for the BLAKE2b-256 digests.
const (
	TxHashPersonalization = "ZcashTxHash_" // followed by the 4-byte branch id

	HeaderDigestPersonalization      = "ZTxIdHeadersHash"
	TransparentDigestPersonalization = "ZTxIdTranspaHash"
	SaplingDigestPersonalization     = "ZTxIdSaplingHash"
	OrchardDigestPersonalization     = "ZTxIdOrchardHash"

	PrevoutDigestPersonalization  = "ZTxIdPrevoutHash"
	SequenceDigestPersonalization = "ZTxIdSequencHash"
	OutputsDigestPersonalization  = "ZTxIdOutputsHash"
	AmountsDigestPersonalization  = "ZTxTrAmountsHash"
	ScriptsDigestPersonalization  = "ZTxTrScriptsHash"
	TxInDigestPersonalization     = "Zcash___TxInHash"

	OrchardActionsCompactPersonalization    = "ZTxIdOrcActCHash"
	OrchardActionsMemosPersonalization      = "ZTxIdOrcActMHash"
	OrchardActionsNoncompactPersonalization = "ZTxIdOrcActNHash"
)

// Header constants for v5 transactions.
const (
	TxVersion        uint32 = 5
	OverwinteredFlag uint32 = 1 << 31
	VersionGroupID   uint32 = 0x26A7270A

	BranchNU5  uint32 = 0xC2D6D0B4
	BranchNU6  uint32 = 0xC8E71055
	SighashAll uint8  = 0x01
)

func blake2bNew256(personalization []byte) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{Size: 32, Person: personalization})
	if err != nil {
		// Only reachable with a personalization longer than 16 bytes.
		panic(err)
	}
	return h
}

func sum(h hash.Hash) [32]byte {
	var d [32]byte
	copy(d[:], h.Sum(nil))
	return d
}

func emptyDigest(personalization string) [32]byte {
	return sum(blake2bNew256([]byte(personalization)))
}

// Header holds the fields of the T.1 header digest.
type Header struct {
	ConsensusBranchID uint32
	LockTime          uint32
	ExpiryHeight      uint32
}

// TransparentInput is a transparent input together with the coin it spends.
// Value and ScriptPubKey are not part of the serialized transaction but are
// committed to by the signature digest.
type TransparentInput struct {
	PrevoutTxID  [32]byte
	PrevoutIndex uint32
	ScriptSig    []byte
	Sequence     uint32
	Value        uint64
	ScriptPubKey []byte
}

// TransparentOutput is a transparent output.
type TransparentOutput struct {
	Value        uint64
	ScriptPubKey []byte
}

// Transaction is a v5 transaction without Sapling components.
type Transaction struct {
	Header  Header
	Inputs  []TransparentInput
	Outputs []TransparentOutput
	Orchard *OrchardBundle
}

// Digests are the four top-level components of the txid.
type Digests struct {
	Header      [32]byte
	Transparent [32]byte
	Sapling     [32]byte
	Orchard     [32]byte
}

// HeaderDigest is T.1.
func HeaderDigest(hdr Header) [32]byte {
	h := blake2bNew256([]byte(HeaderDigestPersonalization))
	var buf [20]byte
	binary.LittleEndian.PutUint32(buf[0:], TxVersion|OverwinteredFlag)
	binary.LittleEndian.PutUint32(buf[4:], VersionGroupID)
	binary.LittleEndian.PutUint32(buf[8:], hdr.ConsensusBranchID)
	binary.LittleEndian.PutUint32(buf[12:], hdr.LockTime)
	binary.LittleEndian.PutUint32(buf[16:], hdr.ExpiryHeight)
	h.Write(buf[:])
	return sum(h)
}

// TransparentDigest is T.2. With no inputs and no outputs it is the
// personalized hash of the empty string.
func TransparentDigest(inputs []TransparentInput, outputs []TransparentOutput) [32]byte {
	h := blake2bNew256([]byte(TransparentDigestPersonalization))
	if len(inputs) == 0 && len(outputs) == 0 {
		return sum(h)
	}
	prevouts := prevoutsDigest(inputs)
	sequences := sequenceDigest(inputs)
	outs := outputsDigest(outputs)
	h.Write(prevouts[:])
	h.Write(sequences[:])
	h.Write(outs[:])
	return sum(h)
}

// SaplingDigest is T.3 for a transaction without Sapling components.
func SaplingDigest() [32]byte {
	return emptyDigest(SaplingDigestPersonalization)
}

func prevoutsDigest(inputs []TransparentInput) [32]byte {
	h := blake2bNew256([]byte(PrevoutDigestPersonalization))
	for i := range inputs {
		h.Write(inputs[i].PrevoutTxID[:])
		binary.Write(h, binary.LittleEndian, inputs[i].PrevoutIndex)
	}
	return sum(h)
}

func sequenceDigest(inputs []TransparentInput) [32]byte {
	h := blake2bNew256([]byte(SequenceDigestPersonalization))
	for i := range inputs {
		binary.Write(h, binary.LittleEndian, inputs[i].Sequence)
	}
	return sum(h)
}

func outputsDigest(outputs []TransparentOutput) [32]byte {
	h := blake2bNew256([]byte(OutputsDigestPersonalization))
	for _, out := range outputs {
		binary.Write(h, binary.LittleEndian, out.Value)
		writeCompactSize(h, uint64(len(out.ScriptPubKey)))
		h.Write(out.ScriptPubKey)
	}
	return sum(h)
}

func amountsDigest(inputs []TransparentInput) [32]byte {
	h := blake2bNew256([]byte(AmountsDigestPersonalization))
	for i := range inputs {
		binary.Write(h, binary.LittleEndian, inputs[i].Value)
	}
	return sum(h)
}

func scriptsDigest(inputs []TransparentInput) [32]byte {
	h := blake2bNew256([]byte(ScriptsDigestPersonalization))
	for i := range inputs {
		writeCompactSize(h, uint64(len(inputs[i].ScriptPubKey)))
		h.Write(inputs[i].ScriptPubKey)
	}
	return sum(h)
}

// shieldedTransparentSigDigest is S.2 for a signature that is not over a
// particular transparent input: SIGHASH_ALL with an empty txin digest.
func shieldedTransparentSigDigest(tx *Transaction) [32]byte {
	if len(tx.Inputs) == 0 || tx.isCoinbase() {
		return TransparentDigest(tx.Inputs, tx.Outputs)
	}
	h := blake2bNew256([]byte(TransparentDigestPersonalization))
	h.Write([]byte{SighashAll})
	for _, d := range [][32]byte{
		prevoutsDigest(tx.Inputs),
		amountsDigest(tx.Inputs),
		scriptsDigest(tx.Inputs),
		sequenceDigest(tx.Inputs),
		outputsDigest(tx.Outputs),
		emptyDigest(TxInDigestPersonalization),
	} {
		h.Write(d[:])
	}
	return sum(h)
}

func (tx *Transaction) isCoinbase() bool {
	if len(tx.Inputs) != 1 {
		return false
	}
	in := &tx.Inputs[0]
	return in.PrevoutTxID == [32]byte{} && in.PrevoutIndex == 0xffffffff
}

// Digests computes the txid components of tx.
func (tx *Transaction) Digests() Digests {
	return Digests{
		Header:      HeaderDigest(tx.Header),
		Transparent: TransparentDigest(tx.Inputs, tx.Outputs),
		Sapling:     SaplingDigest(),
		Orchard:     OrchardDigest(tx.Orchard),
	}
}

func (tx *Transaction) root(transparent [32]byte, d Digests) [32]byte {
	personalization := make([]byte, 16)
	copy(personalization, TxHashPersonalization)
	binary.LittleEndian.PutUint32(personalization[12:], tx.Header.ConsensusBranchID)

	h := blake2bNew256(personalization)
	h.Write(d.Header[:])
	h.Write(transparent[:])
	h.Write(d.Sapling[:])
	h.Write(d.Orchard[:])
	return sum(h)
}

// TxID returns the transaction identifier in internal byte order.
func (tx *Transaction) TxID() [32]byte {
	d := tx.Digests()
	return tx.root(d.Transparent, d)
}

// ShieldedSighash returns the message signed by every Orchard spend
// authorization and by the binding signature.
func (tx *Transaction) ShieldedSighash() [32]byte {
	return tx.root(shieldedTransparentSigDigest(tx), tx.Digests())
}

func writeCompactSize(w io.Writer, n uint64) {
	switch {
	case n < 0xfd:
		w.Write([]byte{byte(n)})
	case n <= 0xffff:
		w.Write([]byte{0xfd})
		binary.Write(w, binary.LittleEndian, uint16(n))
	case n <= 0xffffffff:
		w.Write([]byte{0xfe})
		binary.Write(w, binary.LittleEndian, uint32(n))
	default:
		w.Write([]byte{0xff})
		binary.Write(w, binary.LittleEndian, n)
	}
}
