package zip244

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
)

// Bounds on compact-size values read from untrusted input.
const (
	maxCount = 1 << 16 // inputs, outputs, actions
	maxBytes = 1 << 22 // scripts, proof
)

// ParseTransaction reads a serialized v5 transaction. Transactions with
// Sapling components are rejected. The parsed inputs carry no Value or
// ScriptPubKey; supply them with SetPrevouts before computing a sighash.
func ParseTransaction(data []byte) (*Transaction, error) {
	r := bytes.NewReader(data)
	tx, err := readTransaction(r)
	if err != nil {
		return nil, orchard.Wrap(orchard.CodeInvalidEncoding, err, "v5 transaction")
	}
	if r.Len() != 0 {
		return nil, orchard.Errorf(orchard.CodeInvalidEncoding, "v5 transaction: %d trailing bytes", r.Len())
	}
	return tx, nil
}

func readTransaction(r io.Reader) (*Transaction, error) {
	var hdr [5]uint32
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if hdr[0] != TxVersion|OverwinteredFlag {
		return nil, fmt.Errorf("not a v5 transaction (version=0x%08x)", hdr[0])
	}
	if hdr[1] != VersionGroupID {
		return nil, fmt.Errorf("unexpected version group id 0x%08x", hdr[1])
	}
	tx := &Transaction{Header: Header{
		ConsensusBranchID: hdr[2],
		LockTime:          hdr[3],
		ExpiryHeight:      hdr[4],
	}}

	if err := readTransparent(r, tx); err != nil {
		return nil, fmt.Errorf("parsing transparent bundle: %w", err)
	}

	spends, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("reading sapling spend count: %w", err)
	}
	outputs, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("reading sapling output count: %w", err)
	}
	if spends != 0 || outputs != 0 {
		return nil, fmt.Errorf("sapling components are not supported")
	}

	if tx.Orchard, err = readOrchard(r); err != nil {
		return nil, fmt.Errorf("parsing orchard bundle: %w", err)
	}
	return tx, nil
}

func readTransparent(r io.Reader, tx *Transaction) error {
	n, err := readCount(r)
	if err != nil {
		return fmt.Errorf("reading input count: %w", err)
	}
	tx.Inputs = make([]TransparentInput, n)
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		if _, err := io.ReadFull(r, in.PrevoutTxID[:]); err != nil {
			return fmt.Errorf("input %d prevout: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &in.PrevoutIndex); err != nil {
			return fmt.Errorf("input %d prevout index: %w", i, err)
		}
		if in.ScriptSig, err = readBytes(r); err != nil {
			return fmt.Errorf("input %d scriptSig: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &in.Sequence); err != nil {
			return fmt.Errorf("input %d sequence: %w", i, err)
		}
	}

	if n, err = readCount(r); err != nil {
		return fmt.Errorf("reading output count: %w", err)
	}
	tx.Outputs = make([]TransparentOutput, n)
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		if err := binary.Read(r, binary.LittleEndian, &out.Value); err != nil {
			return fmt.Errorf("output %d value: %w", i, err)
		}
		if out.ScriptPubKey, err = readBytes(r); err != nil {
			return fmt.Errorf("output %d scriptPubKey: %w", i, err)
		}
	}
	return nil
}

func readOrchard(r io.Reader) (*OrchardBundle, error) {
	n, err := readCount(r)
	if err != nil {
		return nil, fmt.Errorf("reading action count: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	b := &OrchardBundle{Actions: make([]OrchardAction, n)}
	for i := range b.Actions {
		a := &b.Actions[i]
		for _, field := range [][]byte{
			a.CvNet[:], a.Nullifier[:], a.Rk[:], a.Cmx[:],
			a.EphemeralKey[:], a.EncCiphertext[:], a.OutCiphertext[:],
		} {
			if _, err := io.ReadFull(r, field); err != nil {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
		}
	}
	var flags [1]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return nil, fmt.Errorf("reading flags: %w", err)
	}
	b.Flags = flags[0]
	if err := binary.Read(r, binary.LittleEndian, &b.ValueBalance); err != nil {
		return nil, fmt.Errorf("reading value balance: %w", err)
	}
	if _, err := io.ReadFull(r, b.Anchor[:]); err != nil {
		return nil, fmt.Errorf("reading anchor: %w", err)
	}
	if b.Proof, err = readBytes(r); err != nil {
		return nil, fmt.Errorf("reading proof: %w", err)
	}
	for i := range b.Actions {
		if _, err := io.ReadFull(r, b.Actions[i].SpendAuthSig[:]); err != nil {
			return nil, fmt.Errorf("action %d spend auth sig: %w", i, err)
		}
	}
	if _, err := io.ReadFull(r, b.BindingSig[:]); err != nil {
		return nil, fmt.Errorf("reading binding sig: %w", err)
	}
	return b, nil
}

// SetPrevouts attaches the value and scriptPubKey of the coin each input
// spends.
func (tx *Transaction) SetPrevouts(values []uint64, scripts [][]byte) error {
	if len(values) != len(tx.Inputs) || len(scripts) != len(tx.Inputs) {
		return orchard.Errorf(orchard.CodeMalformedActionInfo,
			"%d inputs but %d values and %d scripts", len(tx.Inputs), len(values), len(scripts))
	}
	for i := range tx.Inputs {
		tx.Inputs[i].Value = values[i]
		tx.Inputs[i].ScriptPubKey = scripts[i]
	}
	return nil
}

// MarshalBinary serializes tx in the v5 format.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, [5]uint32{
		TxVersion | OverwinteredFlag,
		VersionGroupID,
		tx.Header.ConsensusBranchID,
		tx.Header.LockTime,
		tx.Header.ExpiryHeight,
	})

	writeCompactSize(&buf, uint64(len(tx.Inputs)))
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		buf.Write(in.PrevoutTxID[:])
		binary.Write(&buf, binary.LittleEndian, in.PrevoutIndex)
		writeCompactSize(&buf, uint64(len(in.ScriptSig)))
		buf.Write(in.ScriptSig)
		binary.Write(&buf, binary.LittleEndian, in.Sequence)
	}
	writeCompactSize(&buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		binary.Write(&buf, binary.LittleEndian, out.Value)
		writeCompactSize(&buf, uint64(len(out.ScriptPubKey)))
		buf.Write(out.ScriptPubKey)
	}

	// no Sapling spends or outputs
	buf.Write([]byte{0, 0})

	tx.Orchard.writeTo(&buf)
	return buf.Bytes(), nil
}

func (b *OrchardBundle) writeTo(buf *bytes.Buffer) {
	if b == nil || len(b.Actions) == 0 {
		buf.WriteByte(0)
		return
	}
	writeCompactSize(buf, uint64(len(b.Actions)))
	for i := range b.Actions {
		a := &b.Actions[i]
		buf.Write(a.CvNet[:])
		buf.Write(a.Nullifier[:])
		buf.Write(a.Rk[:])
		buf.Write(a.Cmx[:])
		buf.Write(a.EphemeralKey[:])
		buf.Write(a.EncCiphertext[:])
		buf.Write(a.OutCiphertext[:])
	}
	buf.WriteByte(b.Flags)
	binary.Write(buf, binary.LittleEndian, b.ValueBalance)
	buf.Write(b.Anchor[:])
	writeCompactSize(buf, uint64(len(b.Proof)))
	buf.Write(b.Proof)
	for i := range b.Actions {
		buf.Write(b.Actions[i].SpendAuthSig[:])
	}
	buf.Write(b.BindingSig[:])
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n > maxBytes {
		return nil, fmt.Errorf("length %d exceeds %d", n, maxBytes)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readCount(r io.Reader) (int, error) {
	n, err := readCompactSize(r)
	if err != nil {
		return 0, err
	}
	if n > maxCount {
		return 0, fmt.Errorf("count %d exceeds %d", n, maxCount)
	}
	return int(n), nil
}

// readCompactSize reads a Bitcoin-style variable-length integer.
func readCompactSize(r io.Reader) (uint64, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, err
	}
	switch first[0] {
	case 0xfd:
		var v uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return uint64(v), err
	case 0xfe:
		var v uint32
		err := binary.Read(r, binary.LittleEndian, &v)
		return uint64(v), err
	case 0xff:
		var v uint64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	default:
		return uint64(first[0]), nil
	}
}
