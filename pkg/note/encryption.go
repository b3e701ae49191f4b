package note

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	blake2b "github.com/minio/blake2b-simd"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/rng"
)

const (
	kdfPersonalization = "Zcash_OrchardKDF"
	ockPersonalization = "Zcash_Orchardock"

	// notePlaintextLeadByte is the ZIP 212 version byte.
	notePlaintextLeadByte = 0x02

	// emptyMemoByte starts the canonical "no memo" encoding.
	emptyMemoByte = 0xf6
)

// ErrDecryption is returned when a ciphertext does not open under the
// given key or its content is inconsistent with the public action data.
var ErrDecryption = errors.New("note: decryption failed")

// Ciphertext is the encrypted part of an action.
type Ciphertext struct {
	EphemeralKey  [32]byte
	EncCiphertext [orchard.EncCiphertextSize]byte
	OutCiphertext [orchard.OutCiphertextSize]byte
}

func blake2b256(personalization string, parts ...[]byte) [32]byte {
	h, err := blake2b.New(&blake2b.Config{Size: 32, Person: []byte(personalization)})
	if err != nil {
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

func kdf(shared *pallas.Point, epk [32]byte) [32]byte {
	s := shared.Bytes()
	return blake2b256(kdfPersonalization, s[:], epk[:])
}

func outgoingCipherKey(ovk keys.OutgoingViewingKey, cv ValueCommitment, cmx *pallas.Base, epk [32]byte) [32]byte {
	cvb, cmxb := cv.Bytes(), cmx.Bytes()
	return blake2b256(ockPersonalization, ovk[:], cvb[:], cmxb[:], epk[:])
}

func seal(key [32]byte, plaintext []byte) []byte {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		panic(err)
	}
	var nonce [chacha20poly1305.NonceSize]byte
	return aead.Seal(nil, nonce[:], plaintext, nil)
}

func open(key [32]byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		panic(err)
	}
	var nonce [chacha20poly1305.NonceSize]byte
	return aead.Open(nil, nonce[:], ciphertext, nil)
}

// PadMemo returns the 512-byte memo field for memo. An empty memo is
// encoded as 0xF6 followed by zeros.
func PadMemo(memo []byte) ([orchard.MemoSize]byte, error) {
	var out [orchard.MemoSize]byte
	if len(memo) > orchard.MemoSize {
		return out, orchard.Errorf(orchard.CodeMalformedActionInfo,
			"memo is %d bytes, at most %d allowed", len(memo), orchard.MemoSize)
	}
	if len(memo) == 0 {
		out[0] = emptyMemoByte
		return out, nil
	}
	copy(out[:], memo)
	return out, nil
}

func (n Note) plaintext(memo *[orchard.MemoSize]byte) []byte {
	pt := make([]byte, 0, orchard.NotePlaintextSize)
	pt = append(pt, notePlaintextLeadByte)
	d := n.Recipient.Diversifier()
	pt = append(pt, d[:]...)
	pt = binary.LittleEndian.AppendUint64(pt, n.Value)
	pt = append(pt, n.Rseed[:]...)
	return append(pt, memo[:]...)
}

// Encrypt encrypts n to its recipient. cv and cmx are the action's value
// commitment and extracted note commitment; they key the outgoing
// ciphertext. With a nil ovk the outgoing ciphertext is random and n can
// only be recovered by the recipient. src is consulted only when ovk is
// nil.
func Encrypt(n Note, memo []byte, ovk *keys.OutgoingViewingKey, cv ValueCommitment, src rng.Source) (Ciphertext, error) {
	padded, err := PadMemo(memo)
	if err != nil {
		return Ciphertext{}, err
	}
	cmx, err := n.ExtractedCommitment()
	if err != nil {
		return Ciphertext{}, err
	}

	esk := n.Esk()
	defer esk.Zero()
	var epk, shared pallas.Point
	epk.ScalarMult(&esk, n.Recipient.GD())
	shared.ScalarMult(&esk, n.Recipient.PkD())

	var ct Ciphertext
	ct.EphemeralKey = epk.Bytes()
	copy(ct.EncCiphertext[:], seal(kdf(&shared, ct.EphemeralKey), n.plaintext(&padded)))

	var ock [32]byte
	op := make([]byte, 64)
	if ovk != nil {
		ock = outgoingCipherKey(*ovk, cv, &cmx, ct.EphemeralKey)
		pkd := n.Recipient.PkD().Bytes()
		eskb := esk.Bytes()
		copy(op[:32], pkd[:])
		copy(op[32:], eskb[:])
	} else {
		b, err := src.NextBytes(32 + 64)
		if err != nil {
			return Ciphertext{}, err
		}
		copy(ock[:], b[:32])
		copy(op, b[32:])
	}
	copy(ct.OutCiphertext[:], seal(ock, op))
	return ct, nil
}

// parsePlaintext rebuilds the note from a decrypted plaintext and checks it
// against the public cmx and epk.
func parsePlaintext(pt []byte, pkd *pallas.Point, rho *pallas.Base, cmx *pallas.Base, epk [32]byte) (Note, [orchard.MemoSize]byte, error) {
	var memo [orchard.MemoSize]byte
	if len(pt) != orchard.NotePlaintextSize || pt[0] != notePlaintextLeadByte {
		return Note{}, memo, ErrDecryption
	}
	var raw [orchard.AddressSize]byte
	copy(raw[:11], pt[1:12])
	pkdb := pkd.Bytes()
	copy(raw[11:], pkdb[:])
	addr, err := keys.AddressFromBytes(raw[:])
	if err != nil {
		return Note{}, memo, ErrDecryption
	}
	var rseed [32]byte
	copy(rseed[:], pt[20:52])
	n, err := New(addr, binary.LittleEndian.Uint64(pt[12:20]), *rho, rseed)
	if err != nil {
		return Note{}, memo, ErrDecryption
	}

	got, err := n.ExtractedCommitment()
	if err != nil || got.Equal(cmx) != 1 {
		return Note{}, memo, ErrDecryption
	}
	esk := n.Esk()
	var derived pallas.Point
	derived.ScalarMult(&esk, addr.GD())
	derivedEpk := derived.Bytes()
	if subtle.ConstantTimeCompare(derivedEpk[:], epk[:]) != 1 {
		return Note{}, memo, ErrDecryption
	}
	copy(memo[:], pt[52:])
	return n, memo, nil
}

// TryDecrypt opens the note ciphertext with an incoming viewing key. rho is
// the nullifier of the action's spend.
func TryDecrypt(ivk keys.IncomingViewingKey, rho *pallas.Base, cmx *pallas.Base, ct *Ciphertext) (Note, [orchard.MemoSize]byte, error) {
	var epk pallas.Point
	if _, err := epk.SetBytes(ct.EphemeralKey[:]); err != nil {
		return Note{}, [orchard.MemoSize]byte{}, ErrDecryption
	}
	sk := ivk.Scalar()
	var shared pallas.Point
	shared.ScalarMult(&sk, &epk)
	pt, err := open(kdf(&shared, ct.EphemeralKey), ct.EncCiphertext[:])
	if err != nil {
		return Note{}, [orchard.MemoSize]byte{}, ErrDecryption
	}
	d := [orchard.DiversifierSize]byte(pt[1:12])
	var pkd pallas.Point
	pkd.ScalarMult(&sk, keys.DiversifyHash(d))
	return parsePlaintext(pt, &pkd, rho, cmx, ct.EphemeralKey)
}

// RecoverWithOVK opens an output with the sender's outgoing viewing key.
func RecoverWithOVK(ovk keys.OutgoingViewingKey, cv ValueCommitment, rho *pallas.Base, cmx *pallas.Base, ct *Ciphertext) (Note, [orchard.MemoSize]byte, error) {
	op, err := open(outgoingCipherKey(ovk, cv, cmx, ct.EphemeralKey), ct.OutCiphertext[:])
	if err != nil {
		return Note{}, [orchard.MemoSize]byte{}, ErrDecryption
	}
	var pkd pallas.Point
	if _, err := pkd.SetBytes(op[:32]); err != nil {
		return Note{}, [orchard.MemoSize]byte{}, ErrDecryption
	}
	var esk pallas.Scalar
	if _, err := esk.SetBytes(op[32:]); err != nil {
		return Note{}, [orchard.MemoSize]byte{}, ErrDecryption
	}
	var shared pallas.Point
	shared.ScalarMult(&esk, &pkd)
	pt, err := open(kdf(&shared, ct.EphemeralKey), ct.EncCiphertext[:])
	if err != nil {
		return Note{}, [orchard.MemoSize]byte{}, fmt.Errorf("%w: enc_ciphertext", ErrDecryption)
	}
	return parsePlaintext(pt, &pkd, rho, cmx, ct.EphemeralKey)
}
