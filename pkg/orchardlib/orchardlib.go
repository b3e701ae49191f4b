// Package orchardlib is the flat binding surface of the library: every
// argument and result is a byte slice or an integer, so it can be exported
// unchanged through cgo or a device RPC layer.
//
// Structured inputs and outputs (the shielding request, the randomness
// configuration and the resulting bundle) are CBOR maps in core
// deterministic encoding. Every error returned is an *orchard.Error whose
// Code is stable across releases; messages never carry key bytes.
//
// The Zcash* functions are the older names of the same operations and are
// kept for existing callers. Their key functions take the spending key, as
// the device bindings did.
//
// Corresponds to:
//   - trezor-firmware core/embed/rust/src/orchard (device bindings)
//
// References:
//   - ZIP 32, ZIP 316, ZIP 244
package orchardlib

import (
	"errors"

	"github.com/suffix-labs/orchardlib/pkg/f4jumble"
	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/redpallas"
	"github.com/suffix-labs/orchardlib/pkg/unified"
)

// Version is the library version reported by the CLI.
const Version = "0.3.0"

// boundary converts err to an *orchard.Error, using code for anything that
// is not one already.
func boundary(code string, err error) error {
	if err == nil {
		return nil
	}
	var oe *orchard.Error
	if errors.As(err, &oe) {
		return oe
	}
	return orchard.Wrap(code, err, "orchardlib")
}

func spendingKey(sk []byte) (*keys.SpendingKey, error) {
	k, err := keys.SpendingKeyFromBytes(sk)
	return k, boundary(orchard.CodeInvalidSpendingKey, err)
}

func fullViewingKey(fvk []byte) (keys.FullViewingKey, error) {
	k, err := keys.FullViewingKeyFromBytes(fvk)
	return k, boundary(orchard.CodeInvalidEncoding, err)
}

// DeriveFullViewingKey returns ak || nk || rivk for sk. With internal set
// the internal-scope key is returned.
func DeriveFullViewingKey(sk []byte, internal bool) ([]byte, error) {
	k, err := spendingKey(sk)
	if err != nil {
		return nil, err
	}
	defer k.Zeroize()
	fvk, err := keys.DeriveFullViewingKey(k, internal)
	if err != nil {
		return nil, boundary(orchard.CodeInvalidSpendingKey, err)
	}
	b := fvk.Bytes()
	return b[:], nil
}

// DeriveInternalFullViewingKey returns the internal-scope counterpart of an
// external full viewing key.
func DeriveInternalFullViewingKey(fvk []byte) ([]byte, error) {
	k, err := fullViewingKey(fvk)
	if err != nil {
		return nil, err
	}
	b := keys.DeriveInternalFullViewingKey(k).Bytes()
	return b[:], nil
}

// DeriveIncomingViewingKey returns dk || ivk for the chosen scope of fvk.
func DeriveIncomingViewingKey(fvk []byte, internal bool) ([]byte, error) {
	k, err := fullViewingKey(fvk)
	if err != nil {
		return nil, err
	}
	ivk, err := keys.DeriveIncomingViewingKey(k, internal)
	if err != nil {
		return nil, boundary(orchard.CodeInvalidEncoding, err)
	}
	b := ivk.Bytes()
	return b[:], nil
}

// DeriveOutgoingViewingKey returns ovk for the chosen scope of fvk.
func DeriveOutgoingViewingKey(fvk []byte, internal bool) ([]byte, error) {
	k, err := fullViewingKey(fvk)
	if err != nil {
		return nil, err
	}
	ovk := keys.DeriveOutgoingViewingKey(k, internal)
	return ovk[:], nil
}

// DeriveAddress returns the 43-byte raw address at diversifier index.
func DeriveAddress(fvk []byte, index uint64, internal bool) ([]byte, error) {
	k, err := fullViewingKey(fvk)
	if err != nil {
		return nil, err
	}
	addr, err := keys.DeriveAddress(k, index, internal)
	if err != nil {
		return nil, boundary(orchard.CodeInvalidDiversifier, err)
	}
	b := addr.Bytes()
	return b[:], nil
}

// F4Jumble applies the ZIP 316 F4Jumble permutation.
func F4Jumble(msg []byte) ([]byte, error) {
	out, err := f4jumble.Jumble(msg)
	return out, boundary(orchard.CodeInvalidLength, err)
}

// F4JumbleInv inverts F4Jumble.
func F4JumbleInv(msg []byte) ([]byte, error) {
	out, err := f4jumble.Unjumble(msg)
	return out, boundary(orchard.CodeInvalidLength, err)
}

// Sign produces a spend authorization signature over sighash with sk
// randomized by alpha. The signature consumes 80 bytes of the source
// described by rngConfig.
func Sign(sk, alpha, sighash, rngConfig []byte) ([]byte, error) {
	a, err := keys.AlphaFromBytes(alpha)
	if err != nil {
		return nil, boundary(orchard.CodeInvalidAlpha, err)
	}
	k, err := spendingKey(sk)
	if err != nil {
		return nil, err
	}
	defer k.Zeroize()
	cfg, err := decodeRNGConfig(rngConfig)
	if err != nil {
		return nil, err
	}
	src, err := cfg.Open()
	if err != nil {
		return nil, boundary(orchard.CodeRandomSourceExhausted, err)
	}
	sig, err := keys.Sign(k, &a, sighash, src)
	if err != nil {
		return nil, boundary(orchard.CodeSigning, err)
	}
	return sig[:], nil
}

// SignBinding produces the binding signature over sighash with the bsk
// returned by Shield.
func SignBinding(bsk, sighash, rngConfig []byte) ([]byte, error) {
	var s pallas.Scalar
	if _, err := s.SetBytes(bsk); err != nil {
		return nil, orchard.Wrap(orchard.CodeInvalidEncoding, err, "bsk")
	}
	sk, err := redpallas.NewSigningKey(redpallas.Binding, &s)
	s.Zero()
	if err != nil {
		return nil, boundary(orchard.CodeSigning, err)
	}
	defer sk.Zeroize()
	cfg, err := decodeRNGConfig(rngConfig)
	if err != nil {
		return nil, err
	}
	src, err := cfg.Open()
	if err != nil {
		return nil, boundary(orchard.CodeRandomSourceExhausted, err)
	}
	sig, err := sk.Sign(src, sighash)
	if err != nil {
		return nil, boundary(orchard.CodeSigning, err)
	}
	return sig[:], nil
}

func network(testnet bool) unified.Network {
	if testnet {
		return unified.Testnet
	}
	return unified.Mainnet
}

// EncodeUnifiedAddress encodes a 43-byte raw address as a unified address.
func EncodeUnifiedAddress(addr []byte, testnet bool) (string, error) {
	a, err := keys.AddressFromBytes(addr)
	if err != nil {
		return "", boundary(orchard.CodeInvalidEncoding, err)
	}
	s, err := unified.EncodeAddress(network(testnet), a)
	return s, boundary(orchard.CodeInvalidEncoding, err)
}

// DecodeUnifiedAddress returns the raw Orchard receiver of a unified
// address and whether it is a testnet address.
func DecodeUnifiedAddress(ua string) ([]byte, bool, error) {
	net, a, err := unified.DecodeAddress(ua)
	if err != nil {
		return nil, false, boundary(orchard.CodeInvalidEncoding, err)
	}
	b := a.Bytes()
	return b[:], net == unified.Testnet, nil
}

// EncodeUnifiedFullViewingKey encodes a 96-byte full viewing key.
func EncodeUnifiedFullViewingKey(fvk []byte, testnet bool) (string, error) {
	k, err := fullViewingKey(fvk)
	if err != nil {
		return "", err
	}
	s, err := unified.EncodeFullViewingKey(network(testnet), k)
	return s, boundary(orchard.CodeInvalidEncoding, err)
}

// EncodeUnifiedIncomingViewingKey encodes a 64-byte incoming viewing key.
func EncodeUnifiedIncomingViewingKey(ivk []byte, testnet bool) (string, error) {
	k, err := keys.IncomingViewingKeyFromBytes(ivk)
	if err != nil {
		return "", boundary(orchard.CodeInvalidEncoding, err)
	}
	s, err := unified.EncodeIncomingViewingKey(network(testnet), k)
	return s, boundary(orchard.CodeInvalidEncoding, err)
}
