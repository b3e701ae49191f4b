package keys

import (
	"errors"
	"io"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/pallas"
	"github.com/suffix-labs/orchardlib/pkg/redpallas"
	"github.com/suffix-labs/orchardlib/pkg/rng"
)

// AlphaFromBytes decodes a spend authorization randomizer. Zero and
// non-canonical encodings are rejected with ErrInvalidAlpha.
func AlphaFromBytes(b []byte) (pallas.Scalar, error) {
	var alpha pallas.Scalar
	if _, err := alpha.SetBytes(b); err != nil {
		return pallas.Scalar{}, orchard.Wrap(orchard.CodeInvalidAlpha, err, "alpha")
	}
	if alpha.IsZero() == 1 {
		return pallas.Scalar{}, orchard.Errorf(orchard.CodeInvalidAlpha, "alpha is zero")
	}
	return alpha, nil
}

// AlphaFromSource draws a uniformly random non-zero randomizer from 64
// bytes of src.
func AlphaFromSource(src rng.Source) (pallas.Scalar, error) {
	b, err := src.NextBytes(64)
	if err != nil {
		return pallas.Scalar{}, err
	}
	var alpha pallas.Scalar
	alpha.SetWideBytes(b)
	if alpha.IsZero() == 1 {
		return pallas.Scalar{}, orchard.Errorf(orchard.CodeInvalidAlpha, "drew zero alpha")
	}
	return alpha, nil
}

// RandomizedVerificationKey returns rk = ak + [alpha]G.
func RandomizedVerificationKey(fvk FullViewingKey, alpha *pallas.Scalar) redpallas.VerificationKey {
	return fvk.SpendValidatingKey().Randomize(alpha)
}

// SpendAuthorizingKey returns the RedPallas signing key ask of sk.
func SpendAuthorizingKey(sk *SpendingKey) (*redpallas.SigningKey, error) {
	ask, _, err := sk.spendAuthorizingKey()
	if err != nil {
		return nil, err
	}
	k, err := redpallas.NewSigningKey(redpallas.SpendAuth, &ask)
	ask.Zero()
	if err != nil {
		return nil, orchard.Wrap(orchard.CodeSigning, err, "spend authorizing key")
	}
	return k, nil
}

// Sign produces a spend authorization signature over sighash with
// rsk = ask + alpha. It verifies under RandomizedVerificationKey(fvk, alpha)
// for the full viewing key of sk.
func Sign(sk *SpendingKey, alpha *pallas.Scalar, sighash []byte, rand io.Reader) (redpallas.Signature, error) {
	if alpha.IsZero() == 1 {
		return redpallas.Signature{}, orchard.Errorf(orchard.CodeInvalidAlpha, "alpha is zero")
	}
	ask, err := SpendAuthorizingKey(sk)
	if err != nil {
		return redpallas.Signature{}, err
	}
	defer ask.Zeroize()

	rsk, err := ask.Randomize(alpha)
	if err != nil {
		return redpallas.Signature{}, orchard.Wrap(orchard.CodeSigning, err, "randomized key")
	}
	defer rsk.Zeroize()

	sig, err := rsk.Sign(rand, sighash)
	if err != nil {
		var oe *orchard.Error
		if errors.As(err, &oe) {
			return redpallas.Signature{}, oe
		}
		return redpallas.Signature{}, orchard.Wrap(orchard.CodeSigning, err, "spend authorization")
	}
	return sig, nil
}
