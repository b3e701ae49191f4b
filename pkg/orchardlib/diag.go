//go:build diag

package orchardlib

import (
	"errors"
	"strconv"
	"strings"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/sinsemilla"
)

// benchDomain is the Sinsemilla domain used by "sinsemilla-bench".
const benchDomain = "z.cash:test-Sinsemilla"

// Diag runs a test-harness instruction. It is compiled only with the diag
// build tag.
//
//	echo                 returns data
//	sinsemilla-bench:N   hashes data N times, returns data
//	ask nk rivk          sk (32 bytes) -> the key component
//	ivk dk ovk           sk (32 bytes) -> the external-scope component
//	gd                   diversifier (11 bytes) -> DiversifyHash(d)
func Diag(ins string, data []byte) ([]byte, error) {
	if rounds, ok := strings.CutPrefix(ins, "sinsemilla-bench:"); ok {
		n, err := strconv.Atoi(rounds)
		if err != nil || n < 0 {
			return nil, orchard.Errorf(orchard.CodeMalformedActionInfo, "diag: bad round count %q", rounds)
		}
		msg := sinsemilla.Bits(nil).AppendBytes(data)
		for i := 0; i < n; i++ {
			if _, err := sinsemilla.Hash(benchDomain, msg); err != nil {
				if errors.Is(err, sinsemilla.ErrTooLong) {
					return nil, orchard.Wrap(orchard.CodeInvalidLength, err, "diag")
				}
				return nil, boundary(orchard.CodeMalformedActionInfo, err)
			}
		}
		return data, nil
	}

	switch ins {
	case "echo":
		return data, nil
	case "gd":
		if len(data) != orchard.DiversifierSize {
			return nil, orchard.Errorf(orchard.CodeInvalidLength, "diag: diversifier must be %d bytes", orchard.DiversifierSize)
		}
		var d [orchard.DiversifierSize]byte
		copy(d[:], data)
		b := keys.DiversifyHash(d).Bytes()
		return b[:], nil
	case "ask", "nk", "rivk", "ivk", "dk", "ovk":
		return diagKey(ins, data)
	}
	return nil, orchard.Errorf(orchard.CodeMalformedActionInfo, "diag: unknown instruction %q", ins)
}

func diagKey(ins string, data []byte) ([]byte, error) {
	sk, err := spendingKey(data)
	if err != nil {
		return nil, err
	}
	defer sk.Zeroize()

	if ins == "ask" {
		b, err := keys.DiagSpendAuthorizingKey(sk)
		return b[:], boundary(orchard.CodeInvalidSpendingKey, err)
	}

	fvk, err := keys.DeriveFullViewingKey(sk, false)
	if err != nil {
		return nil, boundary(orchard.CodeInvalidSpendingKey, err)
	}
	fb := fvk.Bytes()
	switch ins {
	case "nk":
		return fb[32:64], nil
	case "rivk":
		return fb[64:], nil
	case "ovk":
		ovk := keys.DeriveOutgoingViewingKey(fvk, false)
		return ovk[:], nil
	}
	ivk, err := keys.DeriveIncomingViewingKey(fvk, false)
	if err != nil {
		return nil, boundary(orchard.CodeInvalidSpendingKey, err)
	}
	ib := ivk.Bytes()
	if ins == "dk" {
		return ib[:32], nil
	}
	return ib[32:], nil
}
