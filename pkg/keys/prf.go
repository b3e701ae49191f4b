package keys

import (
	"hash"

	blake2b "github.com/minio/blake2b-simd"

	"github.com/suffix-labs/orchardlib/pkg/pallas"
)

// PRF^expand domain tags.
const (
	tagAsk          = 0x06
	tagNk           = 0x07
	tagRivk         = 0x08
	tagDkOvk        = 0x82
	tagRivkInternal = 0x83

	// Note randomness tags, used by package note through Expand.
	TagEsk = 0x04
	TagRcm = 0x05
	TagPsi = 0x09
)

const expandPersonalization = "Zcash_ExpandSeed"

func blake2bNew512(personalization string) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   64,
		Person: []byte(personalization),
	})
	if err != nil {
		panic(err)
	}
	return h
}

// Expand returns PRF^expand_key(parts...) =
// BLAKE2b-512("Zcash_ExpandSeed", key || parts...).
func Expand(key []byte, parts ...[]byte) [64]byte {
	h := blake2bNew512(expandPersonalization)
	h.Write(key)
	for _, p := range parts {
		h.Write(p)
	}
	var out [64]byte
	h.Sum(out[:0])
	return out
}

// ExpandToScalar returns ToScalar(PRF^expand_key(parts...)).
func ExpandToScalar(key []byte, parts ...[]byte) pallas.Scalar {
	wide := Expand(key, parts...)
	var s pallas.Scalar
	s.SetWideBytes(wide[:])
	return s
}

// ExpandToBase returns ToBase(PRF^expand_key(parts...)).
func ExpandToBase(key []byte, parts ...[]byte) pallas.Base {
	wide := Expand(key, parts...)
	var x pallas.Base
	x.SetWideBytes(wide[:])
	return x
}
