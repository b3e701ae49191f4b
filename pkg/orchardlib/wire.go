package orchardlib

import (
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/rng"
)

// RNGConfig is the CBOR form of rng.Config.
type RNGConfig struct {
	Mode  string `cbor:"mode"`
	Seed  []byte `cbor:"seed,omitempty"`
	Pos   uint64 `cbor:"pos,omitempty"`
	Limit uint64 `cbor:"limit,omitempty"`
}

// SpendInput is one note to spend.
type SpendInput struct {
	FVK  []byte `cbor:"fvk"`  // 96 bytes
	Note []byte `cbor:"note"` // 115 bytes
}

// OutputInput is one payment to create.
type OutputInput struct {
	Address []byte `cbor:"address"` // 43 bytes
	Value   uint64 `cbor:"value"`
	Memo    []byte `cbor:"memo,omitempty"`
	OVK     []byte `cbor:"ovk,omitempty"` // 32 bytes, or absent
}

// ActionInfo is the CBOR shielding request accepted by Shield.
type ActionInfo struct {
	Spends        []SpendInput  `cbor:"spends"`
	Outputs       []OutputInput `cbor:"outputs"`
	TransparentIn uint64        `cbor:"transparent_in"`
	Anchor        []byte        `cbor:"anchor,omitempty"`
	Flags         uint8         `cbor:"flags,omitempty"`
}

// Action is the CBOR form of one shielded action.
type Action struct {
	CvNet         []byte `cbor:"cv_net"`
	Nullifier     []byte `cbor:"nf"`
	Rk            []byte `cbor:"rk"`
	Cmx           []byte `cbor:"cmx"`
	EphemeralKey  []byte `cbor:"epk"`
	EncCiphertext []byte `cbor:"enc"`
	OutCiphertext []byte `cbor:"out"`
	Alpha         []byte `cbor:"alpha"`

	// DummySK is set for dummy spends; sign them with Sign(DummySK, Alpha, ...).
	DummySK     []byte `cbor:"dummy_sk,omitempty"`
	DummyOutput bool   `cbor:"dummy_output,omitempty"`
}

// Bundle is the CBOR result of Shield.
type Bundle struct {
	Actions      []Action  `cbor:"actions"`
	Flags        uint8     `cbor:"flags"`
	ValueBalance int64     `cbor:"value_balance"`
	Anchor       []byte    `cbor:"anchor"`
	Bsk          []byte    `cbor:"bsk"`
	NextRNG      RNGConfig `cbor:"next_rng"`
}

var cborModes = sync.OnceValues(func() (cbor.EncMode, cbor.DecMode) {
	em, err := cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return em, dm
})

// Marshal encodes v with the core deterministic CBOR encoding.
func Marshal(v any) ([]byte, error) {
	em, _ := cborModes()
	b, err := em.Marshal(v)
	if err != nil {
		return nil, orchard.Wrap(orchard.CodeInvalidEncoding, err, "cbor encode")
	}
	return b, nil
}

// Unmarshal decodes CBOR data into v, rejecting duplicate and unknown keys.
func Unmarshal(data []byte, v any) error {
	_, dm := cborModes()
	if err := dm.Unmarshal(data, v); err != nil {
		return orchard.Wrap(orchard.CodeMalformedActionInfo, err, "cbor decode")
	}
	return nil
}

// Config converts c to an rng.Config.
func (c RNGConfig) Config() (rng.Config, error) {
	cfg := rng.Config{Mode: rng.Mode(c.Mode), Pos: c.Pos, Limit: c.Limit}
	switch cfg.Mode {
	case rng.Deterministic:
		if len(c.Seed) != len(cfg.Seed) {
			return rng.Config{}, orchard.Errorf(orchard.CodeInvalidLength,
				"rng seed must be %d bytes, got %d", len(cfg.Seed), len(c.Seed))
		}
		copy(cfg.Seed[:], c.Seed)
	case rng.Hardware:
		if len(c.Seed) != 0 {
			return rng.Config{}, orchard.Errorf(orchard.CodeMalformedActionInfo, "hardware rng takes no seed")
		}
	default:
		return rng.Config{}, orchard.Errorf(orchard.CodeMalformedActionInfo, "unknown rng mode %q", c.Mode)
	}
	return cfg, nil
}

// FromRNGConfig converts cfg to its CBOR form.
func FromRNGConfig(cfg rng.Config) RNGConfig {
	c := RNGConfig{Mode: string(cfg.Mode), Pos: cfg.Pos, Limit: cfg.Limit}
	if cfg.Mode == rng.Deterministic {
		c.Seed = append([]byte(nil), cfg.Seed[:]...)
	}
	return c
}

func decodeRNGConfig(data []byte) (rng.Config, error) {
	var c RNGConfig
	if err := Unmarshal(data, &c); err != nil {
		return rng.Config{}, err
	}
	return c.Config()
}
