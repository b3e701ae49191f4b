// Package unified encodes Orchard addresses and viewing keys as ZIP 316
// unified strings.
//
// A unified string carries one or more typed items. This package writes a
// single Orchard item and, when reading, accepts containers with other
// items as long as an Orchard item is present:
//
//	payload = TLV(typecode, item)... || pad16(hrp)
//	string  = Bech32m(hrp, F4Jumble(payload))
//
// Corresponds to:
//   - librustzcash/components/zcash_address/src/kind/unified.rs
//
// References:
//   - ZIP 316: https://zips.z.cash/zip-0316
package unified

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/suffix-labs/orchardlib/pkg/f4jumble"
	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
)

// Item typecodes.
const (
	TypeP2PKH   uint32 = 0x00
	TypeP2SH    uint32 = 0x01
	TypeSapling uint32 = 0x02
	TypeOrchard uint32 = 0x03
)

const padLen = 16

// Network selects the human-readable prefixes.
type Network int

const (
	Mainnet Network = iota
	Testnet
)

func (n Network) String() string {
	if n == Testnet {
		return "test"
	}
	return "main"
}

// Kind is what a unified string encodes.
type Kind int

const (
	KindAddress Kind = iota
	KindFullViewingKey
	KindIncomingViewingKey
)

func (k Kind) String() string {
	switch k {
	case KindFullViewingKey:
		return "full viewing key"
	case KindIncomingViewingKey:
		return "incoming viewing key"
	default:
		return "address"
	}
}

func (k Kind) orchardSize() int {
	switch k {
	case KindFullViewingKey:
		return orchard.FullViewingKeySize
	case KindIncomingViewingKey:
		return orchard.IncomingViewingKeySize
	default:
		return orchard.AddressSize
	}
}

var hrps = map[Network]map[Kind]string{
	Mainnet: {KindAddress: "u", KindFullViewingKey: "uview", KindIncomingViewingKey: "uivk"},
	Testnet: {KindAddress: "utest", KindFullViewingKey: "uviewtest", KindIncomingViewingKey: "uivktest"},
}

// HRP returns the human-readable part for k on n.
func (n Network) HRP(k Kind) string { return hrps[n][k] }

func lookupHRP(hrp string) (Network, Kind, bool) {
	for n, kinds := range hrps {
		for k, h := range kinds {
			if h == hrp {
				return n, k, true
			}
		}
	}
	return 0, 0, false
}

// Item is one typed entry of a unified container.
type Item struct {
	Typecode uint32
	Data     []byte
}

// Container is a decoded unified string.
type Container struct {
	Network Network
	Kind    Kind
	Items   []Item
}

// Orchard returns the Orchard item, if present.
func (c *Container) Orchard() ([]byte, bool) {
	for _, it := range c.Items {
		if it.Typecode == TypeOrchard {
			return it.Data, true
		}
	}
	return nil, false
}

func invalid(format string, args ...any) error {
	return orchard.Errorf(orchard.CodeInvalidEncoding, "unified: "+format, args...)
}

// Encode writes c as a unified string. Items must be sorted by typecode.
func Encode(c Container) (string, error) {
	hrp := c.Network.HRP(c.Kind)
	if hrp == "" {
		return "", invalid("unknown network %d or kind %d", c.Network, c.Kind)
	}
	var buf bytes.Buffer
	for i, it := range c.Items {
		if i > 0 && it.Typecode <= c.Items[i-1].Typecode {
			return "", invalid("items not in ascending typecode order")
		}
		writeCompactSize(&buf, uint64(it.Typecode))
		writeCompactSize(&buf, uint64(len(it.Data)))
		buf.Write(it.Data)
	}
	var pad [padLen]byte
	copy(pad[:], hrp)
	buf.Write(pad[:])

	jumbled, err := f4jumble.Jumble(buf.Bytes())
	if err != nil {
		return "", err
	}
	conv, err := bech32.ConvertBits(jumbled, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("unified: %w", err)
	}
	s, err := bech32.EncodeM(hrp, conv)
	if err != nil {
		return "", fmt.Errorf("unified: %w", err)
	}
	return s, nil
}

// Decode parses a unified string. The payload is un-jumbled and its
// padding checked before any item is returned.
func Decode(s string) (*Container, error) {
	hrp, data, version, err := bech32.DecodeNoLimitWithVersion(s)
	if err != nil {
		return nil, orchard.Wrap(orchard.CodeInvalidEncoding, err, "unified: bech32m")
	}
	if version != bech32.VersionM {
		return nil, invalid("checksum is not bech32m")
	}
	net, kind, ok := lookupHRP(hrp)
	if !ok {
		return nil, invalid("unknown prefix %q", hrp)
	}
	jumbled, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, orchard.Wrap(orchard.CodeInvalidEncoding, err, "unified: base32")
	}
	payload, err := f4jumble.Unjumble(jumbled)
	if err != nil {
		return nil, orchard.Wrap(orchard.CodeInvalidEncoding, err, "unified: f4jumble")
	}
	if len(payload) < padLen {
		return nil, invalid("payload too short")
	}

	var pad [padLen]byte
	copy(pad[:], hrp)
	body, tail := payload[:len(payload)-padLen], payload[len(payload)-padLen:]
	if !bytes.Equal(tail, pad[:]) {
		return nil, invalid("padding does not match prefix")
	}

	c := &Container{Network: net, Kind: kind}
	r := bytes.NewReader(body)
	for r.Len() > 0 {
		typecode, err := readCompactSize(r)
		if err != nil || typecode > 0xffffffff {
			return nil, invalid("truncated typecode")
		}
		length, err := readCompactSize(r)
		if err != nil || length > uint64(r.Len()) {
			return nil, invalid("truncated item")
		}
		if n := len(c.Items); n > 0 && uint32(typecode) <= c.Items[n-1].Typecode {
			return nil, invalid("duplicate or unsorted typecode %d", typecode)
		}
		item := Item{Typecode: uint32(typecode), Data: make([]byte, length)}
		io.ReadFull(r, item.Data)
		c.Items = append(c.Items, item)
	}

	o, ok := c.Orchard()
	if !ok {
		return nil, invalid("no Orchard item")
	}
	if len(o) != kind.orchardSize() {
		return nil, invalid("Orchard %s item is %d bytes", kind, len(o))
	}
	return c, nil
}

func encodeOrchard(net Network, kind Kind, item []byte) (string, error) {
	return Encode(Container{
		Network: net,
		Kind:    kind,
		Items:   []Item{{Typecode: TypeOrchard, Data: item}},
	})
}

func decodeOrchard(s string, want Kind) (Network, []byte, error) {
	c, err := Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if c.Kind != want {
		return 0, nil, invalid("expected %s, got %s", want, c.Kind)
	}
	o, _ := c.Orchard()
	return c.Network, o, nil
}

// EncodeAddress returns the unified address for addr.
func EncodeAddress(net Network, addr keys.Address) (string, error) {
	b := addr.Bytes()
	return encodeOrchard(net, KindAddress, b[:])
}

// DecodeAddress returns the Orchard receiver of a unified address.
func DecodeAddress(s string) (Network, keys.Address, error) {
	net, item, err := decodeOrchard(s, KindAddress)
	if err != nil {
		return 0, keys.Address{}, err
	}
	addr, err := keys.AddressFromBytes(item)
	return net, addr, err
}

// EncodeFullViewingKey returns the unified full viewing key for fvk.
func EncodeFullViewingKey(net Network, fvk keys.FullViewingKey) (string, error) {
	b := fvk.Bytes()
	return encodeOrchard(net, KindFullViewingKey, b[:])
}

// DecodeFullViewingKey returns the Orchard component of a unified full
// viewing key.
func DecodeFullViewingKey(s string) (Network, keys.FullViewingKey, error) {
	net, item, err := decodeOrchard(s, KindFullViewingKey)
	if err != nil {
		return 0, keys.FullViewingKey{}, err
	}
	fvk, err := keys.FullViewingKeyFromBytes(item)
	return net, fvk, err
}

// EncodeIncomingViewingKey returns the unified incoming viewing key for ivk.
func EncodeIncomingViewingKey(net Network, ivk keys.IncomingViewingKey) (string, error) {
	b := ivk.Bytes()
	return encodeOrchard(net, KindIncomingViewingKey, b[:])
}

// DecodeIncomingViewingKey returns the Orchard component of a unified
// incoming viewing key.
func DecodeIncomingViewingKey(s string) (Network, keys.IncomingViewingKey, error) {
	net, item, err := decodeOrchard(s, KindIncomingViewingKey)
	if err != nil {
		return 0, keys.IncomingViewingKey{}, err
	}
	ivk, err := keys.IncomingViewingKeyFromBytes(item)
	return net, ivk, err
}

func writeCompactSize(w *bytes.Buffer, n uint64) {
	switch {
	case n < 0xfd:
		w.WriteByte(byte(n))
	case n <= 0xffff:
		w.WriteByte(0xfd)
		binary.Write(w, binary.LittleEndian, uint16(n))
	case n <= 0xffffffff:
		w.WriteByte(0xfe)
		binary.Write(w, binary.LittleEndian, uint32(n))
	default:
		w.WriteByte(0xff)
		binary.Write(w, binary.LittleEndian, n)
	}
}

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
