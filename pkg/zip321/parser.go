// Package zip321 implements the ZIP 321 payment request URI format for
// Orchard recipients.
//
// URI Format:
//
//	zcash:<address>?amount=<amount>&memo=<base64url>&label=<text>&message=<text>
//
// Further recipients use indexed parameters, where index 0 is the unsuffixed
// form and other indices carry no leading zeros:
//
//	zcash:?address=<addr0>&amount=<amt0>&address.1=<addr1>&amount.1=<amt1>
//
// Amounts are decimal ZEC with at most 8 fractional digits and are parsed
// exactly into zatoshis.
//
// See: https://zips.z.cash/zip-0321
// Corresponds to: librustzcash/components/zip321/src/lib.rs
package zip321

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/shield"
	"github.com/suffix-labs/orchardlib/pkg/unified"
)

const (
	scheme   = "zcash:"
	maxIndex = 9999

	zatoshisPerZEC = 100_000_000
	maxDecimals    = 8
)

// PaymentRequest is a parsed ZIP 321 payment request. Payments are ordered
// by parameter index.
type PaymentRequest struct {
	Payments []Payment
}

// Payment is one recipient of a request.
type Payment struct {
	Address   string // as written in the URI
	Amount    uint64 // zatoshis, valid when HasAmount
	HasAmount bool
	Memo      []byte // decoded memo bytes
	Label     string
	Message   string
}

// Parse parses a ZIP 321 URI. Unknown parameters are ignored unless they
// carry the req- prefix, which makes the request unsupported.
func Parse(uri string) (*PaymentRequest, error) {
	if len(uri) < len(scheme) || !strings.EqualFold(uri[:len(scheme)], scheme) {
		return nil, fmt.Errorf("zip321: missing %q scheme", scheme)
	}
	rest := uri[len(scheme):]
	base, query, _ := strings.Cut(rest, "?")

	payments := make(map[int]*Payment)
	get := func(idx int) *Payment {
		p, ok := payments[idx]
		if !ok {
			p = &Payment{}
			payments[idx] = p
		}
		return p
	}

	if base != "" {
		addr, err := url.PathUnescape(base)
		if err != nil {
			return nil, fmt.Errorf("zip321: address: %w", err)
		}
		get(0).Address = addr
	}

	seen := make(map[string]bool)
	if query != "" {
		for _, pair := range strings.Split(query, "&") {
			key, raw, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("zip321: parameter %q has no value", pair)
			}
			if seen[key] {
				return nil, fmt.Errorf("zip321: duplicate parameter %q", key)
			}
			seen[key] = true

			name, idx, err := splitIndex(key)
			if err != nil {
				return nil, err
			}
			value, err := url.PathUnescape(raw)
			if err != nil {
				return nil, fmt.Errorf("zip321: %s: %w", key, err)
			}
			if err := get(idx).set(name, value); err != nil {
				return nil, fmt.Errorf("zip321: %s: %w", key, err)
			}
		}
	}

	if base != "" && seen["address"] {
		return nil, fmt.Errorf("zip321: address given both in the path and as a parameter")
	}

	indices := make([]int, 0, len(payments))
	for idx, p := range payments {
		if p.Address == "" {
			return nil, fmt.Errorf("zip321: payment %d has no address", idx)
		}
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("zip321: no payments found in URI")
	}
	sort.Ints(indices)

	req := &PaymentRequest{Payments: make([]Payment, len(indices))}
	for i, idx := range indices {
		req.Payments[i] = *payments[idx]
	}
	return req, nil
}

// splitIndex splits "name.N" into name and N. A bare name has index 0.
func splitIndex(key string) (string, int, error) {
	name, suffix, ok := strings.Cut(key, ".")
	if !ok {
		return key, 0, nil
	}
	if suffix == "" || suffix[0] == '0' {
		return "", 0, fmt.Errorf("zip321: invalid parameter index in %q", key)
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 1 || idx > maxIndex {
		return "", 0, fmt.Errorf("zip321: invalid parameter index in %q", key)
	}
	return name, idx, nil
}

func (p *Payment) set(name, value string) error {
	switch name {
	case "address":
		p.Address = value
	case "amount":
		amount, err := ParseAmount(value)
		if err != nil {
			return err
		}
		p.Amount, p.HasAmount = amount, true
	case "memo":
		memo, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
		if err != nil {
			return fmt.Errorf("memo is not base64url: %w", err)
		}
		if len(memo) > orchard.MemoSize {
			return fmt.Errorf("memo is %d bytes, at most %d allowed", len(memo), orchard.MemoSize)
		}
		p.Memo = memo
	case "label":
		p.Label = value
	case "message":
		p.Message = value
	default:
		if strings.HasPrefix(name, "req-") {
			return fmt.Errorf("unsupported required parameter")
		}
	}
	return nil
}

// ParseAmount parses a decimal ZEC amount into zatoshis. The value must
// match 1*DIGIT [ "." 1*8DIGIT ] and not exceed MaxMoney.
func ParseAmount(s string) (uint64, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if hasFrac && (frac == "" || len(frac) > maxDecimals || !allDigits(frac)) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	zec, err := strconv.ParseUint(whole, 10, 64)
	if err != nil || zec > orchard.MaxMoney/zatoshisPerZEC {
		return 0, fmt.Errorf("amount %q exceeds the money supply", s)
	}
	var zat uint64
	if hasFrac {
		frac += strings.Repeat("0", maxDecimals-len(frac))
		zat, _ = strconv.ParseUint(frac, 10, 64)
	}
	total := zec*zatoshisPerZEC + zat
	if total > orchard.MaxMoney {
		return 0, fmt.Errorf("amount %q exceeds the money supply", s)
	}
	return total, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatAmount renders zatoshis as decimal ZEC without trailing zeros.
func FormatAmount(zat uint64) string {
	s := strconv.FormatUint(zat/zatoshisPerZEC, 10)
	if frac := zat % zatoshisPerZEC; frac != 0 {
		s += "." + strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
	}
	return s
}

// Encode renders req as a URI. The first payment's address goes in the
// path and later payments use indices 1, 2, ...
func (req *PaymentRequest) Encode() string {
	var b strings.Builder
	b.WriteString(scheme)
	var params []string
	for i, p := range req.Payments {
		suffix := ""
		if i == 0 {
			b.WriteString(p.Address)
		} else {
			suffix = "." + strconv.Itoa(i)
			params = append(params, "address"+suffix+"="+p.Address)
		}
		if p.HasAmount {
			params = append(params, "amount"+suffix+"="+FormatAmount(p.Amount))
		}
		if len(p.Memo) > 0 {
			params = append(params, "memo"+suffix+"="+base64.RawURLEncoding.EncodeToString(p.Memo))
		}
		if p.Label != "" {
			params = append(params, "label"+suffix+"="+url.PathEscape(p.Label))
		}
		if p.Message != "" {
			params = append(params, "message"+suffix+"="+url.PathEscape(p.Message))
		}
	}
	if len(params) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(params, "&"))
	}
	return b.String()
}

// Output resolves p to a shielding output on net. The address must be a
// unified address with an Orchard receiver and the amount must be set.
func (p Payment) Output(net unified.Network, ovk *keys.OutgoingViewingKey) (shield.OutputInfo, error) {
	if !p.HasAmount {
		return shield.OutputInfo{}, fmt.Errorf("zip321: payment to %s has no amount", p.Address)
	}
	got, addr, err := unified.DecodeAddress(p.Address)
	if err != nil {
		return shield.OutputInfo{}, fmt.Errorf("zip321: %w", err)
	}
	if got != net {
		return shield.OutputInfo{}, fmt.Errorf("zip321: %s address on %s", got, net)
	}
	return shield.OutputInfo{Recipient: addr, Value: p.Amount, Memo: p.Memo, OVK: ovk}, nil
}

// Outputs resolves every payment of req.
func (req *PaymentRequest) Outputs(net unified.Network, ovk *keys.OutgoingViewingKey) ([]shield.OutputInfo, error) {
	outs := make([]shield.OutputInfo, 0, len(req.Payments))
	for i, p := range req.Payments {
		out, err := p.Output(net, ovk)
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", i, err)
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// Total returns the sum of all amounts, failing past MaxMoney.
func (req *PaymentRequest) Total() (uint64, error) {
	var total uint64
	for _, p := range req.Payments {
		total += p.Amount
		if total > orchard.MaxMoney {
			return 0, fmt.Errorf("zip321: total exceeds the money supply")
		}
	}
	return total, nil
}
