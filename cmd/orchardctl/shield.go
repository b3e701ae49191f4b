package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/orchardlib/pkg/keys"
	"github.com/suffix-labs/orchardlib/pkg/orchardlib"
	"github.com/suffix-labs/orchardlib/pkg/shield"
	"github.com/suffix-labs/orchardlib/pkg/unified"
	"github.com/suffix-labs/orchardlib/pkg/zip244"
	"github.com/suffix-labs/orchardlib/pkg/zip321"
)

// shieldRequest is the YAML input of the shield command. It moves the
// value of transparent inputs into Orchard outputs; the difference
// between the inputs and transparent_in is the fee.
type shieldRequest struct {
	Branch        string       `yaml:"branch"` // nu5 (default), nu6
	LockTime      uint32       `yaml:"lock_time"`
	ExpiryHeight  uint32       `yaml:"expiry_height"`
	TransparentIn uint64       `yaml:"transparent_in"` // defaults to the sum of input values
	Inputs        []inputSpec  `yaml:"inputs"`
	Outputs       []outputSpec `yaml:"outputs"`

	// PaymentRequest is a ZIP 321 URI whose payments are appended to
	// Outputs. They are recoverable with PaymentOVK when it is set.
	PaymentRequest string `yaml:"payment_request"`
	PaymentOVK     string `yaml:"payment_ovk"`
}

type inputSpec struct {
	TxID         string  `yaml:"txid"` // 32 bytes hex, internal byte order
	Index        uint32  `yaml:"index"`
	Value        uint64  `yaml:"value"`
	ScriptPubKey string  `yaml:"script_pubkey"`
	Sequence     *uint32 `yaml:"sequence"`
}

type outputSpec struct {
	Address string `yaml:"address"` // unified address with an Orchard receiver
	Value   uint64 `yaml:"value"`
	Memo    string `yaml:"memo"`
	OVK     string `yaml:"ovk"` // 32 bytes hex; empty makes the output unrecoverable by the sender
}

func loadShieldRequest(path string) (*shieldRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	var req shieldRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

func branchID(name string) (uint32, error) {
	switch strings.ToLower(name) {
	case "", "nu5":
		return zip244.BranchNU5, nil
	case "nu6":
		return zip244.BranchNU6, nil
	}
	return 0, fmt.Errorf("branch: unknown value %q", name)
}

// transaction builds the unsigned transparent part of the request.
func (req *shieldRequest) transaction() (*zip244.Transaction, error) {
	branch, err := branchID(req.Branch)
	if err != nil {
		return nil, err
	}
	tx := &zip244.Transaction{Header: zip244.Header{
		ConsensusBranchID: branch,
		LockTime:          req.LockTime,
		ExpiryHeight:      req.ExpiryHeight,
	}}
	for i, in := range req.Inputs {
		txid, err := hex.DecodeString(in.TxID)
		if err != nil || len(txid) != 32 {
			return nil, fmt.Errorf("inputs[%d].txid: want 32 bytes hex", i)
		}
		script, err := hex.DecodeString(in.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("inputs[%d].script_pubkey: %w", i, err)
		}
		ti := zip244.TransparentInput{
			PrevoutIndex: in.Index,
			Sequence:     0xffffffff,
			Value:        in.Value,
			ScriptPubKey: script,
		}
		copy(ti.PrevoutTxID[:], txid)
		if in.Sequence != nil {
			ti.Sequence = *in.Sequence
		}
		tx.Inputs = append(tx.Inputs, ti)
	}
	return tx, nil
}

// actionInfo resolves the outputs against net.
func (req *shieldRequest) actionInfo(net unified.Network) (shield.ActionInfo, error) {
	info := shield.ActionInfo{TransparentIn: req.TransparentIn}
	if info.TransparentIn == 0 {
		for i, in := range req.Inputs {
			sum, err := shield.AddValue(info.TransparentIn, in.Value)
			if err != nil {
				return info, fmt.Errorf("inputs[%d].value: %w", i, err)
			}
			info.TransparentIn = sum
		}
	}
	for i, o := range req.Outputs {
		got, addr, err := unified.DecodeAddress(o.Address)
		if err != nil {
			return info, fmt.Errorf("outputs[%d].address: %w", i, err)
		}
		if got != net {
			return info, fmt.Errorf("outputs[%d].address: %s address on %s", i, got, net)
		}
		out := shield.OutputInfo{Recipient: addr, Value: o.Value, Memo: []byte(o.Memo)}
		if out.OVK, err = parseOVK(o.OVK); err != nil {
			return info, fmt.Errorf("outputs[%d].ovk: %w", i, err)
		}
		info.Outputs = append(info.Outputs, out)
	}

	if req.PaymentRequest != "" {
		pr, err := zip321.Parse(req.PaymentRequest)
		if err != nil {
			return info, err
		}
		ovk, err := parseOVK(req.PaymentOVK)
		if err != nil {
			return info, fmt.Errorf("payment_ovk: %w", err)
		}
		outs, err := pr.Outputs(net, ovk)
		if err != nil {
			return info, err
		}
		info.Outputs = append(info.Outputs, outs...)
	}
	return info, nil
}

// parseOVK decodes an optional hex outgoing viewing key.
func parseOVK(s string) (*keys.OutgoingViewingKey, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	var ovk keys.OutgoingViewingKey
	if err != nil || len(b) != len(ovk) {
		return nil, fmt.Errorf("want %d bytes hex", len(ovk))
	}
	copy(ovk[:], b)
	return &ovk, nil
}

func (a *app) shieldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shield <request.yaml>",
		Short: "Build and authorize a transparent-to-Orchard transaction",
		Long: `Builds an Orchard bundle paying the outputs of the request from its
transparent inputs, signs the dummy spends and the binding signature over
the ZIP 244 shielded sighash, and prints the serialized transaction.

Transparent scriptSigs are left empty and the proof is empty, so the result
still needs transparent signatures and an Orchard proof before broadcast.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadShieldRequest(args[0])
			if err != nil {
				return err
			}
			tx, err := req.transaction()
			if err != nil {
				return err
			}
			info, err := req.actionInfo(a.network())
			if err != nil {
				return err
			}
			cfg, err := a.rngConfig()
			if err != nil {
				return err
			}

			bundle, err := shield.Shield(info, cfg, shield.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer bundle.Zeroize()

			tx.Orchard = zip244.FromBundle(bundle)
			sighash := tx.ShieldedSighash()

			src, err := bundle.NextRNG.Open()
			if err != nil {
				return err
			}
			if err := bundle.SignDummySpends(sighash[:], src); err != nil {
				return err
			}
			if err := bundle.SignBinding(sighash[:], src); err != nil {
				return err
			}
			next := src.Next()
			a.logger.Info("bundle authorized",
				zap.Int("actions", len(bundle.Actions)),
				zap.Int64("value_balance", bundle.ValueBalance),
				zap.Bool("authorized", bundle.Authorized()),
				zap.Uint64("rng_pos", next.Pos))

			tx.Orchard = zip244.FromBundle(bundle)
			raw, err := tx.MarshalBinary()
			if err != nil {
				return err
			}
			txid := tx.TxID()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "actions:       %d\n", len(bundle.Actions))
			fmt.Fprintf(out, "value_balance: %d\n", bundle.ValueBalance)
			fmt.Fprintf(out, "sighash:       %x\n", sighash)
			fmt.Fprintf(out, "txid:          %s\n", displayHash(txid))
			fmt.Fprintf(out, "next_rng_pos:  %d\n", next.Pos)
			fmt.Fprintf(out, "tx:            %x\n", raw)
			return nil
		},
	}
}

func (a *app) signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign <sk-hex> <alpha-hex> <sighash-hex>",
		Short: "Produce a spend authorization signature",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parts [3][]byte
			for i, name := range []string{"sk", "alpha", "sighash"} {
				b, err := decodeHexArg(name, args[i])
				if err != nil {
					return err
				}
				parts[i] = b
			}
			cfg, err := a.rngConfig()
			if err != nil {
				return err
			}
			wire, err := orchardlib.Marshal(orchardlib.FromRNGConfig(cfg))
			if err != nil {
				return err
			}
			sig, err := orchardlib.Sign(parts[0], parts[1], parts[2], wire)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sig))
			return nil
		},
	}
}

func (a *app) sighashCmd() *cobra.Command {
	var prevouts []string
	cmd := &cobra.Command{
		Use:   "sighash <tx-hex>",
		Short: "Compute the txid and shielded sighash of a v5 transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := decodeHexArg("tx", args[0])
			if err != nil {
				return err
			}
			tx, err := zip244.ParseTransaction(raw)
			if err != nil {
				return err
			}
			if len(prevouts) > 0 {
				values, scripts, err := parsePrevouts(prevouts)
				if err != nil {
					return err
				}
				if err := tx.SetPrevouts(values, scripts); err != nil {
					return err
				}
			} else if len(tx.Inputs) > 0 {
				a.logger.Warn("no --prevout given, input amounts and scripts hash as empty",
					zap.Int("inputs", len(tx.Inputs)))
			}
			a.logger.Debug("parsed transaction",
				zap.Int("inputs", len(tx.Inputs)),
				zap.Int("outputs", len(tx.Outputs)),
				zap.Bool("orchard", tx.Orchard != nil))

			sighash := tx.ShieldedSighash()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "txid:    %s\n", displayHash(tx.TxID()))
			fmt.Fprintf(out, "sighash: %x\n", sighash)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&prevouts, "prevout", nil, "value:script_pubkey_hex of the coin spent by each input, in order")
	return cmd
}

func parsePrevouts(specs []string) ([]uint64, [][]byte, error) {
	values := make([]uint64, len(specs))
	scripts := make([][]byte, len(specs))
	for i, s := range specs {
		v, script, ok := strings.Cut(s, ":")
		if !ok {
			return nil, nil, fmt.Errorf("prevout %d: want value:script_pubkey_hex", i)
		}
		value, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("prevout %d value: %w", i, err)
		}
		b, err := hex.DecodeString(script)
		if err != nil {
			return nil, nil, fmt.Errorf("prevout %d script: %w", i, err)
		}
		values[i], scripts[i] = value, b
	}
	return values, scripts, nil
}

// displayHash renders a txid in the reversed byte order used by block
// explorers and RPC.
func displayHash(h [32]byte) string {
	for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
		h[i], h[j] = h[j], h[i]
	}
	return hex.EncodeToString(h[:])
}
