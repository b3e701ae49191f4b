package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suffix-labs/orchardlib/pkg/orchardlib"
	"github.com/suffix-labs/orchardlib/pkg/unified"
)

func (a *app) fvkCmd() *cobra.Command {
	var internal bool
	cmd := &cobra.Command{
		Use:   "fvk <sk-hex>",
		Short: "Derive the full viewing key of a spending key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := decodeHexArg("sk", args[0])
			if err != nil {
				return err
			}
			fvk, err := orchardlib.DeriveFullViewingKey(sk, internal)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fvk:  %x\n", fvk)
			if !internal {
				ufvk, err := orchardlib.EncodeUnifiedFullViewingKey(fvk, a.network() == unified.Testnet)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "ufvk: %s\n", ufvk)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&internal, "internal", false, "Derive the internal-scope key")
	return cmd
}

func (a *app) ivkCmd() *cobra.Command {
	var internal bool
	cmd := &cobra.Command{
		Use:   "ivk <fvk-hex>",
		Short: "Derive the incoming viewing key (dk || ivk) of a full viewing key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fvk, err := decodeHexArg("fvk", args[0])
			if err != nil {
				return err
			}
			ivk, err := orchardlib.DeriveIncomingViewingKey(fvk, internal)
			if err != nil {
				return err
			}
			uivk, err := orchardlib.EncodeUnifiedIncomingViewingKey(ivk, a.network() == unified.Testnet)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ivk:  %x\nuivk: %s\n", ivk, uivk)
			return nil
		},
	}
	cmd.Flags().BoolVar(&internal, "internal", false, "Use the internal scope")
	return cmd
}

func (a *app) ovkCmd() *cobra.Command {
	var internal bool
	cmd := &cobra.Command{
		Use:   "ovk <fvk-hex>",
		Short: "Derive the outgoing viewing key of a full viewing key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fvk, err := decodeHexArg("fvk", args[0])
			if err != nil {
				return err
			}
			ovk, err := orchardlib.DeriveOutgoingViewingKey(fvk, internal)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ovk: %x\n", ovk)
			return nil
		},
	}
	cmd.Flags().BoolVar(&internal, "internal", false, "Use the internal scope")
	return cmd
}

func (a *app) addressCmd() *cobra.Command {
	var (
		index    uint64
		internal bool
	)
	cmd := &cobra.Command{
		Use:   "address <fvk-hex>",
		Short: "Derive a raw and unified address at a diversifier index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fvk, err := decodeHexArg("fvk", args[0])
			if err != nil {
				return err
			}
			addr, err := orchardlib.DeriveAddress(fvk, index, internal)
			if err != nil {
				return err
			}
			ua, err := orchardlib.EncodeUnifiedAddress(addr, a.network() == unified.Testnet)
			if err != nil {
				return err
			}
			a.logger.Debug("derived address", zap.Uint64("index", index), zap.Bool("internal", internal))
			fmt.Fprintf(cmd.OutOrStdout(), "raw:     %x\nunified: %s\n", addr, ua)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&index, "index", 0, "Diversifier index")
	cmd.Flags().BoolVar(&internal, "internal", false, "Use the internal scope")
	return cmd
}

func (a *app) jumbleCmd(inverse bool) *cobra.Command {
	use, short, op := "jumble", "Apply F4Jumble to hex input", orchardlib.F4Jumble
	if inverse {
		use, short, op = "unjumble", "Invert F4Jumble on hex input", orchardlib.F4JumbleInv
	}
	return &cobra.Command{
		Use:   use + " <hex>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := decodeHexArg("input", args[0])
			if err != nil {
				return err
			}
			out, err := op(msg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(out))
			return nil
		},
	}
}
