package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"voteScope/internal/config"
	"voteScope/internal/iface"
)

func newInterfaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interface <address>",
		Short: "Show the normalized interface of a contract and the entries dropped from it",
		Args:  cobra.ExactArgs(1),
		RunE:  runInterface,
	}
}

func runInterface(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("invalid address %q", args[0])
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCommon(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	contract, err := newLoader(cfg, logger).GetContractInterface(ctx, common.HexToAddress(args[0]))
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), cfg.Output, contract, func(w io.Writer) error {
		return writeInterface(w, contract)
	})
}

func writeInterface(w io.Writer, contract *iface.Interface) error {
	fmt.Fprintf(w, "Contract %s\n", contract.Address.Hex())
	if contract.Implementation != nil {
		fmt.Fprintf(w, "Implementation %s\n", contract.Implementation.Hex())
	}
	for _, e := range contract.Entries {
		if e.HasSelector() {
			fmt.Fprintf(w, "  %s  %s\n", e.Selector, e.Signature())
			continue
		}
		fmt.Fprintf(w, "  %-10s  %s\n", e.Type, e.Signature())
	}
	if len(contract.Filtered) > 0 {
		fmt.Fprintf(w, "Dropped %d entries:\n", len(contract.Filtered))
		for _, f := range contract.Filtered {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	return nil
}
