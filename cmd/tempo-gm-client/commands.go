package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	gmclient "github.com/quantumauth-io/tempo-gm-client/internal/gm-client"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/constants"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/helpers"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/history"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/snapshot"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/utils"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return gmclient.Run(cmd.Context(), buildInfo(), loadConfig())
	},
}

var assumeYes bool

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send a GM and wait until it is mined",
	Long: `Send a GM message to the contract and wait for the receipt and the
follow-up refreshes.

Example:
  tempo-gm-client send
  tempo-gm-client send "gm from the terminal" --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Connect the wallet and print balances, stats and recent messages",
	Args:  cobra.NoArgs,
	RunE:  runSnapshot,
}

var statsCmd = &cobra.Command{
	Use:   "stats <address>",
	Short: "Read totalGMs and the GM stats of an address",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	sendCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask before signing")
}

func runSend(cmd *cobra.Command, args []string) error {
	message := constants.DefaultMessage
	if len(args) == 1 {
		message = args[0]
	}

	var opts gmclient.Options
	if !assumeYes {
		opts.Approve = confirmOnTerminal
	}

	rec, err := gmclient.Send(cmd.Context(), loadConfig(), message, opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(rec)
	}
	printRecord(rec)
	if rec.Status == history.StatusFailed {
		return errors.Newf("transaction %s failed", rec.Hash.Hex())
	}
	return nil
}

func confirmOnTerminal(_ context.Context, _ string, tx wallet.SendTxParams) bool {
	to := "(contract creation)"
	if tx.To != nil {
		to = tx.To.Hex()
	}
	answer := helpers.PromptLineWithDefault(os.Stdin, fmt.Sprintf("Sign transaction from %s to %s?", utils.ShortAddress(tx.From), to), "n")
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	snap, err := gmclient.LoadSnapshot(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(snap)
	}
	printSnapshot(snap)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return errors.Newf("invalid address %q", args[0])
	}

	stats, err := gmclient.ReadStats(cmd.Context(), loadConfig(), common.HexToAddress(args[0]))
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(stats)
	}

	fmt.Printf("Contract:      %s\n", stats.Contract.Hex())
	fmt.Printf("Total GMs:     %s\n", stats.TotalGMs)
	fmt.Printf("User:          %s\n", stats.User.Hex())
	fmt.Printf("  Messages:    %d\n", stats.Stats.Count)
	fmt.Printf("  Streak:      %d\n", stats.Stats.Streak)
	fmt.Printf("  Last active: %s\n", utils.FormatUnix(stats.Stats.LastActivity))
	return nil
}

func printRecord(r history.Record) {
	fmt.Printf("Status:   %s\n", r.Status)
	fmt.Printf("Hash:     %s\n", r.Hash.Hex())
	fmt.Printf("Message:  %s\n", r.Message)
	if r.ExplorerURL != "" {
		fmt.Printf("Explorer: %s\n", r.ExplorerURL)
	}
}

func printSnapshot(s snapshot.Snapshot) {
	fmt.Printf("Account:        %s\n", s.Account.Hex())
	fmt.Printf("pathUSD:        %s\n", utils.FormatBalance(s.NativeBalance, 18))
	fmt.Printf("AlphaUSD:       %s\n", utils.FormatBalance(s.SecondaryBalance, 18))
	fmt.Printf("Total messages: %s\n", s.TotalMessages)
	fmt.Printf("Your messages:  %d\n", s.UserStats.Count)
	fmt.Printf("Streak:         %d\n", s.UserStats.Streak)
	fmt.Printf("Gas price:      %s\n", utils.FormatGwei(s.GasPrice))
	if len(s.Unavailable) > 0 {
		fmt.Printf("Unavailable:    %v\n", s.Unavailable)
	}

	if len(s.RecentMessages) == 0 {
		fmt.Println("\nNo messages yet")
		return
	}
	fmt.Println("\nRecent messages:")
	for _, m := range s.RecentMessages {
		fmt.Printf("  #%-5d %s  %-20s %s\n", m.Sequence, utils.ShortAddress(m.Sender), utils.FormatUnix(m.Timestamp), m.Text)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
