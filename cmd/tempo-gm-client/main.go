package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"

	"github.com/quantumauth-io/tempo-gm-client/cmd/tempo-gm-client/config"
	gmclient "github.com/quantumauth-io/tempo-gm-client/internal/gm-client"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "tempo-gm-client",
	Short: "GM dApp client for the Tempo testnet",
	Long: `tempo-gm-client connects a wallet to the GM contract on the Tempo testnet,
sends GM messages and tracks them until they are mined.`,
	SilenceUsage: true,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tempo-gm-client %s\n", Version)
		fmt.Printf("  Commit: %s\n", Commit)
		fmt.Printf("  Built:  %s\n", BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

func buildInfo() gmclient.BuildInfo {
	return gmclient.BuildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to parse config", "error", err)
	}
	return cfg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
