package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swap-aggregator",
	Short: "Compare and execute crypto swaps across several providers",
	Long: `swap-aggregator asks every enabled swap provider for its supported pairs and
quotes, ranks the rates, initiates the swap with the chosen provider, signs the
deposit transaction with the local device keys and tracks the swap until it settles.

Run with SWAP_MOCK=true to use two in-memory providers instead of NEAR Intents.

Examples:
  swap-aggregator providers
  swap-aggregator rates 0.5 BTC to ETH
  swap-aggregator swap 0.5 BTC to ETH --provider changelly --fixed
  swap-aggregator status
  swap-aggregator history`,
	Version: "0.1.0",
}

// Execute runs the root command; ctx is cancelled on interrupt
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default $HOME/.swap-aggregator.yaml)")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printJSON(v any) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

func confirm(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
