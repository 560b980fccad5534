package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"swap-aggregator/pkg/swap"
	"swap-aggregator/pkg/types"
)

var filterCurrency string

var providersCmd = &cobra.Command{
	Use:     "providers",
	Aliases: []string{"ls"},
	Short:   "List the swap providers available right now",
	Long: `List every enabled provider with the currencies it can swap, best ranked first.
Providers listed in SWAP_DISABLED_PROVIDERS are left out.

Examples:
  swap-aggregator providers
  swap-aggregator providers --currency ethereum`,
	Run: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)

	providersCmd.Flags().StringVar(&filterCurrency, "currency", "", "Only show providers supporting this currency id")
}

func runProviders(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
	defer cancel()

	holder := swap.NewProvidersHolder(a.aggregator, a.log)
	holder.Mount(ctx)
	defer holder.Unmount()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching providers..."
		s.Start()
	}

	state, err := holder.Wait(ctx)
	if !jsonOutput {
		s.Stop()
	}
	if err == nil {
		err = state.Error
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	filtered := state.Providers
	if filterCurrency != "" {
		var temp []types.AvailableProvider
		for _, p := range filtered {
			for _, c := range p.SupportedCurrencies {
				if c == filterCurrency {
					temp = append(temp, p)
					break
				}
			}
		}
		filtered = temp
	}

	if jsonOutput {
		printJSON(filtered)
		return
	}
	displayProviders(filtered)
}

func displayProviders(providers []types.AvailableProvider) {
	if len(providers) == 0 {
		fmt.Println("\nNo providers available.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                      AVAILABLE PROVIDERS")
	fmt.Println(strings.Repeat("=", 70))

	for i, p := range providers {
		color.Cyan("\n%d. %s", i+1, p.Provider)
		fmt.Println(strings.Repeat("-", 70))
		fmt.Printf("  Currencies: %s\n", color.YellowString(strings.Join(p.SupportedCurrencies, ", ")))
		for _, pair := range p.Pairs {
			fmt.Printf("  %-22s -> %-22s %s\n", pair.From, pair.To, color.HiBlackString(string(pair.TradeMethod)))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("\nTotal: %d providers\n\n", len(providers))
}
