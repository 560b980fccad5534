package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"swap-aggregator/pkg/types"
)

var ratesCmd = &cobra.Command{
	Use:   "rates <amount> <source-token> to <dest-token>",
	Short: "Compare the rates of every provider for a swap",
	Long: `Quote a swap with every available provider. Successful rates are listed best
first; providers that failed to quote are listed after them with their error.

Examples:
  swap-aggregator rates 0.5 BTC to ETH
  swap-aggregator rates max ETH to BTC
  swap-aggregator rates 100 USDC to BTC --from-account eth-1-usdc`,
	Args: cobra.MinimumNArgs(4),
	Run:  runRates,
}

func init() {
	rootCmd.AddCommand(ratesCmd)

	ratesCmd.Flags().StringVar(&fromAccountID, "from-account", "", "Account to send from (default: first account holding the currency)")
	ratesCmd.Flags().StringVar(&toAccountID, "to-account", "", "Account to receive into (default: first account holding the currency)")
}

func runRates(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)
	defer a.close()

	state, tx, err := a.prepareSwap(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	exchange, err := state.Exchange()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
	defer cancel()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching rates..."
		s.Start()
	}

	rates, err := a.rateFetcher().FetchRates(ctx, exchange, tx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		raw := make([]types.ExchangeRateRaw, 0, len(rates))
		for _, r := range rates {
			raw = append(raw, r.ToRaw())
		}
		printJSON(raw)
		return
	}
	displayRates(exchange, state.Amount, rates)
}

func displayRates(exchange types.Exchange, amount decimal.Decimal, rates []types.ExchangeRate) {
	from := exchange.FromAccount.Currency
	to := exchange.ToAccount.Currency

	fmt.Println("\n" + strings.Repeat("=", 80))
	color.Green("                                 RATES")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("\n  Sending: %s %s from %s\n\n", from.FromBaseUnits(amount), color.YellowString(from.Ticker), exchange.FromAccount.ID)

	for i, r := range rates {
		if r.Error != nil {
			fmt.Printf("  %-3s %-12s %s\n", "-", r.Provider, color.RedString(r.Error.Error()))
			continue
		}

		expiry := ""
		if !r.ExpiresAt.IsZero() {
			expiry = color.HiBlackString("expires %s", r.ExpiresAt.Local().Format("15:04:05"))
		}
		fmt.Printf("  %-3d %-12s %-6s 1 %s = %s %s  receive %s %s  %s\n",
			i+1,
			color.CyanString(r.Provider),
			r.TradeMethod,
			from.Ticker,
			r.Rate.StringFixed(8),
			to.Ticker,
			color.GreenString(to.FromBaseUnits(r.ToAmount).String()),
			to.Ticker,
			expiry)
	}

	fmt.Println("\n" + strings.Repeat("=", 80) + "\n")
}
