package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"swap-aggregator/pkg/provider/nearintents"
	"swap-aggregator/pkg/swap"
	"swap-aggregator/pkg/types"
)

const deviceID = "software-device"

var (
	swapProvider  string
	tradeFixed    bool
	tradeFloat    bool
	submitDeposit bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Initiate a swap with the best (or chosen) provider",
	Long: `Quote the swap with every provider, pick the best rate (or the one selected with
--provider / --fixed / --float), create the swap with the provider and sign the deposit
transaction on the device. The swap is recorded in the wallet as pending.

Examples:
  swap-aggregator swap 0.5 BTC to ETH
  swap-aggregator swap 0.5 BTC to ETH --provider wyre --float
  swap-aggregator swap 100 USDC to BTC --yes`,
	Args: cobra.MinimumNArgs(4),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&fromAccountID, "from-account", "", "Account to send from (default: first account holding the currency)")
	swapCmd.Flags().StringVar(&toAccountID, "to-account", "", "Account to receive into (default: first account holding the currency)")
	swapCmd.Flags().StringVar(&swapProvider, "provider", "", "Use this provider's rate instead of the best one")
	swapCmd.Flags().BoolVar(&tradeFixed, "fixed", false, "Only consider fixed rates")
	swapCmd.Flags().BoolVar(&tradeFloat, "float", false, "Only consider float rates")
	swapCmd.Flags().BoolVar(&submitDeposit, "submit-deposit", false, "Report the deposit transaction to NEAR Intents once signed")
}

// swapOutput is the JSON document printed by --json
type swapOutput struct {
	SwapID      string                `json:"swap_id"`
	Provider    string                `json:"provider"`
	OperationID string                `json:"operation_id"`
	Transaction types.TransactionRaw  `json:"transaction"`
	Rate        types.ExchangeRateRaw `json:"rate"`
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	yes, _ := cmd.Flags().GetBool("yes")

	if tradeFixed && tradeFloat {
		printError(fmt.Errorf("--fixed and --float are mutually exclusive"))
		os.Exit(1)
	}

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

	state = state.RatesRequested()
	rates, err := a.rateFetcher().FetchRates(ctx, exchange, tx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		state = state.RatesFailed(err)
		printError(state.RatesError)
		os.Exit(1)
	}
	state = state.RatesLoaded(rates, time.Now())

	rate, err := chooseRate(state, swapProvider, tradeMethodFilter())
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	state = state.SelectRate(rate)

	if !jsonOutput {
		displayQuote(exchange, state.Amount, rate)
	}
	if !yes && !jsonOutput {
		if !confirm("Proceed with swap?") {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}
	if state.Expired(time.Now()) {
		printError(fmt.Errorf("%w: fetch the rates again", swap.ErrRateExpired))
		os.Exit(1)
	}

	input := types.InitSwapInput{
		Exchange:     exchange,
		ExchangeRate: rate,
		Transaction:  types.SwapTransaction{Transaction: tx},
		DeviceID:     deviceID,
	}

	flow := swap.NewInitSwapFlow(a.registry, a.device, a.log, swap.WithInitMetrics(a.metrics))
	result, err := flow.Run(ctx, input, func(ev types.SwapRequestEvent) {
		if jsonOutput {
			return
		}
		switch ev.Type {
		case types.EventInitSwapRequested:
			fmt.Printf("\nCreating swap with %s, expecting %s %s...\n",
				color.CyanString(rate.Provider), exchange.ToAccount.Currency.FromBaseUnits(rate.ToAmount), exchange.ToAccount.Currency.Ticker)
		case types.EventInitSwapResult:
			color.Green("\n✓ Swap created and transaction signed")
		}
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// The transaction is not broadcast here; its hash identifies the operation until it is
	op := types.Operation{
		ID:        uuid.New().String(),
		Hash:      crypto.Keccak256Hash([]byte(result.Transaction.Signature)).Hex(),
		AccountID: exchange.FromAccount.ID,
		Type:      "OUT",
		Value:     result.Transaction.Amount,
		Fee:       result.Transaction.Fees,
		Date:      time.Now().UTC(),
	}
	swapOp := swap.SwapOperationFromResult(input, *result, op.ID)
	if err := a.store.RecordSwap(op, swapOp); err != nil {
		printError(fmt.Errorf("swap %s created but not recorded: %w", result.SwapID, err))
		os.Exit(1)
	}

	if submitDeposit && rate.Provider == nearintents.Name && a.intents != nil {
		if err := a.intents.SubmitDepositTx(ctx, result.SwapID, op.Hash); err != nil {
			a.log.Warn().Err(err).Str("swap_id", result.SwapID).Msg("Deposit not reported")
		}
	}

	if jsonOutput {
		printJSON(swapOutput{
			SwapID:      result.SwapID,
			Provider:    rate.Provider,
			OperationID: op.ID,
			Transaction: result.Transaction.ToRaw(),
			Rate:        rate.ToRaw(),
		})
		return
	}
	displaySwapResult(exchange, result, op)
}

func tradeMethodFilter() types.TradeMethod {
	switch {
	case tradeFixed:
		return types.TradeMethodFixed
	case tradeFloat:
		return types.TradeMethodFloat
	default:
		return ""
	}
}

// chooseRate returns the selected best rate unless a provider or trade method is forced
func chooseRate(state swap.SwapState, providerName string, method types.TradeMethod) (types.ExchangeRate, error) {
	if providerName == "" && method == "" {
		if state.SelectedRate == nil {
			if state.RatesError != nil {
				return types.ExchangeRate{}, state.RatesError
			}
			return types.ExchangeRate{}, fmt.Errorf("%w: no rate available", swap.ErrUnsupportedPair)
		}
		return *state.SelectedRate, nil
	}

	for _, r := range state.Rates {
		if r.Error != nil {
			continue
		}
		if providerName != "" && r.Provider != providerName {
			continue
		}
		if method != "" && r.TradeMethod != method {
			continue
		}
		return r, nil
	}

	for _, r := range state.Rates {
		if r.Error != nil && r.Provider == providerName {
			return types.ExchangeRate{}, r.Error
		}
	}
	return types.ExchangeRate{}, fmt.Errorf("%w: no %s rate from %s", swap.ErrUnsupportedPair, orAny(string(method)), orAny(providerName))
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

func displayQuote(exchange types.Exchange, amount decimal.Decimal, rate types.ExchangeRate) {
	from := exchange.FromAccount.Currency
	to := exchange.ToAccount.Currency

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Provider:          %s (%s)\n", color.CyanString(rate.Provider), rate.TradeMethod)
	fmt.Printf("  From:              %s %s (%s)\n", from.FromBaseUnits(amount), color.YellowString(from.Ticker), exchange.FromAccount.ID)
	fmt.Printf("  To:                ~%s %s (%s)\n", to.FromBaseUnits(rate.ToAmount), color.YellowString(to.Ticker), exchange.ToAccount.ID)
	fmt.Printf("  Rate:              1 %s = %s %s\n", from.Ticker, rate.Rate.StringFixed(8), to.Ticker)
	if rate.PayoutNetworkFees != nil {
		fmt.Printf("  Payout Fee:        %s %s\n", rate.PayoutNetworkFees, to.Ticker)
	}
	if !rate.ExpiresAt.IsZero() {
		fmt.Printf("  Expires:           %s\n", rate.ExpiresAt.Local().Format("15:04:05"))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displaySwapResult(exchange types.Exchange, result *types.InitSwapResult, op types.Operation) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Yellow("                    SWAP INITIATED")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Swap ID:           %s\n", color.CyanString(result.SwapID))
	fmt.Printf("  Deposit Address:   %s\n", result.Transaction.Recipient)
	if result.Transaction.MemoValue != "" {
		fmt.Printf("  Memo (REQUIRED):   %s\n", color.MagentaString(result.Transaction.MemoValue))
	}
	fmt.Printf("  Operation:         %s\n", color.HiBlackString(op.Hash))
	fmt.Printf("  Sent From:         %s\n", exchange.FromAccount.ID)

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
	fmt.Println("You can monitor the swap status using:")
	color.Cyan("  swap-aggregator status\n")
}
