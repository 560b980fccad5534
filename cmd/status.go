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

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status [<provider> <swap-id>]",
	Short: "Check the status of swaps",
	Long: `Without arguments, poll every unfinished swap recorded in the wallet and save the
new statuses. With a provider and a swap id, check that single swap.

Examples:
  swap-aggregator status
  swap-aggregator status --watch --interval 10
  swap-aggregator status changelly 4b0e...`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no arguments or <provider> <swap-id>")
		}
		return nil
	},
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)
	defer a.close()

	tracker, err := a.statusTracker()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	check := func() {
		if len(args) == 2 {
			checkSingleStatus(cmd.Context(), a, tracker, args[0], args[1], jsonOutput)
			return
		}
		checkWalletStatuses(cmd.Context(), a, tracker, jsonOutput)
	}

	if !watchStatus {
		check()
		return
	}

	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching swap statuses. Checking every %d seconds. Press Ctrl+C to stop.\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	check()
	for {
		select {
		case <-cmd.Context().Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

func checkSingleStatus(ctx context.Context, a *app, tracker *swap.StatusTracker, providerName, swapID string, jsonOutput bool) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput && !watchStatus {
		s.Suffix = " Checking swap status..."
		s.Start()
	}
	statuses := tracker.PollStatus(ctx, []types.SwapStatusRequest{{Provider: providerName, SwapID: swapID}})
	s.Stop()

	status := statuses[0]
	if jsonOutput {
		out := map[string]string{"provider": status.Provider, "swap_id": status.SwapID, "status": string(status.Status)}
		if status.Err != nil {
			out["error"] = status.Err.Error()
		}
		printJSON(out)
		return
	}
	displayStatuses([]types.SwapStatus{status})
}

// walletStatus is one swap of the wallet after polling
type walletStatus struct {
	AccountID string `json:"account_id"`
	Provider  string `json:"provider"`
	SwapID    string `json:"swap_id"`
	Status    string `json:"status"`
}

func checkWalletStatuses(ctx context.Context, a *app, tracker *swap.StatusTracker, jsonOutput bool) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput && !watchStatus {
		s.Suffix = " Checking swap statuses..."
		s.Start()
	}

	var out []walletStatus
	var failures []string
	for _, account := range a.store.Accounts() {
		updated, err := tracker.UpdateAccountSwapStatus(ctx, account)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", account.ID, err))
		}
		if updated != nil {
			if err := a.store.Update(*updated); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", account.ID, err))
			} else {
				account = *updated
			}
		}
		out = append(out, collectStatuses(account)...)
	}
	s.Stop()

	if jsonOutput {
		printJSON(out)
		return
	}

	if len(out) == 0 {
		fmt.Println("\nNo swaps recorded in the wallet.")
	} else {
		fmt.Println("\n" + strings.Repeat("=", 70))
		color.Green("                          SWAP STATUS")
		fmt.Println(strings.Repeat("=", 70))
		for _, ws := range out {
			fmt.Printf("\n  %-12s %-12s %s\n  %s\n", ws.AccountID, color.CyanString(ws.Provider), getColoredStatus(ws.Status), color.HiBlackString(ws.SwapID))
		}
		fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
	}
	for _, f := range failures {
		color.Red("Error: %s", f)
	}
}

func collectStatuses(account types.Account) []walletStatus {
	var out []walletStatus
	add := func(a types.Account) {
		for _, op := range a.SwapHistory {
			out = append(out, walletStatus{AccountID: a.ID, Provider: op.Provider, SwapID: op.SwapID, Status: op.Status})
		}
	}
	add(account)
	for _, sub := range account.SubAccounts {
		add(sub)
	}
	return out
}

func displayStatuses(statuses []types.SwapStatus) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	for _, st := range statuses {
		fmt.Printf("\n  Provider:        %s\n", color.CyanString(st.Provider))
		fmt.Printf("  Swap ID:         %s\n", st.SwapID)
		if st.Err != nil {
			fmt.Printf("  Error:           %s\n", color.RedString(st.Err.Error()))
			continue
		}
		fmt.Printf("  Status:          %s\n", getColoredStatus(string(st.Status)))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch types.ValidSwapStatus(strings.ToLower(status)) {
	case types.SwapStatusFinished:
		return color.GreenString(status)
	case types.SwapStatusPending, types.SwapStatusOnHold:
		return color.YellowString(status)
	case types.SwapStatusRefunded, types.SwapStatusExpired:
		return color.RedString(status)
	default:
		return status
	}
}
