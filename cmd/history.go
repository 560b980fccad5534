package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"swap-aggregator/pkg/swap"
	"swap-aggregator/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the swaps recorded in the wallet, grouped by day",
	Long: `Show every swap recorded in the wallet next to the operation that funded it,
most recent day first.

Examples:
  swap-aggregator history
  swap-aggregator history --json`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)
	defer a.close()

	sections := swap.ProjectAccounts(a.store.Accounts())

	if jsonOutput {
		printJSON(sections)
		return
	}
	displayHistory(sections)
}

func displayHistory(sections []types.SwapHistorySection) {
	if len(sections) == 0 {
		fmt.Println("\nNo swaps yet.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	color.Green("                               SWAP HISTORY")
	fmt.Println(strings.Repeat("=", 80))

	for _, section := range sections {
		color.Cyan("\n%s", section.Day.Format("Monday, 02 Jan 2006"))
		fmt.Println(strings.Repeat("-", 80))

		for _, m := range section.Data {
			from := m.FromAccount.Currency
			to := m.ToAccount.Currency
			toLabel := m.ToAccount.ID
			if !m.ToExists {
				toLabel = color.HiBlackString("(account removed)")
			}

			fmt.Printf("  %s  %s %s -> %s %s  %s  %s\n",
				m.Operation.Date.Local().Format("15:04"),
				from.FromBaseUnits(m.FromAmount),
				color.YellowString(from.Ticker),
				to.FromBaseUnits(m.ToAmount),
				color.YellowString(to.Ticker),
				color.CyanString(m.Provider),
				getColoredStatus(m.Status))
			fmt.Printf("         %s -> %s  %s\n", m.FromAccount.ID, toLabel, color.HiBlackString(m.SwapID))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80) + "\n")
}
