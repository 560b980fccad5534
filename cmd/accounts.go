package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"swap-aggregator/pkg/types"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the wallet accounts and their balances",
	Long: `List the accounts swaps can be sent from and received into. A demo wallet is
created on first use, with addresses derived from the device keys.

Examples:
  swap-aggregator accounts
  swap-aggregator accounts --json`,
	Args: cobra.NoArgs,
	Run:  runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)
	defer a.close()

	accounts := a.store.Accounts()
	if jsonOutput {
		raw := make([]types.AccountRaw, 0, len(accounts))
		for _, account := range accounts {
			raw = append(raw, account.ToRaw())
		}
		printJSON(raw)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	color.Green("                                 ACCOUNTS")
	fmt.Println(strings.Repeat("=", 80))

	for _, account := range accounts {
		displayAccount(account, "  ")
		for _, sub := range account.SubAccounts {
			displayAccount(sub, "    ")
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("\nWallet: %s\n\n", color.HiBlackString(a.store.FilePath()))
}

func displayAccount(account types.Account, indent string) {
	c := account.Currency
	fmt.Printf("\n%s%-12s %s %s  %d swaps\n",
		indent,
		color.CyanString(account.ID),
		c.FromBaseUnits(account.Balance),
		color.YellowString(c.Ticker),
		len(account.SwapHistory))
	fmt.Printf("%s%-12s %s\n", indent, "", color.HiBlackString(account.FreshAddress))
}
