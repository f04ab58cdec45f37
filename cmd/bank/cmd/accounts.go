package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arhyth/bankbook"
)

var openCmd = &cobra.Command{
	Use:   "open [checking|savings]",
	Short: "Open a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		sum, err := svc.OpenAccount(bankbook.OpenAccountReq{
			Type: bankbook.AccountType(args[0]),
		})
		if err != nil {
			return err
		}
		fmt.Printf("opened %s\n", sum)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "List all accounts and balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		sums, err := svc.Accounts()
		if err != nil {
			return err
		}
		for _, s := range sums {
			fmt.Println(s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openCmd, summaryCmd)
}
