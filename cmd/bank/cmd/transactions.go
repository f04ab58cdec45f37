package cmd

import (
	"fmt"
	"os"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/arhyth/bankbook"
)

func parseAcctNum(arg string) (int64, error) {
	num, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account number %q", arg)
	}
	return num, nil
}

var recordCmd = &cobra.Command{
	Use:   "record [account] [amount] [date]",
	Short: "Record a transaction against an account",
	Long:  `Record a transaction, e.g.: bank record 1 50.00 2024-01-05`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := parseAcctNum(args[0])
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid dollar amount %q", args[1])
		}
		date, err := civil.ParseDate(args[2])
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[2])
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		res, err := svc.RecordTransaction(bankbook.TxnReq{
			AcctNum: num,
			Amount:  amount,
			Date:    date,
		})
		if err != nil {
			return err
		}
		fmt.Printf("recorded %s, balance: $%s\n", res.Transaction, res.Balance.StringFixed(2))
		return nil
	},
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions [account]",
	Short: "List an account's transactions in chronological order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := parseAcctNum(args[0])
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		txns, err := svc.Transactions(bankbook.AcctReq{AcctNum: num})
		if err != nil {
			return err
		}
		for _, txn := range txns {
			fmt.Println(txn)
		}
		return nil
	},
}

var accrueCmd = &cobra.Command{
	Use:   "accrue [account]",
	Short: "Apply monthly interest and fees to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := parseAcctNum(args[0])
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		bal, err := svc.ApplyInterestAndFees(bankbook.AcctReq{AcctNum: num})
		if err != nil {
			return err
		}
		fmt.Printf("balance after interest and fees: $%s\n", bal.StringFixed(2))
		return nil
	},
}

var statementCmd = &cobra.Command{
	Use:   "statement [account] [file.pdf]",
	Short: "Export an account statement as PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := parseAcctNum(args[0])
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		if err = svc.Statement(f, bankbook.AcctReq{AcctNum: num}); err != nil {
			return err
		}
		fmt.Printf("wrote statement to %s\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordCmd, transactionsCmd, accrueCmd, statementCmd)
}
