// Package cmd implements the bank CLI subcommands.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arhyth/bankbook"
)

var (
	dbPath string
	debug  bool
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bank",
	Short: "Personal banking ledger",
	Long: `bank keeps a personal ledger of checking and savings accounts in a
local sqlite database: open accounts, record transactions, accrue monthly
interest and fees, and export account statements.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		if dbPath == "" {
			dbPath = os.Getenv("BANKBOOK_DB")
		}
		if dbPath == "" {
			dbPath = "bank.db"
		}
	},
	SilenceUsage: true,
}

// Execute runs the root command; called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the sqlite ledger (default $BANKBOOK_DB or bank.db)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func newService() (bankbook.Service, error) {
	endpt, err := bankbook.NewSqliteEndpoint(dbPath, &logger)
	if err != nil {
		return nil, err
	}
	return bankbook.NewService(endpt, &logger)
}
