package main

import (
	"os"

	"stakeledger/internal/config"

	"github.com/spf13/cobra"
)

var log = config.InitLogger()

var rootCmd = &cobra.Command{
	Use:           "ledger",
	Short:         "Staking ledger: wallets, pools, referral commissions and yield simulation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd(), migrateCmd(), runCmd(), payoutCmd(), simulateCmd())
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
