package main

import (
	"encoding/json"
	"time"

	"stakeledger/internal/config"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func simulateCmd() *cobra.Command {
	var (
		userId int64
		tier   string
		hours  int
		stake  string
		at     string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Print the simulated yield history of a user as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.InitConfig()
			if err != nil {
				return err
			}
			sim, err := newSimulator(cfg.Tiers)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())

			if stake != "" {
				amount, err := decimal.NewFromString(stake)
				if err != nil {
					return err
				}
				earnings, err := sim.CalculateCurrentEarnings(userId, amount, now)
				if err != nil {
					return err
				}
				return enc.Encode(earnings)
			}

			history, err := sim.GenerateROIHistory(userId, tier, hours, now)
			if err != nil {
				return err
			}
			for snap := range history {
				if err := enc.Encode(snap); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userId, "user", 1, "user id")
	cmd.Flags().StringVar(&tier, "tier", "vector", "tier name")
	cmd.Flags().IntVar(&hours, "hours", 24, "number of hourly samples")
	cmd.Flags().StringVar(&stake, "stake", "", "print current earnings for this staked amount instead of the history")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 time to simulate at, default now")
	return cmd
}
