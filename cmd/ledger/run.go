package main

import (
	"context"

	"stakeledger/internal/config"
	"stakeledger/internal/schedulers"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var inMemory bool

	cmd := &cobra.Command{
		Use:   "run JOB",
		Short: "Run one scheduled job now: roi_payout, maturity_sweep or commission_payout",
		Args:  cobra.ExactArgs(1),
		ValidArgs: []string{
			schedulers.JobRoiPayout,
			schedulers.JobMaturitySweep,
			schedulers.JobCommissionPayout,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd.Context(), args[0], inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "use in-memory storage")
	return cmd
}

func payoutCmd() *cobra.Command {
	var inMemory bool

	cmd := &cobra.Command{
		Use:   "payout",
		Short: "Run one ROI payout cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd.Context(), schedulers.JobRoiPayout, inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "use in-memory storage")
	return cmd
}

func runJob(ctx context.Context, name string, inMemory bool) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, appOptions{inMemory: inMemory})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("Failed to close resources: ", err)
		}
	}()

	sched, err := a.scheduler(config.SchedulerConfig{})
	if err != nil {
		return err
	}
	return sched.RunOnce(ctx, name)
}
