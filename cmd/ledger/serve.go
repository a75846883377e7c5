package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stakeledger/internal/config"
	"stakeledger/internal/database"
	"stakeledger/internal/ledgerbot"
	"stakeledger/internal/ledgerbot/command"
	"stakeledger/internal/notifications"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var inMemory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, the telegram bot and the metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.InitConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "keep all data in memory instead of Postgres")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, inMemory bool) error {
	if !inMemory {
		if err := database.MigrateUp(database.DSN(cfg.Postgres)); err != nil {
			return err
		}
	}

	a, err := newApp(cfg, appOptions{inMemory: inMemory, registry: prometheus.DefaultRegisterer})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("Failed to close resources: ", err)
		}
	}()

	sched, err := a.scheduler(cfg.Scheduler)
	if err != nil {
		return err
	}
	sched.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infoln("Metrics listening on", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed: ", err)
		}
	}()

	if token := cfg.Notification.TelegramToken; token != "" {
		lb, err := ledgerbot.New(token, command.Deps{
			Telegram:  a.telegram,
			Wallets:   a.wallets,
			Stakes:    a.stakes,
			Pools:     a.pools,
			Referrals: a.referrals,
			Simulator: a.simulator,
			Currency:  cfg.Ledger.Currency,
		})
		if err != nil {
			return err
		}
		a.dispatcher.Add(notifications.NewTelegramNotifier(lb.Bot(), a.repos.Telegram))
		go lb.Start(ctx)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN is not set, telegram bot disabled")
	}

	<-ctx.Done()
	log.Infoln("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown: ", err)
	}
	return nil
}
