package main

import (
	"errors"

	"stakeledger/internal/cache"
	"stakeledger/internal/config"
	"stakeledger/internal/database"
	"stakeledger/internal/metrics"
	"stakeledger/internal/notifications"
	"stakeledger/internal/repositories"
	"stakeledger/internal/repositories/memory"
	"stakeledger/internal/schedulers"
	"stakeledger/internal/services"
	"stakeledger/internal/yield"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const redisPrefix = "stakeledger:"

// app is the fully wired ledger. Every command builds one and closes it.
type app struct {
	cfg        *config.Config
	repos      repositories.Set
	store      cache.Store
	metrics    *metrics.Ledger
	dispatcher *notifications.Dispatcher
	simulator  *yield.Simulator

	wallets     *services.WalletService
	pools       *services.PoolService
	stakes      *services.StakeService
	referrals   *services.ReferralService
	commissions *services.CommissionService
	users       *services.UserService
	payments    *services.PaymentService
	telegram    *services.TelegramService

	closers []func() error
}

type appOptions struct {
	inMemory bool
	registry prometheus.Registerer
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}

	sim, err := newSimulator(cfg.Tiers)
	if err != nil {
		return nil, err
	}
	a.simulator = sim

	if opts.inMemory {
		log.Warn("Running on in-memory storage, data is lost on exit")
		a.repos = memory.NewStore().Repositories().Set()
	} else {
		psql, err := database.NewPostgres(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, psql.Close)
		a.repos = repositories.NewPgSet(psql.Db)
	}

	if cfg.RedisURL != "" {
		cli, err := database.InitRedisCli(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, cli.Close)
		a.store = cache.NewRedisStore(cli, redisPrefix)
	} else {
		a.store = cache.NewMemoryStore()
	}

	registry := opts.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	a.metrics = metrics.New(registry)

	a.dispatcher = notifications.NewDispatcher(a.metrics, notifications.LogNotifier{})
	if len(cfg.Notification.KafkaBrokers) > 0 {
		kn := notifications.NewKafkaNotifier(cfg.Notification.KafkaBrokers, cfg.Notification.KafkaTopic)
		a.dispatcher.Add(kn)
		a.closers = append(a.closers, kn.Close)
	}

	r := a.repos
	a.wallets = services.NewWalletService(r.Wallets, r.Transactions, a.dispatcher, a.metrics, cfg.Ledger)
	a.commissions = services.NewCommissionService(r.Commissions, r.Referrals, r.Wallets, r.Transactions, a.dispatcher, a.metrics, cfg.Ledger)
	a.wallets.SetCommissionAccruer(a.commissions)
	a.pools = services.NewPoolService(r.Pools)
	a.stakes = services.NewStakeService(r.Stakes, r.Pools, r.Wallets, r.Transactions, a.store, sim, a.commissions, a.dispatcher, a.metrics, cfg.Ledger)
	a.referrals = services.NewReferralService(r.Referrals, r.Commissions)
	a.users = services.NewUserService(a.wallets, a.referrals)
	a.payments = services.NewPaymentService(a.wallets, a.store, cfg.PaymentDedupTTL)
	a.telegram = services.NewTelegramService(r.Telegram, r.Wallets, a.store)

	return a, nil
}

// Close waits for pending notifications and releases connections in reverse
// order of opening.
func (a *app) Close() error {
	a.dispatcher.Wait()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newSimulator builds the tier catalog from config, falling back to the
// built-in tiers when none are configured.
func newSimulator(tiers []config.TierConfig) (*yield.Simulator, error) {
	if len(tiers) == 0 {
		return yield.NewSimulator(yield.DefaultTiers())
	}

	res := make([]yield.Tier, 0, len(tiers))
	for _, t := range tiers {
		res = append(res, yield.Tier{
			Name:               t.Name,
			MinimumStake:       decimal.NewFromFloat(t.MinimumStake),
			DailyRoiMin:        t.DailyRoiMin,
			DailyRoiMax:        t.DailyRoiMax,
			TradingHoursPerDay: t.TradingHoursPerDay,
		})
	}
	return yield.NewSimulator(res)
}

// scheduler registers the ledger jobs. Jobs with an empty spec can only be
// started through RunOnce.
func (a *app) scheduler(specs config.SchedulerConfig) (*schedulers.Scheduler, error) {
	var sweeper schedulers.Sweeper
	if ms, ok := a.store.(*cache.MemoryStore); ok {
		sweeper = ms
	}

	sched := schedulers.New(a.store, a.metrics, 0)
	for _, job := range schedulers.LedgerJobs(specs, a.stakes, a.commissions, sweeper) {
		if err := sched.Add(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
