package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/cache"
	"stakeledger/internal/config"
	"stakeledger/internal/metrics"
	"stakeledger/internal/models"
	"stakeledger/internal/notifications"
	"stakeledger/internal/repositories"
	"stakeledger/internal/yield"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	maturedBatch  = 500
	payoutMarkTTL = 36 * time.Hour
)

type StakeService struct {
	stakeRepo   repositories.StakeRepository
	poolRepo    repositories.PoolRepository
	walletRepo  repositories.WalletRepository
	txRepo      repositories.TransactionRepository
	store       cache.Store
	simulator   *yield.Simulator
	commissions CommissionAccruer
	notifier    Notifier
	metrics     *metrics.Ledger
	cfg         config.LedgerConfig
	now         func() time.Time
}

func NewStakeService(
	stakeRepo repositories.StakeRepository,
	poolRepo repositories.PoolRepository,
	walletRepo repositories.WalletRepository,
	txRepo repositories.TransactionRepository,
	store cache.Store,
	simulator *yield.Simulator,
	commissions CommissionAccruer,
	notifier Notifier,
	m *metrics.Ledger,
	cfg config.LedgerConfig,
) *StakeService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &StakeService{
		stakeRepo:   stakeRepo,
		poolRepo:    poolRepo,
		walletRepo:  walletRepo,
		txRepo:      txRepo,
		store:       store,
		simulator:   simulator,
		commissions: commissions,
		notifier:    notifier,
		metrics:     m,
		cfg:         cfg,
		now:         time.Now,
	}
}

// CreateStake commits amount from the user's available balance to the pool.
// Capacity is reserved first, then the wallet is moved available -> locked;
// any failure after that undoes the earlier steps.
func (s *StakeService) CreateStake(ctx context.Context, userId, poolId int64, amount decimal.Decimal) (stake *models.PoolStake, err error) {
	defer func() { observe(s.metrics, "create_stake", amount, err) }()

	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	pool, err := s.poolRepo.FindById(ctx, poolId)
	if err != nil {
		return nil, err
	}
	if err := checkStakeAmount(pool, amount); err != nil {
		return nil, err
	}

	fields := logrus.Fields{"user_id": userId, "pool_id": poolId, "amount": amount}
	sg := newSaga("create_stake", s.metrics, fields)

	reserved, err := s.poolRepo.ReserveCapacity(ctx, poolId, amount)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, s.unreservedReason(ctx, poolId, amount)
	}
	sg.onFailure("release capacity", func(ctx context.Context) error {
		return s.poolRepo.ReleaseCapacity(ctx, poolId, amount)
	})

	lock := models.BalanceDelta{Available: amount.Neg(), Locked: amount}
	if _, err := s.walletRepo.ApplyDelta(ctx, userId, lock); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}
	sg.onFailure("unlock wallet", s.applyDelta(userId, lock.Neg()))

	now := clock(s.now)
	stake = &models.PoolStake{
		UserId:             userId,
		PoolId:             poolId,
		Amount:             amount,
		Status:             models.StakeActive,
		StakedAt:           now,
		UnstakeAvailableAt: now.UTC().AddDate(0, 0, pool.LockPeriodDays),
		TotalEarned:        decimal.Zero,
	}
	if err := s.stakeRepo.Save(ctx, stake); err != nil {
		sg.rollback(ctx, err)
		return nil, fmt.Errorf("save stake: %w", err)
	}
	stakeId := stake.Id
	sg.onFailure("delete stake", func(ctx context.Context) error {
		return s.stakeRepo.DeleteById(ctx, stakeId)
	})

	tx := &models.Transaction{
		UserId:      userId,
		Type:        models.TxPoolStake,
		Amount:      amount,
		Status:      models.TxCompleted,
		Description: fmt.Sprintf("Stake into %s pool", pool.BotTier),
		Metadata:    models.Metadata{"pool_id": poolId, "stake_id": stake.Id},
		CreatedAt:   now,
	}
	tx.CompletedAt.Time, tx.CompletedAt.Valid = now, true
	if err := s.txRepo.Save(ctx, tx); err != nil {
		sg.rollback(ctx, err)
		return nil, fmt.Errorf("save stake transaction: %w", err)
	}

	log.WithFields(fields).WithField("stake_id", stake.Id).Info("Stake created")

	if s.cfg.CommissionOnStake && s.commissions != nil {
		if _, err := s.commissions.Accrue(ctx, tx); err != nil {
			log.WithField("tx_id", tx.Id).Error("Failed to accrue commissions: ", err)
		}
	}

	s.notifier.Send(models.Notification{
		UserId: userId,
		Type:   models.NotifyStake,
		Title:  "Stake created",
		Message: fmt.Sprintf(
			"%s staked in the %s pool. Unlocks %s.",
			notifications.FormatAmount(amount, s.cfg.Currency),
			pool.BotTier,
			stake.UnstakeAvailableAt.UTC().Format(time.DateOnly),
		),
		Metadata: map[string]any{"stake_id": stake.Id, "pool_id": poolId},
	})
	return stake, nil
}

// ProcessRoiPayout credits one day of yield for an active stake at the
// midpoint of the pool's roi band.
func (s *StakeService) ProcessRoiPayout(ctx context.Context, stake *models.PoolStake) (tx *models.Transaction, err error) {
	payout := decimal.Zero
	defer func() { observe(s.metrics, "roi_payout", payout, err) }()

	if stake.Status != models.StakeActive {
		return nil, apperr.New(apperr.StakeNotActive, "stake %d is %s", stake.Id, stake.Status)
	}
	pool, err := s.poolRepo.FindById(ctx, stake.PoolId)
	if err != nil {
		return nil, err
	}
	if err := validateRoi(pool); err != nil {
		return nil, err
	}

	payout = DailyPayout(stake.Amount, pool)
	if !payout.IsPositive() {
		return nil, nil
	}

	now := clock(s.now)
	fields := logrus.Fields{"user_id": stake.UserId, "stake_id": stake.Id, "amount": payout}
	sg := newSaga("roi_payout", s.metrics, fields)

	marked, err := s.stakeRepo.MarkPaid(ctx, stake.Id, now)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, s.unpaidReason(ctx, stake.Id, now)
	}
	stakeId, previous := stake.Id, stake.LastPaidOn
	sg.onFailure("restore payout day", func(ctx context.Context) error {
		return s.stakeRepo.RestorePaid(ctx, stakeId, now, previous)
	})

	tx = &models.Transaction{
		UserId:      stake.UserId,
		Type:        models.TxRoiPayout,
		Amount:      payout,
		Status:      models.TxCompleted,
		Description: fmt.Sprintf("Daily ROI for stake %d", stake.Id),
		Metadata: models.Metadata{
			"stake_id":  stake.Id,
			"pool_id":   pool.Id,
			"daily_roi": pool.RoiMin.Add(pool.RoiMax).Div(decimal.NewFromInt(2)).String(),
		},
		CreatedAt: now,
	}
	tx.CompletedAt.Time, tx.CompletedAt.Valid = now, true
	if err := s.txRepo.Save(ctx, tx); err != nil {
		sg.rollback(ctx, err)
		return nil, fmt.Errorf("save roi payout: %w", err)
	}
	fields["tx_id"] = tx.Id
	sg.onFailure("mark payout failed", s.moveStatus(tx.Id, models.TxCompleted, models.TxFailed))

	added, err := s.stakeRepo.AddEarnings(ctx, stake.Id, payout)
	if err == nil && !added {
		err = apperr.New(apperr.StakeNotActive, "stake %d is no longer active", stake.Id)
	}
	if err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}
	sg.onFailure("reverse earnings", func(ctx context.Context) error {
		_, err := s.stakeRepo.AddEarnings(ctx, stakeId, payout.Neg())
		return err
	})

	if _, err := s.walletRepo.ApplyDelta(ctx, stake.UserId, models.BalanceDelta{Available: payout}); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}

	stake.TotalEarned = stake.TotalEarned.Add(payout)
	stake.LastPaidOn = sql.NullTime{Time: models.PayoutDay(now), Valid: true}
	s.notifier.Send(models.Notification{
		UserId:   stake.UserId,
		Type:     models.NotifyRoiPayout,
		Title:    "Daily ROI credited",
		Message:  fmt.Sprintf("%s was credited from your %s stake.", notifications.FormatAmount(payout, s.cfg.Currency), pool.BotTier),
		Metadata: map[string]any{"stake_id": stake.Id, "transaction_id": tx.Id},
	})
	return tx, nil
}

// unreservedReason explains a capacity reservation that did not apply: the
// pool was paused or closed in the meantime, or it is full.
func (s *StakeService) unreservedReason(ctx context.Context, poolId int64, amount decimal.Decimal) error {
	current, err := s.poolRepo.FindById(ctx, poolId)
	if err != nil {
		return err
	}
	if current.Status != models.PoolActive {
		return apperr.New(apperr.PoolInactive, "pool %d is %s", poolId, current.Status)
	}
	return apperr.New(apperr.CapacityExceeded, "pool %d cannot take another %s", poolId, amount)
}

// unpaidReason explains a payout mark that did not apply.
func (s *StakeService) unpaidReason(ctx context.Context, stakeId int64, now time.Time) error {
	current, err := s.stakeRepo.FindById(ctx, stakeId)
	if err != nil {
		return err
	}
	if current.Status != models.StakeActive {
		return apperr.New(apperr.StakeNotActive, "stake %d is %s", stakeId, current.Status)
	}
	return apperr.New(apperr.AlreadyProcessed, "stake %d was already paid for %s", stakeId, now.UTC().Format(time.DateOnly))
}

type PayoutReport struct {
	Processed int
	Skipped   int
	Failed    int
	Total     decimal.Decimal
}

// ProcessAllRoiPayouts pays every active stake once per UTC day. The day mark
// on the stake row is authoritative; the KV mark only saves the round trip
// for stakes this store has already seen today.
func (s *StakeService) ProcessAllRoiPayouts(ctx context.Context) (*PayoutReport, error) {
	stakes, err := s.stakeRepo.FindAllByStatus(ctx, models.StakeActive)
	if err != nil {
		return nil, err
	}

	day := clock(s.now).UTC().Format(time.DateOnly)
	report := &PayoutReport{Total: decimal.Zero}
	for i := range stakes {
		stake := &stakes[i]
		key := fmt.Sprintf("roi:%d:%s", stake.Id, day)

		if s.store != nil {
			first, err := s.store.SetNX(ctx, key, "1", payoutMarkTTL)
			if err != nil {
				report.Failed++
				continue
			}
			if !first {
				report.Skipped++
				continue
			}
		}

		tx, err := s.ProcessRoiPayout(ctx, stake)
		if errors.Is(err, apperr.ErrAlreadyProcessed) {
			report.Skipped++
			continue
		}
		if err != nil {
			report.Failed++
			log.WithField("stake_id", stake.Id).Error("ROI payout failed: ", err)
			if s.store != nil {
				if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
					log.WithField("stake_id", stake.Id).Error("Failed to clear payout mark: ", err)
				}
			}
			continue
		}
		if tx == nil {
			report.Skipped++
			continue
		}
		report.Processed++
		report.Total = report.Total.Add(tx.Amount)
	}

	log.WithFields(logrus.Fields{
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"total":     report.Total,
	}).Info("ROI payout cycle finished")
	return report, nil
}

// Unstake returns a stake whose lock period has ended to the owner's
// available balance.
func (s *StakeService) Unstake(ctx context.Context, userId, stakeId int64) (tx *models.Transaction, err error) {
	amount := decimal.Zero
	defer func() { observe(s.metrics, "unstake", amount, err) }()

	stake, err := s.stakeRepo.FindById(ctx, stakeId)
	if err != nil {
		return nil, err
	}
	if stake.UserId != userId {
		return nil, apperr.New(apperr.Forbidden, "stake %d does not belong to user %d", stakeId, userId)
	}
	if stake.Status != models.StakeActive {
		return nil, apperr.New(apperr.StakeNotActive, "stake %d is %s", stakeId, stake.Status)
	}
	now := clock(s.now)
	if !stake.CanUnstake(now) {
		return nil, apperr.New(
			apperr.StakeLocked,
			"stake %d is locked until %s",
			stakeId, stake.UnstakeAvailableAt.UTC().Format(time.RFC3339),
		)
	}

	amount = stake.Amount
	return s.release(ctx, stake, models.StakeUnstaked, now)
}

// ProcessMaturedStakes releases every stake whose lock has expired with
// status matured.
func (s *StakeService) ProcessMaturedStakes(ctx context.Context) (int, error) {
	now := clock(s.now)
	stakes, err := s.stakeRepo.FindMatured(ctx, now, maturedBatch)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range stakes {
		if _, err := s.release(ctx, &stakes[i], models.StakeMatured, now); err != nil {
			log.WithField("stake_id", stakes[i].Id).Error("Failed to release matured stake: ", err)
			continue
		}
		observe(s.metrics, "mature_stake", stakes[i].Amount, nil)
		released++
	}
	return released, nil
}

func (s *StakeService) release(ctx context.Context, stake *models.PoolStake, status models.StakeStatus, now time.Time) (*models.Transaction, error) {
	fields := logrus.Fields{"user_id": stake.UserId, "stake_id": stake.Id, "amount": stake.Amount}
	sg := newSaga("unstake", s.metrics, fields)

	closed, err := s.stakeRepo.Close(ctx, stake.Id, status, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, apperr.New(apperr.StakeNotActive, "stake %d was already released", stake.Id)
	}
	stakeId := stake.Id
	sg.onFailure("reopen stake", func(ctx context.Context) error {
		return s.stakeRepo.Reopen(ctx, stakeId)
	})

	unlock := models.BalanceDelta{Locked: stake.Amount.Neg(), Available: stake.Amount}
	if _, err := s.walletRepo.ApplyDelta(ctx, stake.UserId, unlock); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}
	sg.onFailure("lock wallet", s.applyDelta(stake.UserId, unlock.Neg()))

	poolId, amount := stake.PoolId, stake.Amount
	if err := s.poolRepo.ReleaseCapacity(ctx, poolId, amount); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}
	sg.onFailure("reserve capacity", func(ctx context.Context) error {
		ok, err := s.poolRepo.ReserveCapacity(ctx, poolId, amount)
		if err == nil && !ok {
			err = fmt.Errorf("pool %d has no room to restore %s", poolId, amount)
		}
		return err
	})

	tx := &models.Transaction{
		UserId:      stake.UserId,
		Type:        models.TxPoolUnstake,
		Amount:      stake.Amount,
		Status:      models.TxCompleted,
		Description: fmt.Sprintf("Stake %d %s", stake.Id, status),
		Metadata:    models.Metadata{"stake_id": stake.Id, "pool_id": stake.PoolId, "total_earned": stake.TotalEarned.String()},
		CreatedAt:   now,
	}
	tx.CompletedAt.Time, tx.CompletedAt.Valid = now, true
	if err := s.txRepo.Save(ctx, tx); err != nil {
		sg.rollback(ctx, err)
		return nil, fmt.Errorf("save unstake transaction: %w", err)
	}

	stake.Status = status
	stake.UnstakedAt.Time, stake.UnstakedAt.Valid = now, true
	log.WithFields(fields).WithField("status", status).Info("Stake released")

	s.notifier.Send(models.Notification{
		UserId: stake.UserId,
		Type:   models.NotifyUnstake,
		Title:  "Stake released",
		Message: fmt.Sprintf(
			"%s returned to your available balance. Earned %s in total.",
			notifications.FormatAmount(stake.Amount, s.cfg.Currency),
			notifications.FormatAmount(stake.TotalEarned, s.cfg.Currency),
		),
		Metadata: map[string]any{"stake_id": stake.Id, "transaction_id": tx.Id},
	})
	return tx, nil
}

// Earnings is the simulated yield shown for a stake. Display only.
func (s *StakeService) Earnings(ctx context.Context, stakeId int64, at time.Time) (*yield.Earnings, error) {
	if s.simulator == nil {
		return nil, fmt.Errorf("yield simulator is not configured")
	}
	stake, err := s.stakeRepo.FindById(ctx, stakeId)
	if err != nil {
		return nil, err
	}
	return s.simulator.CalculateCurrentEarnings(stake.UserId, stake.Amount, at)
}

func (s *StakeService) GetById(ctx context.Context, stakeId int64) (*models.PoolStake, error) {
	return s.stakeRepo.FindById(ctx, stakeId)
}

func (s *StakeService) GetUserStakes(ctx context.Context, userId int64) ([]models.PoolStake, error) {
	return s.stakeRepo.FindByUserId(ctx, userId)
}

func (s *StakeService) applyDelta(userId int64, delta models.BalanceDelta) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.walletRepo.ApplyDelta(ctx, userId, delta)
		return err
	}
}

func (s *StakeService) moveStatus(txId int64, from, to models.TxStatus) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		moved, err := s.txRepo.UpdateStatus(ctx, txId, from, to, clock(s.now))
		if err == nil && !moved {
			err = fmt.Errorf("transaction %d is no longer %s", txId, from)
		}
		return err
	}
}

func checkStakeAmount(pool *models.Pool, amount decimal.Decimal) error {
	if pool.Status != models.PoolActive {
		return apperr.New(apperr.PoolInactive, "pool %d is %s", pool.Id, pool.Status)
	}
	if amount.LessThan(pool.MinStake) {
		return apperr.New(apperr.BelowMinimumStake, "minimum stake for pool %d is %s", pool.Id, pool.MinStake)
	}
	if pool.MaxStake.Valid && amount.GreaterThan(pool.MaxStake.Decimal) {
		return apperr.New(apperr.AboveMaximumStake, "maximum stake for pool %d is %s", pool.Id, pool.MaxStake.Decimal)
	}
	if remaining, limited := pool.RemainingCapacity(); limited && amount.GreaterThan(remaining) {
		return apperr.New(apperr.CapacityExceeded, "pool %d has %s capacity left", pool.Id, remaining)
	}
	return nil
}

// DailyPayout is amount times the midpoint of the pool's roi band, rounded to
// the ledger's eight decimal places.
func DailyPayout(amount decimal.Decimal, pool *models.Pool) decimal.Decimal {
	daily := pool.RoiMin.Add(pool.RoiMax).Div(decimal.NewFromInt(2))
	return amount.Mul(daily).Round(8)
}
