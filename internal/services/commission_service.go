package services

import (
	"context"
	"fmt"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/config"
	"stakeledger/internal/metrics"
	"stakeledger/internal/models"
	"stakeledger/internal/notifications"
	"stakeledger/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var commissionRates = map[int]decimal.Decimal{
	1: decimal.RequireFromString("0.10"),
	2: decimal.RequireFromString("0.05"),
	3: decimal.RequireFromString("0.03"),
	4: decimal.RequireFromString("0.02"),
	5: decimal.RequireFromString("0.01"),
}

// CommissionRate returns the rate for a referral level, zero when the level
// earns nothing.
func CommissionRate(level int) decimal.Decimal {
	if rate, ok := commissionRates[level]; ok {
		return rate
	}
	return decimal.Zero
}

// CommissionService accrues commissions as pending and pays them out in a
// separate, explicit step.
type CommissionService struct {
	commissionRepo repositories.CommissionRepository
	referralRepo   repositories.ReferralRepository
	walletRepo     repositories.WalletRepository
	txRepo         repositories.TransactionRepository
	notifier       Notifier
	metrics        *metrics.Ledger
	cfg            config.LedgerConfig
	now            func() time.Time
}

func NewCommissionService(
	commissionRepo repositories.CommissionRepository,
	referralRepo repositories.ReferralRepository,
	walletRepo repositories.WalletRepository,
	txRepo repositories.TransactionRepository,
	notifier Notifier,
	m *metrics.Ledger,
	cfg config.LedgerConfig,
) *CommissionService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CommissionService{
		commissionRepo: commissionRepo,
		referralRepo:   referralRepo,
		walletRepo:     walletRepo,
		txRepo:         txRepo,
		notifier:       notifier,
		metrics:        m,
		cfg:            cfg,
		now:            time.Now,
	}
}

func qualifies(tx *models.Transaction) bool {
	if tx.Status != models.TxCompleted {
		return false
	}
	return tx.Type == models.TxDeposit || tx.Type == models.TxPoolStake
}

// Accrue records one pending commission per upline level for a completed
// deposit or stake. Accruing the same transaction twice is a no-op.
func (s *CommissionService) Accrue(ctx context.Context, tx *models.Transaction) ([]models.ReferralCommission, error) {
	if !qualifies(tx) {
		return nil, nil
	}

	upline, err := s.referralRepo.FindUpline(ctx, tx.UserId, MaxReferralLevel+1)
	if err != nil {
		return nil, err
	}

	now := clock(s.now)
	res := make([]models.ReferralCommission, 0, len(upline))
	for _, edge := range upline {
		rate := CommissionRate(edge.Level)
		if rate.IsZero() {
			continue
		}
		c := models.ReferralCommission{
			ReferrerId:          edge.ReferrerId,
			ReferredId:          tx.UserId,
			Level:               edge.Level,
			SourceTransactionId: tx.Id,
			Amount:              tx.Amount.Mul(rate).Round(8),
			CommissionRate:      rate,
			Status:              models.CommissionPending,
			CreatedAt:           now,
		}
		saved, err := s.commissionRepo.Save(ctx, &c)
		if err != nil {
			return res, err
		}
		if saved {
			res = append(res, c)
		}
	}

	if len(res) > 0 {
		log.WithFields(logrus.Fields{"tx_id": tx.Id, "user_id": tx.UserId, "count": len(res)}).Info("Commissions accrued")
	}
	return res, nil
}

// PayCommission marks a pending commission paid and credits the referrer.
// If the credit fails the commission goes back to pending.
func (s *CommissionService) PayCommission(ctx context.Context, commissionId int64) (c *models.ReferralCommission, err error) {
	amount := decimal.Zero
	defer func() { observe(s.metrics, "pay_commission", amount, err) }()

	c, err = s.commissionRepo.FindById(ctx, commissionId)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CommissionPending {
		return nil, apperr.New(apperr.AlreadyProcessed, "commission %d is already %s", commissionId, c.Status)
	}
	amount = c.Amount

	now := clock(s.now)
	moved, err := s.commissionRepo.UpdateStatus(ctx, commissionId, models.CommissionPending, models.CommissionPaid, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.New(apperr.AlreadyProcessed, "commission %d was already processed", commissionId)
	}

	fields := logrus.Fields{"commission_id": commissionId, "user_id": c.ReferrerId, "amount": c.Amount}
	sg := newSaga("pay_commission", s.metrics, fields)
	sg.onFailure("revert commission to pending", func(ctx context.Context) error {
		moved, err := s.commissionRepo.UpdateStatus(ctx, commissionId, models.CommissionPaid, models.CommissionPending, now)
		if err == nil && !moved {
			err = fmt.Errorf("commission %d is no longer paid", commissionId)
		}
		return err
	})

	if _, err := s.walletRepo.ApplyDelta(ctx, c.ReferrerId, models.BalanceDelta{Available: c.Amount}); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}
	referrerId, credited := c.ReferrerId, c.Amount
	sg.onFailure("reverse credit", func(ctx context.Context) error {
		_, err := s.walletRepo.ApplyDelta(ctx, referrerId, models.BalanceDelta{Available: credited.Neg()})
		return err
	})

	tx := &models.Transaction{
		UserId:      c.ReferrerId,
		Type:        models.TxReferralCommission,
		Amount:      c.Amount,
		Status:      models.TxCompleted,
		Description: fmt.Sprintf("Level %d referral commission", c.Level),
		Metadata: models.Metadata{
			"commission_id":         c.Id,
			"referred_id":           c.ReferredId,
			"source_transaction_id": c.SourceTransactionId,
		},
		CreatedAt: now,
	}
	tx.CompletedAt.Time, tx.CompletedAt.Valid = now, true
	if err := s.txRepo.Save(ctx, tx); err != nil {
		sg.rollback(ctx, err)
		return nil, fmt.Errorf("save commission transaction: %w", err)
	}

	c.Status = models.CommissionPaid
	c.PaidAt.Time, c.PaidAt.Valid = now, true

	s.notifier.Send(models.Notification{
		UserId:   c.ReferrerId,
		Type:     models.NotifyReferralCommission,
		Title:    "Referral commission",
		Message:  fmt.Sprintf("You earned %s from a level %d partner.", notifications.FormatAmount(c.Amount, s.cfg.Currency), c.Level),
		Metadata: map[string]any{"commission_id": c.Id, "transaction_id": tx.Id},
	})
	return c, nil
}

// PayPending pays up to limit pending commissions, oldest first.
func (s *CommissionService) PayPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.commissionRepo.FindByStatusLimit(ctx, models.CommissionPending, limit)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, c := range pending {
		if _, err := s.PayCommission(ctx, c.Id); err != nil {
			log.WithField("commission_id", c.Id).Error("Failed to pay commission: ", err)
			continue
		}
		paid++
	}
	return paid, nil
}

func (s *CommissionService) CancelCommission(ctx context.Context, actor models.Actor, commissionId int64) (*models.ReferralCommission, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	c, err := s.commissionRepo.FindById(ctx, commissionId)
	if err != nil {
		return nil, err
	}
	moved, err := s.commissionRepo.UpdateStatus(ctx, commissionId, models.CommissionPending, models.CommissionCancelled, clock(s.now))
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.New(apperr.AlreadyProcessed, "commission %d is already %s", commissionId, c.Status)
	}

	c.Status = models.CommissionCancelled
	return c, nil
}

func (s *CommissionService) ListByReferrer(ctx context.Context, referrerId int64, offset, limit int) ([]models.ReferralCommission, error) {
	return s.commissionRepo.FindByReferrerId(ctx, referrerId, offset, limit)
}
