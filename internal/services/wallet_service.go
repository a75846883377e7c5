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

type Bucket int

const (
	Available Bucket = iota
	Locked
	Pending
)

func (b Bucket) delta(amount decimal.Decimal) models.BalanceDelta {
	switch b {
	case Locked:
		return models.BalanceDelta{Locked: amount}
	case Pending:
		return models.BalanceDelta{Pending: amount}
	default:
		return models.BalanceDelta{Available: amount}
	}
}

// WalletService is the wallet ledger: every balance change goes through one
// conditional write on the wallet row plus a transaction record.
type WalletService struct {
	walletRepo  repositories.WalletRepository
	txRepo      repositories.TransactionRepository
	commissions CommissionAccruer
	notifier    Notifier
	metrics     *metrics.Ledger
	cfg         config.LedgerConfig
	now         func() time.Time
}

func NewWalletService(
	walletRepo repositories.WalletRepository,
	txRepo repositories.TransactionRepository,
	notifier Notifier,
	m *metrics.Ledger,
	cfg config.LedgerConfig,
) *WalletService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &WalletService{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		notifier:   notifier,
		metrics:    m,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetCommissionAccruer wires the commission engine in after construction,
// since the engine itself credits through this service.
func (s *WalletService) SetCommissionAccruer(c CommissionAccruer) {
	s.commissions = c
}

func (s *WalletService) CreateWallet(ctx context.Context, userId int64) (*models.Wallet, bool, error) {
	w := &models.Wallet{
		UserId:           userId,
		AvailableBalance: decimal.Zero,
		LockedBalance:    decimal.Zero,
		PendingBalance:   decimal.Zero,
		Currency:         s.cfg.Currency,
		UpdatedAt:        clock(s.now),
	}
	created, err := s.walletRepo.Create(ctx, w)
	if err != nil {
		return nil, false, fmt.Errorf("create wallet: %w", err)
	}
	if !created {
		existing, err := s.walletRepo.FindByUserId(ctx, userId)
		return existing, false, err
	}
	return w, true, nil
}

func (s *WalletService) GetWallet(ctx context.Context, userId int64) (*models.Wallet, error) {
	return s.walletRepo.FindByUserId(ctx, userId)
}

func (s *WalletService) Credit(ctx context.Context, userId int64, bucket Bucket, amount decimal.Decimal) (*models.Wallet, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	return s.walletRepo.ApplyDelta(ctx, userId, bucket.delta(amount))
}

// Debit fails with InsufficientBalance when the bucket would go negative.
func (s *WalletService) Debit(ctx context.Context, userId int64, bucket Bucket, amount decimal.Decimal) (*models.Wallet, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	return s.walletRepo.ApplyDelta(ctx, userId, bucket.delta(amount.Neg()))
}

// Deposit records a deposit with the requested status. Only a completed
// deposit touches the wallet; a pending one waits for ApproveDeposit.
func (s *WalletService) Deposit(
	ctx context.Context,
	userId int64,
	amount decimal.Decimal,
	status models.TxStatus,
	description string,
	metadata models.Metadata,
) (tx *models.Transaction, err error) {
	defer func() { observe(s.metrics, "deposit", amount, err) }()

	if err := s.validateDeposit(amount); err != nil {
		return nil, err
	}
	if status != models.TxPending && status != models.TxCompleted {
		return nil, apperr.New(apperr.WrongTransactionType, "deposit cannot be created as %s", status)
	}
	if _, err := s.walletRepo.FindByUserId(ctx, userId); err != nil {
		return nil, err
	}

	tx = &models.Transaction{
		UserId:      userId,
		Type:        models.TxDeposit,
		Amount:      amount,
		Status:      status,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   clock(s.now),
	}
	if status == models.TxCompleted {
		tx.CompletedAt.Time, tx.CompletedAt.Valid = tx.CreatedAt, true
	}
	if err := s.txRepo.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("save deposit: %w", err)
	}
	if status == models.TxPending {
		return tx, nil
	}

	sg := newSaga("deposit", s.metrics, logrus.Fields{"user_id": userId, "tx_id": tx.Id, "amount": amount})
	sg.onFailure("mark deposit failed", s.moveStatus(tx.Id, models.TxCompleted, models.TxFailed))
	if _, err := s.walletRepo.ApplyDelta(ctx, userId, models.BalanceDelta{Available: amount}); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}

	s.afterDeposit(ctx, tx)
	return tx, nil
}

// ApproveDeposit completes a pending deposit on behalf of an admin.
func (s *WalletService) ApproveDeposit(ctx context.Context, actor models.Actor, txId int64) (*models.Transaction, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.approveDeposit(ctx, txId)
}

// approveDeposit is the status-guarded completion shared by admins and the
// payment webhook. A second call for the same transaction never credits.
func (s *WalletService) approveDeposit(ctx context.Context, txId int64) (tx *models.Transaction, err error) {
	amount := decimal.Zero
	defer func() { observe(s.metrics, "approve_deposit", amount, err) }()

	tx, err = s.pendingOfType(ctx, txId, models.TxDeposit)
	if err != nil {
		return nil, err
	}
	amount = tx.Amount

	now := clock(s.now)
	moved, err := s.txRepo.UpdateStatus(ctx, txId, models.TxPending, models.TxCompleted, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.New(apperr.AlreadyProcessed, "deposit %d was already processed", txId)
	}

	sg := newSaga("approve_deposit", s.metrics, logrus.Fields{"user_id": tx.UserId, "tx_id": txId, "amount": tx.Amount})
	sg.onFailure("revert deposit to pending", s.moveStatus(txId, models.TxCompleted, models.TxPending))
	if _, err := s.walletRepo.ApplyDelta(ctx, tx.UserId, models.BalanceDelta{Available: tx.Amount}); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}

	tx.Status = models.TxCompleted
	tx.CompletedAt.Time, tx.CompletedAt.Valid = now, true
	s.afterDeposit(ctx, tx)
	return tx, nil
}

func (s *WalletService) RejectDeposit(ctx context.Context, actor models.Actor, txId int64) (*models.Transaction, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	tx, err := s.pendingOfType(ctx, txId, models.TxDeposit)
	if err != nil {
		return nil, err
	}
	moved, err := s.txRepo.UpdateStatus(ctx, txId, models.TxPending, models.TxFailed, clock(s.now))
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.New(apperr.AlreadyProcessed, "deposit %d was already processed", txId)
	}

	tx.Status = models.TxFailed
	return tx, nil
}

// Withdraw reserves funds for a withdrawal request: the pending transaction
// is written first, then available moves to pending in one conditional
// write. A failed guard deletes the transaction again.
func (s *WalletService) Withdraw(ctx context.Context, userId int64, amount decimal.Decimal) (tx *models.Transaction, err error) {
	defer func() { observe(s.metrics, "withdraw", amount, err) }()

	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	if _, err := s.walletRepo.FindByUserId(ctx, userId); err != nil {
		return nil, err
	}

	tx = &models.Transaction{
		UserId:      userId,
		Type:        models.TxWithdraw,
		Amount:      amount,
		Status:      models.TxPending,
		Description: "Withdrawal request",
		CreatedAt:   clock(s.now),
	}
	if err := s.txRepo.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("save withdrawal: %w", err)
	}

	sg := newSaga("withdraw", s.metrics, logrus.Fields{"user_id": userId, "tx_id": tx.Id, "amount": amount})
	txId := tx.Id
	sg.onFailure("delete withdrawal", func(ctx context.Context) error {
		return s.txRepo.DeleteById(ctx, txId)
	})
	if _, err := s.walletRepo.ApplyDelta(ctx, userId, models.BalanceDelta{
		Available: amount.Neg(),
		Pending:   amount,
	}); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}

	s.notifier.Send(models.Notification{
		UserId:   userId,
		Type:     models.NotifyWithdrawal,
		Title:    "Withdrawal requested",
		Message:  fmt.Sprintf("Your withdrawal of %s is awaiting approval.", notifications.FormatAmount(amount, s.cfg.Currency)),
		Metadata: map[string]any{"transaction_id": tx.Id},
	})
	return tx, nil
}

// ApproveWithdrawal releases the reserved funds from custody.
func (s *WalletService) ApproveWithdrawal(ctx context.Context, actor models.Actor, txId int64) (*models.Transaction, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.settleWithdrawal(ctx, txId, models.TxCompleted)
}

// RejectWithdrawal refunds the reserved funds to available.
func (s *WalletService) RejectWithdrawal(ctx context.Context, actor models.Actor, txId int64) (*models.Transaction, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.settleWithdrawal(ctx, txId, models.TxCancelled)
}

func (s *WalletService) settleWithdrawal(ctx context.Context, txId int64, to models.TxStatus) (tx *models.Transaction, err error) {
	op := "approve_withdrawal"
	if to != models.TxCompleted {
		op = "reject_withdrawal"
	}
	amount := decimal.Zero
	defer func() { observe(s.metrics, op, amount, err) }()

	tx, err = s.pendingOfType(ctx, txId, models.TxWithdraw)
	if err != nil {
		return nil, err
	}
	amount = tx.Amount

	moved, err := s.txRepo.UpdateStatus(ctx, txId, models.TxPending, to, clock(s.now))
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.New(apperr.AlreadyProcessed, "withdrawal %d was already processed", txId)
	}

	delta := models.BalanceDelta{Pending: tx.Amount.Neg()}
	if to != models.TxCompleted {
		delta.Available = tx.Amount
	}

	sg := newSaga(op, s.metrics, logrus.Fields{"user_id": tx.UserId, "tx_id": txId, "amount": tx.Amount})
	sg.onFailure("revert withdrawal to pending", s.moveStatus(txId, to, models.TxPending))
	if _, err := s.walletRepo.ApplyDelta(ctx, tx.UserId, delta); err != nil {
		sg.rollback(ctx, err)
		return nil, err
	}

	tx.Status = to
	title, msg := "Withdrawal completed", "Your withdrawal of %s has been sent."
	if to != models.TxCompleted {
		title, msg = "Withdrawal rejected", "Your withdrawal of %s was rejected and refunded."
	}
	s.notifier.Send(models.Notification{
		UserId:   tx.UserId,
		Type:     models.NotifyWithdrawal,
		Title:    title,
		Message:  fmt.Sprintf(msg, notifications.FormatAmount(tx.Amount, s.cfg.Currency)),
		Metadata: map[string]any{"transaction_id": txId, "status": string(to)},
	})
	return tx, nil
}

// History returns the user's transactions newest first and the total count.
func (s *WalletService) History(ctx context.Context, userId int64, offset, limit int) ([]models.Transaction, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txs, err := s.txRepo.FindByUserIdLimit(ctx, userId, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.txRepo.CountByUserId(ctx, userId)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (s *WalletService) validateDeposit(amount decimal.Decimal) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if s.cfg.MaxDeposit.IsPositive() && amount.GreaterThan(s.cfg.MaxDeposit) {
		return apperr.New(apperr.InvalidAmount, "deposit %s exceeds the maximum of %s", amount, s.cfg.MaxDeposit)
	}
	return nil
}

func (s *WalletService) pendingOfType(ctx context.Context, txId int64, txType models.TransactionType) (*models.Transaction, error) {
	tx, err := s.txRepo.FindById(ctx, txId)
	if err != nil {
		return nil, err
	}
	if tx.Type != txType {
		return nil, apperr.New(apperr.WrongTransactionType, "transaction %d is a %s, not a %s", txId, tx.Type, txType)
	}
	if tx.Status != models.TxPending {
		return nil, apperr.New(apperr.AlreadyProcessed, "transaction %d is already %s", txId, tx.Status)
	}
	return tx, nil
}

func (s *WalletService) moveStatus(txId int64, from, to models.TxStatus) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		moved, err := s.txRepo.UpdateStatus(ctx, txId, from, to, clock(s.now))
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("transaction %d is no longer %s", txId, from)
		}
		return nil
	}
}

func (s *WalletService) afterDeposit(ctx context.Context, tx *models.Transaction) {
	log.WithFields(logrus.Fields{"user_id": tx.UserId, "tx_id": tx.Id, "amount": tx.Amount}).Info("Deposit completed")

	if s.commissions != nil {
		if _, err := s.commissions.Accrue(ctx, tx); err != nil {
			log.WithField("tx_id", tx.Id).Error("Failed to accrue commissions: ", err)
		}
	}

	s.notifier.Send(models.Notification{
		UserId:   tx.UserId,
		Type:     models.NotifyDeposit,
		Title:    "Deposit received",
		Message:  fmt.Sprintf("%s was credited to your wallet.", notifications.FormatAmount(tx.Amount, s.cfg.Currency)),
		Metadata: map[string]any{"transaction_id": tx.Id},
	})
}
