package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/cache"
	"stakeledger/internal/models"
	"stakeledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const orderPrefix = "DEP"

type DepositOrder struct {
	OrderId     string              `json:"order_id"`
	Transaction *models.Transaction `json:"transaction"`
}

// PaymentService bridges the payment provider: it opens pending deposits as
// orders and settles them when the provider confirms.
type PaymentService struct {
	wallets  *WalletService
	txRepo   repositories.TransactionRepository
	store    cache.Store
	dedupTTL time.Duration
}

func NewPaymentService(wallets *WalletService, store cache.Store, dedupTTL time.Duration) *PaymentService {
	return &PaymentService{
		wallets:  wallets,
		txRepo:   wallets.txRepo,
		store:    store,
		dedupTTL: dedupTTL,
	}
}

func OrderId(userId, txId int64) string {
	return fmt.Sprintf("%s-%d-%d", orderPrefix, userId, txId)
}

// ParseOrderId extracts (userId, transactionId) from an order id.
func ParseOrderId(orderId string) (int64, int64, error) {
	parts := strings.Split(orderId, "-")
	if len(parts) != 3 || parts[0] != orderPrefix {
		return 0, 0, apperr.New(apperr.InvalidOrder, "malformed order id %q", orderId)
	}
	userId, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userId <= 0 {
		return 0, 0, apperr.New(apperr.InvalidOrder, "malformed order id %q", orderId)
	}
	txId, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || txId <= 0 {
		return 0, 0, apperr.New(apperr.InvalidOrder, "malformed order id %q", orderId)
	}
	return userId, txId, nil
}

func (s *PaymentService) CreateDepositOrder(ctx context.Context, userId int64, amount decimal.Decimal) (*DepositOrder, error) {
	tx, err := s.wallets.Deposit(ctx, userId, amount, models.TxPending, "Deposit order", models.Metadata{
		"request_id": uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	return &DepositOrder{OrderId: OrderId(userId, tx.Id), Transaction: tx}, nil
}

// ConfirmPayment settles the deposit behind orderId. The provider may
// deliver the same confirmation several times; only the first credits.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderId string) (*models.Transaction, error) {
	userId, txId, err := ParseOrderId(orderId)
	if err != nil {
		return nil, err
	}

	key := "payment:" + orderId
	first, err := s.store.SetNX(ctx, key, strconv.FormatInt(txId, 10), s.dedupTTL)
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, apperr.New(apperr.AlreadyProcessed, "order %s was already confirmed", orderId)
	}

	tx, err := s.confirm(ctx, userId, txId)
	if err != nil && !errors.Is(err, apperr.ErrAlreadyProcessed) {
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			log.WithField("order_id", orderId).Error("Failed to clear payment mark: ", derr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"order_id": orderId, "user_id": userId, "amount": tx.Amount}).Info("Payment confirmed")
	return tx, nil
}

func (s *PaymentService) confirm(ctx context.Context, userId, txId int64) (*models.Transaction, error) {
	tx, err := s.txRepo.FindById(ctx, txId)
	if err != nil {
		if errors.Is(err, apperr.ErrTransactionNotFound) {
			return nil, apperr.New(apperr.InvalidOrder, "order refers to unknown transaction %d", txId)
		}
		return nil, err
	}
	if tx.UserId != userId {
		return nil, apperr.New(apperr.InvalidOrder, "transaction %d does not belong to user %d", txId, userId)
	}
	return s.wallets.approveDeposit(ctx, txId)
}
