package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"stakeledger/internal/cache"
	"stakeledger/internal/models"
	"stakeledger/internal/repositories"

	"github.com/google/uuid"
)

const linkCodeTTL = 15 * time.Minute

var ErrInvalidLinkCode = errors.New("link code is unknown or expired")

// TelegramService links ledger users to telegram chats through one-time
// codes held in the cache.
type TelegramService struct {
	telegramRepo repositories.TelegramRepository
	walletRepo   repositories.WalletRepository
	store        cache.Store
}

func NewTelegramService(
	telegramRepo repositories.TelegramRepository,
	walletRepo repositories.WalletRepository,
	store cache.Store,
) *TelegramService {
	return &TelegramService{
		telegramRepo: telegramRepo,
		walletRepo:   walletRepo,
		store:        store,
	}
}

// IssueLinkCode returns a code the user sends to the bot as /start <code>.
func (s *TelegramService) IssueLinkCode(ctx context.Context, userId int64) (string, error) {
	if _, err := s.walletRepo.FindByUserId(ctx, userId); err != nil {
		return "", err
	}

	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.store.Set(ctx, linkKey(code), strconv.FormatInt(userId, 10), linkCodeTTL); err != nil {
		return "", err
	}
	return code, nil
}

func (s *TelegramService) Link(ctx context.Context, code string, chatId int64, username string) (*models.TelegramAccount, error) {
	raw, ok, err := s.store.Get(ctx, linkKey(code))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidLinkCode
	}
	userId, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, ErrInvalidLinkCode
	}

	acc := &models.TelegramAccount{UserId: userId, ChatId: chatId, Username: username}
	if err := s.telegramRepo.Save(ctx, acc); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, linkKey(code)); err != nil {
		log.WithField("user_id", userId).Warn("Failed to delete used link code: ", err)
	}
	return acc, nil
}

func (s *TelegramService) GetByUserId(ctx context.Context, userId int64) (*models.TelegramAccount, error) {
	return s.telegramRepo.FindByUserId(ctx, userId)
}

func (s *TelegramService) GetByChatId(ctx context.Context, chatId int64) (*models.TelegramAccount, error) {
	return s.telegramRepo.FindByChatId(ctx, chatId)
}

func linkKey(code string) string {
	return "tglink:" + code
}
