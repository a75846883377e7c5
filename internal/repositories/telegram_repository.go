package repositories

import (
	"context"
	"database/sql"
	"errors"

	"stakeledger/internal/models"

	"github.com/jmoiron/sqlx"
)

var ErrTelegramNotLinked = errors.New("telegram account not linked")

type TelegramPgRepository struct {
	db *sqlx.DB
}

func NewTelegramRepository(db *sqlx.DB) *TelegramPgRepository {
	return &TelegramPgRepository{
		db: db,
	}
}

func (r *TelegramPgRepository) Save(ctx context.Context, acc *models.TelegramAccount) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.NamedExecContext(
		ctx,
		`insert into telegram_accounts(user_id, chat_id, username) values (:user_id, :chat_id, :username)
on conflict (user_id) do update set chat_id = excluded.chat_id, username = excluded.username`,
		acc,
	); err != nil {
		log.Error("Failed to save telegram account: ", err)
		return err
	}

	return nil
}

func (r *TelegramPgRepository) FindByUserId(ctx context.Context, userId int64) (*models.TelegramAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var acc models.TelegramAccount
	if err := r.db.GetContext(ctx, &acc, "select * from telegram_accounts where user_id = $1", userId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTelegramNotLinked
		}
		log.Error("Failed to find telegram account: ", err)
		return nil, err
	}

	return &acc, nil
}

func (r *TelegramPgRepository) FindByChatId(ctx context.Context, chatId int64) (*models.TelegramAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var acc models.TelegramAccount
	if err := r.db.GetContext(ctx, &acc, "select * from telegram_accounts where chat_id = $1 limit 1", chatId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTelegramNotLinked
		}
		log.Error("Failed to find telegram account: ", err)
		return nil, err
	}

	return &acc, nil
}
