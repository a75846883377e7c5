package memory

import (
	"context"

	"stakeledger/internal/models"
	"stakeledger/internal/repositories"
)

type TelegramRepository struct {
	s *Store
}

func (r *TelegramRepository) Save(_ context.Context, acc *models.TelegramAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a := *acc
	r.s.telegram[a.UserId] = &a
	return nil
}

func (r *TelegramRepository) FindByUserId(_ context.Context, userId int64) (*models.TelegramAccount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.telegram[userId]
	if !ok {
		return nil, repositories.ErrTelegramNotLinked
	}
	res := *a
	return &res, nil
}

func (r *TelegramRepository) FindByChatId(_ context.Context, chatId int64) (*models.TelegramAccount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.telegram {
		if a.ChatId == chatId {
			res := *a
			return &res, nil
		}
	}
	return nil, repositories.ErrTelegramNotLinked
}
