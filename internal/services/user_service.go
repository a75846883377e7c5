package services

import (
	"context"
	"errors"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/sirupsen/logrus"
)

// UserService registers users with the ledger. Identity itself lives with
// the auth collaborator; here a user is its wallet plus its upline.
type UserService struct {
	wallets   *WalletService
	referrals *ReferralService
}

func NewUserService(wallets *WalletService, referrals *ReferralService) *UserService {
	return &UserService{
		wallets:   wallets,
		referrals: referrals,
	}
}

// Register creates the zero wallet for userId and, when referrerId is not
// zero, the referral chain under that referrer.
func (s *UserService) Register(ctx context.Context, userId, referrerId int64) (*models.Wallet, error) {
	if referrerId != 0 {
		if referrerId == userId {
			return nil, apperr.New(apperr.InvalidReferral, "user %d cannot refer themselves", userId)
		}
		if _, err := s.wallets.GetWallet(ctx, referrerId); err != nil {
			if errors.Is(err, apperr.ErrWalletNotFound) {
				return nil, apperr.New(apperr.InvalidReferral, "referrer %d is not registered", referrerId)
			}
			return nil, err
		}
	}

	wallet, created, err := s.wallets.CreateWallet(ctx, userId)
	if err != nil {
		return nil, err
	}
	fields := logrus.Fields{"user_id": userId, "referrer_id": referrerId}
	if !created {
		return s.resume(ctx, wallet, referrerId, fields)
	}

	if referrerId != 0 {
		if _, err := s.referrals.BuildChain(ctx, referrerId, userId); err != nil {
			log.WithFields(fields).Error("Registered without a complete referral chain, retry to finish it: ", err)
			return wallet, err
		}
	}

	log.WithFields(fields).Info("User registered")
	return wallet, nil
}

// resume finishes a registration whose referral chain was interrupted. The
// chain is rebuilt only under the same direct referrer, or from scratch for
// a wallet with no history; anything else is a repeated registration.
func (s *UserService) resume(ctx context.Context, wallet *models.Wallet, referrerId int64, fields logrus.Fields) (*models.Wallet, error) {
	registered := apperr.New(apperr.AlreadyProcessed, "user %d is already registered", wallet.UserId)
	if referrerId == 0 {
		return nil, registered
	}

	upline, err := s.referrals.Upline(ctx, wallet.UserId)
	if err != nil {
		return nil, err
	}
	if len(upline) > 0 && (upline[0].Level != 1 || upline[0].ReferrerId != referrerId) {
		return nil, registered
	}
	if len(upline) == 0 {
		// a wallet that has moved funds was registered without a referrer
		_, count, err := s.wallets.History(ctx, wallet.UserId, 0, 1)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, registered
		}
	}

	inserted, err := s.referrals.BuildChain(ctx, referrerId, wallet.UserId)
	if err != nil {
		log.WithFields(fields).Error("Referral chain still incomplete: ", err)
		return wallet, err
	}
	if len(inserted) == 0 {
		return nil, registered
	}

	log.WithFields(fields).WithField("edges", len(inserted)).Info("Referral chain completed")
	return wallet, nil
}
