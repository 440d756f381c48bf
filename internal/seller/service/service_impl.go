package service

import (
	"context"
	"strings"

	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	"github.com/smallbiznis/flashmarket/internal/seller/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Connect paymentdomain.ConnectGateway
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	connect paymentdomain.ConnectGateway
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("seller.service"),
		repo:    p.Repo,
		connect: p.Connect,
	}
}

func (s *Service) AuthorizeURL(ctx context.Context, req domain.AuthorizeRequest) (string, error) {
	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		return "", domain.ErrInvalidUID
	}
	return s.connect.AuthorizeURL(paymentdomain.ConnectAuthorizeParams{
		State:       uid,
		Email:       strings.TrimSpace(req.Email),
		RedirectURI: strings.TrimSpace(req.RedirectURI),
	})
}

func (s *Service) CompleteOAuth(ctx context.Context, code, state string) (*domain.PayoutAccount, error) {
	code = strings.TrimSpace(code)
	uid := strings.TrimSpace(state)
	if code == "" {
		return nil, domain.ErrMissingCode
	}
	if uid == "" {
		return nil, domain.ErrInvalidUID
	}

	accountID, err := s.connect.ExchangeOAuthCode(ctx, code)
	if err != nil {
		s.log.Warn("connect oauth exchange failed", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}

	if err := s.repo.LinkAccount(ctx, uid, accountID); err != nil {
		s.log.Error("failed to store payout account",
			zap.String("uid", uid),
			zap.String("stripe_account_id", accountID),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("seller payout account linked",
		zap.String("uid", uid),
		zap.String("stripe_account_id", accountID),
	)
	return s.repo.FindByUID(ctx, uid)
}

func (s *Service) GetPayoutAccount(ctx context.Context, uid string) (*domain.PayoutAccount, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, domain.ErrInvalidUID
	}
	return s.repo.FindByUID(ctx, uid)
}
