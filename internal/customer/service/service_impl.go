package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/flashmarket/internal/customer/domain"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Gateway paymentdomain.CustomerGateway
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	gateway paymentdomain.CustomerGateway
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("customer.service"),
		repo:    p.Repo,
		gateway: p.Gateway,
	}
}

func (s *Service) EnsureCustomer(ctx context.Context, req domain.EnsureCustomerRequest) (domain.Customer, error) {
	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		return domain.Customer{}, domain.ErrInvalidUID
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	existing, err := s.repo.FindByUID(ctx, uid)
	if err != nil {
		return domain.Customer{}, err
	}
	if existing != nil && strings.EqualFold(existing.Email, email) {
		return *existing, nil
	}

	customer, err := s.gateway.FindOrCreateCustomer(ctx, email, uid)
	if err != nil {
		s.log.Warn("customer lookup failed", zap.String("uid", uid), zap.Error(err))
		return domain.Customer{}, err
	}

	// A failed link only costs a processor lookup next time.
	if err := s.repo.Link(ctx, uid, email, customer.ID); err != nil {
		s.log.Warn("failed to cache customer id",
			zap.String("uid", uid),
			zap.String("customer_id", customer.ID),
			zap.Error(err),
		)
	}

	return domain.Customer{UID: uid, Email: email, CustomerID: customer.ID}, nil
}
