package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/flashmarket/internal/clock"
	"github.com/smallbiznis/flashmarket/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	"github.com/smallbiznis/flashmarket/internal/payment/webhook"
	"github.com/smallbiznis/flashmarket/internal/purchase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("purchase.service"),
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// HandleConfirmationEvent verifies and records a checkout confirmation.
// Only signature and persistence failures are returned as errors; anything
// else authentic is acknowledged so the processor stops redelivering.
func (s *Service) HandleConfirmationEvent(ctx context.Context, payload []byte, signatureHeader string, secrets []string) (domain.Ack, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, secrets, s.clock.Now(), webhook.DefaultTolerance)
	switch {
	case errors.Is(err, paymentdomain.ErrSignatureInvalid):
		s.log.Warn("webhook signature rejected", zap.Int("secrets", len(secrets)))
		s.metrics.RecordWebhookEvent(ctx, "", metrics.OutcomeInvalid)
		return domain.Ack{}, err
	case err != nil:
		s.log.Warn("authentic webhook could not be decoded", zap.Error(err))
		return s.ack(ctx, domain.Ack{Outcome: domain.OutcomeSkipped}), nil
	}

	ack := domain.Ack{EventID: event.ID, EventType: event.Type}
	if event.Type != paymentdomain.EventTypeCheckoutSessionCompleted {
		ack.Outcome = domain.OutcomeIgnored
		return s.ack(ctx, ack), nil
	}

	confirmation, err := domain.ExtractConfirmation(event)
	if err != nil || !confirmation.Complete() {
		ack.SessionID = confirmation.SessionID
		ack.Outcome = domain.OutcomeSkipped
		s.log.Warn("confirmation missing identifiers",
			zap.String("event_id", event.ID),
			zap.String("session_id", confirmation.SessionID),
			zap.Bool("has_buyer_email", confirmation.BuyerEmail != ""),
			zap.Bool("has_deck_id", confirmation.DeckID != ""),
		)
		return s.ack(ctx, ack), nil
	}
	ack.SessionID = confirmation.SessionID

	created, err := s.repo.Record(ctx, confirmation)
	if err != nil {
		s.log.Error("failed to record purchase",
			zap.String("event_id", event.ID),
			zap.String("session_id", confirmation.SessionID),
			zap.String("buyer_uid", confirmation.BuyerUID),
			zap.String("deck_id", confirmation.DeckID),
			zap.Error(err),
		)
		s.metrics.RecordWebhookEvent(ctx, event.Type, metrics.OutcomeFailed)
		return domain.Ack{}, &domain.PersistenceError{Err: err}
	}

	if !created {
		ack.Outcome = domain.OutcomeDuplicate
		return s.ack(ctx, ack), nil
	}

	ack.Outcome = domain.OutcomeRecorded
	s.metrics.RecordPurchase(ctx, confirmation.Currency)
	s.log.Info("purchase recorded",
		zap.String("event_id", event.ID),
		zap.String("session_id", confirmation.SessionID),
		zap.String("buyer_uid", confirmation.BuyerUID),
		zap.String("deck_id", confirmation.DeckID),
		zap.String("seller_account_id", confirmation.SellerAccountID),
	)
	return s.ack(ctx, ack), nil
}

func (s *Service) ack(ctx context.Context, ack domain.Ack) domain.Ack {
	s.metrics.RecordWebhookEvent(ctx, ack.EventType, string(ack.Outcome))
	if ack.Outcome != domain.OutcomeRecorded {
		s.log.Debug("webhook acknowledged",
			zap.String("event_id", ack.EventID),
			zap.String("event_type", ack.EventType),
			zap.String("outcome", string(ack.Outcome)),
		)
	}
	return ack
}

// HasPurchase checks both key orders; entries written by older clients
// used {deckId}__{buyerUid}.
func (s *Service) HasPurchase(ctx context.Context, buyerUID, deckID string) (bool, error) {
	buyerUID = strings.TrimSpace(buyerUID)
	deckID = strings.TrimSpace(deckID)
	if buyerUID == "" {
		return false, domain.ErrInvalidBuyer
	}
	if deckID == "" {
		return false, domain.ErrInvalidDeck
	}

	for _, id := range []string{domain.IndexID(buyerUID, deckID), domain.IndexID(deckID, buyerUID)} {
		owned, err := s.repo.FindOwnership(ctx, id)
		if err != nil {
			return false, err
		}
		if owned != nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) ListByBuyer(ctx context.Context, buyerUID string) ([]domain.Ownership, error) {
	buyerUID = strings.TrimSpace(buyerUID)
	if buyerUID == "" {
		return nil, domain.ErrInvalidBuyer
	}
	return s.repo.ListOwnership(ctx, buyerUID)
}
