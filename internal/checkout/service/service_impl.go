package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flashmarket/internal/checkout/domain"
	"github.com/smallbiznis/flashmarket/internal/config"
	listingdomain "github.com/smallbiznis/flashmarket/internal/listing/domain"
	"github.com/smallbiznis/flashmarket/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	sellerdomain "github.com/smallbiznis/flashmarket/internal/seller/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Market   *config.MarketConfigHolder
	GenID    *snowflake.Node
	Listings listingdomain.Service
	Sellers  sellerdomain.Service
	Gateway  paymentdomain.SessionGateway
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	market     *config.MarketConfigHolder
	genID      *snowflake.Node
	listings   listingdomain.Service
	sellers    sellerdomain.Service
	gateway    paymentdomain.SessionGateway
	metrics    *metrics.Metrics
	currency   string
	chargeMode paymentdomain.ChargeMode
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("checkout.service"),
		market:     p.Market,
		genID:      p.GenID,
		listings:   p.Listings,
		sellers:    p.Sellers,
		gateway:    p.Gateway,
		metrics:    p.Metrics,
		currency:   p.Config.Stripe.Currency,
		chargeMode: paymentdomain.ChargeMode(p.Config.Stripe.ChargeMode),
	}
}

func (s *Service) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (domain.CreateSessionResponse, error) {
	listingID := strings.TrimSpace(req.ListingID)
	deckID := strings.TrimSpace(req.DeckID)
	buyer := domain.Buyer{
		UID:   strings.TrimSpace(req.BuyerUID),
		Email: strings.TrimSpace(req.BuyerEmail),
	}
	if (listingID == "" && deckID == "") || buyer.UID == "" || buyer.Email == "" {
		s.reject(ctx, domain.ErrValidation)
		return domain.CreateSessionResponse{}, domain.ErrValidation
	}

	listing, err := s.loadListing(ctx, listingID, deckID)
	if err != nil {
		s.record(ctx, metrics.OutcomeFailed, "listing_lookup", 0, 0)
		return domain.CreateSessionResponse{}, err
	}

	var seller *sellerdomain.PayoutAccount
	if listing != nil && listing.SellerUID != "" {
		seller, err = s.sellers.GetPayoutAccount(ctx, listing.SellerUID)
		if err != nil {
			s.record(ctx, metrics.OutcomeFailed, "seller_lookup", 0, 0)
			return domain.CreateSessionResponse{}, err
		}
	}

	attemptID := s.genID.Generate().String()
	request, err := domain.BuildCheckoutRequest(listing, seller, buyer, domain.Options{
		DeckIDHint: deckID,
		Origin:     domain.ResolveOrigin(s.siteURL(), req.OriginHeader),
		Currency:   s.currency,
		ChargeMode: s.chargeMode,
		AttemptID:  attemptID,
	})
	if err != nil {
		s.log.Info("checkout rejected",
			zap.String("listing_id", listingID),
			zap.String("deck_id", deckID),
			zap.String("buyer_uid", buyer.UID),
			zap.Error(err),
		)
		s.reject(ctx, err)
		return domain.CreateSessionResponse{}, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, request.Session)
	if err != nil {
		s.log.Error("checkout session create failed",
			zap.String("listing_id", listing.ID),
			zap.String("seller_uid", listing.SellerUID),
			zap.String("buyer_uid", buyer.UID),
			zap.String("attempt_id", attemptID),
			zap.Error(err),
		)
		s.record(ctx, metrics.OutcomeFailed, "gateway", 0, 0)
		var gwErr *paymentdomain.GatewayError
		if !errors.As(err, &gwErr) {
			err = &paymentdomain.GatewayError{Operation: "checkout_session_create", Message: err.Error(), Err: err}
		}
		return domain.CreateSessionResponse{}, err
	}

	s.log.Info("checkout session created",
		zap.String("listing_id", listing.ID),
		zap.String("buyer_uid", buyer.UID),
		zap.String("session_id", session.ID),
		zap.String("attempt_id", attemptID),
		zap.Int64("unit_amount", request.UnitAmount),
		zap.Int64("platform_fee", request.Split.FeeCents),
		zap.String("charge_mode", string(request.Session.ChargeMode)),
	)
	s.record(ctx, metrics.OutcomeCreated, "", request.UnitAmount, request.Split.FeeCents)

	return domain.CreateSessionResponse{URL: session.URL, SessionID: session.ID}, nil
}

// loadListing prefers the listing id and falls back to the active listing
// for the deck. A missing listing is nil, nil.
func (s *Service) loadListing(ctx context.Context, listingID, deckID string) (*listingdomain.Listing, error) {
	var (
		listing *listingdomain.Listing
		err     error
	)
	if listingID != "" {
		listing, err = s.listings.Get(ctx, listingID)
	} else {
		listing, err = s.listings.FindActiveByDeck(ctx, deckID)
	}
	if errors.Is(err, listingdomain.ErrNotFound) {
		return nil, nil
	}
	return listing, err
}

func (s *Service) siteURL() string {
	if s.market == nil {
		return ""
	}
	return s.market.Get().SiteURL
}

func (s *Service) reject(ctx context.Context, err error) {
	s.record(ctx, metrics.OutcomeRejected, err.Error(), 0, 0)
}

func (s *Service) record(ctx context.Context, outcome, reason string, amount, fee int64) {
	s.metrics.RecordCheckoutSession(ctx, outcome, reason, s.currency, amount, fee)
}
