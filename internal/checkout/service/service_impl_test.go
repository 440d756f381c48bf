package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flashmarket/internal/checkout/domain"
	"github.com/smallbiznis/flashmarket/internal/checkout/service"
	"github.com/smallbiznis/flashmarket/internal/config"
	listingdomain "github.com/smallbiznis/flashmarket/internal/listing/domain"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	sellerdomain "github.com/smallbiznis/flashmarket/internal/seller/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type listingMock struct {
	mock.Mock
}

func (m *listingMock) Publish(ctx context.Context, req listingdomain.PublishRequest) (*listingdomain.Listing, error) {
	args := m.Called(ctx, req)
	return listingResult(args)
}

func (m *listingMock) Unpublish(ctx context.Context, sellerUID, deckID string) (*listingdomain.Listing, error) {
	args := m.Called(ctx, sellerUID, deckID)
	return listingResult(args)
}

func (m *listingMock) UpdatePrice(ctx context.Context, req listingdomain.UpdatePriceRequest) (*listingdomain.Listing, error) {
	args := m.Called(ctx, req)
	return listingResult(args)
}

func (m *listingMock) Get(ctx context.Context, id string) (*listingdomain.Listing, error) {
	args := m.Called(ctx, id)
	return listingResult(args)
}

func (m *listingMock) FindActiveByDeck(ctx context.Context, deckID string) (*listingdomain.Listing, error) {
	args := m.Called(ctx, deckID)
	return listingResult(args)
}

func (m *listingMock) ListActive(ctx context.Context, req listingdomain.ListActiveRequest) (listingdomain.ListActiveResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(listingdomain.ListActiveResponse), args.Error(1)
}

func (m *listingMock) ListBySeller(ctx context.Context, sellerUID string) ([]listingdomain.SellerListing, error) {
	args := m.Called(ctx, sellerUID)
	items, _ := args.Get(0).([]listingdomain.SellerListing)
	return items, args.Error(1)
}

func listingResult(args mock.Arguments) (*listingdomain.Listing, error) {
	l, _ := args.Get(0).(*listingdomain.Listing)
	return l, args.Error(1)
}

type sellerMock struct {
	mock.Mock
}

func (m *sellerMock) AuthorizeURL(ctx context.Context, req sellerdomain.AuthorizeRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *sellerMock) CompleteOAuth(ctx context.Context, code, state string) (*sellerdomain.PayoutAccount, error) {
	args := m.Called(ctx, code, state)
	account, _ := args.Get(0).(*sellerdomain.PayoutAccount)
	return account, args.Error(1)
}

func (m *sellerMock) GetPayoutAccount(ctx context.Context, uid string) (*sellerdomain.PayoutAccount, error) {
	args := m.Called(ctx, uid)
	account, _ := args.Get(0).(*sellerdomain.PayoutAccount)
	return account, args.Error(1)
}

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) CreateCheckoutSession(ctx context.Context, params paymentdomain.CheckoutSessionParams) (paymentdomain.CheckoutSession, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(paymentdomain.CheckoutSession), args.Error(1)
}

type fixture struct {
	svc      domain.Service
	listings *listingMock
	sellers  *sellerMock
	gateway  *gatewayMock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := fixture{listings: &listingMock{}, sellers: &sellerMock{}, gateway: &gatewayMock{}}
	cfg := config.Config{Stripe: config.StripeConfig{Currency: "sgd", ChargeMode: config.ChargeModeDestination}}
	f.svc = service.New(service.Params{
		Log:      zap.NewNop(),
		Config:   cfg,
		Market:   config.StaticMarketConfig(config.MarketConfig{SiteURL: "https://flashpro.test"}),
		GenID:    node,
		Listings: f.listings,
		Sellers:  f.sellers,
		Gateway:  f.gateway,
	})
	return f
}

func activeListing() *listingdomain.Listing {
	return &listingdomain.Listing{
		ID:        "L1",
		DeckID:    "D1",
		SellerUID: "S1",
		Title:     "Biology",
		Status:    listingdomain.StatusActive,
		Raw:       map[string]any{"priceCents": float64(490)},
	}
}

func validRequest() domain.CreateSessionRequest {
	return domain.CreateSessionRequest{ListingID: "L1", BuyerUID: "U1", BuyerEmail: "u1@x.com"}
}

func TestCreateSessionBuildsDestinationCharge(t *testing.T) {
	f := newFixture(t)
	f.listings.On("Get", mock.Anything, "L1").Return(activeListing(), nil)
	f.sellers.On("GetPayoutAccount", mock.Anything, "S1").
		Return(&sellerdomain.PayoutAccount{UID: "S1", StripeAccountID: "acct_1"}, nil)

	var sent paymentdomain.CheckoutSessionParams
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(paymentdomain.CheckoutSessionParams) }).
		Return(paymentdomain.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil)

	resp, err := f.svc.CreateSession(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", resp.URL)
	assert.Equal(t, "cs_1", resp.SessionID)

	assert.Equal(t, int64(490), sent.LineItem.UnitAmount)
	assert.Equal(t, int64(59), sent.ApplicationFee)
	assert.Equal(t, "acct_1", sent.Destination)
	assert.Equal(t, "sgd", sent.Currency)
	assert.Equal(t, "https://flashpro.test/checkout/success?session_id={CHECKOUT_SESSION_ID}", sent.SuccessURL)
	assert.Equal(t, "L1", sent.Metadata[domain.MetaListingID])
	assert.Equal(t, "U1", sent.Metadata[domain.MetaBuyerUID])
	assert.NotEmpty(t, sent.Metadata[domain.MetaAttemptID])
	assert.Equal(t, sent.Metadata[domain.MetaAttemptID], sent.IdempotencyKey)
}

func TestCreateSessionFallsBackToDeck(t *testing.T) {
	f := newFixture(t)
	f.listings.On("FindActiveByDeck", mock.Anything, "D1").Return(activeListing(), nil)
	f.sellers.On("GetPayoutAccount", mock.Anything, "S1").
		Return(&sellerdomain.PayoutAccount{UID: "S1", StripeAccountID: "acct_1"}, nil)
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(paymentdomain.CheckoutSession{ID: "cs_2", URL: "https://checkout.stripe.test/cs_2"}, nil)

	resp, err := f.svc.CreateSession(context.Background(), domain.CreateSessionRequest{
		DeckID: "D1", BuyerUID: "U1", BuyerEmail: "u1@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_2", resp.SessionID)
	f.listings.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)
	cases := []domain.CreateSessionRequest{
		{BuyerUID: "U1", BuyerEmail: "u1@x.com"},
		{ListingID: "L1", BuyerEmail: "u1@x.com"},
		{ListingID: "L1", BuyerUID: "U1", BuyerEmail: "  "},
	}
	for _, req := range cases {
		_, err := f.svc.CreateSession(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	f.listings.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCreateSessionMissingListing(t *testing.T) {
	f := newFixture(t)
	f.listings.On("Get", mock.Anything, "L1").Return(nil, listingdomain.ErrNotFound)

	_, err := f.svc.CreateSession(context.Background(), validRequest())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.sellers.AssertNotCalled(t, "GetPayoutAccount", mock.Anything, mock.Anything)
}

func TestCreateSessionSellerNotOnboardedNeverCallsGateway(t *testing.T) {
	f := newFixture(t)
	f.listings.On("Get", mock.Anything, "L1").Return(activeListing(), nil)
	f.sellers.On("GetPayoutAccount", mock.Anything, "S1").Return(&sellerdomain.PayoutAccount{UID: "S1"}, nil)

	_, err := f.svc.CreateSession(context.Background(), validRequest())
	assert.ErrorIs(t, err, domain.ErrSellerNotOnboarded)
	f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCreateSessionWrapsGatewayFailures(t *testing.T) {
	f := newFixture(t)
	f.listings.On("Get", mock.Anything, "L1").Return(activeListing(), nil)
	f.sellers.On("GetPayoutAccount", mock.Anything, "S1").
		Return(&sellerdomain.PayoutAccount{UID: "S1", StripeAccountID: "acct_1"}, nil)
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(paymentdomain.CheckoutSession{}, errors.New("dial tcp: timeout"))

	_, err := f.svc.CreateSession(context.Background(), validRequest())
	var gwErr *paymentdomain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "dial tcp: timeout", gwErr.Message)
}

func TestCreateSessionKeepsProcessorMessage(t *testing.T) {
	f := newFixture(t)
	f.listings.On("Get", mock.Anything, "L1").Return(activeListing(), nil)
	f.sellers.On("GetPayoutAccount", mock.Anything, "S1").
		Return(&sellerdomain.PayoutAccount{UID: "S1", StripeAccountID: "acct_1"}, nil)
	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(paymentdomain.CheckoutSession{}, &paymentdomain.GatewayError{Message: "No such destination: 'acct_1'"})

	_, err := f.svc.CreateSession(context.Background(), validRequest())
	var gwErr *paymentdomain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "No such destination: 'acct_1'", gwErr.Error())
}
