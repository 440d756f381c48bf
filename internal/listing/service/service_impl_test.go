package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/flashmarket/internal/clock"
	"github.com/smallbiznis/flashmarket/internal/config"
	"github.com/smallbiznis/flashmarket/internal/listing/domain"
	"github.com/smallbiznis/flashmarket/internal/listing/repository"
	"github.com/smallbiznis/flashmarket/internal/listing/service"
	sellerdomain "github.com/smallbiznis/flashmarket/internal/seller/domain"
	"github.com/smallbiznis/flashmarket/internal/storage/storagetest"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

type fixture struct {
	svc     domain.Service
	store   docstore.Store
	clock   *clock.FakeClock
	sellers *sellerMock
}

func newFixture(t *testing.T) fixture {
	clk := clock.NewFakeClock(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	store := storagetest.New(t, clk.Now)
	sellers := &sellerMock{}
	sellers.On("GetPayoutAccount", mock.Anything, "S1").
		Return(&sellerdomain.PayoutAccount{UID: "S1", StripeAccountID: "acct_1"}, nil).Maybe()
	sellers.On("GetPayoutAccount", mock.Anything, "S2").
		Return(&sellerdomain.PayoutAccount{UID: "S2"}, nil).Maybe()

	svc := service.New(service.Params{
		Log:     zap.NewNop(),
		Config:  config.Config{Stripe: config.StripeConfig{Currency: "sgd"}},
		Market:  config.StaticMarketConfig(config.MarketConfig{ListingPageSize: 2, SiteURL: "https://flash.example"}),
		Repo:    repository.Provide(store),
		Sellers: sellers,
	})
	return fixture{svc: svc, store: store, clock: clk, sellers: sellers}
}

func TestPublishCreatesActiveListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	listing, err := f.svc.Publish(ctx, domain.PublishRequest{
		SellerUID: "S1",
		DeckID:    "D1",
		Title:     "Organic Chem",
		Price:     "4.90",
	})
	require.NoError(t, err)
	assert.Equal(t, "S1__D1", listing.ID)
	assert.Equal(t, domain.StatusActive, listing.Status)
	assert.Equal(t, int64(490), listing.UnitAmount)
	assert.Equal(t, "sgd", listing.Currency)
	assert.Equal(t, domain.DefaultCoverEmoji, listing.CoverEmoji)

	snap, err := f.store.Get(ctx, domain.Collection, "S1__D1")
	require.NoError(t, err)
	assert.Equal(t, "S1__D1", snap.Data.String("listingId"))
	assert.Equal(t, "SGD", snap.Data.String("currency"))
	assert.Nil(t, snap.Data["sellerEmail"])
}

func TestPublishRequiresConnectedSeller(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Publish(context.Background(), domain.PublishRequest{SellerUID: "S2", DeckID: "D1", Price: "5"})
	assert.ErrorIs(t, err, domain.ErrSellerNotConnected)
}

func TestPublishPriceRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: "D1"})
	assert.ErrorIs(t, err, domain.ErrMissingPrice)
	_, err = f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: "D1", Price: "-2"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: "D1", Price: "5"})
	require.NoError(t, err)

	// active listings keep their price
	_, err = f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: "D1", Price: "7"})
	assert.ErrorIs(t, err, domain.ErrPriceLocked)
	_, err = f.svc.UpdatePrice(ctx, domain.UpdatePriceRequest{SellerUID: "S1", DeckID: "D1", Price: "7"})
	assert.ErrorIs(t, err, domain.ErrPriceLocked)

	// republishing without a price is a no-op on price
	listing, err := f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: "D1"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), listing.UnitAmount)

	listing, err = f.svc.Unpublish(ctx, "S1", "D1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, listing.Status)

	listing, err = f.svc.UpdatePrice(ctx, domain.UpdatePriceRequest{SellerUID: "S1", DeckID: "D1", Price: "7.25"})
	require.NoError(t, err)
	assert.Equal(t, int64(725), listing.UnitAmount)

	listing, err = f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: "D1", Price: "8"})
	require.NoError(t, err)
	assert.Equal(t, int64(800), listing.UnitAmount)
	assert.True(t, listing.IsActive())
}

func TestUnpublishMissingListing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Unpublish(context.Background(), "S1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindActiveByDeck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	storagetest.Seed(t, f.store, domain.Collection, "S9__D1", docstore.Document{"deckId": "D1", "sellerUid": "S9", "status": "draft", "priceCents": 300})

	_, err := f.svc.FindActiveByDeck(ctx, "D1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: "D1", Price: "3"})
	require.NoError(t, err)

	listing, err := f.svc.FindActiveByDeck(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, "S1__D1", listing.ID)
}

func TestListActivePages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, deck := range []string{"D1", "D2", "D3"} {
		f.clock.Advance(time.Minute)
		_, err := f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: deck, Price: "2"})
		require.NoError(t, err)
	}

	page, err := f.svc.ListActive(ctx, domain.ListActiveRequest{})
	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	assert.Equal(t, "S1__D3", page.Listings[0].ID)
	assert.Equal(t, "S1__D2", page.Listings[1].ID)
	assert.True(t, page.HasMore)

	page, err = f.svc.ListActive(ctx, domain.ListActiveRequest{PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "S1__D1", page.Listings[0].ID)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextPageToken)

	_, err = f.svc.ListActive(ctx, domain.ListActiveRequest{PageToken: "%%%"})
	assert.Error(t, err)
}

func TestListBySellerIncludesEstimate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Publish(ctx, domain.PublishRequest{SellerUID: "S1", DeckID: "D1", Price: "4.90"})
	require.NoError(t, err)

	items, err := f.svc.ListBySeller(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(59), items[0].PlatformFee)
	assert.Equal(t, int64(67), items[0].ProcessorFee)
	assert.Equal(t, int64(364), items[0].Net)
}

func TestGetValidatesID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), "a/b")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
