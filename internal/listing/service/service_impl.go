package service

import (
	"context"
	"strings"
	"time"

	checkoutdomain "github.com/smallbiznis/flashmarket/internal/checkout/domain"
	"github.com/smallbiznis/flashmarket/internal/config"
	"github.com/smallbiznis/flashmarket/internal/listing/domain"
	sellerdomain "github.com/smallbiznis/flashmarket/internal/seller/domain"
	"github.com/smallbiznis/flashmarket/pkg/db/pagination"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	maxPageSize = 100
	// marketScanLimit caps how deep the market can be paged.
	marketScanLimit = 1000
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	Market  *config.MarketConfigHolder
	Repo    domain.Repository
	Sellers sellerdomain.Service
}

type Service struct {
	log      *zap.Logger
	market   *config.MarketConfigHolder
	repo     domain.Repository
	sellers  sellerdomain.Service
	currency string
}

func New(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Config.Stripe.Currency))
	if currency == "" {
		currency = "SGD"
	}
	return &Service{
		log:      p.Log.Named("listing.service"),
		market:   p.Market,
		repo:     p.Repo,
		sellers:  p.Sellers,
		currency: currency,
	}
}

func (s *Service) Publish(ctx context.Context, req domain.PublishRequest) (*domain.Listing, error) {
	sellerUID := strings.TrimSpace(req.SellerUID)
	deckID := strings.TrimSpace(req.DeckID)
	if sellerUID == "" {
		return nil, domain.ErrInvalidSeller
	}
	if deckID == "" || strings.Contains(deckID, "/") {
		return nil, domain.ErrInvalidDeck
	}

	account, err := s.sellers.GetPayoutAccount(ctx, sellerUID)
	if err != nil {
		return nil, err
	}
	if !account.Onboarded() {
		return nil, domain.ErrSellerNotConnected
	}

	id := domain.ListingID(sellerUID, deckID)
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	price, err := resolvePublishPrice(req.Price, existing)
	if err != nil {
		return nil, err
	}
	if existing.IsActive() && price != existing.UnitAmount {
		return nil, domain.ErrPriceLocked
	}

	var writes []docstore.Write
	if existing == nil {
		writes = append(writes, docstore.CreateOp(domain.Collection, id, s.newListingDoc(id, req, price)))
	} else if price != existing.UnitAmount {
		writes = append(writes, docstore.UpdateOp(domain.Collection, id, docstore.Document{
			"priceCents": price,
			"updatedAt":  docstore.ServerTimestamp,
		}))
	}
	writes = append(writes, docstore.UpdateOp(domain.Collection, id, docstore.Document{
		"status":    string(domain.StatusActive),
		"updatedAt": docstore.ServerTimestamp,
	}))

	if err := s.repo.Apply(ctx, writes...); err != nil {
		s.log.Error("failed to publish listing", zap.String("listing_id", id), zap.Error(err))
		return nil, err
	}
	s.log.Info("listing published",
		zap.String("listing_id", id),
		zap.Int64("price_cents", price),
		zap.Bool("created", existing == nil),
	)
	return s.Get(ctx, id)
}

func (s *Service) newListingDoc(id string, req domain.PublishRequest, price int64) docstore.Document {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = domain.DefaultTitle
	}
	emoji := strings.TrimSpace(req.CoverEmoji)
	if emoji == "" {
		emoji = domain.DefaultCoverEmoji
	}
	doc := docstore.Document{
		"listingId":   id,
		"deckId":      strings.TrimSpace(req.DeckID),
		"sellerUid":   strings.TrimSpace(req.SellerUID),
		"sellerEmail": nullable(req.SellerEmail),
		"title":       title,
		"subjectId":   nullable(req.SubjectID),
		"preview": docstore.Document{
			"cardCount":  req.CardCount,
			"coverEmoji": emoji,
		},
		"currency":   s.currency,
		"priceCents": price,
		"status":     string(domain.StatusDraft),
		"createdAt":  docstore.ServerTimestamp,
		"updatedAt":  docstore.ServerTimestamp,
	}
	return doc
}

// resolvePublishPrice takes the typed price, else the stored one.
func resolvePublishPrice(raw string, existing *domain.Listing) (int64, error) {
	if strings.TrimSpace(raw) != "" {
		cents, ok := domain.ParseMajorUnits(raw)
		if !ok {
			return 0, domain.ErrInvalidPrice
		}
		return cents, nil
	}
	if existing != nil && existing.UnitAmount > 0 {
		return existing.UnitAmount, nil
	}
	return 0, domain.ErrMissingPrice
}

func (s *Service) Unpublish(ctx context.Context, sellerUID, deckID string) (*domain.Listing, error) {
	id, err := listingKey(sellerUID, deckID)
	if err != nil {
		return nil, err
	}
	err = s.repo.Apply(ctx, docstore.UpdateOp(domain.Collection, id, docstore.Document{
		"status":    string(domain.StatusDraft),
		"updatedAt": docstore.ServerTimestamp,
	}))
	if err != nil {
		return nil, err
	}
	s.log.Info("listing unpublished", zap.String("listing_id", id))
	return s.Get(ctx, id)
}

func (s *Service) UpdatePrice(ctx context.Context, req domain.UpdatePriceRequest) (*domain.Listing, error) {
	id, err := listingKey(req.SellerUID, req.DeckID)
	if err != nil {
		return nil, err
	}
	cents, ok := domain.ParseMajorUnits(req.Price)
	if !ok {
		return nil, domain.ErrInvalidPrice
	}

	listing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Status != domain.StatusDraft {
		return nil, domain.ErrPriceLocked
	}

	err = s.repo.Apply(ctx, docstore.UpdateOp(domain.Collection, id, docstore.Document{
		"priceCents": cents,
		"updatedAt":  docstore.ServerTimestamp,
	}))
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Listing, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		return nil, domain.ErrInvalidID
	}
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrNotFound
	}
	return listing, nil
}

func (s *Service) FindActiveByDeck(ctx context.Context, deckID string) (*domain.Listing, error) {
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return nil, domain.ErrInvalidDeck
	}
	listing, err := s.repo.FindActiveByDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrNotFound
	}
	return listing, nil
}

// ListActive pages through the market. The store has no start-after
// primitive, so a page scans from the top and skips past the cursor.
func (s *Service) ListActive(ctx context.Context, req domain.ListActiveRequest) (domain.ListActiveResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.defaultPageSize()
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var cursor *pagination.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListActiveResponse{}, domain.ErrInvalidID
		}
		cursor = decoded
	}

	items, err := s.repo.ListActive(ctx, marketScanLimit)
	if err != nil {
		return domain.ListActiveResponse{}, err
	}
	items = skipPast(items, cursor)
	if len(items) > pageSize+1 {
		items = items[:pageSize+1]
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(l *domain.Listing) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        l.ID,
			UpdatedAt: docstore.FormatTime(l.UpdatedAt),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	listings := make([]domain.Listing, 0, len(items))
	for _, item := range items {
		listings = append(listings, *item)
	}
	return domain.ListActiveResponse{
		Listings:      listings,
		NextPageToken: pageInfo.NextPageToken,
		HasMore:       pageInfo.HasMore,
	}, nil
}

// skipPast drops everything up to and including the cursor item. If that
// item is gone, it falls back to dropping anything updated at or after the
// cursor time.
func skipPast(items []*domain.Listing, cursor *pagination.Cursor) []*domain.Listing {
	if cursor == nil {
		return items
	}
	for i, item := range items {
		if item.ID == cursor.ID {
			return items[i+1:]
		}
	}
	at, err := time.Parse(docstore.TimeLayout, cursor.UpdatedAt)
	if err != nil {
		return items
	}
	for i, item := range items {
		if item.UpdatedAt.Before(at) {
			return items[i:]
		}
	}
	return nil
}

func (s *Service) ListBySeller(ctx context.Context, sellerUID string) ([]domain.SellerListing, error) {
	sellerUID = strings.TrimSpace(sellerUID)
	if sellerUID == "" {
		return nil, domain.ErrInvalidSeller
	}
	items, err := s.repo.ListBySeller(ctx, sellerUID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SellerListing, 0, len(items))
	for _, item := range items {
		estimate := checkoutdomain.EstimateNet(item.UnitAmount)
		out = append(out, domain.SellerListing{
			Listing:      *item,
			PlatformFee:  estimate.PlatformFee,
			ProcessorFee: estimate.ProcessorFee,
			Net:          estimate.Net,
		})
	}
	return out, nil
}

func (s *Service) defaultPageSize() int {
	if s.market == nil {
		return 20
	}
	return s.market.Get().ListingPageSize
}

func listingKey(sellerUID, deckID string) (string, error) {
	sellerUID = strings.TrimSpace(sellerUID)
	deckID = strings.TrimSpace(deckID)
	if sellerUID == "" {
		return "", domain.ErrInvalidSeller
	}
	if deckID == "" {
		return "", domain.ErrInvalidDeck
	}
	return domain.ListingID(sellerUID, deckID), nil
}

func nullable(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}
