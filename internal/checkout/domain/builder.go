package domain

import (
	"strings"

	listingdomain "github.com/smallbiznis/flashmarket/internal/listing/domain"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	sellerdomain "github.com/smallbiznis/flashmarket/internal/seller/domain"
)

const (
	DefaultCurrency  = "sgd"
	DefaultLineTitle = "FlashPro Deck"
	DefaultOrigin    = "http://localhost:3000"
)

// Metadata keys attached to the session and read back by the reconciler.
const (
	MetaListingID       = "listingId"
	MetaDeckID          = "deckId"
	MetaSellerUID       = "sellerUid"
	MetaBuyerUID        = "buyerUid"
	MetaBuyerEmail      = "buyerEmail"
	MetaDeckName        = "deckName"
	MetaSellerAccountID = "sellerAccountId"
	MetaAttemptID       = "attemptId"
)

type Buyer struct {
	UID   string
	Email string
}

type Options struct {
	// DeckIDHint is the deck the buyer believes they are paying for.
	DeckIDHint string
	Origin     string
	Currency   string
	ChargeMode paymentdomain.ChargeMode
	AttemptID  string
}

type Request struct {
	Session    paymentdomain.CheckoutSessionParams
	Split      Split
	UnitAmount int64
}

// BuildCheckoutRequest checks the purchase preconditions in a fixed order
// and assembles the session. The first failing check decides the error.
func BuildCheckoutRequest(
	listing *listingdomain.Listing,
	seller *sellerdomain.PayoutAccount,
	buyer Buyer,
	opts Options,
) (Request, error) {
	if listing == nil {
		return Request{}, ErrNotFound
	}
	if !listing.IsActive() {
		return Request{}, ErrInvalidState
	}
	if listing.DeckID == "" || listing.SellerUID == "" {
		return Request{}, ErrMalformedRecord
	}
	if hint := strings.TrimSpace(opts.DeckIDHint); hint != "" && hint != listing.DeckID {
		return Request{}, ErrConflict
	}
	if !seller.Onboarded() {
		return Request{}, ErrSellerNotOnboarded
	}
	amount := listingdomain.ResolveUnitAmount(listing.Raw)
	if amount <= 0 {
		return Request{}, ErrInvalidPrice
	}

	split := ComputeSplit(amount, PlatformFeeRate)
	origin := strings.TrimRight(strings.TrimSpace(opts.Origin), "/")
	if origin == "" {
		origin = DefaultOrigin
	}
	currency := strings.ToLower(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	chargeMode := opts.ChargeMode
	if chargeMode == "" {
		chargeMode = paymentdomain.ChargeModeDestination
	}
	title := strings.TrimSpace(listing.Title)
	if title == "" {
		title = DefaultLineTitle
	}

	metadata := map[string]string{
		MetaListingID:       listing.ID,
		MetaDeckID:          listing.DeckID,
		MetaSellerUID:       listing.SellerUID,
		MetaBuyerUID:        buyer.UID,
		MetaBuyerEmail:      buyer.Email,
		MetaDeckName:        title,
		MetaSellerAccountID: seller.StripeAccountID,
	}
	if opts.AttemptID != "" {
		metadata[MetaAttemptID] = opts.AttemptID
	}

	return Request{
		Session: paymentdomain.CheckoutSessionParams{
			Mode:     "payment",
			Currency: currency,
			LineItem: paymentdomain.LineItem{
				Name:       title,
				UnitAmount: amount,
				Quantity:   1,
			},
			SuccessURL:     origin + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:      origin + "/checkout/cancel",
			CustomerEmail:  buyer.Email,
			Metadata:       metadata,
			ApplicationFee: split.FeeCents,
			Destination:    seller.StripeAccountID,
			ChargeMode:     chargeMode,
			IdempotencyKey: opts.AttemptID,
		},
		Split:      split,
		UnitAmount: amount,
	}, nil
}

// ResolveOrigin picks the base for redirect URLs. A configured site URL
// wins over the request Origin header.
func ResolveOrigin(siteURL, originHeader string) string {
	if siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/"); siteURL != "" {
		return siteURL
	}
	if originHeader = strings.TrimRight(strings.TrimSpace(originHeader), "/"); originHeader != "" && originHeader != "null" {
		return originHeader
	}
	return DefaultOrigin
}
