package domain_test

import (
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	"github.com/smallbiznis/flashmarket/internal/purchase/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(object string) paymentdomain.Event {
	return paymentdomain.Event{
		ID:      "evt_1",
		Type:    paymentdomain.EventTypeCheckoutSessionCompleted,
		Created: 1741944413,
		Account: "acct_direct",
		Data:    paymentdomain.EventData{Object: []byte(object)},
	}
}

func TestExtractConfirmationPrefersCanonicalKeys(t *testing.T) {
	c, err := domain.ExtractConfirmation(event(`{
		"id": "cs_1",
		"amount_total": 490,
		"currency": "SGD",
		"customer_email": "fallback@x.com",
		"customer_details": {"email": "details@x.com"},
		"metadata": {
			"deckDocId": "D1", "deckId": "D-old",
			"buyerUid": "U1", "uid": "U-old",
			"buyerEmail": "u1@x.com",
			"deckName": "Biology", "title": "Old title",
			"sellerAccountId": "acct_1",
			"listingId": "S1__D1"
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "cs_1", c.SessionID)
	assert.Equal(t, "D1", c.DeckID)
	assert.Equal(t, "U1", c.BuyerUID)
	assert.Equal(t, "u1@x.com", c.BuyerEmail)
	assert.Equal(t, "Biology", c.DeckName)
	assert.Equal(t, "acct_1", c.SellerAccountID)
	assert.Equal(t, "S1__D1", c.ListingID)
	assert.Equal(t, "sgd", c.Currency)
	require.NotNil(t, c.AmountTotal)
	assert.Equal(t, int64(490), *c.AmountTotal)
	assert.Equal(t, time.Unix(1741944413, 0).UTC(), c.CreatedAt)
	assert.True(t, c.Complete())
}

func TestExtractConfirmationFallsBack(t *testing.T) {
	c, err := domain.ExtractConfirmation(event(`{
		"id": "cs_2",
		"customer_details": {"email": "details@x.com"},
		"metadata": {"deckId": "D2", "uid": "U2", "title": "Chem"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "D2", c.DeckID)
	assert.Equal(t, "U2", c.BuyerUID)
	assert.Equal(t, "details@x.com", c.BuyerEmail)
	assert.Equal(t, "Chem", c.DeckName)
	assert.Equal(t, "acct_direct", c.SellerAccountID)
	assert.Equal(t, domain.DefaultCurrency, c.Currency)
	assert.Nil(t, c.AmountTotal)
}

func TestExtractConfirmationIncomplete(t *testing.T) {
	c, err := domain.ExtractConfirmation(event(`{"id": "cs_3", "customer_email": "a@x.com"}`))
	require.NoError(t, err)
	assert.False(t, c.Complete())

	_, err = domain.ExtractConfirmation(event(`[1,2]`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}
