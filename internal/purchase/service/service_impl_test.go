package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/smallbiznis/flashmarket/internal/clock"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	"github.com/smallbiznis/flashmarket/internal/payment/webhook"
	"github.com/smallbiznis/flashmarket/internal/purchase/domain"
	"github.com/smallbiznis/flashmarket/internal/purchase/repository"
	"github.com/smallbiznis/flashmarket/internal/purchase/service"
	"github.com/smallbiznis/flashmarket/internal/storage/storagetest"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "whsec_test"

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type failingStore struct {
	docstore.Store
}

func (failingStore) Commit(context.Context, ...docstore.Write) ([]docstore.WriteResult, error) {
	return nil, errors.New("connection reset")
}

func newService(t *testing.T, store docstore.Store) domain.Service {
	return service.New(service.Params{
		Log:   zap.NewNop(),
		Repo:  repository.Provide(store),
		Clock: clock.NewFakeClock(fixedNow),
	})
}

func completedEvent(t *testing.T, id string, metadata map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      id,
		"type":    paymentdomain.EventTypeCheckoutSessionCompleted,
		"created": fixedNow.Add(-time.Minute).Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":           "cs_1",
				"amount_total": 490,
				"currency":     "sgd",
				"metadata":     metadata,
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func fullMetadata() map[string]any {
	return map[string]any{
		"listingId":       "S1__D1",
		"deckId":          "D1",
		"sellerUid":       "S1",
		"buyerUid":        "U1",
		"buyerEmail":      "u1@x.com",
		"deckName":        "Biology",
		"sellerAccountId": "acct_1",
	}
}

func sign(payload []byte) string {
	return webhook.SignatureHeader(secret, payload, fixedNow)
}

func count(t *testing.T, store docstore.Store, collection string) int {
	t.Helper()
	snaps, err := store.Query(context.Background(), collection, docstore.Query{})
	require.NoError(t, err)
	return len(snaps)
}

func TestDuplicateDeliveryRecordsOnce(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	ctx := context.Background()
	payload := completedEvent(t, "evt_1", fullMetadata())

	ack, err := svc.HandleConfirmationEvent(ctx, payload, sign(payload), []string{secret})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRecorded, ack.Outcome)
	assert.Equal(t, "cs_1", ack.SessionID)

	first, err := store.Get(ctx, domain.PurchasesCollection, "cs_1")
	require.NoError(t, err)

	ack, err = svc.HandleConfirmationEvent(ctx, payload, sign(payload), []string{secret})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, ack.Outcome)

	assert.Equal(t, 1, count(t, store, domain.PurchasesCollection))
	assert.Equal(t, 1, count(t, store, domain.IndexCollection))

	second, err := store.Get(ctx, domain.PurchasesCollection, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, "u1@x.com", second.Data.String("buyerEmail"))
	assert.Equal(t, "stripe", second.Data.String("source"))
	assert.Equal(t, int64(490), second.Data.Int64("amount_total"))

	owned, err := svc.HasPurchase(ctx, "U1", "D1")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestRedeliveryUnderNewEventIDIsDuplicate(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	ctx := context.Background()

	first := completedEvent(t, "evt_1", fullMetadata())
	_, err := svc.HandleConfirmationEvent(ctx, first, sign(first), []string{secret})
	require.NoError(t, err)

	retry := completedEvent(t, "evt_2", fullMetadata())
	ack, err := svc.HandleConfirmationEvent(ctx, retry, sign(retry), []string{secret})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, ack.Outcome)
	assert.Equal(t, 1, count(t, store, domain.PurchasesCollection))
	assert.Equal(t, 2, count(t, store, domain.EventsCollection))
}

func TestIncompleteMetadataIsSkippedWithoutWrites(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	payload := completedEvent(t, "evt_1", map[string]any{"sellerUid": "S1"})

	ack, err := svc.HandleConfirmationEvent(context.Background(), payload, sign(payload), []string{secret})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, ack.Outcome)
	assert.Zero(t, count(t, store, domain.PurchasesCollection))
	assert.Zero(t, count(t, store, domain.IndexCollection))
	assert.Zero(t, count(t, store, domain.EventsCollection))
}

func TestMissingBuyerUIDSkipsIndex(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	md := fullMetadata()
	delete(md, "buyerUid")
	payload := completedEvent(t, "evt_1", md)

	ack, err := svc.HandleConfirmationEvent(context.Background(), payload, sign(payload), []string{secret})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRecorded, ack.Outcome)
	assert.Equal(t, 1, count(t, store, domain.PurchasesCollection))
	assert.Zero(t, count(t, store, domain.IndexCollection))
}

func TestInvalidSignatureIsRejected(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	payload := completedEvent(t, "evt_1", fullMetadata())
	header := webhook.SignatureHeader("whsec_other", payload, fixedNow)

	_, err := svc.HandleConfirmationEvent(context.Background(), payload, header, []string{secret, "whsec_rotated"})
	require.ErrorIs(t, err, paymentdomain.ErrSignatureInvalid)

	_, err = svc.HandleConfirmationEvent(context.Background(), payload, sign(payload), nil)
	require.ErrorIs(t, err, paymentdomain.ErrSignatureInvalid)
	assert.Zero(t, count(t, store, domain.PurchasesCollection))
}

func TestSecondSecretVerifies(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	payload := completedEvent(t, "evt_1", fullMetadata())

	ack, err := svc.HandleConfirmationEvent(context.Background(), payload, sign(payload), []string{"whsec_old", secret})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRecorded, ack.Outcome)
}

func TestOtherEventTypesAreIgnored(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	payload := []byte(`{"id":"evt_9","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`)

	ack, err := svc.HandleConfirmationEvent(context.Background(), payload, sign(payload), []string{secret})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, ack.Outcome)
	assert.Equal(t, "payment_intent.created", ack.EventType)
	assert.Zero(t, count(t, store, domain.EventsCollection))
}

func TestAuthenticGarbageIsSkipped(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	payload := []byte(`{"type":"checkout.session.completed"}`)

	ack, err := svc.HandleConfirmationEvent(context.Background(), payload, sign(payload), []string{secret})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, ack.Outcome)
}

func TestPersistenceFailureAsksForRedelivery(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, failingStore{Store: store})
	payload := completedEvent(t, "evt_1", fullMetadata())

	_, err := svc.HandleConfirmationEvent(context.Background(), payload, sign(payload), []string{secret})
	var persistErr *domain.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Zero(t, count(t, store, domain.PurchasesCollection))
}

func TestHasPurchaseChecksLegacyKeyOrder(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	ctx := context.Background()
	storagetest.Seed(t, store, domain.IndexCollection, "D7__U7", docstore.Document{"buyerUid": "U7", "deckId": "D7"})

	owned, err := svc.HasPurchase(ctx, "U7", "D7")
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = svc.HasPurchase(ctx, "U7", "D8")
	require.NoError(t, err)
	assert.False(t, owned)

	_, err = svc.HasPurchase(ctx, "", "D8")
	assert.ErrorIs(t, err, domain.ErrInvalidBuyer)
	_, err = svc.HasPurchase(ctx, "U7", " ")
	assert.ErrorIs(t, err, domain.ErrInvalidDeck)
}

func TestListByBuyerNewestFirst(t *testing.T) {
	store := storagetest.New(t, func() time.Time { return fixedNow })
	svc := newService(t, store)
	ctx := context.Background()
	storagetest.Seed(t, store, domain.IndexCollection, "U1__D1", docstore.Document{
		"buyerUid": "U1", "deckId": "D1", "createdAt": fixedNow.Add(-2 * time.Hour),
	})
	storagetest.Seed(t, store, domain.IndexCollection, "U1__D2", docstore.Document{
		"buyerUid": "U1", "deckId": "D2", "createdAt": fixedNow.Add(-time.Hour),
	})
	storagetest.Seed(t, store, domain.IndexCollection, "U2__D1", docstore.Document{
		"buyerUid": "U2", "deckId": "D1", "createdAt": fixedNow,
	})

	items, err := svc.ListByBuyer(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "D2", items[0].DeckID)
	assert.Equal(t, "D1", items[1].DeckID)
	assert.Equal(t, fixedNow.Add(-time.Hour), items[0].CreatedAt)
}
