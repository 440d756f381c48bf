package stripe

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
)

type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params paymentdomain.CheckoutSessionParams) (paymentdomain.CheckoutSession, error) {
	values, account := checkoutSessionValues(params)

	var session stripeCheckoutSession
	err := c.call(ctx, "checkout_session_create", http.MethodPost,
		c.apiBase+"/v1/checkout/sessions", values, params.IdempotencyKey, account, &session)
	if err != nil {
		return paymentdomain.CheckoutSession{}, err
	}
	if session.URL == "" {
		return paymentdomain.CheckoutSession{}, &paymentdomain.GatewayError{
			Operation: "checkout_session_create",
			Message:   "stripe_response_invalid",
		}
	}
	return paymentdomain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// checkoutSessionValues form-encodes the session and returns the connected
// account the request must run under, if any.
func checkoutSessionValues(params paymentdomain.CheckoutSessionParams) (url.Values, string) {
	mode := params.Mode
	if mode == "" {
		mode = "payment"
	}
	quantity := params.LineItem.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	values := url.Values{}
	values.Set("mode", mode)
	values.Set("payment_method_types[]", "card")
	if email := strings.TrimSpace(params.CustomerEmail); email != "" {
		values.Set("customer_email", email)
	}
	values.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	values.Set("line_items[0][price_data][product_data][name]", params.LineItem.Name)
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.LineItem.UnitAmount, 10))
	values.Set("line_items[0][quantity]", strconv.FormatInt(quantity, 10))
	values.Set("success_url", params.SuccessURL)
	values.Set("cancel_url", params.CancelURL)
	for key, value := range params.Metadata {
		values.Set("metadata["+key+"]", value)
	}
	values.Set("payment_intent_data[application_fee_amount]", strconv.FormatInt(params.ApplicationFee, 10))

	var account string
	switch params.ChargeMode {
	case paymentdomain.ChargeModeDirect:
		account = params.Destination
	default:
		values.Set("payment_intent_data[transfer_data][destination]", params.Destination)
	}
	return values, account
}
