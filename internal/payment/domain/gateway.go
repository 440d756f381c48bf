package domain

import "context"

type SessionGateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (CheckoutSession, error)
}

type ConnectGateway interface {
	AuthorizeURL(params ConnectAuthorizeParams) (string, error)
	// ExchangeOAuthCode returns the connected account id.
	ExchangeOAuthCode(ctx context.Context, code string) (string, error)
}

type CustomerGateway interface {
	FindOrCreateCustomer(ctx context.Context, email, uid string) (Customer, error)
}
