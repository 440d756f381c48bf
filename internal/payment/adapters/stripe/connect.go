package stripe

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
)

type oauthTokenResponse struct {
	StripeUserID string `json:"stripe_user_id"`
	Scope        string `json:"scope"`
	Livemode     bool   `json:"livemode"`
}

// AuthorizeURL builds the Connect onboarding link. State carries the
// seller uid back to the callback.
func (c *Client) AuthorizeURL(params paymentdomain.ConnectAuthorizeParams) (string, error) {
	if c.connectClientID == "" {
		return "", paymentdomain.ErrInvalidConfig
	}
	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", c.connectClientID)
	values.Set("scope", "read_write")
	values.Set("state", params.State)
	if redirect := strings.TrimSpace(params.RedirectURI); redirect != "" {
		values.Set("redirect_uri", redirect)
	}
	if email := strings.TrimSpace(params.Email); email != "" {
		values.Set("stripe_user[email]", email)
	}
	return c.connectBase + "/oauth/authorize?" + values.Encode(), nil
}

func (c *Client) ExchangeOAuthCode(ctx context.Context, code string) (string, error) {
	values := url.Values{}
	values.Set("grant_type", "authorization_code")
	values.Set("code", code)

	var token oauthTokenResponse
	if err := c.call(ctx, "oauth_token", http.MethodPost, c.connectBase+"/oauth/token", values, "", "", &token); err != nil {
		return "", err
	}
	accountID := strings.TrimSpace(token.StripeUserID)
	if accountID == "" {
		return "", &paymentdomain.GatewayError{Operation: "oauth_token", Message: "Stripe account not returned"}
	}
	return accountID, nil
}
