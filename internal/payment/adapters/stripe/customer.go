package stripe

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
)

type stripeCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type stripeCustomerList struct {
	Data []stripeCustomer `json:"data"`
}

// FindOrCreateCustomer reuses the first processor customer with email.
func (c *Client) FindOrCreateCustomer(ctx context.Context, email, uid string) (paymentdomain.Customer, error) {
	email = strings.TrimSpace(email)

	query := url.Values{}
	query.Set("email", email)
	query.Set("limit", "1")
	var existing stripeCustomerList
	if err := c.call(ctx, "customer_list", http.MethodGet, c.apiBase+"/v1/customers", query, "", "", &existing); err != nil {
		return paymentdomain.Customer{}, err
	}
	if len(existing.Data) > 0 && existing.Data[0].ID != "" {
		return paymentdomain.Customer{ID: existing.Data[0].ID, Email: existing.Data[0].Email}, nil
	}

	values := url.Values{}
	values.Set("email", email)
	values.Set("metadata[uid]", uid)
	var created stripeCustomer
	if err := c.call(ctx, "customer_create", http.MethodPost, c.apiBase+"/v1/customers", values, "customer:"+uid, "", &created); err != nil {
		return paymentdomain.Customer{}, err
	}
	return paymentdomain.Customer{ID: created.ID, Email: created.Email}, nil
}
