package stripe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/smallbiznis/flashmarket/internal/config"
	"github.com/smallbiznis/flashmarket/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultFailureMessage = "stripe_request_failed"

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// oauthErrorResponse is the Connect token endpoint shape, which differs
// from the REST API.
type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// apiError keeps the HTTP status so the breaker can tell a rejected
// request from an unhealthy processor.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Client struct {
	apiKey          string
	apiBase         string
	connectBase     string
	connectClientID string
	client          *http.Client
	breaker         *gobreaker.CircuitBreaker[[]byte]
	metrics         *metrics.Metrics
	log             *zap.Logger
}

var (
	_ paymentdomain.SessionGateway  = (*Client)(nil)
	_ paymentdomain.ConnectGateway  = (*Client)(nil)
	_ paymentdomain.CustomerGateway = (*Client)(nil)
)

func New(p Params) (*Client, error) {
	apiKey := strings.TrimSpace(p.Config.Stripe.SecretKey)
	if apiKey == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	timeout := time.Duration(p.Config.Stripe.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	log := p.Log.Named("payment.stripe")

	return &Client{
		apiKey:          apiKey,
		apiBase:         orDefault(p.Config.Stripe.APIBase, "https://api.stripe.com"),
		connectBase:     orDefault(p.Config.Stripe.ConnectBase, "https://connect.stripe.com"),
		connectClientID: strings.TrimSpace(p.Config.Stripe.ConnectClientID),
		client:          &http.Client{Timeout: timeout},
		breaker:         newBreaker(log),
		metrics:         p.Metrics,
		log:             log,
	}, nil
}

// call runs one processor request behind the breaker and decodes the
// response into out. Every failure comes back as *GatewayError.
func (c *Client) call(
	ctx context.Context,
	operation string,
	method string,
	endpoint string,
	values url.Values,
	idempotencyKey string,
	account string,
	out any,
) error {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, method, endpoint, values, idempotencyKey, account)
	})
	outcome := "success"
	defer func() {
		c.metrics.ObserveGatewayCall(ctx, operation, outcome, time.Since(start))
	}()

	if err != nil {
		outcome = "failure"
		message := err.Error()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
			message = "payment processor temporarily unavailable"
		}
		c.log.Warn("stripe request failed",
			zap.String("operation", operation),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return &paymentdomain.GatewayError{Operation: operation, Message: message, Err: err}
	}

	if err := json.Unmarshal(body, out); err != nil {
		outcome = "failure"
		return &paymentdomain.GatewayError{Operation: operation, Message: "stripe_response_invalid", Err: err}
	}
	return nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	endpoint string,
	values url.Values,
	idempotencyKey string,
	account string,
) ([]byte, error) {
	var bodyReader io.Reader
	if method != http.MethodGet && values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else if values != nil {
		endpoint += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if account != "" {
		req.Header.Set("Stripe-Account", account)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &apiError{status: resp.StatusCode, message: errorMessage(raw)}
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var stripeErr stripeErrorResponse
	if err := json.Unmarshal(raw, &stripeErr); err == nil {
		if message := strings.TrimSpace(stripeErr.Error.Message); message != "" {
			return message
		}
	}
	var oauthErr oauthErrorResponse
	if err := json.Unmarshal(raw, &oauthErr); err == nil {
		if message := strings.TrimSpace(oauthErr.ErrorDescription); message != "" {
			return message
		}
		if message := strings.TrimSpace(oauthErr.Error); message != "" {
			return message
		}
	}
	return defaultFailureMessage
}

func orDefault(value, def string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return def
	}
	return value
}
