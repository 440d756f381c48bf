package payment

import (
	"github.com/smallbiznis/flashmarket/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.gateway",
	fx.Provide(stripe.New),
	fx.Provide(
		func(c *stripe.Client) paymentdomain.SessionGateway { return c },
		func(c *stripe.Client) paymentdomain.ConnectGateway { return c },
		func(c *stripe.Client) paymentdomain.CustomerGateway { return c },
	),
)
