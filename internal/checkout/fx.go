package checkout

import (
	"github.com/smallbiznis/flashmarket/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(service.New),
)
