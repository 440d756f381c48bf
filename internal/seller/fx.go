package seller

import (
	"github.com/smallbiznis/flashmarket/internal/seller/repository"
	"github.com/smallbiznis/flashmarket/internal/seller/service"
	"go.uber.org/fx"
)

var Module = fx.Module("seller.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
