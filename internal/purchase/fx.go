package purchase

import (
	"github.com/smallbiznis/flashmarket/internal/purchase/repository"
	"github.com/smallbiznis/flashmarket/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
