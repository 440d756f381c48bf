package listing

import (
	"github.com/smallbiznis/flashmarket/internal/listing/repository"
	"github.com/smallbiznis/flashmarket/internal/listing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("listing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
