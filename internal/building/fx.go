package building

import (
	"github.com/mietwerk/mietwerk/internal/building/service"
	"go.uber.org/fx"
)

var Module = fx.Module("building.service",
	fx.Provide(service.New),
)
