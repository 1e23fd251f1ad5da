package meter

import (
	"github.com/mietwerk/mietwerk/internal/meter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meter.service",
	fx.Provide(service.New),
)
