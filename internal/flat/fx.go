package flat

import (
	"github.com/mietwerk/mietwerk/internal/flat/service"
	"go.uber.org/fx"
)

var Module = fx.Module("flat.service",
	fx.Provide(service.New),
)
