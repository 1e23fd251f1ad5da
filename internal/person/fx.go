package person

import (
	"github.com/mietwerk/mietwerk/internal/person/service"
	"go.uber.org/fx"
)

var Module = fx.Module("person.service",
	fx.Provide(service.New),
)
