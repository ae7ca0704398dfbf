package mess

import (
	"github.com/smallbiznis/messledger/internal/mess/repository"
	"github.com/smallbiznis/messledger/internal/mess/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mess.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
