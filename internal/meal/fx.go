package meal

import (
	"github.com/smallbiznis/messledger/internal/meal/repository"
	"github.com/smallbiznis/messledger/internal/meal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
