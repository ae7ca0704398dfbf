package summary

import (
	"github.com/smallbiznis/messledger/internal/summary/repository"
	"github.com/smallbiznis/messledger/internal/summary/service"
	"go.uber.org/fx"
)

var Module = fx.Module("summary.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
