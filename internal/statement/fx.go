package statement

import (
	"github.com/smallbiznis/rentsoft/internal/statement/repository"
	"github.com/smallbiznis/rentsoft/internal/statement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("statement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
