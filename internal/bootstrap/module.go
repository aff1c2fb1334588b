package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"brainwave/internal/config"
	"brainwave/internal/router"
	"brainwave/internal/usecase"
)

const buildTimeout = 15 * time.Second

// Module provides Services and its parts to an fx graph that supplies
// config.Config and *slog.Logger. Services are closed on stop.
var Module = fx.Options(
	fx.Provide(
		ProvideServices,
		func(s Services) *router.Bus { return s.Bus },
		func(s Services) *usecase.Controller { return s.Controller },
	),
)

func ProvideServices(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (Services, error) {
	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	services, err := Build(ctx, cfg, logger)
	if err != nil {
		return Services{}, err
	}
	lc.Append(fx.Hook{
		OnStop: services.Close,
	})
	return services, nil
}
