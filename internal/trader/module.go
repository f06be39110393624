package trader

import "go.uber.org/fx"

// Module собирает трейдера из уже предоставленных зависимостей.
func Module() fx.Option {
	return fx.Module("trader",
		fx.Provide(
			New,
		),
	)
}
