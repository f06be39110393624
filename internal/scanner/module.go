package scanner

import "go.uber.org/fx"

// Module собирает сканер из уже предоставленных зависимостей.
func Module() fx.Option {
	return fx.Module("scanner",
		fx.Provide(
			New,
		),
	)
}
