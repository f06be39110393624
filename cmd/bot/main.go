package main

import (
	"context"
	"log"

	"bbot/internal/modules/bot"
	"bbot/internal/modules/config"
	"bbot/internal/scanner"
	"bbot/internal/trader"
	"bbot/pkg/logger"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("bbot")

	app := fx.New(
		config.Module(),
		trader.Module(),
		scanner.Module(),
		bot.Module(),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
}
