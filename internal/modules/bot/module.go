package bot

import (
	"context"

	"bbot/internal/display"
	"bbot/internal/exchange"
	"bbot/internal/journal"
	"bbot/internal/modules/config"
	"bbot/internal/notify"
	"bbot/internal/position"
	"bbot/internal/scanner"
	"bbot/internal/store"
	"bbot/internal/trader"
	"bbot/pkg/db"
	"bbot/pkg/logger"
	"bbot/pkg/tracing"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Module собирает все части бота и поднимает планировщик.
func Module() fx.Option {
	return fx.Module("bot",
		fx.Provide(
			newExchangeClient, // *exchange.Client

			// адаптеры: конкретный клиент под интерфейсы потребителей
			func(c *exchange.Client) trader.Exchange { return c },
			func(c *exchange.Client) scanner.Exchange { return c },

			newResolver,
			func(r *position.Resolver) trader.PositionResolver { return r },

			newPairs,
			newProfit,
			newNotifier,
			func() display.Renderer { return display.NewLogRenderer() },

			newJournal,
			func(j *journal.Journal) trader.Recorder { return j },
		),

		fx.Invoke(initTracing),
		fx.Invoke(runTickerStream),
		fx.Invoke(runScheduler),
	)
}

func newExchangeClient(cfg *config.Config) *exchange.Client {
	c := exchange.NewClient()
	c.SetCreds(cfg.APIKey, cfg.APISecret)
	return c
}

func newResolver(cfg *config.Config, c *exchange.Client) *position.Resolver {
	return position.NewResolver(c, cfg.Bridge, cfg.TradeLookback)
}

func newPairs(cfg *config.Config) *store.PairSet {
	return store.NewPairSet(cfg.PairsFile)
}

func newProfit(cfg *config.Config) *store.ProfitLedger {
	return store.NewProfitLedger(cfg.ProfitFile)
}

func newNotifier(cfg *config.Config) (notify.Notifier, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("telegram token is empty, notifications go to the log")
		return notify.NewStdout(), nil
	}
	return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
}

// newJournal подключает Postgres-журнал, если задан DSN. Без DSN
// журнал пустой и молча принимает записи.
func newJournal(lc fx.Lifecycle, cfg *config.Config) (*journal.Journal, error) {
	if cfg.DB == "" {
		return journal.New(nil), nil
	}
	pool, err := db.NewPool(context.Background(), db.PoolConfig{DSN: cfg.DB})
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	tm := db.NewPgTxManager(pool)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tm.Close()
			return nil
		},
	})
	return journal.New(tm), nil
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Jaeger.Host == "" {
		return nil
	}
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		return errors.Wrap(err, "init tracer")
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}

// runTickerStream держит цену BTC в кэше клиента для снимков.
func runTickerStream(lc fx.Lifecycle, cfg *config.Config, c *exchange.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ch := c.StreamMiniTicker(ctx, "BTC"+cfg.Bridge)
			go func() {
				for range ch {
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// runScheduler гоняет два периодических задания: цикл мониторинга
// активных пар и проход сканера-промоутера. Задания-синглтоны:
// затянувшийся цикл не накладывается сам на себя.
func runScheduler(lc fx.Lifecycle, cfg *config.Config, tr *trader.Trader, sc *scanner.Scanner) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "create scheduler")
	}

	ctx, cancel := context.WithCancel(context.Background())

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.MonitorEvery),
		gocron.NewTask(func() { tr.RunCycle(ctx) }),
		gocron.WithName("monitor"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return errors.Wrap(err, "schedule monitor job")
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.Scan.Every),
		gocron.NewTask(func() { sc.Run(ctx) }),
		gocron.WithName("scan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return errors.Wrap(err, "schedule scan job")
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting scheduler: monitor every %s, scan every %s",
				cfg.MonitorEvery, cfg.Scan.Every)
			sched.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return sched.Shutdown()
		},
	})
	return nil
}
