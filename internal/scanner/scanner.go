package scanner

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"bbot/internal/display"
	"bbot/internal/exchange"
	"bbot/internal/indicator"
	"bbot/internal/models"
	"bbot/internal/modules/config"
	"bbot/internal/notify"
	"bbot/internal/store"
	"bbot/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// Exchange — всё, что нужно сканеру от биржи.
type Exchange interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}

type cacheEntry struct {
	closes    []float64
	fetchedAt time.Time
}

// Scanner перебирает вселенную кандидатов и продвигает не больше одной
// пары за проход: символ с минимальным RSI ниже порога и ценой под
// длинной SMA. Свечи кандидатов кешируются на TTL, чтобы частые
// проходы не выжигали лимиты API.
type Scanner struct {
	cfg      *config.Config
	interval string
	ex       Exchange
	pairs    *store.PairSet
	n        notify.Notifier
	rend     display.Renderer

	mu    sync.Mutex
	cache map[string]cacheEntry

	now   func() time.Time
	sleep func(time.Duration)
}

func New(cfg *config.Config, ex Exchange, pairs *store.PairSet, n notify.Notifier, rend display.Renderer) *Scanner {
	return &Scanner{
		cfg:      cfg,
		interval: cfg.Interval,
		ex:       ex,
		pairs:    pairs,
		n:        n,
		rend:     rend,
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Run — один проход сканера. Пока активный набор заполнен до отказа,
// проход ждёт освобождения места, не сжигая кандидатов впустую.
func (s *Scanner) Run(ctx context.Context) {
	span := opentracing.StartSpan("scan.pass")
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	if !s.waitForCapacity(ctx) {
		return
	}

	universe, err := store.ReadSymbols(s.cfg.Scan.UniverseFile)
	if err != nil {
		logger.Error("read scan universe: %v", err)
		return
	}
	if len(universe) == 0 {
		logger.Warn("scan universe %s is empty", s.cfg.Scan.UniverseFile)
		return
	}

	candidates := s.screen(ctx, universe)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].RSI < candidates[j].RSI })
	if s.rend != nil {
		s.rend.RenderScan(candidates)
	}
	if len(candidates) == 0 {
		return
	}

	s.promote(candidates[0])
}

func (s *Scanner) waitForCapacity(ctx context.Context) bool {
	for {
		n, err := s.pairs.Len()
		if err != nil {
			logger.Error("read active pairs: %v", err)
			return false
		}
		if n < s.cfg.Scan.Capacity {
			return true
		}
		logger.Info("active set full (%d/%d), waiting", n, s.cfg.Scan.Capacity)
		select {
		case <-ctx.Done():
			return false
		default:
		}
		s.sleep(s.cfg.Scan.PollDelay)
	}
}

// screen отбирает кандидатов: последняя цена ниже длинной SMA (возврат
// к среднему). Порог RSI применяется не здесь, а при продвижении: в
// рейтинг попадают все перепроданные относительно SMA символы. Уже
// активные пары не рассматриваются.
func (s *Scanner) screen(ctx context.Context, universe []string) []display.Ranked {
	var out []display.Ranked

	workers := runtime.GOMAXPROCS(0)
	if workers <= 0 {
		workers = 1
	}
	if len(universe) < workers {
		workers = len(universe)
	}
	sem := make(chan struct{}, workers)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, symbol := range universe {
		symbol := symbol
		active, err := s.pairs.Contains(symbol)
		if err != nil || active {
			if err != nil {
				logger.Error("check active set: %v", err)
			}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			closes, err := s.closes(ctx, symbol)
			if err != nil {
				logger.Error("scan klines %s: %v", symbol, err)
				return
			}
			if len(closes) == 0 {
				return
			}

			rsi := indicator.Last(indicator.RSI(closes, indicator.DefaultRSIPeriod))
			sma := indicator.Last(indicator.SMA(closes, s.cfg.Scan.SMAPeriod))
			last := closes[len(closes)-1]
			if math.IsNaN(rsi) || math.IsNaN(sma) {
				return
			}
			if last >= sma {
				return
			}

			mu.Lock()
			out = append(out, display.Ranked{Symbol: symbol, RSI: rsi})
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// closes возвращает цены закрытия кандидата, из кеша при живом TTL.
func (s *Scanner) closes(ctx context.Context, symbol string) ([]float64, error) {
	s.mu.Lock()
	e, ok := s.cache[symbol]
	s.mu.Unlock()
	if ok && s.now().Sub(e.fetchedAt) < s.cfg.Scan.CacheTTL {
		return e.closes, nil
	}

	candles, err := s.ex.GetKlines(ctx, symbol, s.interval, s.cfg.Scan.Limit)
	if err != nil {
		return nil, err
	}
	closes := exchange.Closes(candles)

	s.mu.Lock()
	s.cache[symbol] = cacheEntry{closes: closes, fetchedAt: s.now()}
	s.mu.Unlock()
	return closes, nil
}

func (s *Scanner) promote(best display.Ranked) {
	if best.RSI > s.cfg.Scan.RSIToAdd {
		return
	}
	added, err := s.pairs.Add(best.Symbol)
	if err != nil {
		logger.Error("promote %s: %v", best.Symbol, err)
		return
	}
	if !added {
		return
	}
	logger.Warn("promoted %s to active set, RSI %.2f", best.Symbol, best.RSI)
	s.n.Sendf("🆕 Пара %s добавлена в мониторинг, RSI %.2f", best.Symbol, best.RSI)
}
