package trader

import (
	"context"
	"runtime"
	"sync"
	"time"

	"bbot/internal/display"
	"bbot/internal/exchange"
	"bbot/internal/indicator"
	"bbot/internal/journal"
	"bbot/internal/models"
	"bbot/internal/modules/config"
	"bbot/internal/notify"
	"bbot/internal/store"
	"bbot/internal/strategy"
	"bbot/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// parallelismWait — пауза перед повторной проверкой, если доступный
// параллелизм внезапно нулевой. Ждём, а не крутимся.
const parallelismWait = 5 * time.Second

// Exchange — срез биржевого клиента для цикла мониторинга.
type Exchange interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	AccountBalances(ctx context.Context) (map[string]models.Balance, error)
	GetBalance(ctx context.Context, asset string) (float64, error)
	LotRule(ctx context.Context, symbol string) (models.LotRule, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
	GetPrice(symbol string) float64
	PlaceMarket(ctx context.Context, symbol string, side string, qty float64) (models.Order, error)
}

// PositionResolver восстанавливает позицию по символу.
type PositionResolver interface {
	Resolve(ctx context.Context, symbol string) (models.Position, error)
	BaseAsset(symbol string) string
}

// Recorder — журнал исполненных ордеров (опционален).
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Trader гоняет цикл мониторинга: грубый скрининг RSI по всем активным
// парам, тонкое подтверждение тренда и исполнение ордеров. Ошибки по
// одному символу изолированы и не мешают остальным.
type Trader struct {
	cfg    *config.Config
	ex     Exchange
	pos    PositionResolver
	pairs  *store.PairSet
	profit *store.ProfitLedger
	n      notify.Notifier
	rend   display.Renderer
	jr     Recorder
}

func New(
	cfg *config.Config,
	ex Exchange,
	pos PositionResolver,
	pairs *store.PairSet,
	profit *store.ProfitLedger,
	n notify.Notifier,
	rend display.Renderer,
	jr Recorder,
) *Trader {
	return &Trader{
		cfg:    cfg,
		ex:     ex,
		pos:    pos,
		pairs:  pairs,
		profit: profit,
		n:      n,
		rend:   rend,
		jr:     jr,
	}
}

func (t *Trader) thresholds() strategy.Thresholds {
	return strategy.Thresholds{
		Oversold:   t.cfg.RSIOversold,
		Overbought: t.cfg.RSIOverbought,
	}
}

type symbolData struct {
	rsi      float64
	prevHist float64
	hist     float64
}

// RunCycle — один проход мониторинга. Никогда не возвращает ошибку:
// любой сбой этого цикла — повод дождаться следующего, не падать.
func (t *Trader) RunCycle(ctx context.Context) {
	span := opentracing.StartSpan("monitor.cycle")
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	symbols, err := t.pairs.Load()
	if err != nil {
		logger.Error("load active pairs: %v", err)
		return
	}

	data := t.fetchAll(ctx, symbols)
	t.renderSnapshot(ctx, symbols, data)

	th := t.thresholds()
	for _, symbol := range symbols {
		d, ok := data[symbol]
		if !ok {
			continue
		}
		if !th.OutsideBand(d.rsi) {
			continue
		}
		t.evaluate(ctx, symbol, d.rsi)
	}
}

// fetchAll параллельно тянет грубые свечи и считает индикаторы по всем
// символам. Пул ограничен min(len(symbols), GOMAXPROCS).
func (t *Trader) fetchAll(ctx context.Context, symbols []string) map[string]symbolData {
	out := make(map[string]symbolData, len(symbols))
	if len(symbols) == 0 {
		return out
	}

	workers := availableWorkers(len(symbols))
	sem := make(chan struct{}, workers)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, symbol := range symbols {
		symbol := symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			candles, err := t.ex.GetKlines(ctx, symbol, t.cfg.Interval, t.cfg.Limit)
			if err != nil {
				logger.Error("klines %s: %v", symbol, err)
				return
			}
			if need := minSeriesLen(); len(candles) < need {
				logger.Warn("candle series for %s too short (%d < %d), skipping", symbol, len(candles), need)
				return
			}
			closes := exchange.Closes(candles)
			rsi := indicator.Last(indicator.RSI(closes, indicator.DefaultRSIPeriod))
			prev, cur := indicator.LastTwo(indicator.MACDHistogram(
				closes, indicator.DefaultMACDFast, indicator.DefaultMACDSlow, indicator.DefaultMACDSignal))

			mu.Lock()
			out[symbol] = symbolData{rsi: rsi, prevHist: prev, hist: cur}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// minSeriesLen — минимальная длина серии, на которой RSI и гистограмма
// MACD определены; более короткие серии не дают решения в этом цикле.
func minSeriesLen() int {
	return indicator.MinSeriesLen(
		indicator.DefaultRSIPeriod, indicator.DefaultMACDSlow, indicator.DefaultMACDSignal)
}

func availableWorkers(symbols int) int {
	workers := 0
	for workers <= 0 {
		if p := runtime.GOMAXPROCS(0); p > 0 {
			workers = p
			break
		}
		logger.Warn("available parallelism is zero, waiting")
		time.Sleep(parallelismWait)
	}
	if symbols < workers {
		workers = symbols
	}
	return workers
}

func (t *Trader) renderSnapshot(ctx context.Context, symbols []string, data map[string]symbolData) {
	if t.rend == nil {
		return
	}

	balances, err := t.ex.AccountBalances(ctx)
	if err != nil {
		logger.Error("account balances: %v", err)
	}

	btcSymbol := "BTC" + t.cfg.Bridge
	btc := t.ex.GetPrice(btcSymbol)
	if btc == 0 {
		if px, err := t.ex.LastPrice(ctx, btcSymbol); err == nil {
			btc = px
		}
	}

	total, err := t.profit.Load()
	if err != nil {
		logger.Error("load profit ledger: %v", err)
	}

	snap := display.Snapshot{
		BridgeAsset:   t.cfg.Bridge,
		BridgeBalance: balances[t.cfg.Bridge].Total(),
		BTCPrice:      btc,
		TotalProfit:   total,
	}
	for _, symbol := range symbols {
		d := data[symbol]
		snap.Rows = append(snap.Rows, display.SymbolRow{
			Symbol:   symbol,
			RSI:      d.rsi,
			PrevHist: d.prevHist,
			Hist:     d.hist,
			Trend:    strategy.ClassifyTrend(d.prevHist, d.hist),
			Free:     balances[t.pos.BaseAsset(symbol)].Free,
		})
	}
	t.rend.RenderMonitor(snap)
}

// evaluate — тонкая проверка одного символа: свежие свечи тонкого
// таймфрейма, тренд по гистограмме, позиция и стороны ордера.
func (t *Trader) evaluate(ctx context.Context, symbol string, coarseRSI float64) {
	fine, err := t.ex.GetKlines(ctx, symbol, t.cfg.FineInterval, t.cfg.Limit)
	if err != nil {
		logger.Error("fine klines %s: %v", symbol, err)
		return
	}
	if need := minSeriesLen(); len(fine) < need {
		logger.Warn("fine series for %s too short (%d < %d)", symbol, len(fine), need)
		return
	}
	fineCloses := exchange.Closes(fine)
	prev, cur := indicator.LastTwo(indicator.MACDHistogram(
		fineCloses, indicator.DefaultMACDFast, indicator.DefaultMACDSlow, indicator.DefaultMACDSignal))
	trend := strategy.ClassifyTrend(prev, cur)

	rule, err := t.ex.LotRule(ctx, symbol)
	if err != nil {
		logger.Error("lot rule %s: %v", symbol, err)
		return
	}

	pos, err := t.pos.Resolve(ctx, symbol)
	if err != nil {
		// позицию не восстановили — символ в этом цикле не оценивается
		logger.Error("resolve position %s: %v", symbol, err)
		return
	}

	side := strategy.Decide(strategy.Inputs{
		RSI:    coarseRSI,
		Trend:  trend,
		Free:   pos.Free,
		MinQty: rule.MinQty,
	}, t.thresholds())

	switch side {
	case strategy.SideBuy:
		t.executeBuy(ctx, symbol, fineCloses[len(fineCloses)-1], rule)
	case strategy.SideSell:
		t.executeSell(ctx, symbol, pos, rule)
	}
}

func (t *Trader) executeBuy(ctx context.Context, symbol string, price float64, rule models.LotRule) {
	if price <= 0 {
		logger.Error("buy %s: non-positive price %.8f", symbol, price)
		return
	}

	bridgeBalance, err := t.ex.GetBalance(ctx, t.cfg.Bridge)
	if err != nil {
		logger.Error("bridge balance: %v", err)
		return
	}
	if bridgeBalance < t.cfg.QtyToInvest {
		logger.Error("insufficient funds to buy %s: have %.2f %s, need %.2f",
			symbol, bridgeBalance, t.cfg.Bridge, t.cfg.QtyToInvest)
		return
	}

	qty := Quantize(t.cfg.QtyToInvest/price, rule.StepSize, rule.MinQty)
	if qty*price > bridgeBalance {
		logger.Error("buy %s: quantized notional %.2f exceeds balance %.2f",
			symbol, qty*price, bridgeBalance)
		return
	}

	order, err := t.ex.PlaceMarket(ctx, symbol, string(strategy.SideBuy), qty)
	if err != nil {
		// повторов в этом цикле нет: следующий цикл попробует заново
		logger.Error("place buy %s: %v", symbol, err)
		return
	}

	fill := order.AvgFillPrice()
	if fill <= 0 {
		fill = price
	}
	logger.Warn("bought %.8f %s @ %.8f", qty, t.pos.BaseAsset(symbol), fill)
	t.n.Sendf("📈 Покупка %.6f %s по цене %.6f", qty, t.pos.BaseAsset(symbol), fill)
	t.record(ctx, journal.Entry{
		Symbol: symbol, Side: string(strategy.SideBuy),
		Qty: qty, Price: fill, PlacedAt: time.Now().UTC(),
	})
}

func (t *Trader) executeSell(ctx context.Context, symbol string, pos models.Position, rule models.LotRule) {
	if !pos.HasBuy {
		logger.Error("sell %s: no buy price in trade history, cannot evaluate", symbol)
		return
	}

	current, err := t.ex.LastPrice(ctx, symbol)
	if err != nil {
		logger.Error("ticker %s: %v", symbol, err)
		return
	}

	qty := Quantize(pos.Free, rule.StepSize, rule.MinQty)
	projected := Profit(current, pos.BuyPrice, qty, t.cfg.CommissionRate)
	if projected < t.cfg.MinProfit() {
		logger.Error("sell %s skipped: profit %.2f %s below minimum %.2f %s",
			symbol, projected, t.cfg.Bridge, t.cfg.MinProfit(), t.cfg.Bridge)
		return
	}

	order, err := t.ex.PlaceMarket(ctx, symbol, string(strategy.SideSell), qty)
	if err != nil {
		logger.Error("place sell %s: %v", symbol, err)
		return
	}

	sellPrice := order.AvgFillPrice()
	if sellPrice <= 0 {
		sellPrice = current
	}
	realized := Profit(sellPrice, pos.BuyPrice, qty, t.cfg.CommissionRate)

	total, err := t.profit.Add(realized)
	if err != nil {
		logger.Error("update profit ledger: %v", err)
	}
	if _, err := t.pairs.Remove(symbol); err != nil {
		logger.Error("remove %s from active pairs: %v", symbol, err)
	}

	logger.Warn("sold %.8f %s @ %.8f, profit %.2f, total %.2f", qty, t.pos.BaseAsset(symbol), sellPrice, realized, total)
	t.n.Sendf("📉 Продано %.6f %s по %.6f с профитом %.2f %s",
		qty, t.pos.BaseAsset(symbol), sellPrice, realized, t.cfg.Bridge)
	t.record(ctx, journal.Entry{
		Symbol: symbol, Side: string(strategy.SideSell),
		Qty: qty, Price: sellPrice, Profit: realized, PlacedAt: time.Now().UTC(),
	})
}

func (t *Trader) record(ctx context.Context, e journal.Entry) {
	if t.jr == nil {
		return
	}
	if err := t.jr.Record(ctx, e); err != nil {
		logger.Error("journal %s %s: %v", e.Side, e.Symbol, err)
	}
}
