package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bbot/internal/display"
	"bbot/internal/models"
	"bbot/internal/modules/config"
	"bbot/internal/store"
	"bbot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { logger.Init() }

type fakeExchange struct {
	mu     sync.Mutex
	closes map[string][]float64
	calls  map[string]int
}

func (f *fakeExchange) GetKlines(_ context.Context, symbol, _ string, _ int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	closes := f.closes[symbol]
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Close: c}
	}
	return out, nil
}

func (f *fakeExchange) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

type nopNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *nopNotifier) Send(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *nopNotifier) Sendf(format string, _ ...any) { n.Send(format) }

type spyRenderer struct {
	mu     sync.Mutex
	ranked [][]display.Ranked
}

func (r *spyRenderer) RenderMonitor(display.Snapshot) {}

func (r *spyRenderer) RenderScan(top []display.Ranked) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranked = append(r.ranked, top)
}

func (r *spyRenderer) lastRanked() []display.Ranked {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ranked) == 0 {
		return nil
	}
	return r.ranked[len(r.ranked)-1]
}

func falling(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 200 - float64(i)
	}
	return out
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

// fallingWithBounces — падающая серия с редкими отскоками: RSI низкий,
// но строго выше нуля.
func fallingWithBounces(n int) []float64 {
	out := make([]float64, n)
	px := 200.0
	for i := range out {
		if i%5 == 4 {
			px += 0.5
		} else {
			px -= 1
		}
		out[i] = px
	}
	return out
}

// choppyDecline — пила с нисходящим дрейфом: чередование потерь и
// отскоков держит RSI заметно выше нуля, а цена остаётся под SMA.
func choppyDecline(n int) []float64 {
	out := make([]float64, n)
	px := 200.0
	for i := range out {
		if i%2 == 1 {
			px += 0.6
		} else {
			px -= 1
		}
		out[i] = px
	}
	return out
}

func scanConfig(t *testing.T, universe []string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	universeFile := filepath.Join(dir, "scan_list")
	var body []byte
	for _, s := range universe {
		body = append(body, []byte(s+"\n")...)
	}
	require.NoError(t, os.WriteFile(universeFile, body, 0o644))

	return &config.Config{
		Bridge:    "USDT",
		Interval:  "1h",
		PairsFile: filepath.Join(dir, "trading_pairs.txt"),
		Scan: config.ScanConfig{
			UniverseFile: universeFile,
			Capacity:     5,
			RSIToAdd:     30,
			SMAPeriod:    20,
			Limit:        60,
			CacheTTL:     time.Minute,
			PollDelay:    time.Millisecond,
		},
	}
}

func newTestScanner(t *testing.T, cfg *config.Config, fe *fakeExchange) (*Scanner, *store.PairSet, *nopNotifier) {
	t.Helper()
	pairs := store.NewPairSet(cfg.PairsFile)
	n := &nopNotifier{}
	s := New(cfg, fe, pairs, n, nil)
	return s, pairs, n
}

func TestRunPromotesLowestRSI(t *testing.T) {
	cfg := scanConfig(t, []string{"AAAUSDT", "BBBUSDT", "CCCUSDT"})
	fe := &fakeExchange{closes: map[string][]float64{
		"AAAUSDT": fallingWithBounces(60), // низкий RSI, но не ноль
		"BBBUSDT": falling(60),            // RSI = 0, самый перепроданный
		"CCCUSDT": rising(60),             // перекуплен, фильтруется
	}}
	s, pairs, n := newTestScanner(t, cfg, fe)

	s.Run(context.Background())

	active, err := pairs.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"BBBUSDT"}, active)
	assert.Len(t, n.msgs, 1)
}

func TestRunPromotesAtMostOnePerPass(t *testing.T) {
	cfg := scanConfig(t, []string{"AAAUSDT", "BBBUSDT"})
	fe := &fakeExchange{closes: map[string][]float64{
		"AAAUSDT": fallingWithBounces(60),
		"BBBUSDT": falling(60),
	}}
	s, pairs, _ := newTestScanner(t, cfg, fe)

	s.Run(context.Background())

	nActive, err := pairs.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, nActive)
}

func TestRunSkipsAlreadyActive(t *testing.T) {
	cfg := scanConfig(t, []string{"AAAUSDT", "BBBUSDT"})
	fe := &fakeExchange{closes: map[string][]float64{
		"AAAUSDT": falling(60),
		"BBBUSDT": falling(60),
	}}
	s, pairs, _ := newTestScanner(t, cfg, fe)
	_, err := pairs.Add("AAAUSDT")
	require.NoError(t, err)

	s.Run(context.Background())

	assert.Zero(t, fe.callCount("AAAUSDT"))
	active, err := pairs.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAUSDT", "BBBUSDT"}, active)
}

func TestRunCachesWithinTTL(t *testing.T) {
	cfg := scanConfig(t, []string{"AAAUSDT"})
	fe := &fakeExchange{closes: map[string][]float64{"AAAUSDT": rising(60)}}
	s, _, _ := newTestScanner(t, cfg, fe)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Run(context.Background())
	s.Run(context.Background())
	assert.Equal(t, 1, fe.callCount("AAAUSDT"))

	clock = clock.Add(2 * time.Minute)
	s.Run(context.Background())
	assert.Equal(t, 2, fe.callCount("AAAUSDT"))
}

func TestRunWaitsWhileAtCapacity(t *testing.T) {
	cfg := scanConfig(t, []string{"BBBUSDT"})
	cfg.Scan.Capacity = 1
	fe := &fakeExchange{closes: map[string][]float64{"BBBUSDT": falling(60)}}
	s, pairs, _ := newTestScanner(t, cfg, fe)
	_, err := pairs.Add("AAAUSDT")
	require.NoError(t, err)

	polls := 0
	s.sleep = func(time.Duration) {
		polls++
		// место освобождается во время ожидания
		_, _ = pairs.Remove("AAAUSDT")
	}

	s.Run(context.Background())

	assert.Equal(t, 1, polls)
	active, err := pairs.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"BBBUSDT"}, active)
}

func TestRunAtCapacityStopsOnCancel(t *testing.T) {
	cfg := scanConfig(t, []string{"BBBUSDT"})
	cfg.Scan.Capacity = 1
	fe := &fakeExchange{closes: map[string][]float64{"BBBUSDT": falling(60)}}
	s, pairs, _ := newTestScanner(t, cfg, fe)
	_, err := pairs.Add("AAAUSDT")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	assert.Zero(t, fe.callCount("BBBUSDT"))
}

func TestRunSMAFilterBlocksPromotion(t *testing.T) {
	// давний спад, затем плато: RSI у нуля, но последняя цена уже не
	// ниже SMA — кандидат не попадает ни в рейтинг, ни в набор.
	closes := make([]float64, 60)
	for i := 0; i < 40; i++ {
		closes[i] = 200 - 2*float64(i)
	}
	for i := 40; i < 60; i++ {
		closes[i] = closes[39]
	}
	cfg := scanConfig(t, []string{"AAAUSDT"})
	fe := &fakeExchange{closes: map[string][]float64{"AAAUSDT": closes}}
	pairs := store.NewPairSet(cfg.PairsFile)
	rend := &spyRenderer{}
	s := New(cfg, fe, pairs, &nopNotifier{}, rend)

	s.Run(context.Background())

	assert.Empty(t, rend.lastRanked())
	nActive, err := pairs.Len()
	require.NoError(t, err)
	assert.Zero(t, nActive)
}

func TestRunExcludesAboveMeanFromRanking(t *testing.T) {
	cfg := scanConfig(t, []string{"CCCUSDT"})
	fe := &fakeExchange{closes: map[string][]float64{"CCCUSDT": rising(60)}}
	pairs := store.NewPairSet(cfg.PairsFile)
	rend := &spyRenderer{}
	s := New(cfg, fe, pairs, &nopNotifier{}, rend)

	s.Run(context.Background())

	assert.Empty(t, rend.lastRanked())
	nActive, err := pairs.Len()
	require.NoError(t, err)
	assert.Zero(t, nActive)
}

func TestRunRanksAboveThresholdWithoutPromoting(t *testing.T) {
	cfg := scanConfig(t, []string{"AAAUSDT"})
	fe := &fakeExchange{closes: map[string][]float64{"AAAUSDT": choppyDecline(60)}}
	pairs := store.NewPairSet(cfg.PairsFile)
	rend := &spyRenderer{}
	n := &nopNotifier{}
	s := New(cfg, fe, pairs, n, rend)

	s.Run(context.Background())

	ranked := rend.lastRanked()
	require.Len(t, ranked, 1)
	assert.Equal(t, "AAAUSDT", ranked[0].Symbol)
	assert.Greater(t, ranked[0].RSI, cfg.Scan.RSIToAdd)

	nActive, err := pairs.Len()
	require.NoError(t, err)
	assert.Zero(t, nActive)
	assert.Empty(t, n.msgs)
}

func TestRunEmptyUniverse(t *testing.T) {
	cfg := scanConfig(t, nil)
	fe := &fakeExchange{}
	s, pairs, n := newTestScanner(t, cfg, fe)

	s.Run(context.Background())

	nActive, err := pairs.Len()
	require.NoError(t, err)
	assert.Zero(t, nActive)
	assert.Empty(t, n.msgs)
}
