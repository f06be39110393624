package display

import (
	"fmt"
	"math"
	"strings"

	"bbot/internal/strategy"
	"bbot/pkg/logger"
)

// SymbolRow — строка снимка по одному символу.
type SymbolRow struct {
	Symbol   string
	RSI      float64
	PrevHist float64
	Hist     float64
	Trend    strategy.Trend
	Free     float64
}

// Snapshot — полный снимок цикла мониторинга для отображения.
// Снимок только читается: обратной связи в решения нет.
type Snapshot struct {
	Rows          []SymbolRow
	BridgeAsset   string
	BridgeBalance float64
	BTCPrice      float64
	TotalProfit   float64
}

// Ranked — кандидат сканера с его RSI.
type Ranked struct {
	Symbol string
	RSI    float64
}

// Renderer — потребитель снимков. Реализация не должна влиять на
// торговый конвейер.
type Renderer interface {
	RenderMonitor(s Snapshot)
	RenderScan(top []Ranked)
}

// LogRenderer пишет компактную таблицу в лог вместо терминального UI.
type LogRenderer struct{}

func NewLogRenderer() *LogRenderer { return &LogRenderer{} }

func (r *LogRenderer) RenderMonitor(s Snapshot) {
	var b strings.Builder
	for _, row := range s.Rows {
		rsi := "--"
		if !math.IsNaN(row.RSI) {
			rsi = fmt.Sprintf("%.1f", row.RSI)
		}
		fmt.Fprintf(&b, "%s rsi=%s trend=%s free=%.6f | ", row.Symbol, rsi, row.Trend, row.Free)
	}
	logger.Info("[MONITOR] %s=%.2f btc=%.2f profit=%.2f | %s",
		s.BridgeAsset, s.BridgeBalance, s.BTCPrice, s.TotalProfit, b.String())
}

func (r *LogRenderer) RenderScan(top []Ranked) {
	if len(top) == 0 {
		logger.Info("[SCAN] no qualifying candidates")
		return
	}
	var b strings.Builder
	for _, c := range top {
		fmt.Fprintf(&b, "%s RSI=%.2f | ", c.Symbol, c.RSI)
	}
	logger.Info("[SCAN] top by RSI: %s", b.String())
}
