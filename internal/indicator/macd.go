package indicator

import "math"

// Стандартные периоды MACD(12, 26, 9).
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACDHistogram возвращает гистограмму MACD: разность линии MACD
// (EMA(fast) − EMA(slow)) и её сигнальной EMA. Значения до прогрева
// (slow + signal − 2 свечей) = NaN.
func MACDHistogram(closes []float64, fast, slow, signal int) []float64 {
	out := nanSeries(len(closes))
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return out
	}
	if len(closes) < slow+signal-1 {
		return out
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	// Линия MACD определена с индекса slow-1.
	macd := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macd = append(macd, emaFast[i]-emaSlow[i])
	}

	signalLine := EMA(macd, signal)
	for i, s := range signalLine {
		if math.IsNaN(s) {
			continue
		}
		out[slow-1+i] = macd[i] - s
	}
	return out
}

// MinSeriesLen — минимальная длина серии, при которой определены и RSI,
// и гистограмма MACD.
func MinSeriesLen(rsiPeriod, slow, signal int) int {
	need := rsiPeriod + 1
	if m := slow + signal - 1; m > need {
		need = m
	}
	return need
}
