package strategy

import "math"

// Side — сторона рыночного ордера.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trend — дискретная метка тренда по наклону гистограммы MACD.
type Trend string

const (
	TrendGrowth Trend = "growth"
	TrendFall   Trend = "fall"
	TrendFlat   Trend = "flat"
)

// ClassifyTrend сравнивает два последних значения гистограммы.
// Равенство и неопределённые значения дают flat: нет сигнала.
func ClassifyTrend(prev, cur float64) Trend {
	if math.IsNaN(prev) || math.IsNaN(cur) {
		return TrendFlat
	}
	switch {
	case cur > prev:
		return TrendGrowth
	case cur < prev:
		return TrendFall
	default:
		return TrendFlat
	}
}

// Thresholds — границы RSI-диапазона.
type Thresholds struct {
	Oversold   float64
	Overbought float64
}

// OutsideBand сообщает, стоит ли вообще оценивать символ: внутри
// диапазона [oversold, overbought] тонкая проверка не выполняется.
// Неопределённый RSI (короткая серия) — не оценивается.
func (t Thresholds) OutsideBand(rsi float64) bool {
	if math.IsNaN(rsi) {
		return false
	}
	return rsi < t.Oversold || rsi > t.Overbought
}

// Inputs — снимок данных по символу для принятия решения.
type Inputs struct {
	RSI    float64
	Trend  Trend
	Free   float64 // свободный остаток базового актива
	MinQty float64 // минимальный лот инструмента
}

// Decide — ядро автомата: BUY при перепроданности на растущем тренде без
// открытой позиции, SELL при перекупленности на падающем тренде с позицией.
// Проверки средств и профита выполняет исполнитель: здесь только сигнал.
func Decide(in Inputs, th Thresholds) Side {
	if math.IsNaN(in.RSI) {
		return SideNone
	}
	if in.RSI <= th.Oversold && in.Trend == TrendGrowth && in.Free < in.MinQty {
		return SideBuy
	}
	if in.RSI >= th.Overbought && in.Trend == TrendFall && in.Free >= in.MinQty {
		return SideSell
	}
	return SideNone
}
