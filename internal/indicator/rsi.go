package indicator

import "math"

// DefaultRSIPeriod — стандартный период RSI.
const DefaultRSIPeriod = 14

// RSI считает Relative Strength Index по ценам закрытия со сглаживанием
// Уайлдера: сид — среднее первых period приростов/падений, дальше
// avg = (avg*(period-1) + x) / period. Значения до индекса period = NaN.
func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Last возвращает последний элемент серии; NaN для пустой серии.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// LastTwo возвращает предпоследний и последний элементы серии.
// Для серии из одного элемента оба значения совпадают (тренд = flat).
func LastTwo(series []float64) (prev, cur float64) {
	switch len(series) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return series[0], series[0]
	default:
		return series[len(series)-2], series[len(series)-1]
	}
}
