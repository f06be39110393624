package trader

import "math"

// Quantize приводит объём к шагу лота (вниз, с поправкой на плавающую
// точку) и поднимает до минимального лота. Идемпотентна: повторная
// квантизация возвращает то же значение.
func Quantize(qty, step, minQty float64) float64 {
	if step > 0 {
		steps := math.Floor(qty/step + 1e-9)
		qty = steps * step
	}
	if qty < minQty {
		qty = minQty
	}
	return qty
}

// Profit — чистый профит продажи: (sell − buy) * qty минус комиссия,
// взятая один раз от суммы продажи. Комиссия покупки отдельно не
// моделируется — известное упрощение, сохранённое намеренно.
func Profit(sellPrice, buyPrice, qty, commissionRate float64) float64 {
	return (sellPrice-buyPrice)*qty - commissionRate*sellPrice*qty
}
