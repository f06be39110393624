package models

import "time"

// Candle — одна свеча OHLCV.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Balance — баланс одного актива на бирже.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

func (b Balance) Total() float64 { return b.Free + b.Locked }

// Trade — сделка из истории аккаунта.
type Trade struct {
	Price   float64
	Qty     float64
	IsBuyer bool
	Time    time.Time
}

// LotRule — LOT_SIZE фильтр инструмента: минимальный объём и шаг.
type LotRule struct {
	MinQty   float64
	StepSize float64
}

// Fill — частичное исполнение рыночного ордера.
type Fill struct {
	Price      float64
	Qty        float64
	Commission float64
}

// Order — результат размещения ордера.
type Order struct {
	OrderID     int64
	Symbol      string
	Side        string
	ExecutedQty float64
	Fills       []Fill
}

// AvgFillPrice возвращает средневзвешенную цену исполнения.
// Если объёмы не заполнены — цену первого филла.
func (o Order) AvgFillPrice() float64 {
	if len(o.Fills) == 0 {
		return 0
	}
	var sumQty, sumCost float64
	for _, f := range o.Fills {
		sumQty += f.Qty
		sumCost += f.Price * f.Qty
	}
	if sumQty <= 0 {
		return o.Fills[0].Price
	}
	return sumCost / sumQty
}

// Position — позиция по символу, восстановленная из баланса и истории сделок.
// HasBuy=false означает "последняя цена покупки неизвестна": продажа
// в этом цикле не оценивается.
type Position struct {
	Free     float64
	BuyPrice float64
	HasBuy   bool
}
