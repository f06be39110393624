package exchange

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"bbot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// PlaceMarket размещает рыночный ордер. Нулевой и отрицательный объём
// отклоняется локально, без похода на биржу. Ответ FULL содержит филлы —
// из них потом берётся средняя цена исполнения.
func (c *Client) PlaceMarket(ctx context.Context, symbol string, side string, qty float64) (models.Order, error) {
	if qty <= 0 {
		return models.Order{}, errors.Errorf("non-positive quantity %.8f", qty)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(qty, 'f', -1, 64))
	params.Set("newOrderRespType", "FULL")

	rb, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return models.Order{}, err
	}

	var payload struct {
		OrderID     int64  `json:"orderId"`
		Symbol      string `json:"symbol"`
		Side        string `json:"side"`
		ExecutedQty string `json:"executedQty"`
		Fills       []struct {
			Price      string `json:"price"`
			Qty        string `json:"qty"`
			Commission string `json:"commission"`
		} `json:"fills"`
	}
	if err := sonic.Unmarshal(rb, &payload); err != nil {
		return models.Order{}, errors.Wrap(err, "decode order")
	}

	order := models.Order{
		OrderID: payload.OrderID,
		Symbol:  payload.Symbol,
		Side:    payload.Side,
	}
	order.ExecutedQty, _ = strconv.ParseFloat(payload.ExecutedQty, 64)
	for _, f := range payload.Fills {
		px, _ := strconv.ParseFloat(f.Price, 64)
		fq, _ := strconv.ParseFloat(f.Qty, 64)
		comm, _ := strconv.ParseFloat(f.Commission, 64)
		order.Fills = append(order.Fills, models.Fill{Price: px, Qty: fq, Commission: comm})
	}
	return order, nil
}
