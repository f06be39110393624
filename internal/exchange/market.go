package exchange

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"bbot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// GetKlines тянет последние limit свечей символа на заданном таймфрейме.
// Binance отдаёт свечу массивом: [openTime, "o", "h", "l", "c", "v", ...].
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	rb, err := c.doPublic(ctx, "/api/v3/klines", params)
	if err != nil {
		return nil, err
	}

	var rows [][]any
	if err := sonic.Unmarshal(rb, &rows); err != nil {
		return nil, errors.Wrap(err, "decode klines")
	}

	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		ts, ok := row[0].(float64)
		if !ok {
			continue
		}
		candle := models.Candle{OpenTime: time.UnixMilli(int64(ts))}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		bad := false
		for i, dst := range fields {
			s, ok := row[i+1].(string)
			if !ok {
				bad = true
				break
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				bad = true
				break
			}
			*dst = v
		}
		if bad {
			continue
		}
		out = append(out, candle)
	}
	return out, nil
}

// Closes — цены закрытия серии.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// LastPrice — текущая цена тикера.
func (c *Client) LastPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	rb, err := c.doPublic(ctx, "/api/v3/ticker/price", params)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := sonic.Unmarshal(rb, &payload); err != nil {
		return 0, errors.Wrap(err, "decode ticker")
	}
	px, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse price %q", payload.Price)
	}
	return px, nil
}
