package exchange

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bbot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// AccountBalances возвращает ненулевые балансы аккаунта по активам.
func (c *Client) AccountBalances(ctx context.Context) (map[string]models.Balance, error) {
	rb, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", nil)
	if err != nil {
		return nil, err
	}

	var payload accountResponse
	if err := sonic.Unmarshal(rb, &payload); err != nil {
		return nil, errors.Wrap(err, "decode account")
	}

	out := make(map[string]models.Balance)
	for _, b := range payload.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		if free+locked <= 0 {
			continue
		}
		out[b.Asset] = models.Balance{Asset: b.Asset, Free: free, Locked: locked}
	}
	return out, nil
}

// GetBalance — свободный остаток одного актива; 0 если актива нет.
func (c *Client) GetBalance(ctx context.Context, asset string) (float64, error) {
	balances, err := c.AccountBalances(ctx)
	if err != nil {
		return 0, err
	}
	return balances[asset].Free, nil
}

// MyTrades — последние limit сделок по символу, от старых к новым,
// как отдаёт биржа.
func (c *Client) MyTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	rb, err := c.doSigned(ctx, http.MethodGet, "/api/v3/myTrades", params)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Price   string `json:"price"`
		Qty     string `json:"qty"`
		IsBuyer bool   `json:"isBuyer"`
		Time    int64  `json:"time"`
	}
	if err := sonic.Unmarshal(rb, &rows); err != nil {
		return nil, errors.Wrap(err, "decode trades")
	}

	out := make([]models.Trade, 0, len(rows))
	for _, r := range rows {
		px, err := strconv.ParseFloat(r.Price, 64)
		if err != nil {
			continue
		}
		qty, _ := strconv.ParseFloat(r.Qty, 64)
		out = append(out, models.Trade{
			Price:   px,
			Qty:     qty,
			IsBuyer: r.IsBuyer,
			Time:    time.UnixMilli(r.Time),
		})
	}
	return out, nil
}
