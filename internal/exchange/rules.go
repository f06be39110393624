package exchange

import (
	"context"
	"net/url"
	"strconv"

	"bbot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// LotRule читает LOT_SIZE фильтр инструмента: минимальный объём и шаг лота.
func (c *Client) LotRule(ctx context.Context, symbol string) (models.LotRule, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	rb, err := c.doPublic(ctx, "/api/v3/exchangeInfo", params)
	if err != nil {
		return models.LotRule{}, err
	}

	var payload struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Status  string `json:"status"`
			Filters []struct {
				FilterType string `json:"filterType"`
				MinQty     string `json:"minQty"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := sonic.Unmarshal(rb, &payload); err != nil {
		return models.LotRule{}, errors.Wrap(err, "decode exchangeInfo")
	}
	if len(payload.Symbols) == 0 {
		return models.LotRule{}, errors.Errorf("symbol %s not found", symbol)
	}

	for _, f := range payload.Symbols[0].Filters {
		if f.FilterType != "LOT_SIZE" {
			continue
		}
		minQty, err := strconv.ParseFloat(f.MinQty, 64)
		if err != nil || minQty <= 0 {
			return models.LotRule{}, errors.Errorf("bad minQty %q", f.MinQty)
		}
		step, err := strconv.ParseFloat(f.StepSize, 64)
		if err != nil || step <= 0 {
			return models.LotRule{}, errors.Errorf("bad stepSize %q", f.StepSize)
		}
		return models.LotRule{MinQty: minQty, StepSize: step}, nil
	}
	return models.LotRule{}, errors.Errorf("no LOT_SIZE filter for %s", symbol)
}
