package position

import (
	"context"
	"strings"

	"bbot/internal/models"

	"github.com/pkg/errors"
)

// Exchange — срез биржевого клиента, нужный резолверу.
type Exchange interface {
	GetBalance(ctx context.Context, asset string) (float64, error)
	MyTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error)
}

// Resolver восстанавливает позицию по символу из живых данных биржи.
// Локального журнала позиций нет: состояние аккаунта на бирже —
// единственный источник правды, ценой ограниченной глубины истории.
type Resolver struct {
	ex       Exchange
	bridge   string
	lookback int
}

func NewResolver(ex Exchange, bridge string, lookback int) *Resolver {
	if lookback <= 0 {
		lookback = 10
	}
	return &Resolver{ex: ex, bridge: bridge, lookback: lookback}
}

// BaseAsset — базовый актив пары: символ без bridge-суффикса.
func (r *Resolver) BaseAsset(symbol string) string {
	return strings.TrimSuffix(symbol, r.bridge)
}

// Resolve возвращает свободный остаток базового актива и цену последней
// покупки из последних lookback сделок (скан от новых к старым).
// Любая ошибка запроса даёт безопасный ноль: позиция "не оценивается",
// а не "отсутствует".
func (r *Resolver) Resolve(ctx context.Context, symbol string) (models.Position, error) {
	free, err := r.ex.GetBalance(ctx, r.BaseAsset(symbol))
	if err != nil {
		return models.Position{}, errors.Wrapf(err, "balance %s", symbol)
	}

	trades, err := r.ex.MyTrades(ctx, symbol, r.lookback)
	if err != nil {
		return models.Position{}, errors.Wrapf(err, "trades %s", symbol)
	}

	pos := models.Position{Free: free}
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].IsBuyer {
			pos.BuyPrice = trades[i].Price
			pos.HasBuy = true
			break
		}
	}
	return pos, nil
}
