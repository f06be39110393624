package position

import (
	"context"
	"testing"
	"time"

	"bbot/internal/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	free      float64
	balErr    error
	trades    []models.Trade
	tradesErr error
	gotLimit  int
}

func (f *fakeExchange) GetBalance(ctx context.Context, asset string) (float64, error) {
	return f.free, f.balErr
}

func (f *fakeExchange) MyTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	f.gotLimit = limit
	return f.trades, f.tradesErr
}

func trade(price float64, buyer bool, offset int) models.Trade {
	return models.Trade{
		Price:   price,
		Qty:     1,
		IsBuyer: buyer,
		Time:    time.Unix(int64(1700000000+offset), 0),
	}
}

func TestResolveNewestBuyWins(t *testing.T) {
	ex := &fakeExchange{
		free: 12.5,
		trades: []models.Trade{
			trade(10, true, 0),
			trade(20, true, 1),
			trade(30, false, 2), // новейшая сделка — продажа, её пропускаем
		},
	}
	r := NewResolver(ex, "USDT", 10)

	pos, err := r.Resolve(context.Background(), "XRPUSDT")
	require.NoError(t, err)
	assert.Equal(t, 12.5, pos.Free)
	assert.True(t, pos.HasBuy)
	assert.Equal(t, 20.0, pos.BuyPrice, "самая свежая покупка, не самая свежая сделка")
	assert.Equal(t, 10, ex.gotLimit)
}

func TestResolveNoBuyTrades(t *testing.T) {
	ex := &fakeExchange{
		free:   5,
		trades: []models.Trade{trade(30, false, 0)},
	}
	r := NewResolver(ex, "USDT", 10)

	pos, err := r.Resolve(context.Background(), "XRPUSDT")
	require.NoError(t, err)
	assert.Equal(t, 5.0, pos.Free)
	assert.False(t, pos.HasBuy, "нет покупок в окне — цена отсутствует")
}

func TestResolveErrorsYieldZeroPosition(t *testing.T) {
	r := NewResolver(&fakeExchange{balErr: errors.New("timeout")}, "USDT", 10)
	pos, err := r.Resolve(context.Background(), "XRPUSDT")
	assert.Error(t, err)
	assert.Equal(t, models.Position{}, pos)

	r = NewResolver(&fakeExchange{free: 3, tradesErr: errors.New("network")}, "USDT", 10)
	pos, err = r.Resolve(context.Background(), "XRPUSDT")
	assert.Error(t, err)
	assert.Equal(t, models.Position{}, pos)
}

func TestBaseAsset(t *testing.T) {
	r := NewResolver(&fakeExchange{}, "USDT", 10)
	assert.Equal(t, "XRP", r.BaseAsset("XRPUSDT"))
	assert.Equal(t, "BTC", r.BaseAsset("BTCUSDT"))
}

func TestLookbackDefault(t *testing.T) {
	ex := &fakeExchange{}
	r := NewResolver(ex, "USDT", 0)
	_, err := r.Resolve(context.Background(), "XRPUSDT")
	require.NoError(t, err)
	assert.Equal(t, 10, ex.gotLimit)
}
