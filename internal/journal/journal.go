package journal

import (
	"context"
	"time"

	"bbot/pkg/db"

	"github.com/jackc/pgx/v5"
)

// Entry — запись об исполненном ордере.
type Entry struct {
	Symbol   string
	Side     string
	Qty      float64
	Price    float64
	Profit   float64
	PlacedAt time.Time
}

// Journal пишет исполненные ордера в Postgres. Журнал — наблюдатель:
// ошибки записи логируются вызывающим и не влияют на торговлю.
type Journal struct {
	tm *db.PgTxManager
}

func New(tm *db.PgTxManager) *Journal {
	return &Journal{tm: tm}
}

const insertSQL = `
INSERT INTO trade_journal (symbol, side, qty, price, profit, placed_at)
VALUES ($1, $2, $3, $4, $5, $6)`

func (j *Journal) Record(ctx context.Context, e Entry) error {
	if j == nil || j.tm == nil {
		return nil
	}
	return j.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertSQL,
			e.Symbol, e.Side, e.Qty, e.Price, e.Profit, e.PlacedAt)
		return err
	})
}
