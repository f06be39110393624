package exchange

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// StreamMiniTicker подписывается на miniTicker символа и складывает
// последнюю цену в кэш клиента. Реконнект с нарастающей задержкой,
// после 8 неудачных попыток подряд стрим закрывается.
func (c *Client) StreamMiniTicker(ctx context.Context, symbol string) <-chan float64 {
	ch := make(chan float64)
	go func() {
		defer close(ch)
		url := c.wsURL + "/ws/" + strings.ToLower(symbol) + "@miniTicker"
		retry := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			conn, _, err := c.wsDialer.Dial(url, nil)
			if err != nil {
				retry++
				if retry > 8 {
					return
				}
				time.Sleep(time.Duration(300*retry) * time.Millisecond)
				continue
			}
			retry = 0

			// ReadMessage не слушает контекст: при отмене соединение
			// закрывается снаружи, чтобы чтение вернуло ошибку
			done := make(chan struct{})
			go func() {
				select {
				case <-ctx.Done():
					_ = conn.Close()
				case <-done:
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					_ = conn.Close()
					break
				}
				var frame struct {
					Event string `json:"e"`
					Close string `json:"c"`
				}
				if err := sonic.Unmarshal(msg, &frame); err != nil || frame.Event != "24hrMiniTicker" {
					continue
				}
				px, err := strconv.ParseFloat(frame.Close, 64)
				if err != nil || px == 0 {
					continue
				}
				c.SetPrice(symbol, px)
				select {
				case <-ctx.Done():
					_ = conn.Close()
				case ch <- px:
				default:
					// дисплей не успевает — цену не теряем, она в кэше
				}
			}
			close(done)

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(1 * time.Second)
			}
		}
	}()
	return ch
}
