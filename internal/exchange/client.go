package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	defaultBaseURL = "https://api.binance.com"
	defaultWSURL   = "wss://stream.binance.com:9443"
)

// Client — REST + WS клиент Binance spot. Все вызовы могут падать по сети:
// у HTTP-клиента фиксированный таймаут, ошибки возвращаются наверх.
type Client struct {
	mu       sync.RWMutex
	prices   map[string]float64
	http     *http.Client
	wsDialer *websocket.Dialer

	baseURL   string
	wsURL     string
	apiKey    string
	apiSecret string
}

func NewClient() *Client {
	return &Client{
		prices:   make(map[string]float64),
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: &websocket.Dialer{},
		baseURL:  defaultBaseURL,
		wsURL:    defaultWSURL,
	}
}

func (c *Client) SetCreds(key, secret string) { c.apiKey, c.apiSecret = key, secret }

// SetBaseURL переопределяет эндпоинт (тесты).
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// SetWSURL переопределяет websocket-эндпоинт (тесты).
func (c *Client) SetWSURL(u string) { c.wsURL = u }

func (c *Client) SetPrice(symbol string, price float64) {
	c.mu.Lock()
	c.prices[symbol] = price
	c.mu.Unlock()
}

// GetPrice — последняя цена из WS-стрима; 0 если стрим не жив.
func (c *Client) GetPrice(symbol string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prices[symbol]
}

func (c *Client) sign(query string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// doPublic — публичный GET без подписи.
func (c *Client) doPublic(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	return c.do(req)
}

// doSigned — приватный вызов: timestamp + HMAC-SHA256 подпись query-строки.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, errors.New("api creds empty")
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UTC().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	return rb, nil
}
