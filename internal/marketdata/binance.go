package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL  = "https://api.binance.com"
	DefaultInterval = domain.Interval15Min
	DefaultTimeout  = 30 * time.Second
	MaxKlineLimit   = 1000
)

// BinanceClient fetches klines from the Binance REST API.
type BinanceClient struct {
	baseURL  string
	interval string
	client   *http.Client
}

// BinanceOption configures BinanceClient.
type BinanceOption func(*BinanceClient)

// WithBaseURL overrides the API base URL (used by tests and mirrors).
func WithBaseURL(u string) BinanceOption {
	return func(c *BinanceClient) {
		c.baseURL = u
	}
}

// WithInterval sets the kline interval.
func WithInterval(interval string) BinanceOption {
	return func(c *BinanceClient) {
		c.interval = interval
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) BinanceOption {
	return func(c *BinanceClient) {
		c.client = client
	}
}

// NewBinanceClient creates a Binance kline client.
func NewBinanceClient(opts ...BinanceOption) *BinanceClient {
	c := &BinanceClient{
		baseURL:  DefaultBaseURL,
		interval: DefaultInterval,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchBars returns up to limit klines opening strictly after startMs.
// Binance returns klines ordered by open time ASC; ordering is preserved.
func (c *BinanceClient) FetchBars(ctx context.Context, symbol string, startMs int64, limit int) ([]*domain.PriceBar, error) {
	if limit <= 0 || limit > MaxKlineLimit {
		limit = MaxKlineLimit
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", c.interval)
	// startTime is inclusive of the bar open; the evaluator skips bars
	// at or before the signal's creation time on its own.
	q.Set("startTime", strconv.FormatInt(startMs, 10))
	q.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build klines request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read klines response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines request failed: status %d: %s", resp.StatusCode, string(body))
	}

	return parseKlines(body)
}

// parseKlines decodes the Binance kline array-of-arrays payload. Each
// element is [openTime, open, high, low, close, volume, ...] with prices
// encoded as strings.
func parseKlines(body []byte) ([]*domain.PriceBar, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines payload: %w", err)
	}

	bars := make([]*domain.PriceBar, 0, len(raw))
	for i, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("kline %d: expected at least 6 fields, got %d", i, len(k))
		}

		var openTime int64
		if err := json.Unmarshal(k[0], &openTime); err != nil {
			return nil, fmt.Errorf("kline %d: open time: %w", i, err)
		}

		bar := &domain.PriceBar{TimestampMs: openTime}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for j, dst := range fields {
			v, err := parsePriceField(k[j+1])
			if err != nil {
				return nil, fmt.Errorf("kline %d field %d: %w", i, j+1, err)
			}
			*dst = v
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// parsePriceField decodes a Binance string-encoded decimal.
func parsePriceField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("decode price field: %w", err)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return v, nil
}

var _ BarSource = (*BinanceClient)(nil)
