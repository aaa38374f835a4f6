package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ranidorta/trade-alerts-ninja-sub000/internal/domain"
)

// StreamConfig configures WebSocket stream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      3 * time.Minute,
		ReadTimeout:       5 * time.Minute,
	}
}

// DefaultStreamURL is the Binance spot combined-stream endpoint.
const DefaultStreamURL = "wss://stream.binance.com:9443"

// KlineStream subscribes to live kline updates for one symbol/interval
// and delivers closed candles on a channel. The live feed lets the
// evaluation loop react as soon as a bar completes instead of polling the
// REST endpoint.
type KlineStream struct {
	baseURL  string
	symbol   string
	interval string
	config   StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	bars chan *domain.PriceBar
	done chan struct{}
	wg   sync.WaitGroup
}

// NewKlineStream connects to the kline stream for symbol at the given
// interval and starts reader and ping goroutines.
func NewKlineStream(ctx context.Context, baseURL, symbol, interval string, config *StreamConfig) (*KlineStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if baseURL == "" {
		baseURL = DefaultStreamURL
	}

	s := &KlineStream{
		baseURL:  baseURL,
		symbol:   symbol,
		interval: interval,
		config:   cfg,
		bars:     make(chan *domain.PriceBar, 64),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Bars returns the channel of closed candles. The channel is closed when
// the stream shuts down.
func (s *KlineStream) Bars() <-chan *domain.PriceBar {
	return s.bars
}

// Close shuts the stream down and waits for goroutines to exit.
func (s *KlineStream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.bars)
	return nil
}

// connect establishes the WebSocket connection.
func (s *KlineStream) connect(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/ws/%s@kline_%s",
		s.baseURL, strings.ToLower(s.symbol), s.interval)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", endpoint, err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// readLoop reads messages until shutdown, reconnecting with backoff on
// read errors. Only closed candles are forwarded.
func (s *KlineStream) readLoop() {
	defer s.wg.Done()

	delay := s.config.ReconnectDelay
	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			// Reconnect with exponential backoff.
			select {
			case <-s.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
			if err := s.connect(context.Background()); err != nil {
				continue
			}
			delay = s.config.ReconnectDelay
			continue
		}

		bar, closedBar, err := parseKlineEvent(msg)
		if err != nil || !closedBar {
			continue
		}

		select {
		case s.bars <- bar:
		case <-s.done:
			return
		}
	}
}

// pingLoop keeps the connection alive.
func (s *KlineStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			conn := s.conn
			s.connMu.Unlock()
			conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
		}
	}
}

// klineEvent is the Binance kline stream payload.
type klineEvent struct {
	EventType string `json:"e"`
	Kline     struct {
		StartTimeMs int64  `json:"t"`
		Open        string `json:"o"`
		High        string `json:"h"`
		Low         string `json:"l"`
		Close       string `json:"c"`
		Volume      string `json:"v"`
		IsClosed    bool   `json:"x"`
	} `json:"k"`
}

// parseKlineEvent decodes a stream message into a bar. The second return
// reports whether the candle is closed.
func parseKlineEvent(msg []byte) (*domain.PriceBar, bool, error) {
	var event klineEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return nil, false, fmt.Errorf("decode kline event: %w", err)
	}
	if event.EventType != "kline" {
		return nil, false, nil
	}

	bar := &domain.PriceBar{TimestampMs: event.Kline.StartTimeMs}
	for _, f := range []struct {
		raw string
		dst *float64
	}{
		{event.Kline.Open, &bar.Open},
		{event.Kline.High, &bar.High},
		{event.Kline.Low, &bar.Low},
		{event.Kline.Close, &bar.Close},
		{event.Kline.Volume, &bar.Volume},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse kline field %q: %w", f.raw, err)
		}
		*f.dst = v
	}

	return bar, event.Kline.IsClosed, nil
}
