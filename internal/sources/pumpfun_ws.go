package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-token-scout/internal/domain"
)

// PumpfunConfig configures the pump.fun launch stream.
type PumpfunConfig struct {
	// ReconnectDelay is initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// BufferSize caps the number of launches held between Discover calls.
	BufferSize int
}

// DefaultPumpfunConfig returns default stream configuration.
func DefaultPumpfunConfig() PumpfunConfig {
	return PumpfunConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		BufferSize:        256,
	}
}

// PumpfunStream consumes the pump.fun new-token websocket feed and buffers
// launches until the next discovery tick drains them. The stream reconnects
// on its own; a dead stream only means an empty buffer, never a pipeline
// failure.
type PumpfunStream struct {
	endpoint string
	config   PumpfunConfig
	log      zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	buf   []domain.DiscoveredToken
	bufMu sync.Mutex

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewPumpfunStream connects to the feed and starts consuming.
func NewPumpfunStream(ctx context.Context, endpoint string, config *PumpfunConfig, log zerolog.Logger) (*PumpfunStream, error) {
	cfg := DefaultPumpfunConfig()
	if config != nil {
		cfg = *config
	}

	s := &PumpfunStream{
		endpoint: endpoint,
		config:   cfg,
		log:      log.With().Str("source", "pumpfun").Logger(),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

var _ Discoverer = (*PumpfunStream)(nil)

// connect establishes the websocket connection and subscribes to launches.
func (s *PumpfunStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	sub := map[string]string{"method": "subscribeNewToken"}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe new tokens: %w", err)
	}

	s.conn = conn
	return nil
}

// launchEvent is one new-token message from the feed.
type launchEvent struct {
	Mint   string `json:"mint"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// readLoop consumes messages and reconnects on failure with exponential
// backoff until Close.
func (s *PumpfunStream) readLoop() {
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
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("stream read failed, reconnecting")

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
				s.log.Warn().Err(err).Msg("reconnect failed")
			}
			continue
		}
		delay = s.config.ReconnectDelay

		var ev launchEvent
		if err := json.Unmarshal(msg, &ev); err != nil || ev.Mint == "" {
			continue
		}

		s.bufMu.Lock()
		if len(s.buf) < s.config.BufferSize {
			s.buf = append(s.buf, domain.DiscoveredToken{
				Mint:   ev.Mint,
				Symbol: ev.Symbol,
				Name:   ev.Name,
				Source: "pumpfun",
			})
		}
		s.bufMu.Unlock()
	}
}

// pingLoop keeps the connection alive.
func (s *PumpfunStream) pingLoop() {
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
			if conn != nil {
				conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			}
			s.connMu.Unlock()
		}
	}
}

// Discover drains the buffered launches.
func (s *PumpfunStream) Discover(_ context.Context) ([]domain.DiscoveredToken, error) {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	tokens := s.buf
	s.buf = nil
	return tokens, nil
}

// Close stops the stream.
func (s *PumpfunStream) Close() error {
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
	return nil
}
