// Package client provides a reconnecting WebSocket client for the
// translation gateway. Audio requests are queued and flushed over the
// current connection; results arrive asynchronously on a channel and are
// cached by audio hash so identical utterances skip the pipeline entirely.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/linguabridge/linguabridge/internal/protocol"
)

const (
	// defaultReconnectDelay is the pause between reconnect attempts.
	defaultReconnectDelay = 2 * time.Second

	// defaultMaxReconnects bounds consecutive failed connection attempts
	// before Run gives up.
	defaultMaxReconnects = 10

	// defaultPingInterval is how often an application-level Ping is sent to
	// keep the channel alive.
	defaultPingInterval = 10 * time.Second

	// defaultQueueSize is the outbound request queue capacity. When the
	// queue is full the newest request is dropped.
	defaultQueueSize = 500

	// defaultCacheSize is the number of results kept in the LRU cache.
	defaultCacheSize = 256
)

// ErrQueueFull is returned by [Client.SendAudio] when the outbound queue is
// at capacity. The request is dropped; audio is perishable and retrying a
// stale utterance is worse than losing it.
var ErrQueueFull = errors.New("client: send queue full, dropping request")

// ErrClosed is returned by [Client.SendAudio] after [Client.Close].
var ErrClosed = errors.New("client: closed")

// Client talks to one gateway. Create it with [New], drive it with
// [Client.Run], and submit audio with [Client.SendAudio].
type Client struct {
	url            string
	reconnectDelay time.Duration
	maxReconnects  int
	pingInterval   time.Duration
	log            *slog.Logger

	queue   chan []byte
	results chan *protocol.Result
	errs    chan *protocol.ErrorResponse
	done    chan struct{}
	cache   *resultCache
}

// Option configures a [Client].
type Option func(*Client)

// WithReconnectDelay sets the pause between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// WithMaxReconnects bounds consecutive failed connection attempts.
func WithMaxReconnects(n int) Option {
	return func(c *Client) { c.maxReconnects = n }
}

// WithPingInterval sets the keepalive Ping cadence.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) { c.pingInterval = d }
}

// WithQueueSize sets the outbound queue capacity.
func WithQueueSize(n int) Option {
	return func(c *Client) { c.queue = make(chan []byte, n) }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client for the given WebSocket URL (ws://host:port/voice).
func New(url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:            url,
		reconnectDelay: defaultReconnectDelay,
		maxReconnects:  defaultMaxReconnects,
		pingInterval:   defaultPingInterval,
		results:        make(chan *protocol.Result, 64),
		errs:           make(chan *protocol.ErrorResponse, 16),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.queue == nil {
		c.queue = make(chan []byte, defaultQueueSize)
	}

	cache, err := newResultCache(defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("client: create cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// Results delivers completed translations, both fresh from the gateway and
// replayed from the local cache.
func (c *Client) Results() <-chan *protocol.Result { return c.results }

// Errors delivers Error frames sent by the gateway.
func (c *Client) Errors() <-chan *protocol.ErrorResponse { return c.errs }

// SendAudio submits an audio request. When AudioHash is zero it is filled
// from the samples via [HashSamples]. A cached result for the same hash and
// target language is replayed immediately, re-correlated to req, without
// touching the network.
func (c *Client) SendAudio(req *protocol.AudioRequest) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	if req.AudioHash == 0 {
		req.AudioHash = HashSamples(req.Samples)
	}

	if cached, ok := c.cache.get(req.AudioHash, req.TargetLanguage); ok {
		replay := *cached
		replay.GuildID = req.GuildID
		replay.ChannelID = req.ChannelID
		replay.UserID = req.UserID
		replay.Username = req.Username
		replay.LatencyMS = 0
		select {
		case c.results <- &replay:
		default:
			c.log.Warn("results channel full, dropping cached result",
				slog.Uint64("audio_hash", req.AudioHash))
		}
		return nil
	}

	frame, err := protocol.EncodeBinary(req)
	if err != nil {
		return fmt.Errorf("client: encode audio: %w", err)
	}

	select {
	case c.queue <- frame:
		return nil
	default:
		c.log.Warn("send queue full, dropping audio request",
			slog.Uint64("audio_hash", req.AudioHash))
		return ErrQueueFull
	}
}

// Close stops accepting new requests. Run returns once the current
// connection winds down.
func (c *Client) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// Run connects to the gateway and keeps the connection alive until ctx is
// cancelled, [Client.Close] is called, or the reconnect budget is exhausted.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		err := c.runConn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if attempts >= c.maxReconnects {
			return fmt.Errorf("client: giving up after %d connection attempts: %w", attempts, err)
		}
		c.log.Warn("connection lost, reconnecting",
			slog.Int("attempt", attempts),
			slog.String("error", err.Error()))

		select {
		case <-time.After(c.reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		}
	}
}

// runConn dials once and serves the connection until it breaks. A nil return
// means Run should stop; an error triggers a reconnect.
func (c *Client) runConn(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "client shutdown")
	conn.SetReadLimit(-1)

	connCtx, stop := context.WithCancel(ctx)
	defer stop()

	// Close must unblock the pending Read, not just stop the next
	// iteration.
	go func() {
		select {
		case <-c.done:
			stop()
		case <-connCtx.Done():
		}
	}()

	writeErr := make(chan error, 1)
	go func() { writeErr <- c.writeLoop(connCtx, conn) }()

	for {
		select {
		case err := <-writeErr:
			return err
		case <-c.done:
			return nil
		default:
		}

		_, data, err := conn.Read(connCtx)
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			return fmt.Errorf("read: %w", err)
		}
		c.handleFrame(data)
	}
}

// writeLoop flushes the queue and sends keepalive Pings.
func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case frame := <-c.queue:
			if err := conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
				return fmt.Errorf("write audio: %w", err)
			}
		case <-ticker.C:
			if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"Ping"}`)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

// handleFrame decodes one inbound frame and routes it.
func (c *Client) handleFrame(data []byte) {
	resp, err := protocol.DecodeResponse(data)
	if err != nil {
		c.log.Warn("discarding undecodable frame", slog.String("error", err.Error()))
		return
	}

	switch r := resp.(type) {
	case *protocol.Result:
		c.cache.put(r)
		select {
		case c.results <- r:
		default:
			c.log.Warn("results channel full, dropping result",
				slog.Uint64("audio_hash", r.AudioHash))
		}
	case *protocol.ErrorResponse:
		select {
		case c.errs <- r:
		default:
		}
	case *protocol.Ready:
		c.log.Info("gateway ready",
			slog.Any("stt_models", r.STTModels),
			slog.Any("tts_models", r.TTSModels))
	case *protocol.Pong:
		// Keepalive acknowledged.
	}
}
