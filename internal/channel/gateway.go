package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second

	// Reconnect backoff bounds.
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

// ErrNotConnected indicates an outbound frame was attempted while the
// gateway has no live connection.
var ErrNotConnected = errors.New("gateway not connected")

// GatewayConfig holds the WebSocket gateway client configuration.
type GatewayConfig struct {
	// URL is the gateway WebSocket endpoint.
	URL string `yaml:"url"`

	// Token authenticates the bot, sent as a bearer header on dial.
	Token string `yaml:"token"`

	// BotUserID is announced in the hello frame and used by the engine
	// to detect mentions and self-authored messages.
	BotUserID string `yaml:"bot_user_id"`

	// BotName is the bot's display name.
	BotName string `yaml:"bot_name"`
}

// Gateway is a Transport backed by a WebSocket connection to the chat
// platform. It reconnects with exponential backoff when the connection
// drops.
type Gateway struct {
	config GatewayConfig
	logger *slog.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	inbox Inbox

	done chan struct{}
	wg   sync.WaitGroup
}

// Compile-time interface check.
var _ Transport = (*Gateway)(nil)

// NewGateway creates a gateway client. Nil logger discards output.
func NewGateway(cfg GatewayConfig, logger *slog.Logger) (*Gateway, error) {
	if cfg.URL == "" {
		return nil, errors.New("gateway: url must not be empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{
		config: cfg,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// SetInbox implements Transport.
func (g *Gateway) SetInbox(fn Inbox) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inbox = fn
}

// Start dials the gateway and runs the read loop in the background,
// reconnecting on failure until Stop is called or ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.connect(ctx); err != nil {
		return err
	}

	g.wg.Add(1)
	go g.run(ctx)
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (g *Gateway) Stop(ctx context.Context) error {
	close(g.done)

	g.mu.Lock()
	if g.conn != nil {
		_ = g.conn.Close(websocket.StatusNormalClosure, "shutting down")
		g.conn = nil
	}
	g.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reply implements Transport.
func (g *Gateway) Reply(ctx context.Context, channelID, text string) error {
	payload, err := json.Marshal(ReplyPayload{ChannelID: channelID, Content: text})
	if err != nil {
		return fmt.Errorf("gateway: marshal reply: %w", err)
	}
	return g.send(ctx, Envelope{
		Type:      FrameReply,
		ID:        uuid.NewString(),
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// SendTyping implements Transport.
func (g *Gateway) SendTyping(ctx context.Context, channelID string) error {
	payload, err := json.Marshal(TypingPayload{ChannelID: channelID})
	if err != nil {
		return fmt.Errorf("gateway: marshal typing: %w", err)
	}
	return g.send(ctx, Envelope{
		Type:      FrameTyping,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

func (g *Gateway) send(ctx context.Context, env Envelope) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("gateway: marshal envelope: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("gateway: write %s frame: %w", env.Type, err)
	}
	return nil
}

func (g *Gateway) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if g.config.Token != "" {
		opts.HTTPHeader = map[string][]string{
			"Authorization": {"Bearer " + g.config.Token},
		}
	}

	conn, _, err := websocket.Dial(dialCtx, g.config.URL, opts)
	if err != nil {
		return fmt.Errorf("gateway: dial %s: %w", g.config.URL, err)
	}

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	if err := g.sendHello(ctx); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "hello failed")
		g.mu.Lock()
		g.conn = nil
		g.mu.Unlock()
		return err
	}

	g.logger.Info("gateway connected", "url", g.config.URL)
	return nil
}

func (g *Gateway) sendHello(ctx context.Context) error {
	payload, err := json.Marshal(HelloPayload{
		BotUserID: g.config.BotUserID,
		BotName:   g.config.BotName,
	})
	if err != nil {
		return fmt.Errorf("gateway: marshal hello: %w", err)
	}
	return g.send(ctx, Envelope{
		Type:      FrameHello,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// run keeps a connection alive until shutdown, reconnecting with
// exponential backoff after read failures.
func (g *Gateway) run(ctx context.Context) {
	defer g.wg.Done()

	delay := minReconnectDelay
	for {
		g.mu.Lock()
		conn := g.conn
		g.mu.Unlock()

		if conn != nil {
			g.readLoop(ctx, conn)
			delay = minReconnectDelay
		}

		select {
		case <-g.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := g.connect(ctx); err != nil {
			g.logger.Warn("gateway reconnect failed",
				"error", err,
				"retry_in", delay,
			)
			delay = min(delay*2, maxReconnectDelay)
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case <-g.done:
			case <-ctx.Done():
			default:
				g.logger.Warn("gateway connection lost", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.logger.Warn("invalid frame from gateway", "error", err)
			continue
		}

		switch env.Type {
		case FrameMessage:
			g.handleMessage(ctx, env)

		case FramePing:
			_ = g.send(ctx, Envelope{
				Type:      FramePong,
				ID:        env.ID,
				Timestamp: time.Now(),
			})

		case FramePong:
			// Nothing to do.

		default:
			g.logger.Warn("unexpected frame type", "type", env.Type)
		}
	}
}

func (g *Gateway) handleMessage(ctx context.Context, env Envelope) {
	var payload MessagePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		g.logger.Warn("invalid message payload", "error", err)
		return
	}

	g.mu.Lock()
	inbox := g.inbox
	g.mu.Unlock()
	if inbox == nil {
		return
	}

	id := env.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := payload.Timestamp
	if ts.IsZero() {
		ts = env.Timestamp
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	inbox(ctx, Event{
		ID:         id,
		ChannelID:  payload.ChannelID,
		AuthorID:   payload.AuthorID,
		AuthorName: payload.AuthorName,
		IsBot:      payload.IsBot,
		Content:    payload.Content,
		Timestamp:  ts,
	})
}
