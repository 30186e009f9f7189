package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for the bridge's retained-state and
// command traffic.
//
// The paho library owns reconnection; the wrapper's job is subscription
// bookkeeping (so handlers survive a broker bounce), payload validation,
// and panic containment around user handlers. Health status publishing
// lives in the bridge, not here; the only broker-side presence signal
// this package configures is the Last Will.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions registered through Subscribe are replayed on every
//     reconnect.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	// subs is the replay set for reconnects, keyed by topic filter.
	subs  map[string]subEntry
	subMu sync.RWMutex

	up   bool
	upMu sync.RWMutex

	onConnect    func()
	onDisconnect func(err error)
	cbMu         sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the optional logging hook. Compatible with logging.Logger
// and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subEntry remembers enough about a subscription to re-issue it after
// the broker connection drops and comes back.
type subEntry struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
// paho invokes handlers on its own goroutines; a returned error is
// logged but never naks the message.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and returns a ready client.
//
// The options carry auth, TLS, auto-reconnect backoff, and the Last
// Will on the health topic. The call blocks until the first connection
// succeeds or defaultConnectTimeout elapses.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrConnectionFailed if the broker cannot be reached in time
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]subEntry),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect callback runs asynchronously and may not have fired
	// yet. Mark the client up here so IsConnected is true the moment
	// Connect returns; the callback still owns subscription replay.
	c.setUp(true)

	return c, nil
}

func (c *Client) setUp(up bool) {
	c.upMu.Lock()
	c.up = up
	c.upMu.Unlock()
}

// handleConnect runs on initial connect and every reconnect.
func (c *Client) handleConnect() {
	c.setUp(true)
	c.replaySubscriptions()

	c.cbMu.RLock()
	cb := c.onConnect
	c.cbMu.RUnlock()
	if cb != nil {
		cb()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.setUp(false)

	c.cbMu.RLock()
	cb := c.onDisconnect
	c.cbMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

// replaySubscriptions re-issues every tracked subscription after a
// reconnect. Failures are not retried here; paho delivers another
// OnConnect if the session bounces again.
func (c *Client) replaySubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for topic, sub := range c.subs {
		c.paho.Subscribe(topic, sub.qos, c.safeHandler(sub.handler))
	}
}

// Close drains pending operations and disconnects. The bridge's health
// reporter publishes its final "stopping" message before calling this,
// so nothing is published on the way out.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.setUp(false)

	return nil
}

// HealthCheck reports whether the broker connection is alive.
//
// Returns:
//   - error: nil if connected, ErrNotConnected or a context error otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.upMu.RLock()
	defer c.upMu.RUnlock()
	return c.up && c.paho.IsConnected()
}

// SetOnConnect registers a callback invoked on initial connect and on
// every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.cbMu.Lock()
	c.onConnect = callback
	c.cbMu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the connection is
// lost. The error describes why.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.cbMu.Lock()
	c.onDisconnect = callback
	c.cbMu.Unlock()
}

// SetLogger sets a logger for handler errors and recovered panics.
// Without one, handler failures are silent.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// safeHandler adapts a MessageHandler to paho's signature, containing
// panics so one bad command payload cannot kill the paho router
// goroutine.
func (c *Client) safeHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("mqtt handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("mqtt handler error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
