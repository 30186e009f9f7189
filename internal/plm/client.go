package plm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and intervals for modem communication.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultReadTimeout is the timeout for individual read operations.
	defaultReadTimeout = 30 * time.Second

	// defaultWriteTimeout is the timeout for write operations.
	defaultWriteTimeout = 5 * time.Second

	// defaultReconnectInterval is the initial delay between reconnection attempts.
	defaultReconnectInterval = 5 * time.Second

	// maxReconnectInterval is the maximum delay between reconnection attempts.
	maxReconnectInterval = 2 * time.Minute

	// readBufferSize is the size of the read buffer for incoming frames.
	// The largest PLM frame is an extended receive (25 bytes with header).
	readBufferSize = 64

	// dispatchQueueSize is the buffer size for the message dispatch queue.
	dispatchQueueSize = 100

	// dispatchWorkerCount is the number of concurrent dispatch workers.
	dispatchWorkerCount = 4

	// maxSkippedBytes is how much inter-frame noise is tolerated before
	// the stream is declared desynchronized.
	maxSkippedBytes = 64
)

// Config holds modem connection configuration.
type Config struct {
	// Connection is the modem connection URL.
	// Supported formats:
	//   - "tcp://plm-host:9761" (ser2net raw mode)
	//   - "unix:///run/insteon-plm" (local serial proxy)
	Connection string

	// ConnectTimeout is the maximum time to wait for connection.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// ReadTimeout is the timeout for read operations.
	// Default: 30 seconds.
	ReadTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection attempts.
	// Default: 5 seconds.
	ReconnectInterval time.Duration
}

// Stats holds operational statistics.
type Stats struct {
	FramesTx        uint64
	FramesRx        uint64
	FramesDropped   uint64 // Frames dropped due to full dispatch queue
	ErrorsTotal     uint64
	ReconnectsTotal uint64 // Successful reconnections
	LastActivity    time.Time
	Connected       bool
	Reconnecting    bool // True if currently attempting to reconnect
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Connector interface for testability.
// This allows mocking the modem client in tests.
type Connector interface {
	SendCommand(ctx context.Context, cmd insteon.Command, payload []byte) error
	Registry() *Registry
	IsConnected() bool
	Stats() Stats
	Close() error
}

// Ensure Client implements Connector.
var _ Connector = (*Client)(nil)

// Client provides the connection to the Insteon PowerLine Modem.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Registry handlers are invoked from a bounded worker pool.
//
// Auto-Reconnection:
//   - When the connection is lost, the client automatically attempts to
//     reconnect with exponential backoff from ReconnectInterval (default
//     5s) up to maxReconnectInterval (2min).
//   - Reconnection stops only when Close() is called.
type Client struct {
	cfg  Config
	conn net.Conn

	// Connection state
	connMu    sync.RWMutex
	connected bool

	// Reconnection state
	reconnecting   atomic.Bool
	reconnectCount atomic.Int32

	// Inbound message routing
	registry      *Registry
	dispatchQueue chan Message

	// Shutdown coordination
	done *closeOnce
	wg   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	framesTx        atomic.Uint64
	framesRx        atomic.Uint64
	framesDropped   atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64 // Unix timestamp
}

// Connect establishes the connection to the modem.
//
// The connection URL determines the transport:
//   - "tcp://plm-host:9761" → TCP socket (ser2net raw mode)
//   - "unix:///run/insteon-plm" → Unix socket
//
// After connecting it starts the receive loop and the dispatch worker
// pool. Inbound frames are decoded and routed through the Registry.
//
// Parameters:
//   - ctx: Context for cancellation (used for initial connection)
//   - cfg: Connection configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If connection fails
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	// Apply defaults
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}

	network, address, err := parseConnectionURL(cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	connectCtx := ctx
	if connectCtx == nil {
		connectCtx = context.Background()
	}
	connectCtx, cancel := context.WithTimeout(connectCtx, cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(connectCtx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial failed: %w", ErrConnectionFailed, err)
	}

	client := &Client{
		cfg:           cfg,
		conn:          conn,
		registry:      NewRegistry(),
		done:          newCloseOnce(),
		dispatchQueue: make(chan Message, dispatchQueueSize),
	}
	client.lastActivity.Store(time.Now().Unix())

	client.connMu.Lock()
	client.connected = true
	client.connMu.Unlock()

	// Start dispatch worker pool (bounded goroutine count)
	for i := 0; i < dispatchWorkerCount; i++ {
		client.wg.Add(1)
		go client.dispatchWorker()
	}

	// Start receive loop
	client.wg.Add(1)
	go client.receiveLoop()

	return client, nil
}

// parseConnectionURL parses a modem connection URL into network and address.
func parseConnectionURL(connURL string) (network, address string, err error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "unix":
		return "unix", u.Path, nil
	case "tcp":
		host := u.Host
		if host == "" {
			host = "localhost:9761"
		}
		return "tcp", host, nil
	default:
		return "", "", fmt.Errorf("unsupported scheme %q (use unix or tcp)", u.Scheme)
	}
}

// Registry returns the inbound message routing registry.
func (c *Client) Registry() *Registry {
	return c.registry
}

// receiveLoop continuously reads frames from the modem.
// On connection loss, it automatically attempts reconnection with
// exponential backoff.
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	buf := make([]byte, readBufferSize)

	for {
		select {
		case <-c.done.Done():
			return
		default:
		}

		msg, err := c.readFrame(buf)
		if err != nil {
			if c.handleReadError(err) {
				if c.isClosed() {
					return // Shutdown requested, exit cleanly
				}
				if !c.reconnect() {
					return // Shutdown during reconnection, exit cleanly
				}
				continue // Reconnected, resume receive loop
			}
			continue // Recoverable error, retry
		}

		c.framesRx.Add(1)
		c.lastActivity.Store(time.Now().Unix())
		c.queueMessage(msg)
	}
}

// readFrame reads and decodes a single PLM frame.
//
// The modem separates frames with nothing but the STX byte, so the reader
// skips inter-frame noise until it finds STX, then reads the command
// number and the command-specific remainder. An unknown command number is
// fatal: the remainder length cannot be determined, so the connection is
// dropped to resynchronize.
func (c *Client) readFrame(buf []byte) (Message, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		return Message{}, fmt.Errorf("set deadline: %w", err)
	}

	// Scan to STX
	skipped := 0
	for {
		if _, err := io.ReadFull(c.conn, buf[:1]); err != nil {
			return Message{}, fmt.Errorf("read start byte: %w", err)
		}
		if buf[0] == STX {
			break
		}
		skipped++
		if skipped > maxSkippedBytes {
			c.errorsTotal.Add(1)
			return Message{}, ErrProtocolDesync
		}
	}
	if skipped > 0 {
		c.logDebug("skipped inter-frame noise", "bytes", skipped)
	}

	// Command number
	if _, err := io.ReadFull(c.conn, buf[:1]); err != nil {
		return Message{}, fmt.Errorf("read command number: %w", err)
	}
	cmd := insteon.Command(buf[0])

	// The echo of a Send Insteon Message command has content-dependent
	// length: the flag byte decides standard versus extended.
	if cmd == insteon.CmdSendInsteonMsg {
		return c.readSendEcho(buf)
	}

	n, ok := fixedPayloadLength(cmd)
	if !ok {
		c.errorsTotal.Add(1)
		c.logError("unknown command number, closing connection to prevent desync",
			fmt.Errorf("cmd 0x%02X", byte(cmd)))
		return Message{}, ErrProtocolDesync
	}

	if _, err := io.ReadFull(c.conn, buf[:n]); err != nil {
		return Message{}, fmt.Errorf("read payload: %w", err)
	}

	msg, err := decodePayload(cmd, buf[:n])
	if err != nil {
		c.errorsTotal.Add(1)
		c.logError("decode frame failed", err)
		return Message{}, errRecoverable
	}
	return msg, nil
}

// readSendEcho reads the remainder of a 0x62 echo after the command number.
func (c *Client) readSendEcho(buf []byte) (Message, error) {
	// to(3) + flags(1) first, then the length is known
	if _, err := io.ReadFull(c.conn, buf[:sendEchoAddrFlags]); err != nil {
		return Message{}, fmt.Errorf("read send echo header: %w", err)
	}

	rest := sendEchoStdLen - sendEchoAddrFlags
	if buf[3]&FlagExtended != 0 {
		rest = sendEchoExtLen - sendEchoAddrFlags
	}
	if _, err := io.ReadFull(c.conn, buf[sendEchoAddrFlags:sendEchoAddrFlags+rest]); err != nil {
		return Message{}, fmt.Errorf("read send echo payload: %w", err)
	}

	msg, err := parseSendEcho(buf[:sendEchoAddrFlags+rest])
	if err != nil {
		c.errorsTotal.Add(1)
		c.logError("decode send echo failed", err)
		return Message{}, errRecoverable
	}
	return msg, nil
}

// errRecoverable marks decode failures that should not drop the connection.
var errRecoverable = errors.New("plm: recoverable decode error")

// decodePayload routes a fixed-length payload to its parser.
func decodePayload(cmd insteon.Command, payload []byte) (Message, error) {
	switch cmd {
	case insteon.CmdStandardReceived, insteon.CmdExtendedReceived:
		return parseReceived(cmd, payload)
	case insteon.CmdAllLinkRecordResponse:
		return parseAllLinkRecord(payload)
	case insteon.CmdGetFirstAllLinkRecord, insteon.CmdGetNextAllLinkRecord:
		return parseGetRecordEcho(cmd, payload)
	default:
		return Message{}, fmt.Errorf("%w: no parser for cmd 0x%02X", ErrInvalidFrame, byte(cmd))
	}
}

// handleReadError processes a read error and returns true if the
// connection must be re-established.
func (c *Client) handleReadError(err error) bool {
	if err == nil || errors.Is(err, errRecoverable) {
		return false
	}

	if c.isClosed() {
		return true // Clean shutdown
	}

	// Desync is always fatal: the stream position is unknown.
	if errors.Is(err, ErrProtocolDesync) {
		c.logError("protocol desync detected, closing socket", err)
		if c.conn != nil {
			c.conn.Close()
		}
		c.handleDisconnect()
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false // Timeout is normal on an idle powerline, continue
	}

	c.logError("read failed", err)
	c.errorsTotal.Add(1)
	c.handleDisconnect()
	return true
}

// queueMessage hands a decoded message to the dispatch worker pool.
// Non-blocking with drop on overflow to protect the receive loop.
func (c *Client) queueMessage(msg Message) {
	select {
	case c.dispatchQueue <- msg:
	default:
		c.logError("dispatch queue full, dropping message", nil)
		c.framesDropped.Add(1)
		c.errorsTotal.Add(1)
	}
}

// dispatchWorker routes queued messages through the registry.
// Runs in a bounded worker pool to prevent goroutine explosion.
func (c *Client) dispatchWorker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done.Done():
			c.drainDispatchQueue()
			return
		case msg := <-c.dispatchQueue:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logError("message handler panic", fmt.Errorf("%v", r))
					}
				}()
				c.registry.Dispatch(msg)
			}()
		}
	}
}

// handleDisconnect records connection loss ahead of reconnection.
func (c *Client) handleDisconnect() {
	c.connMu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.connMu.Unlock()

	if wasConnected {
		c.logInfo("modem connection lost, will attempt reconnection")
	}
}

// reconnect attempts to re-establish the modem connection with exponential
// backoff. Returns true if reconnection succeeded, false on shutdown.
func (c *Client) reconnect() bool {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return c.waitForReconnection()
	}
	defer c.reconnecting.Store(false)

	network, address, err := parseConnectionURL(c.cfg.Connection)
	if err != nil {
		c.logError("reconnect: invalid connection URL", err)
		return false
	}

	backoff := c.cfg.ReconnectInterval
	if backoff == 0 {
		backoff = defaultReconnectInterval
	}

	for {
		if c.isClosed() {
			return false
		}

		attempt := c.reconnectCount.Add(1)
		c.logInfo("attempting reconnection", "attempt", attempt, "backoff", backoff.String())

		c.closeOldConnection()

		conn, err := c.dialWithTimeout(network, address)
		if err != nil {
			backoff = c.handleReconnectFailure("dial failed", err, backoff)
			if backoff == 0 {
				return false // Shutdown signalled
			}
			continue
		}

		c.connMu.Lock()
		c.conn = conn
		c.connected = true
		c.connMu.Unlock()

		c.reconnectCount.Store(0)
		c.reconnectsTotal.Add(1)
		c.lastActivity.Store(time.Now().Unix())
		c.logInfo("reconnection successful", "total_reconnects", c.reconnectsTotal.Load())
		return true
	}
}

// waitForReconnection waits for another goroutine to complete reconnection.
func (c *Client) waitForReconnection() bool {
	for c.reconnecting.Load() && !c.isClosed() {
		time.Sleep(100 * time.Millisecond)
	}
	return !c.isClosed() && c.IsConnected()
}

// closeOldConnection closes the existing connection if any.
func (c *Client) closeOldConnection() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}

// dialWithTimeout attempts to dial the network address with timeout.
func (c *Client) dialWithTimeout(network, address string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s://%s: %w", network, address, err)
	}
	return conn, nil
}

// handleReconnectFailure handles a failed reconnection attempt.
// Returns the new backoff duration, or 0 if shutdown was signalled.
func (c *Client) handleReconnectFailure(reason string, err error, backoff time.Duration) time.Duration {
	c.logError("reconnect: "+reason, err)
	c.errorsTotal.Add(1)

	select {
	case <-c.done.Done():
		return 0 // Signal shutdown
	case <-time.After(backoff):
	}

	// Exponential backoff with cap
	newBackoff := time.Duration(float64(backoff) * 1.5)
	if newBackoff > maxReconnectInterval {
		newBackoff = maxReconnectInterval
	}
	return newBackoff
}

// drainDispatchQueue discards any remaining queued messages at shutdown.
func (c *Client) drainDispatchQueue() {
	for {
		select {
		case <-c.dispatchQueue:
		default:
			return
		}
	}
}

// isClosed returns true if the client has been closed.
func (c *Client) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// Close gracefully closes the connection.
//
// It signals the receive loop to stop and closes the underlying network
// connection. Safe to call multiple times.
//
// Returns:
//   - error: nil (closing is best-effort)
func (c *Client) Close() error {
	c.done.Close()

	c.connMu.Lock()
	c.connected = false
	conn := c.conn
	c.connMu.Unlock()

	if conn != nil {
		conn.Close()
	}

	c.wg.Wait()

	c.logInfo("modem connection closed")
	return nil
}

// SendCommand writes one PLM frame to the modem.
//
// The payload is the command-specific body; the STX header and command
// number are prepended here. Confirmation (the modem's echo ack and any
// device response) arrives asynchronously through the Registry; pairing
// it with this send is the handshake package's job.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cmd: PLM command number
//   - payload: Command body (may be empty)
//
// Returns:
//   - error: If the client is not connected or the write fails
func (c *Client) SendCommand(ctx context.Context, cmd insteon.Command, payload []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSendFailed, ctx.Err())
	default:
	}

	c.connMu.RLock()
	conn := c.conn
	connected := c.connected
	c.connMu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrSendFailed, err)
	}

	if _, err := conn.Write(EncodeFrame(cmd, payload)); err != nil {
		c.errorsTotal.Add(1)
		return fmt.Errorf("%w: write: %w", ErrSendFailed, err)
	}

	c.framesTx.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	return nil
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// IsConnected returns true if connected to the modem.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// Stats returns current operational statistics.
func (c *Client) Stats() Stats {
	return Stats{
		FramesTx:        c.framesTx.Load(),
		FramesRx:        c.framesRx.Load(),
		FramesDropped:   c.framesDropped.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
		ReconnectsTotal: c.reconnectsTotal.Load(),
		LastActivity:    time.Unix(c.lastActivity.Load(), 0),
		Connected:       c.IsConnected(),
		Reconnecting:    c.reconnecting.Load(),
	}
}

// HealthCheck verifies the connection is alive.
//
// Note: This only checks connection state. Active verification happens
// implicitly whenever a synchronization sequence runs.
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// logDebug logs a debug message if logger is set.
func (c *Client) logDebug(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if logger is set.
func (c *Client) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (c *Client) logError(msg string, err error) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
