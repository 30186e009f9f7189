package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/nerrad567/gray-logic-insteon/internal/aldb"
	"github.com/nerrad567/gray-logic-insteon/internal/handshake"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
	"github.com/nerrad567/gray-logic-insteon/internal/store"
)

// Bridge operation constants.
const (
	// minTopicParts is the minimum number of parts in a valid command topic.
	minTopicParts = 3

	// syncTimeout bounds one device's full synchronization run. A device
	// ALDB read can legitimately take minutes on a noisy powerline.
	syncTimeout = 5 * time.Minute

	// persistTimeout bounds one cache write to SQLite.
	persistTimeout = 10 * time.Second
)

// Logger is the interface for optional structured logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// ModemClient is the PLM connection as the bridge sees it: a frame
// transmitter with connection state. Satisfied by *plm.Client.
type ModemClient interface {
	handshake.Sender
	ModemConnection
}

// Telemetry records synchronization outcomes to a time-series store.
// Satisfied by *influxdb.Client. Optional; if nil, no telemetry is
// written.
type Telemetry interface {
	WriteSyncSession(deviceID, sessionID string, records int, duration time.Duration, loaded bool)
	WriteFlagValue(deviceID, flag string, value uint8)
	WriteTransportStats(stats map[string]interface{})
}

// Bridge orchestrates ALDB and operating-flag synchronization and exposes
// the results over MQTT. It handles:
//   - Receiving sync commands via MQTT and running them against devices
//   - Publishing mirrored link databases and flag values (retained)
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use. Sync runs
// against the powerline are serialized internally: the medium is
// half-duplex and interleaved reads corrupt each other's correlation.
type Bridge struct {
	cfg    *config.Config
	mqtt   MQTTClient
	modem  ModemClient
	health *HealthReporter
	repo   store.Repository // Optional link-record cache
	tsdb   Telemetry        // Optional sync telemetry

	// Devices keyed by dotted address form.
	devices   map[string]*Device
	devicesMu sync.RWMutex

	// Modem table machinery.
	modemDB     *aldb.ModemALDB
	modemReader *aldb.ModemReadManager
	getFirst    *handshake.Handler
	getNext     *handshake.Handler

	// syncMu serializes powerline sync runs.
	syncMu sync.Mutex

	topics mqtt.Topics

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Config is the loaded bridge configuration.
	Config *config.Config

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Modem is the PLM connection.
	Modem ModemClient

	// Registry is the transport registry for inbound routing.
	Registry *plm.Registry

	// Repository is an optional link-record cache. If nil, mirrors are
	// not persisted across restarts.
	Repository store.Repository

	// Telemetry is an optional sync-telemetry sink.
	Telemetry Telemetry

	// Clock drives the read managers' watchdog timers.
	// Defaults to the real clock.
	Clock clockwork.Clock

	// Logger is an optional structured logger.
	Logger Logger

	// Version is the bridge software version for health messages.
	Version string
}

// New creates a bridge and wires up its configured devices.
// Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Modem == nil {
		return nil, fmt.Errorf("modem client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:       opts.Config,
		mqtt:      opts.MQTTClient,
		modem:     opts.Modem,
		repo:      opts.Repository,
		tsdb:      opts.Telemetry,
		devices:   make(map[string]*Device),
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}

	for _, dc := range opts.Config.Devices {
		dev, err := NewDevice(dc, opts.Modem, opts.Registry, clock)
		if err != nil {
			ctxCancel()
			b.closeDevices()
			return nil, err
		}
		if opts.Logger != nil {
			dev.SetLogger(opts.Logger)
		}
		b.devices[dev.Address().String()] = dev
	}

	b.modemDB = aldb.NewModem()
	b.getFirst = handshake.NewHandler(opts.Modem, opts.Registry, insteon.CmdGetFirstAllLinkRecord)
	b.getNext = handshake.NewHandler(opts.Modem, opts.Registry, insteon.CmdGetNextAllLinkRecord)
	b.modemReader = aldb.NewModemReadManager(b.modemDB, b.getFirst, b.getNext, opts.Registry)
	if opts.Logger != nil {
		b.modemReader.SetLogger(opts.Logger)
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		Version:   opts.Version,
		Interval:  30 * time.Second,
		Publisher: opts.MQTTClient,
		Modem:     opts.Modem,
	})
	b.health.SetDeviceCount(len(b.devices))
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation.
// This pre-seeds mirrors from the cache, subscribes to command topics,
// starts health reporting, and kicks off startup synchronization if
// configured.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	b.seedFromCache(ctx)

	commandTopic := b.topics.AllCommands()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleCommandMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	if b.cfg.PLM.Sync.OnStartup {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.syncAll(b.ctx)
		}()
	}

	if b.cfg.PLM.Sync.Interval > 0 {
		b.wg.Add(1)
		go b.syncLoop(b.cfg.PLM.Sync.Interval)
	}

	b.logInfo("bridge started", "devices", len(b.devices))
	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		b.health.Stop()
		b.wg.Wait()

		b.modemReader.Close()
		b.getFirst.Close()
		b.getNext.Close()
		b.closeDevices()

		b.logInfo("bridge stopped")
	})
}

// Device looks up a configured device by its dotted address form.
func (b *Bridge) Device(address string) (*Device, bool) {
	b.devicesMu.RLock()
	defer b.devicesMu.RUnlock()
	dev, ok := b.devices[strings.ToLower(address)]
	return dev, ok
}

// ModemALDB returns the modem's link-database mirror.
func (b *Bridge) ModemALDB() *aldb.ModemALDB {
	return b.modemDB
}

func (b *Bridge) closeDevices() {
	b.devicesMu.Lock()
	defer b.devicesMu.Unlock()
	for _, dev := range b.devices {
		dev.Close()
	}
}

// seedFromCache pre-loads device mirrors from the SQLite cache so the
// retained MQTT state is populated before the first powerline read
// completes. Only device mirrors are seeded; the modem's cursor protocol
// re-assigns slot addresses on every load, so cached modem rows would
// not line up with a fresh drain.
func (b *Bridge) seedFromCache(ctx context.Context) {
	if b.repo == nil {
		return
	}

	b.devicesMu.RLock()
	defer b.devicesMu.RUnlock()

	for addr, dev := range b.devices {
		records, err := b.repo.List(ctx, addr)
		if err != nil {
			b.logError("failed to load cached records", err, "device", addr)
			continue
		}
		if len(records) == 0 {
			continue
		}
		for _, rec := range records {
			dev.ALDB().Set(rec)
		}
		b.publishDeviceALDB(dev, "")
		b.logInfo("seeded mirror from cache", "device", addr, "records", len(records))
	}
}

// syncLoop re-synchronizes all devices at the configured interval.
func (b *Bridge) syncLoop(interval time.Duration) {
	defer b.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.syncAll(b.ctx)
		}
	}
}

// syncAll loads the modem table and reads every configured device's ALDB
// and flags. Runs are sequential because the powerline is half-duplex.
func (b *Bridge) syncAll(ctx context.Context) {
	b.syncModem(ctx)

	b.devicesMu.RLock()
	devices := make([]*Device, 0, len(b.devices))
	for _, dev := range b.devices {
		devices = append(devices, dev)
	}
	b.devicesMu.RUnlock()

	for _, dev := range devices {
		select {
		case <-ctx.Done():
			return
		default:
		}
		b.syncDevice(ctx, dev, 0, 0)
		b.syncFlags(ctx, dev)
	}

	if b.tsdb != nil {
		stats := b.modem.Stats()
		b.tsdb.WriteTransportStats(map[string]interface{}{
			"frames_tx":      int64(stats.FramesTx),
			"frames_rx":      int64(stats.FramesRx),
			"frames_dropped": int64(stats.FramesDropped),
			"errors_total":   int64(stats.ErrorsTotal),
			"reconnects":     int64(stats.ReconnectsTotal),
		})
	}
}

// syncModem drains the modem's All-Link table and publishes the result.
func (b *Bridge) syncModem(ctx context.Context) insteon.ResponseStatus {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	sessionID := uuid.NewString()
	start := time.Now()

	loadCtx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	status := b.modemReader.Load(loadCtx)
	elapsed := time.Since(start)

	b.publishModemALDB(sessionID)
	b.persistRecords(store.ModemDeviceID, b.modemDB.Records())

	if b.tsdb != nil {
		b.tsdb.WriteSyncSession(store.ModemDeviceID, sessionID,
			b.modemDB.Len(), elapsed, b.modemDB.Loaded())
	}

	b.logInfo("modem sync finished",
		"session_id", sessionID,
		"status", status.String(),
		"records", b.modemDB.Len(),
		"duration", elapsed)
	return status
}

// syncDevice reads one device's ALDB and publishes the result. A zero
// memAddr and numRecs requests the whole table.
func (b *Bridge) syncDevice(ctx context.Context, dev *Device, memAddr uint16, numRecs uint8) bool {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	sessionID := uuid.NewString()
	start := time.Now()

	readCtx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	loaded := dev.Reader().Read(readCtx, memAddr, numRecs)
	elapsed := time.Since(start)

	addr := dev.Address().String()
	b.publishDeviceALDB(dev, sessionID)
	b.persistRecords(addr, dev.ALDB().Records())

	if b.tsdb != nil {
		b.tsdb.WriteSyncSession(addr, sessionID, dev.ALDB().Len(), elapsed, loaded)
	}

	b.logInfo("device sync finished",
		"device", addr,
		"session_id", sessionID,
		"loaded", loaded,
		"records", dev.ALDB().Len(),
		"duration", elapsed)
	return loaded
}

// syncFlags reads one device's operating-flag registers and publishes the
// confirmed values.
func (b *Bridge) syncFlags(ctx context.Context, dev *Device) insteon.ResponseStatus {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	readCtx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	status := dev.Flags().ReadAll(readCtx)
	b.publishFlags(dev)
	return status
}

// persistRecords writes a mirror's contents to the SQLite cache.
func (b *Bridge) persistRecords(deviceID string, records []insteon.Record) {
	if b.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := b.repo.Replace(ctx, deviceID, records); err != nil {
		b.logError("failed to persist records", err, "device", deviceID)
	}
}

// publishDeviceALDB publishes a device mirror snapshot (QoS 1, retained).
func (b *Bridge) publishDeviceALDB(dev *Device, sessionID string) {
	addr := dev.Address().String()
	msg := NewALDBMessage(addr, dev.ALDB().Loaded(), sessionID, dev.ALDB().Records())

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal aldb state", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.DeviceALDB(addr), payload, 1, true); err != nil {
		b.logError("failed to publish aldb state", err, "device", addr)
	}
}

// publishModemALDB publishes the modem mirror snapshot (QoS 1, retained).
func (b *Bridge) publishModemALDB(sessionID string) {
	msg := NewALDBMessage(store.ModemDeviceID, b.modemDB.Loaded(), sessionID, b.modemDB.Records())

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal modem aldb state", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.ModemALDB(), payload, 1, true); err != nil {
		b.logError("failed to publish modem aldb state", err)
	}
}

// publishFlags publishes a device's confirmed flag values (QoS 1, retained).
func (b *Bridge) publishFlags(dev *Device) {
	addr := dev.Address().String()

	values := make(map[string]uint8)
	for _, name := range dev.Flags().Names() {
		f, err := dev.Flags().Flag(name)
		if err != nil {
			continue
		}
		values[name] = f.Value()
		if b.tsdb != nil {
			b.tsdb.WriteFlagValue(addr, name, f.Value())
		}
	}

	msg := FlagsMessage{
		Address:   addr,
		Timestamp: time.Now().UTC(),
		Flags:     values,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal flag state", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.DeviceFlags(addr), payload, 1, true); err != nil {
		b.logError("failed to publish flag state", err, "device", addr)
	}
}

// handleCommandMessage routes an incoming command to its device handler.
// The actual sync work runs on a bridge-tracked goroutine so slow
// powerline exchanges never block the MQTT receive path.
func (b *Bridge) handleCommandMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		return fmt.Errorf("invalid command topic: %s", topic)
	}
	address := parts[len(parts)-1]

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("parse command: %w", err)
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"address", address,
		"action", cmd.Action)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.executeCommand(address, cmd)
	}()
	return nil
}

// executeCommand dispatches one command against a device or the modem.
func (b *Bridge) executeCommand(address string, cmd CommandMessage) {
	if address == store.ModemDeviceID {
		b.executeModemCommand(cmd)
		return
	}

	dev, ok := b.Device(address)
	if !ok {
		b.publishAckError(cmd, address, ErrCodeUnknownDevice,
			fmt.Sprintf("device %s not configured", address))
		return
	}

	switch cmd.Action {
	case "aldb.read":
		b.executeALDBRead(dev, cmd)
	case "flags.read":
		b.executeFlagsRead(dev, cmd)
	case "flags.write":
		b.executeFlagsWrite(dev, cmd)
	case "sync":
		b.publishAck(cmd, address, AckAccepted)
		loaded := b.syncDevice(b.ctx, dev, 0, 0)
		b.syncFlags(b.ctx, dev)
		if loaded {
			b.publishAck(cmd, address, AckCompleted)
		} else {
			b.publishAckError(cmd, address, ErrCodeUnreachable, "mirror incomplete after retry budget")
		}
	default:
		b.publishAckError(cmd, address, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown action: %s", cmd.Action))
	}
}

// executeModemCommand handles commands addressed to the modem.
func (b *Bridge) executeModemCommand(cmd CommandMessage) {
	switch cmd.Action {
	case "aldb.read", "sync":
		b.publishAck(cmd, store.ModemDeviceID, AckAccepted)
		status := b.syncModem(b.ctx)
		if status == insteon.StatusSuccess {
			b.publishAck(cmd, store.ModemDeviceID, AckCompleted)
		} else {
			b.publishAckError(cmd, store.ModemDeviceID, ErrCodeUnreachable,
				fmt.Sprintf("modem load ended with %s", status))
		}
	default:
		b.publishAckError(cmd, store.ModemDeviceID, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown modem action: %s", cmd.Action))
	}
}

// executeALDBRead runs a whole-table or targeted ALDB read.
func (b *Bridge) executeALDBRead(dev *Device, cmd CommandMessage) {
	addr := dev.Address().String()

	memAddr, numRecs, err := readParams(cmd.Parameters)
	if err != nil {
		b.publishAckError(cmd, addr, ErrCodeInvalidParams, err.Error())
		return
	}

	b.publishAck(cmd, addr, AckAccepted)
	if b.syncDevice(b.ctx, dev, memAddr, numRecs) {
		b.publishAck(cmd, addr, AckCompleted)
		return
	}
	// A targeted read of one record can succeed without the whole mirror
	// being loaded.
	if numRecs == 1 {
		if _, ok := dev.ALDB().Get(memAddr); ok {
			b.publishAck(cmd, addr, AckCompleted)
			return
		}
	}
	b.publishAckError(cmd, addr, ErrCodeUnreachable, "mirror incomplete after retry budget")
}

// executeFlagsRead reads all flag registers and publishes the values.
func (b *Bridge) executeFlagsRead(dev *Device, cmd CommandMessage) {
	addr := dev.Address().String()
	b.publishAck(cmd, addr, AckAccepted)

	status := b.syncFlags(b.ctx, dev)
	if status == insteon.StatusSuccess {
		b.publishAck(cmd, addr, AckCompleted)
	} else {
		b.publishAckError(cmd, addr, ErrCodeUnreachable,
			fmt.Sprintf("flag read ended with %s", status))
	}
}

// executeFlagsWrite stages pending flag values and pushes them to the
// device.
func (b *Bridge) executeFlagsWrite(dev *Device, cmd CommandMessage) {
	addr := dev.Address().String()

	flagsAny, ok := cmd.Parameters["flags"]
	if !ok {
		b.publishAckError(cmd, addr, ErrCodeInvalidParams, "missing 'flags' parameter")
		return
	}
	flagValues, ok := flagsAny.(map[string]any)
	if !ok {
		b.publishAckError(cmd, addr, ErrCodeInvalidParams, "'flags' must be an object")
		return
	}

	for name, valAny := range flagValues {
		f, err := dev.Flags().Flag(name)
		if err != nil {
			b.publishAckError(cmd, addr, ErrCodeInvalidParams,
				fmt.Sprintf("unknown flag: %s", name))
			return
		}
		var pending uint8
		switch v := valAny.(type) {
		case bool:
			if v {
				pending = 1
			}
		case float64:
			if v < 0 || v > 255 {
				b.publishAckError(cmd, addr, ErrCodeInvalidParams,
					fmt.Sprintf("flag %s value out of range: %v", name, v))
				return
			}
			pending = uint8(v)
		default:
			b.publishAckError(cmd, addr, ErrCodeInvalidParams,
				fmt.Sprintf("flag %s must be a bool or number", name))
			return
		}
		f.SetPending(pending)
	}

	b.publishAck(cmd, addr, AckAccepted)

	b.syncMu.Lock()
	writeCtx, cancel := context.WithTimeout(b.ctx, syncTimeout)
	status := dev.Flags().Write(writeCtx)
	cancel()
	b.syncMu.Unlock()

	b.publishFlags(dev)

	if status == insteon.StatusSuccess {
		b.publishAck(cmd, addr, AckCompleted)
	} else {
		b.publishAckError(cmd, addr, ErrCodeUnreachable,
			fmt.Sprintf("flag write ended with %s", status))
	}
}

// readParams extracts an optional targeted-read request from command
// parameters. Absent parameters request the whole table.
func readParams(params map[string]any) (uint16, uint8, error) {
	if params == nil {
		return 0, 0, nil
	}

	memAddr := uint16(0)
	if v, ok := params["mem_addr"]; ok {
		f, ok := v.(float64)
		if !ok || f < 0 || f > 0xFFFF {
			return 0, 0, fmt.Errorf("'mem_addr' must be a 16-bit number")
		}
		memAddr = uint16(f)
	}

	numRecs := uint8(0)
	if v, ok := params["num_recs"]; ok {
		f, ok := v.(float64)
		if !ok || f < 0 || f > 255 {
			return 0, 0, fmt.Errorf("'num_recs' must be an 8-bit number")
		}
		numRecs = uint8(f)
	}

	if memAddr != 0 && numRecs == 0 {
		numRecs = 1
	}
	return memAddr, numRecs, nil
}

// publishAck publishes a command acknowledgement.
func (b *Bridge) publishAck(cmd CommandMessage, address string, status AckStatus) {
	ack := NewAck(cmd, address, status)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Ack(address), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// publishAckError publishes a failed command acknowledgement.
func (b *Bridge) publishAckError(cmd CommandMessage, address, code, message string) {
	ack := NewAckError(cmd, address, code, message)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Ack(address), payload, 1, false); err != nil {
		b.logError("failed to publish ack error", err)
	}

	b.logWarn("command failed",
		"command_id", cmd.ID,
		"address", address,
		"code", code,
		"message", message)
}

// SetLogger sets the logger for the bridge and its components.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
	b.devicesMu.RLock()
	for _, dev := range b.devices {
		dev.SetLogger(logger)
	}
	b.devicesMu.RUnlock()
	if b.modemReader != nil {
		b.modemReader.SetLogger(logger)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		args := append([]any{"error", err}, keysAndValues...)
		logger.Error(msg, args...)
	}
}
