package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
	infmqtt "github.com/nerrad567/gray-logic-insteon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
	"github.com/nerrad567/gray-logic-insteon/internal/store"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []string
	connected     bool
	handlers      map[string]infmqtt.MessageHandler
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]infmqtt.MessageHandler),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler infmqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, topic)
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublish, len(m.published))
	copy(out, m.published)
	return out
}

func (m *MockMQTTClient) GetSubscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.subscriptions))
	copy(out, m.subscriptions)
	return out
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// SimulateMessage delivers a payload to the handler whose subscription
// pattern's category matches the topic.
func (m *MockMQTTClient) SimulateMessage(t *testing.T, topic string, payload []byte) {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.handlers[testTopics.AllCommands()]
	m.mu.Unlock()
	if !ok {
		t.Fatal("no command subscription registered")
	}
	if err := handler(topic, payload); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
}

// testTopics provides the topic builders used in assertions.
var testTopics infmqtt.Topics

// mockModem implements ModemClient for testing.
type mockModem struct {
	mu        sync.Mutex
	sent      []insteon.Command
	connected bool
	stats     plm.Stats
}

func newMockModem() *mockModem {
	return &mockModem{connected: true, stats: plm.Stats{Connected: true}}
}

func (m *mockModem) SendCommand(_ context.Context, cmd insteon.Command, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, cmd)
	return nil
}

func (m *mockModem) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockModem) Stats() plm.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// mockRepository implements store.Repository for testing.
type mockRepository struct {
	mu       sync.Mutex
	records  map[string][]insteon.Record
	replaced map[string]int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		records:  make(map[string][]insteon.Record),
		replaced: make(map[string]int),
	}
}

func (r *mockRepository) Replace(_ context.Context, deviceID string, records []insteon.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[deviceID] = records
	r.replaced[deviceID]++
	return nil
}

func (r *mockRepository) List(_ context.Context, deviceID string) ([]insteon.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[deviceID], nil
}

func (r *mockRepository) Devices(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *mockRepository) Delete(_ context.Context, deviceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.records[deviceID]))
	delete(r.records, deviceID)
	return n, nil
}

func (r *mockRepository) LastUpdated(_ context.Context, _ string) (time.Time, error) {
	return time.Time{}, store.ErrNoCachedRecords
}

func testBridgeConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Site.ID = "test-site"
	cfg.PLM.Connection = "tcp://localhost:9761"
	cfg.Database.Path = "/tmp/test.db"
	cfg.Devices = []config.DeviceConfig{
		{
			Address: "1a.2b.3c",
			Name:    "hall-dimmer",
			Flags: []config.FlagConfig{
				{Name: "led_on", Group: 0, Bit: 4, SetCmd: 0x09, UnsetCmd: 0x08},
			},
		},
	}
	return cfg
}

func newTestBridge(t *testing.T) (*Bridge, *MockMQTTClient, *mockModem, *mockRepository) {
	t.Helper()

	mqttClient := NewMockMQTTClient()
	modem := newMockModem()
	repo := newMockRepository()

	b, err := New(Options{
		Config:     testBridgeConfig(),
		MQTTClient: mqttClient,
		Modem:      modem,
		Registry:   plm.NewRegistry(),
		Repository: repo,
		Clock:      clockwork.NewFakeClock(),
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(b.Stop)

	return b, mqttClient, modem, repo
}

// waitForAck polls the mock until an ack with the wanted status appears.
func waitForAck(t *testing.T, mqttClient *MockMQTTClient, address string, status AckStatus) AckMessage {
	t.Helper()

	topic := testTopics.Ack(address)
	deadline := time.After(2 * time.Second)
	for {
		for _, pub := range mqttClient.GetPublished() {
			if pub.Topic != topic {
				continue
			}
			var ack AckMessage
			if err := json.Unmarshal(pub.Payload, &ack); err != nil {
				t.Fatalf("unmarshal ack: %v", err)
			}
			if ack.Status == status {
				return ack
			}
		}
		select {
		case <-deadline:
			t.Fatalf("no %s ack published on %s", status, topic)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNew_RequiredOptions(t *testing.T) {
	base := Options{
		Config:     testBridgeConfig(),
		MQTTClient: NewMockMQTTClient(),
		Modem:      newMockModem(),
		Registry:   plm.NewRegistry(),
	}

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"missing config", func(o *Options) { o.Config = nil }},
		{"missing mqtt", func(o *Options) { o.MQTTClient = nil }},
		{"missing modem", func(o *Options) { o.Modem = nil }},
		{"missing registry", func(o *Options) { o.Registry = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.mutate(&opts)
			if _, err := New(opts); err == nil {
				t.Error("New() should return error")
			}
		})
	}
}

func TestNew_RejectsBadDeviceAddress(t *testing.T) {
	cfg := testBridgeConfig()
	cfg.Devices[0].Address = "not-an-address"

	_, err := New(Options{
		Config:     cfg,
		MQTTClient: NewMockMQTTClient(),
		Modem:      newMockModem(),
		Registry:   plm.NewRegistry(),
	})
	if err == nil {
		t.Fatal("New() should reject an unparseable device address")
	}
}

func TestBridge_StartSubscribesAndReportsHealth(t *testing.T) {
	b, mqttClient, _, _ := newTestBridge(t)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	subs := mqttClient.GetSubscriptions()
	if len(subs) != 1 || subs[0] != testTopics.AllCommands() {
		t.Errorf("subscriptions = %v, want [%s]", subs, testTopics.AllCommands())
	}

	healthTopic := testTopics.Health()
	sawHealthy := false
	for _, pub := range mqttClient.GetPublished() {
		if pub.Topic != healthTopic {
			continue
		}
		var msg HealthMessage
		if err := json.Unmarshal(pub.Payload, &msg); err != nil {
			t.Fatalf("unmarshal health: %v", err)
		}
		if msg.Status == HealthHealthy {
			sawHealthy = true
			if msg.DevicesManaged != 1 {
				t.Errorf("devices_managed = %d, want 1", msg.DevicesManaged)
			}
		}
	}
	if !sawHealthy {
		t.Error("no healthy status published after Start")
	}
}

func TestBridge_UnknownDeviceCommand(t *testing.T) {
	b, mqttClient, _, _ := newTestBridge(t)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cmd := CommandMessage{ID: "cmd-1", Action: "aldb.read"}
	payload, _ := json.Marshal(cmd)
	mqttClient.SimulateMessage(t, testTopics.Command("aa.bb.cc"), payload)

	ack := waitForAck(t, mqttClient, "aa.bb.cc", AckFailed)
	if ack.Error == nil || ack.Error.Code != ErrCodeUnknownDevice {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeUnknownDevice)
	}
	if ack.CommandID != "cmd-1" {
		t.Errorf("command_id = %q, want cmd-1", ack.CommandID)
	}
}

func TestBridge_UnknownActionCommand(t *testing.T) {
	b, mqttClient, _, _ := newTestBridge(t)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cmd := CommandMessage{ID: "cmd-2", Action: "reboot"}
	payload, _ := json.Marshal(cmd)
	mqttClient.SimulateMessage(t, testTopics.Command("1a.2b.3c"), payload)

	ack := waitForAck(t, mqttClient, "1a.2b.3c", AckFailed)
	if ack.Error == nil || ack.Error.Code != ErrCodeInvalidCommand {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeInvalidCommand)
	}
}

func TestBridge_FlagsWriteRejectsUnknownFlag(t *testing.T) {
	b, mqttClient, _, _ := newTestBridge(t)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cmd := CommandMessage{
		ID:     "cmd-3",
		Action: "flags.write",
		Parameters: map[string]any{
			"flags": map[string]any{"no_such_flag": true},
		},
	}
	payload, _ := json.Marshal(cmd)
	mqttClient.SimulateMessage(t, testTopics.Command("1a.2b.3c"), payload)

	ack := waitForAck(t, mqttClient, "1a.2b.3c", AckFailed)
	if ack.Error == nil || ack.Error.Code != ErrCodeInvalidParams {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeInvalidParams)
	}
}

func TestBridge_MalformedCommandPayload(t *testing.T) {
	b, _, _, _ := newTestBridge(t)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	err := b.handleCommandMessage(testTopics.Command("1a.2b.3c"), []byte("{not json"))
	if err == nil {
		t.Error("handleCommandMessage should return error for malformed payload")
	}
}

func TestBridge_SeedFromCache(t *testing.T) {
	b, mqttClient, _, repo := newTestBridge(t)

	cached := []insteon.Record{
		{
			MemAddr: 0x0FFF,
			Flags:   insteon.ControlFlagsFromByte(0xE2),
			Group:   1,
			Target:  insteon.AddressFromBytes(0x44, 0x55, 0x66),
			Data1:   0xFF,
		},
	}
	if err := repo.Replace(context.Background(), "1a.2b.3c", cached); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	mqttClient.ClearPublished()

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	aldbTopic := testTopics.DeviceALDB("1a.2b.3c")
	var found *ALDBMessage
	for _, pub := range mqttClient.GetPublished() {
		if pub.Topic != aldbTopic {
			continue
		}
		if !pub.Retained {
			t.Error("aldb state should be published retained")
		}
		var msg ALDBMessage
		if err := json.Unmarshal(pub.Payload, &msg); err != nil {
			t.Fatalf("unmarshal aldb state: %v", err)
		}
		found = &msg
	}
	if found == nil {
		t.Fatalf("no aldb state published on %s after seeding", aldbTopic)
	}
	if len(found.Records) != 1 {
		t.Fatalf("published %d records, want 1", len(found.Records))
	}
	if found.Records[0].Target != "44.55.66" {
		t.Errorf("target = %q, want 44.55.66", found.Records[0].Target)
	}

	dev, ok := b.Device("1a.2b.3c")
	if !ok {
		t.Fatal("device not registered")
	}
	if dev.ALDB().Len() != 1 {
		t.Errorf("mirror has %d records, want 1", dev.ALDB().Len())
	}
}

func TestReadParams(t *testing.T) {
	tests := []struct {
		name        string
		params      map[string]any
		wantMemAddr uint16
		wantNumRecs uint8
		wantErr     bool
	}{
		{"nil params reads whole table", nil, 0, 0, false},
		{"empty params reads whole table", map[string]any{}, 0, 0, false},
		{
			"targeted read defaults to one record",
			map[string]any{"mem_addr": float64(0x0FF7)},
			0x0FF7, 1, false,
		},
		{
			"explicit count",
			map[string]any{"mem_addr": float64(0x0FFF), "num_recs": float64(3)},
			0x0FFF, 3, false,
		},
		{"mem_addr out of range", map[string]any{"mem_addr": float64(0x10000)}, 0, 0, true},
		{"mem_addr wrong type", map[string]any{"mem_addr": "0x0FFF"}, 0, 0, true},
		{"num_recs out of range", map[string]any{"num_recs": float64(300)}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memAddr, numRecs, err := readParams(tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("readParams: %v", err)
			}
			if memAddr != tt.wantMemAddr || numRecs != tt.wantNumRecs {
				t.Errorf("readParams = (%04x, %d), want (%04x, %d)",
					memAddr, numRecs, tt.wantMemAddr, tt.wantNumRecs)
			}
		})
	}
}

func TestBridge_DeviceLookupIsCaseInsensitive(t *testing.T) {
	b, _, _, _ := newTestBridge(t)

	if _, ok := b.Device("1A.2B.3C"); !ok {
		t.Error("uppercase address should resolve to the configured device")
	}
	if _, ok := b.Device("9a.9b.9c"); ok {
		t.Error("unconfigured address should not resolve")
	}
}

func TestNewALDBMessage(t *testing.T) {
	records := []insteon.Record{
		{
			MemAddr: 0x0FFF,
			Flags:   insteon.ControlFlagsFromByte(0xE2),
			Group:   1,
			Target:  insteon.AddressFromBytes(0x1A, 0x2B, 0x3C),
			Data1:   0xFF, Data2: 0x1C, Data3: 0x01,
		},
		{
			MemAddr: 0x0FF7,
			Flags:   insteon.ControlFlagsFromByte(0x00), // terminator
			Target:  insteon.Address{},
		},
	}

	msg := NewALDBMessage("1a.2b.3c", true, "session-1", records)

	if msg.Address != "1a.2b.3c" || !msg.Loaded || msg.SessionID != "session-1" {
		t.Errorf("header fields wrong: %+v", msg)
	}
	if len(msg.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(msg.Records))
	}
	if !msg.Records[0].InUse || !msg.Records[0].Controller || msg.Records[0].HighWaterMark {
		t.Errorf("active record flags wrong: %+v", msg.Records[0])
	}
	if !msg.Records[1].HighWaterMark {
		t.Errorf("terminator record should carry the high-water mark: %+v", msg.Records[1])
	}
}

func TestAckHelpers(t *testing.T) {
	cmd := CommandMessage{ID: "c-1", Action: "aldb.read"}

	ack := NewAck(cmd, "1a.2b.3c", AckCompleted)
	if ack.CommandID != "c-1" || ack.Status != AckCompleted || ack.Error != nil {
		t.Errorf("NewAck = %+v", ack)
	}

	fail := NewAckError(cmd, "1a.2b.3c", ErrCodeInvalidParams, "bad params")
	if fail.Status != AckFailed || fail.Error == nil || fail.Error.Code != ErrCodeInvalidParams {
		t.Errorf("NewAckError = %+v", fail)
	}

	timeout := NewAckError(cmd, "1a.2b.3c", ErrCodeUnreachable, "no response")
	if timeout.Status != AckTimeout {
		t.Errorf("unreachable errors should ack as timeout, got %s", timeout.Status)
	}
}

// Interface conformance checks.
var (
	_ MQTTClient       = (*MockMQTTClient)(nil)
	_ ModemClient      = (*mockModem)(nil)
	_ store.Repository = (*mockRepository)(nil)
)
