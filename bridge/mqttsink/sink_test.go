package mqttsink_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/robokit/logroute"
	"github.com/robokit/logroute/bridge/mqttsink"
)

type pubCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient satisfies mqtt.Client and captures publishes.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	pubs      chan pubCall
	gate      chan struct{} // when set, Publish blocks until it closes
}

func newFakeClient() *fakeClient {
	return &fakeClient{pubs: make(chan pubCall, 32)}
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return &mqtt.DummyToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if c.gate != nil {
		<-c.gate
	}
	b, _ := payload.([]byte)
	c.pubs <- pubCall{topic, qos, retained, b}
	return &mqtt.DummyToken{}
}

func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return &mqtt.DummyToken{}
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &mqtt.DummyToken{}
}

func (c *fakeClient) Unsubscribe(...string) mqtt.Token { return &mqtt.DummyToken{} }

func (c *fakeClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.NewOptionsReader(mqtt.NewClientOptions())
}

func waitPub(t *testing.T, c *fakeClient) pubCall {
	t.Helper()
	select {
	case p := <-c.pubs:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no publish before timeout")
		return pubCall{}
	}
}

func TestSinkPublishes(t *testing.T) {
	fc := newFakeClient()
	s := mqttsink.New(fc,
		mqttsink.WithTopic("robot/telemetry/logs"),
		mqttsink.WithQoS(1),
		mqttsink.WithRetained(true),
	)
	defer s.Close()

	s.Accept(logroute.Record{
		Time:      time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC),
		Severity:  logroute.SeverityWarning,
		Logger:    "game.power",
		Message:   "low battery",
		Formatted: "WARNING game.power: low battery",
		File:      "power.go",
		Line:      12,
		Function:  "Check",
	})

	p := waitPub(t, fc)
	if p.topic != "robot/telemetry/logs" {
		t.Errorf("topic: got %q", p.topic)
	}
	if p.qos != 1 || !p.retained {
		t.Errorf("qos/retained: got %d/%v", p.qos, p.retained)
	}

	var got map[string]any
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatalf("payload %s: %v", p.payload, err)
	}
	if got["severity"] != "WARNING" || got["logger"] != "game.power" {
		t.Errorf("payload identity: %v", got)
	}
	if got["message"] != "low battery" || got["formatted"] != "WARNING game.power: low battery" {
		t.Errorf("payload body: %v", got)
	}
	if got["file"] != "power.go" || got["line"] != float64(12) || got["function"] != "Check" {
		t.Errorf("payload call site: %v", got)
	}
}

func TestSinkDefaultTopic(t *testing.T) {
	fc := newFakeClient()
	s := mqttsink.New(fc)
	defer s.Close()

	s.Accept(logroute.Record{Severity: logroute.SeverityInfo, Message: "m"})
	if p := waitPub(t, fc); p.topic != mqttsink.DefaultTopic {
		t.Errorf("topic: wanted %q, got %q", mqttsink.DefaultTopic, p.topic)
	}
}

func TestCloseFlushes(t *testing.T) {
	fc := newFakeClient()
	s := mqttsink.New(fc)

	for i := 0; i < 3; i++ {
		s.Accept(logroute.Record{Severity: logroute.SeverityInfo, Message: "m"})
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if got := len(fc.pubs); got != 3 {
		t.Errorf("wanted 3 publishes after close, got %d", got)
	}
}

func TestAcceptShedsWhenFull(t *testing.T) {
	fc := newFakeClient()
	fc.gate = make(chan struct{})
	s := mqttsink.New(fc, mqttsink.WithQueueSize(1))

	for i := 0; i < 8; i++ {
		s.Accept(logroute.Record{Severity: logroute.SeverityInfo, Message: "m"})
	}
	// One record may sit with the worker and one in the queue; the rest
	// must shed without blocking.
	if got := s.Dropped(); got < 6 {
		t.Errorf("dropped: wanted at least 6, got %d", got)
	}

	close(fc.gate)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := uint64(len(fc.pubs)); got != 8-s.Dropped() {
		t.Errorf("published %d with %d dropped of 8", got, s.Dropped())
	}
}

func TestConnect(t *testing.T) {
	fc := newFakeClient()
	s := mqttsink.New(fc)
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !fc.IsConnected() {
		t.Error("client not connected")
	}
	// Connecting an already connected client is a no-op.
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
}
