package rossink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robokit/logroute"
)

// frame mirrors the wire shape for decoding what the sink sent.
type frame struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Msg   struct {
		Header struct {
			Stamp struct {
				Secs  int64 `json:"secs"`
				Nsecs int64 `json:"nsecs"`
			} `json:"stamp"`
		} `json:"header"`
		Level    byte   `json:"level"`
		Name     string `json:"name"`
		Msg      string `json:"msg"`
		File     string `json:"file"`
		Function string `json:"function"`
		Line     int    `json:"line"`
	} `json:"msg"`
}

// newServer runs a rosbridge stand-in that records every frame. When
// dropAfter is positive, connection n <= dropAfter is closed after its
// first frame to force the sink to reconnect.
func newServer(t *testing.T, dropAfter int32) (*httptest.Server, chan frame) {
	frames := make(chan frame, 32)
	var upgrader websocket.Upgrader
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := conns.Add(1)
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			frames <- f
			if dropAfter > 0 && n <= dropAfter {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, frames
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFrame(t *testing.T, frames chan frame) frame {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(10 * time.Second):
		t.Fatal("no frame before timeout")
		return frame{}
	}
}

func TestDialAdvertises(t *testing.T) {
	srv, frames := newServer(t, 0)
	s, err := Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	f := waitFrame(t, frames)
	if f.Op != "advertise" || f.Topic != DefaultTopic || f.Type != logType {
		t.Errorf("advertise frame: %+v", f)
	}
}

func TestPublish(t *testing.T) {
	srv, frames := newServer(t, 0)
	s, err := Dial(context.Background(), wsURL(srv),
		WithTopic("/game/log"),
		WithNodeName("/game_node"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	waitFrame(t, frames) // advertise

	at := time.Date(2024, 5, 4, 12, 0, 0, 250000000, time.UTC)
	s.Accept(logroute.Record{
		Time:      at,
		Severity:  logroute.SeverityWarning,
		Logger:    "game.power",
		Message:   "low battery",
		Formatted: "WARNING game.power: low battery",
		File:      "power.go",
		Function:  "Check",
		Line:      12,
	})

	f := waitFrame(t, frames)
	if f.Op != "publish" || f.Topic != "/game/log" {
		t.Fatalf("publish frame: %+v", f)
	}
	if f.Msg.Level != rosWarn {
		t.Errorf("level: wanted %d, got %d", rosWarn, f.Msg.Level)
	}
	if f.Msg.Name != "/game_node" {
		t.Errorf("name: got %q", f.Msg.Name)
	}
	if f.Msg.Msg != "WARNING game.power: low battery" {
		t.Errorf("msg: got %q", f.Msg.Msg)
	}
	if f.Msg.Header.Stamp.Secs != at.Unix() || f.Msg.Header.Stamp.Nsecs != 250000000 {
		t.Errorf("stamp: got %d.%d", f.Msg.Header.Stamp.Secs, f.Msg.Header.Stamp.Nsecs)
	}
	if f.Msg.File != "power.go" || f.Msg.Function != "Check" || f.Msg.Line != 12 {
		t.Errorf("call site: %+v", f.Msg)
	}
}

func TestNodeNameFallsBackToLogger(t *testing.T) {
	srv, frames := newServer(t, 0)
	s, err := Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	waitFrame(t, frames) // advertise

	s.Accept(logroute.Record{Severity: logroute.SeverityInfo, Logger: "game.ai", Formatted: "thinking"})
	f := waitFrame(t, frames)
	if f.Msg.Name != "game.ai" {
		t.Errorf("name: wanted the logger name, got %q", f.Msg.Name)
	}
	if f.Msg.Level != rosInfo {
		t.Errorf("level: wanted %d, got %d", rosInfo, f.Msg.Level)
	}
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Nothing listens on the discard port.
	if _, err := Dial(ctx, "ws://127.0.0.1:9"); err == nil {
		t.Fatal("wanted a dial error")
	}
}

func TestReconnect(t *testing.T) {
	srv, frames := newServer(t, 1)
	errs := make(chan error, 8)
	s, err := Dial(context.Background(), wsURL(srv),
		WithErrorHandler(func(err error) {
			select {
			case errs <- err:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// The server drops the first connection after its advertise; the sink
	// must notice, back off, redial, and advertise again.
	first := waitFrame(t, frames)
	if first.Op != "advertise" {
		t.Fatalf("first frame: %+v", first)
	}
	second := waitFrame(t, frames)
	if second.Op != "advertise" {
		t.Fatalf("frame after reconnect: %+v", second)
	}

	select {
	case <-errs:
	case <-time.After(10 * time.Second):
		t.Fatal("connection loss never surfaced to the error handler")
	}

	s.Accept(logroute.Record{Severity: logroute.SeverityError, Logger: "game", Formatted: "recovered"})
	f := waitFrame(t, frames)
	if f.Op != "publish" || f.Msg.Msg != "recovered" {
		t.Errorf("publish after reconnect: %+v", f)
	}
}

func TestRosLevels(t *testing.T) {
	var tests = []struct {
		s    logroute.Severity
		want byte
	}{
		{logroute.SeverityDebug, 1},
		{logroute.SeverityInfo, 2},
		{logroute.SeverityWarning, 4},
		{logroute.SeverityError, 8},
		{logroute.SeverityCritical, 16},
	}
	for _, tt := range tests {
		if got := rosLevel(tt.s); got != tt.want {
			t.Errorf("%s: wanted %d, got %d", tt.s, tt.want, got)
		}
	}
}

func TestDropped(t *testing.T) {
	srv, frames := newServer(t, 0)
	s, err := Dial(context.Background(), wsURL(srv), WithQueueSize(1))
	if err != nil {
		t.Fatal(err)
	}
	waitFrame(t, frames) // advertise
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// With the pumps stopped nothing drains the queue, so everything
	// past its capacity is shed.
	for i := 0; i < 4; i++ {
		s.Accept(logroute.Record{Severity: logroute.SeverityInfo})
	}
	if got := s.Dropped(); got != 3 {
		t.Errorf("dropped: wanted 3, got %d", got)
	}
}
