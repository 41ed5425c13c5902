// Package rossink forwards log records to a ROS system through a
// rosbridge server.
//
// A [Sink] satisfies [logroute.BridgeSink]. It speaks the rosbridge
// JSON protocol over a websocket: on dial it advertises a
// rosgraph_msgs/Log topic (by default /rosout) and afterwards publishes
// one Log message per accepted record. Dialing fails fast when the
// server is unreachable so a broken pipeline aborts startup instead of
// dropping records silently; connections lost later are re-established
// with exponential backoff while records queue, a full queue shedding
// the newest.
package rossink

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/robokit/logroute"
)

// DefaultTopic is the standard ROS log aggregation topic.
const DefaultTopic = "/rosout"

// logType is the message type advertised for the topic.
const logType = "rosgraph_msgs/Log"

// rosgraph_msgs/Log severity bytes. Unlike most severity scales these
// are bit flags, not consecutive values.
const (
	rosDebug byte = 1 << iota
	rosInfo
	rosWarn
	rosError
	rosFatal
)

const defaultQueueSize = 256

// opMsg is a rosbridge operation frame. Type rides along only on
// advertise, msg only on publish.
type opMsg struct {
	Op    string  `json:"op"`
	Topic string  `json:"topic"`
	Type  string  `json:"type,omitempty"`
	Msg   *logMsg `json:"msg,omitempty"`
}

// logMsg mirrors rosgraph_msgs/Log.
type logMsg struct {
	Header struct {
		Stamp stamp `json:"stamp"`
	} `json:"header"`
	Level    byte   `json:"level"`
	Name     string `json:"name"`
	Msg      string `json:"msg"`
	File     string `json:"file"`
	Function string `json:"function"`
	Line     int    `json:"line"`
}

// stamp is a ROS time split into whole seconds and nanoseconds.
type stamp struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// Sink publishes log records to a rosbridge server.
type Sink struct {
	url          string
	topic        string
	node         string
	writeTimeout time.Duration
	onError      func(error)

	queue   chan logroute.Record
	dropped atomic.Uint64

	cancel context.CancelFunc
	doneCh chan struct{}
}

// Dial connects to a rosbridge server at url (a ws:// or wss:// URL),
// advertises the log topic, and starts the sink. An unreachable server
// or failed advertise returns an error and no sink.
func Dial(ctx context.Context, url string, opts ...Option) (*Sink, error) {
	s := &Sink{
		url:          url,
		topic:        DefaultTopic,
		writeTimeout: 10 * time.Second,
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = make(chan logroute.Record, defaultQueueSize)
	}
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.doneCh)
		s.run(runCtx, conn)
	}()
	return s, nil
}

// Accept implements [logroute.BridgeSink]. It enqueues the record for
// the write pump and never blocks; a full queue drops the record and
// bumps the counter reported by [Sink.Dropped].
func (s *Sink) Accept(rec logroute.Record) {
	select {
	case s.queue <- rec:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many records were shed because the queue was
// full.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops the pumps and closes the connection. Records still queued
// may be lost.
func (s *Sink) Close() error {
	s.cancel()
	<-s.doneCh
	return nil
}

// run drives one connection at a time, redialing with backoff whenever
// the pumps fail, until ctx is canceled.
func (s *Sink) run(ctx context.Context, conn *websocket.Conn) {
	for {
		err := s.pump(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		s.fail(err)
		conn, err = s.redial(ctx)
		if err != nil {
			return
		}
	}
}

// pump services one connection: a write pump draining the queue, a read
// pump consuming rosbridge status frames and noticing connection loss,
// and a watcher that closes the socket once ctx ends so the read pump
// unblocks.
func (s *Sink) pump(ctx context.Context, conn *websocket.Conn) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
		return nil
	})
	g.Go(func() error {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rec := <-s.queue:
				conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
				if err := conn.WriteJSON(s.publishMsg(rec)); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}

// dial opens the websocket and advertises the topic on it.
func (s *Sink) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("rosbridge handshake with %s: %s: %w", s.url, resp.Status, err)
		}
		return nil, fmt.Errorf("rosbridge dial %s: %w", s.url, err)
	}
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := conn.WriteJSON(opMsg{Op: "advertise", Topic: s.topic, Type: logType}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rosbridge advertise %s: %w", s.topic, err)
	}
	return conn, nil
}

// redial retries dial on an exponential schedule until it succeeds or
// ctx ends.
func (s *Sink) redial(ctx context.Context) (*websocket.Conn, error) {
	ticker := backoff.NewTicker(&backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         30 * time.Second,
	})
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			conn, err := s.dial(ctx)
			if err != nil {
				s.fail(err)
				continue
			}
			return conn, nil
		}
	}
}

func (s *Sink) publishMsg(rec logroute.Record) opMsg {
	m := &logMsg{
		Level:    rosLevel(rec.Severity),
		Name:     s.node,
		Msg:      rec.Formatted,
		File:     rec.File,
		Function: rec.Function,
		Line:     rec.Line,
	}
	if m.Name == "" {
		m.Name = rec.Logger
	}
	m.Header.Stamp = stamp{
		Secs:  rec.Time.Unix(),
		Nsecs: int64(rec.Time.Nanosecond()),
	}
	return opMsg{Op: "publish", Topic: s.topic, Msg: m}
}

func (s *Sink) fail(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func rosLevel(sev logroute.Severity) byte {
	switch sev {
	case logroute.SeverityDebug:
		return rosDebug
	case logroute.SeverityInfo:
		return rosInfo
	case logroute.SeverityWarning:
		return rosWarn
	case logroute.SeverityError:
		return rosError
	default:
		return rosFatal
	}
}
