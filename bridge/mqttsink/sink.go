// Package mqttsink forwards log records to an MQTT broker.
//
// A [Sink] satisfies [logroute.BridgeSink] and publishes each accepted
// record to a single topic as a JSON document. Records are queued and
// published from one worker goroutine so that Accept never blocks the
// logging path; when the queue is full the newest record is shed and
// counted instead.
package mqttsink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/robokit/logroute"
)

// DefaultTopic is the topic records publish to unless [WithTopic]
// overrides it.
const DefaultTopic = "robot/logs"

const defaultQueueSize = 256

var errPublishTimeout = errors.New("mqttsink: publish not acknowledged before timeout")

// Sink publishes log records to an MQTT broker.
type Sink struct {
	client mqtt.Client
	// ownClient is set when the sink dialed the client itself and is
	// therefore responsible for disconnecting it.
	ownClient bool

	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
	onError  func(error)

	queue   chan logroute.Record
	dropped atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// payload is the wire shape of one published record.
type payload struct {
	Time      time.Time `json:"time"`
	Severity  string    `json:"severity"`
	Logger    string    `json:"logger"`
	Message   string    `json:"message"`
	Formatted string    `json:"formatted,omitempty"`
	File      string    `json:"file,omitempty"`
	Line      int       `json:"line,omitempty"`
	Function  string    `json:"function,omitempty"`
}

// New returns a Sink that publishes through client and starts its
// worker. The client is not connected by New; call [Sink.Connect] or
// hand the sink an already-connected client. Closing the sink does not
// disconnect a client provided this way.
func New(client mqtt.Client, opts ...Option) *Sink {
	s := &Sink{
		client:  client,
		topic:   DefaultTopic,
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = make(chan logroute.Record, defaultQueueSize)
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Dial builds a client for the broker URI, connects it, and returns a
// running sink. A broker that cannot be reached surfaces here, before
// any record is published. The sink owns the client and disconnects it
// on [Sink.Close].
func Dial(ctx context.Context, broker, clientID string, opts ...Option) (*Sink, error) {
	copts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)
	s := New(mqtt.NewClient(copts), opts...)
	s.ownClient = true
	if err := s.Connect(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Connect connects the wrapped client unless it already is, waiting on
// the connect token or ctx, whichever finishes first.
func (s *Sink) Connect(ctx context.Context) error {
	if s.client.IsConnected() {
		return nil
	}
	return waitToken(ctx, s.client.Connect())
}

// Accept implements [logroute.BridgeSink]. It enqueues the record for
// the worker and never blocks; a full queue drops the record and bumps
// the counter reported by [Sink.Dropped].
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

// Close drains the queue, stops the worker, and disconnects the client
// if the sink dialed it. Records accepted after Close may be lost.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	if s.ownClient {
		s.client.Disconnect(500)
	}
	return nil
}

func (s *Sink) run() {
	defer s.wg.Done()
	for {
		select {
		case rec := <-s.queue:
			s.publish(rec)
		case <-s.done:
			// Flush whatever Accept managed to enqueue.
			for {
				select {
				case rec := <-s.queue:
					s.publish(rec)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) publish(rec logroute.Record) {
	data, err := json.Marshal(payloadOf(rec))
	if err != nil {
		s.fail(err)
		return
	}
	t := s.client.Publish(s.topic, s.qos, s.retained, data)
	if !t.WaitTimeout(s.timeout) {
		s.fail(errPublishTimeout)
		return
	}
	if err := t.Error(); err != nil {
		s.fail(err)
	}
}

func (s *Sink) fail(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func payloadOf(rec logroute.Record) payload {
	return payload{
		Time:      rec.Time,
		Severity:  rec.Severity.String(),
		Logger:    rec.Logger,
		Message:   rec.Message,
		Formatted: rec.Formatted,
		File:      rec.File,
		Line:      rec.Line,
		Function:  rec.Function,
	}
}

func waitToken(ctx context.Context, t mqtt.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
	}
	return t.Error()
}
