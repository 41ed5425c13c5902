package mqttsink

import (
	"time"

	"github.com/robokit/logroute"
)

// Option configures a [Sink].
type Option func(*Sink)

// WithTopic sets the topic records publish to. The default is
// [DefaultTopic].
func WithTopic(topic string) Option {
	return func(s *Sink) {
		s.topic = topic
	}
}

// WithQoS sets the MQTT quality of service for published records.
func WithQoS(qos byte) Option {
	return func(s *Sink) {
		s.qos = qos
	}
}

// WithRetained marks published records as retained so the broker keeps
// the last one per topic.
func WithRetained(retained bool) Option {
	return func(s *Sink) {
		s.retained = retained
	}
}

// WithQueueSize bounds how many records may wait for the worker before
// Accept starts shedding. The default is 256.
func WithQueueSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.queue = make(chan logroute.Record, n)
		}
	}
}

// WithPublishTimeout bounds how long the worker waits for the broker to
// acknowledge one record. The default is 5 seconds.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithErrorHandler installs a callback invoked with publish failures.
// Without one, failures are discarded so a flaky broker cannot stall
// logging.
func WithErrorHandler(h func(error)) Option {
	return func(s *Sink) {
		s.onError = h
	}
}
