package rossink

import (
	"time"

	"github.com/robokit/logroute"
)

// Option configures a [Sink].
type Option func(*Sink)

// WithTopic sets the ROS topic records publish to. The default is
// [DefaultTopic].
func WithTopic(topic string) Option {
	return func(s *Sink) {
		s.topic = topic
	}
}

// WithNodeName sets the node name stamped on every Log message. Without
// it each message carries the name of the logger that produced it.
func WithNodeName(name string) Option {
	return func(s *Sink) {
		s.node = name
	}
}

// WithQueueSize bounds how many records may wait for the write pump
// before Accept starts shedding. The default is 256.
func WithQueueSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.queue = make(chan logroute.Record, n)
		}
	}
}

// WithWriteTimeout bounds each websocket write, the advertise frame
// included. The default is 10 seconds.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithErrorHandler installs a callback invoked with dial and publish
// failures. Without one they are discarded; the sink keeps reconnecting
// either way.
func WithErrorHandler(h func(error)) Option {
	return func(s *Sink) {
		s.onError = h
	}
}
