package mediaworker

import (
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v3"
)

// Consumer is a downlink media stream from the router to a peer, bound to
// exactly one upstream Producer for its entire lifetime.
type Consumer struct {
	ID         string
	ProducerID string
	Kind       Kind

	producer   *Producer
	transport  *Transport
	localTrack *webrtc.TrackLocalStaticRTP

	closed atomic.Bool

	mu              sync.Mutex
	onProducerClose func()
}

func newConsumer(id string, producer *Producer, localTrack *webrtc.TrackLocalStaticRTP, transport *Transport) *Consumer {
	return &Consumer{
		ID:         id,
		ProducerID: producer.ID,
		Kind:       producer.Kind,
		producer:   producer,
		transport:  transport,
		localTrack: localTrack,
	}
}

// OnProducerClose registers the callback fired when the upstream producer
// closes, so the owning peer can evict this consumer's record.
func (c *Consumer) OnProducerClose(fn func()) {
	c.mu.Lock()
	c.onProducerClose = fn
	c.mu.Unlock()
}

func (c *Consumer) notifyProducerClosed() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	fn := c.onProducerClose
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close detaches this consumer from its producer. Idempotent; safe to
// call whether or not the producer has already closed.
func (c *Consumer) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.producer.removeConsumer(c.ID)
}
