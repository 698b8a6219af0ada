package mediaworker

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// Producer is an uplink media stream from a peer to the router. Its
// lifetime is independent of any particular Consumer reading from it.
type Producer struct {
	ID     string
	Kind   Kind
	Params RtpParameters

	transport *Transport

	paused atomic.Bool
	closed atomic.Bool

	mu          sync.Mutex
	remoteTrack *webrtc.TrackRemote
	consumers   map[string]*Consumer

	onTransportClose func()

	// PeerID stamps this producer's owning peer onto the handle itself,
	// since the AudioLevelObserver only ever sees Producer records and
	// has no other way to attribute a volumes event to a peer.
	PeerID string

	packetCount atomic.Uint64
}

func newProducer(id string, kind Kind, params RtpParameters, transport *Transport) *Producer {
	return &Producer{
		ID:        id,
		Kind:      kind,
		Params:    params,
		transport: transport,
		consumers: make(map[string]*Consumer),
	}
}

// OnTransportClose registers the callback fired when this producer's
// owning transport closes out from under it.
func (p *Producer) OnTransportClose(fn func()) {
	p.mu.Lock()
	p.onTransportClose = fn
	p.mu.Unlock()
}

func (p *Producer) bindRemoteTrack(track *webrtc.TrackRemote) {
	p.mu.Lock()
	p.remoteTrack = track
	p.mu.Unlock()
	go p.forwardLoop(track)
}

func (p *Producer) forwardLoop(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	pkt := &rtp.Packet{}
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			if err != io.EOF {
				// transport already torn down or track ended; nothing more to relay.
			}
			return
		}
		if p.closed.Load() || p.paused.Load() {
			continue
		}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		p.packetCount.Add(1)

		p.mu.Lock()
		subscribers := make([]*webrtc.TrackLocalStaticRTP, 0, len(p.consumers))
		for _, c := range p.consumers {
			subscribers = append(subscribers, c.localTrack)
		}
		p.mu.Unlock()

		for _, sub := range subscribers {
			_ = sub.WriteRTP(pkt)
		}
	}
}

func (p *Producer) addConsumer(c *Consumer) {
	p.mu.Lock()
	p.consumers[c.ID] = c
	p.mu.Unlock()
}

func (p *Producer) removeConsumer(id string) {
	p.mu.Lock()
	delete(p.consumers, id)
	p.mu.Unlock()
}

// packetsSince returns the number of RTP packets forwarded since the
// given baseline, and the new baseline to pass next call.
func (p *Producer) packetsSince(baseline uint64) (uint64, uint64) {
	current := p.packetCount.Load()
	return current - baseline, current
}

// RequestKeyFrame sends a Picture Loss Indication upstream on the
// producer's send transport, asking the publishing client for a fresh
// keyframe. Used when a new Consumer attaches to a video producer (it has
// no decodable frame until the next one) and when a paused producer
// resumes. Audio producers have nothing to request; a no-op.
func (p *Producer) RequestKeyFrame() error {
	if p.Kind != KindVideo {
		return nil
	}
	p.mu.Lock()
	track := p.remoteTrack
	p.mu.Unlock()
	if track == nil || p.closed.Load() {
		return nil
	}
	pli := &rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}
	if err := p.transport.pc.WriteRTCP([]rtcp.Packet{pli}); err != nil {
		return fmt.Errorf("write PLI for producer %s: %w", p.ID, err)
	}
	return nil
}

func (p *Producer) Pause() {
	p.paused.Store(true)
}

func (p *Producer) Resume() {
	p.paused.Store(false)
}

func (p *Producer) Paused() bool {
	return p.paused.Load()
}

// Close releases the producer and notifies every consumer bound to it so
// the owning peer can evict the corresponding consumer record. Idempotent.
func (p *Producer) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.mu.Lock()
	consumers := make([]*Consumer, 0, len(p.consumers))
	for _, c := range p.consumers {
		consumers = append(consumers, c)
	}
	p.consumers = make(map[string]*Consumer)
	p.mu.Unlock()

	for _, c := range consumers {
		c.notifyProducerClosed()
	}
}

func (p *Producer) notifyTransportClosed() {
	p.mu.Lock()
	fn := p.onTransportClose
	p.mu.Unlock()
	p.Close()
	if fn != nil {
		fn()
	}
}
