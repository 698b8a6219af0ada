// Package peer implements the Peer entity: its transports, the producers
// it originates, the consumers it receives, and its own graceful or
// forced teardown.
package peer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lumenrelay/sfu-core/internal/mediaworker"
	"github.com/lumenrelay/sfu-core/internal/metrics"
)

type State string

const (
	StateNew          State = "New"
	StateConnecting   State = "Connecting"
	StateConnected    State = "Connected"
	StateDisconnected State = "Disconnected"
)

// Wire is the lowercase wire-protocol spelling of a state
// (e.g. "connected" in a joinRoom peer snapshot), distinct from the
// capitalized state-machine names used internally and in logs.
func (s State) Wire() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return string(s)
	}
}

// Conn is the bidirectional message stream a Peer exclusively owns. It is
// satisfied by the signaling package's connection type; kept minimal here
// so this package never has to import signaling.
type Conn interface {
	Send(v any) error
	Close() error
	Open() bool
}

// ProducerRecord is the Peer-owned bookkeeping around a mediaworker
// Producer handle: application-level flags the media engine itself does
// not track.
type ProducerRecord struct {
	ID     string
	Source string
	Kind   mediaworker.Kind
	Paused bool
	Muted  bool
	Handle *mediaworker.Producer
}

// ConsumerRecord is keyed by its upstream producerId (not its own id) in
// the Peer's consumers map, so a producer-close event evicts it in O(1).
type ConsumerRecord struct {
	ID         string
	PeerID     string // upstream producer's owning peer
	ProducerID string
	Handle     *mediaworker.Consumer
}

// RoomHandle is the subset of Room behavior Peer needs for teardown and
// broadcasting, kept minimal to avoid an import cycle with package room.
type RoomHandle interface {
	ID() string
	Broadcast(notification any, except string)
	RemovePeer(peerID string) (empty bool)
}

// Registry is the subset of the Session Registry's behavior Peer needs to
// remove its own bindings during teardown.
type Registry interface {
	Unbind(conn any, peerID string, roomIsEmpty func() bool)
}

type Peer struct {
	id          string
	displayName string
	conn        Conn
	room        RoomHandle
	registry    Registry
	logger      *zap.Logger

	mu    sync.RWMutex
	state State

	sendTransport *mediaworker.Transport
	recvTransport *mediaworker.Transport

	producers map[string]*ProducerRecord
	consumers map[string]*ConsumerRecord

	cleanupOnce sync.Once

	onEmptyRoom func()
}

func New(id, displayName string, conn Conn, room RoomHandle, registry Registry, logger *zap.Logger) *Peer {
	return &Peer{
		id:          id,
		displayName: displayName,
		conn:        conn,
		room:        room,
		registry:    registry,
		logger:      logger,
		state:       StateNew,
		producers:   make(map[string]*ProducerRecord),
		consumers:   make(map[string]*ConsumerRecord),
	}
}

func (p *Peer) ID() string          { return p.id }
func (p *Peer) DisplayName() string { return p.displayName }

func (p *Peer) ConnOpen() bool { return p.conn.Open() }

func (p *Peer) Send(notification any) {
	_ = p.conn.Send(notification)
}

func (p *Peer) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Peer) SetState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// OnRoomEmptied registers the callback fired from CleanupPeer's step 6
// when this peer's departure leaves the room empty. The caller (the sfu
// orchestrator) uses it to close the room's mediaworker handles and
// remove the room from the registry — Peer itself only know its own
// Room's peer-count, not how to tear the Room down.
func (p *Peer) OnRoomEmptied(fn func()) {
	p.mu.Lock()
	p.onEmptyRoom = fn
	p.mu.Unlock()
}

func (p *Peer) SetSendTransport(t *mediaworker.Transport) {
	p.mu.Lock()
	p.sendTransport = t
	p.mu.Unlock()
}

func (p *Peer) SetRecvTransport(t *mediaworker.Transport) {
	p.mu.Lock()
	p.recvTransport = t
	p.mu.Unlock()
}

func (p *Peer) SendTransport() *mediaworker.Transport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sendTransport
}

func (p *Peer) RecvTransport() *mediaworker.Transport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.recvTransport
}

func (p *Peer) TransportByDirection(dir mediaworker.Direction) *mediaworker.Transport {
	if dir == mediaworker.DirectionSend {
		return p.SendTransport()
	}
	return p.RecvTransport()
}

// AddProducer registers a newly created producer record and increments
// its gauge before wiring the transportclose event back to the peer's own
// eviction path — in that order, so a transportclose racing this call can
// never run evictProducer's Dec() before this Inc() (the callback that
// calls it does not exist until after the gauge is already up).
func (p *Peer) AddProducer(rec *ProducerRecord) {
	p.mu.Lock()
	p.producers[rec.ID] = rec
	p.mu.Unlock()

	metrics.ActiveProducers.WithLabelValues(string(rec.Kind)).Inc()

	rec.Handle.OnTransportClose(func() {
		p.evictProducer(rec.ID, true)
	})
}

func (p *Peer) Producer(id string) (*ProducerRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.producers[id]
	return rec, ok
}

func (p *Peer) Producers() []*ProducerRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*ProducerRecord, 0, len(p.producers))
	for _, rec := range p.producers {
		out = append(out, rec)
	}
	return out
}

// ProducerClosedNotification is the producerClosed{peerId, producerId}
// wire shape.
type ProducerClosedNotification struct {
	Type       string `json:"type"`
	PeerID     string `json:"peerId"`
	ProducerID string `json:"producerId"`
}

// evictProducer removes producerID from this peer's bookkeeping. When
// broadcast is true a producerClosed notification is sent to the room's
// other peers (every current caller passes true: explicit closeProducer,
// transportclose eviction, and CleanupPeer's step 1).
func (p *Peer) evictProducer(producerID string, broadcast bool) {
	p.mu.Lock()
	rec, existed := p.producers[producerID]
	delete(p.producers, producerID)
	p.mu.Unlock()

	// A producer already evicted (e.g. by CleanupPeer's own step 1 racing
	// a transportclose callback) must not broadcast a second producerClosed,
	// nor double-count the gauge decrement.
	if !existed {
		return
	}
	metrics.ActiveProducers.WithLabelValues(string(rec.Kind)).Dec()
	if broadcast {
		p.room.Broadcast(ProducerClosedNotification{Type: "producerClosed", PeerID: p.id, ProducerID: producerID}, p.id)
	}
}

// CloseProducer implements the closeProducer request: close the worker
// handle and evict + broadcast.
func (p *Peer) CloseProducer(producerID string) error {
	rec, ok := p.Producer(producerID)
	if !ok {
		return fmt.Errorf("producer not found")
	}
	rec.Handle.Close()
	p.evictProducer(producerID, true)
	return nil
}

// AddConsumer registers a newly created consumer record, keyed by its
// upstream producerId, increments its gauge, then wires the producerclose
// event back to eviction — in that order, for the same reason AddProducer
// orders its own Inc() before the callback that can Dec() it.
func (p *Peer) AddConsumer(rec *ConsumerRecord) {
	p.mu.Lock()
	p.consumers[rec.ProducerID] = rec
	p.mu.Unlock()

	metrics.ActiveConsumers.Inc()

	rec.Handle.OnProducerClose(func() {
		p.evictConsumer(rec.ProducerID)
	})
}

// evictConsumer removes the consumer keyed by upstreamProducerID from this
// peer's bookkeeping, if still present. Used both by the upstream
// producer-close callback and by CleanupPeer's own step 2.
func (p *Peer) evictConsumer(upstreamProducerID string) {
	p.mu.Lock()
	_, existed := p.consumers[upstreamProducerID]
	delete(p.consumers, upstreamProducerID)
	p.mu.Unlock()
	if existed {
		metrics.ActiveConsumers.Dec()
	}
}

func (p *Peer) ConsumerByUpstream(producerID string) (*ConsumerRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.consumers[producerID]
	return rec, ok
}

func (p *Peer) Consumers() []*ConsumerRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*ConsumerRecord, 0, len(p.consumers))
	for _, rec := range p.consumers {
		out = append(out, rec)
	}
	return out
}

// PeerLeftNotification is the peerLeft{peerId, displayName} wire shape.
type PeerLeftNotification struct {
	Type        string `json:"type"`
	PeerID      string `json:"peerId"`
	DisplayName string `json:"displayName"`
}

// CleanupPeer is the teardown protocol: invoked on connection close,
// explicit hangup, or forced eviction. It executes exactly once per peer,
// in order, and is safe to call any number of times concurrently — only
// the first call does anything.
func (p *Peer) CleanupPeer() {
	p.cleanupOnce.Do(func() {
		// 1. Close every producer; broadcast producerClosed for each.
		for _, rec := range p.Producers() {
			rec.Handle.Close()
			p.evictProducer(rec.ID, true)
		}

		// 2. Close every consumer; no broadcast.
		for _, rec := range p.Consumers() {
			rec.Handle.Close()
			p.evictConsumer(rec.ProducerID)
		}

		// 3. Close sendTransport then recvTransport if present.
		p.mu.Lock()
		send, recv := p.sendTransport, p.recvTransport
		p.sendTransport, p.recvTransport = nil, nil
		p.mu.Unlock()
		if send != nil {
			send.Close()
		}
		if recv != nil {
			recv.Close()
		}

		// 4. Remove mappings from Session Registry and from Room.peers,
		// atomically with the emptiness check for step 6.
		var roomEmpty bool
		p.registry.Unbind(p.conn, p.id, func() bool {
			roomEmpty = p.room.RemovePeer(p.id)
			return roomEmpty
		})

		// 5. Broadcast peerLeft to remaining peers.
		p.room.Broadcast(PeerLeftNotification{Type: "peerLeft", PeerID: p.id, DisplayName: p.displayName}, "")

		p.SetState(StateDisconnected)
		metrics.ActivePeers.Dec()

		// 6. If Room.peers is now empty, the caller registered via
		// OnRoomEmptied closes the observer/router and drops the room
		// from the registry.
		p.mu.RLock()
		onEmpty := p.onEmptyRoom
		p.mu.RUnlock()
		if roomEmpty && onEmpty != nil {
			onEmpty()
		}
	})
}
