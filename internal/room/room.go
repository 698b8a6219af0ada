// Package room implements the Room entity: it owns a router, an
// audio-level observer, and the set of peers currently in it, and is
// responsible for broadcast fan-out and self-destruction on emptiness.
package room

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/lumenrelay/sfu-core/internal/mediaworker"
	"github.com/lumenrelay/sfu-core/internal/metrics"
)

// PeerHandle is the subset of Peer behavior Room needs: enough to
// broadcast to it and to know its identity, without Room depending on the
// peer package's concrete type (peer depends on room instead — room must
// not import peer, to avoid an import cycle, since Peer already needs to
// reach back into its Room for broadcasting).
type PeerHandle interface {
	ID() string
	DisplayName() string
	Send(notification any)
	ConnOpen() bool
}

type Room struct {
	id     string
	Router *mediaworker.Router
	Audio  *mediaworker.AudioLevelObserver

	logger *zap.Logger

	mu    sync.RWMutex
	peers map[string]PeerHandle

	dominantSpeaker string

	// relay, if set, is invoked with every notification broadcast
	// locally so the caller can additionally publish it to the
	// cross-instance Broadcast Bus relay. Never invoked for
	// DeliverRemote, which is how an already-relayed notification gets
	// delivered to this process's local peers without bouncing back out.
	relay func(notification any)
}

// SetRelay registers the cross-instance relay hook. Called once, right
// after the Room is constructed.
func (r *Room) SetRelay(fn func(notification any)) {
	r.mu.Lock()
	r.relay = fn
	r.mu.Unlock()
}

func New(id string, router *mediaworker.Router, logger *zap.Logger) *Room {
	r := &Room{
		id:     id,
		Router: router,
		logger: logger,
		peers:  make(map[string]PeerHandle),
	}
	r.Audio = router.CreateAudioLevelObserver()
	r.Audio.OnVolumes(r.handleVolumes)
	return r
}

func (r *Room) ID() string { return r.id }

// JoinSnapshot adds p to the room and, in the same critical section,
// snapshots every other peer currently present. Running the add and the
// snapshot under one lock acquisition is what makes the join-snapshot vs.
// newProducer race in spec.md §4.1 resolve correctly: Synchronized (used
// by produce) cannot interleave with this call, so a producer either
// exists in the snapshot or arrives via a later notification, never both
// and never neither.
func (r *Room) JoinSnapshot(p PeerHandle) (others []PeerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	others = make([]PeerHandle, 0, len(r.peers))
	for _, existing := range r.peers {
		others = append(others, existing)
	}
	r.peers[p.ID()] = p
	return others
}

// Synchronized runs fn under the room's coordination domain. Used by the
// produce handler to register a new producer record atomically with
// respect to any concurrent JoinSnapshot.
func (r *Room) Synchronized(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// RemovePeer removes p from the room's peer set and reports whether the
// room is now empty, for the caller to decide on room teardown (spec's
// CleanupPeer step 6 happens one level up, in the peer package, since it
// also needs to close the Router/Audio observer and touch the registry).
func (r *Room) RemovePeer(peerID string) (empty bool) {
	r.mu.Lock()
	delete(r.peers, peerID)
	empty = len(r.peers) == 0
	r.mu.Unlock()
	return empty
}

func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers) == 0
}

func (r *Room) Peer(peerID string) (PeerHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[peerID]
	return p, ok
}

// Peers returns a snapshot slice of every peer currently in the room.
func (r *Room) Peers() []PeerHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PeerHandle, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

func (r *Room) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// Broadcast snapshots the recipient set under the room's own lock and
// dispatches outside of it, tolerating recipient disconnection mid
// fan-out. A closed peer's delivery is a silent no-op: its own disconnect
// handler will clean it up.
func (r *Room) Broadcast(notification any, except string) {
	r.mu.RLock()
	recipients := make([]PeerHandle, 0, len(r.peers))
	for id, p := range r.peers {
		if id == except {
			continue
		}
		recipients = append(recipients, p)
	}
	r.mu.RUnlock()

	for _, p := range recipients {
		if !p.ConnOpen() {
			continue
		}
		p.Send(notification)
	}

	r.mu.RLock()
	relay := r.relay
	r.mu.RUnlock()
	if relay != nil {
		relay(notification)
	}
}

// DeliverRemote fans a raw, already-relayed notification payload out to
// local peers only, without invoking the relay hook again — this is how a
// notification received from another instance reaches this process's
// clients without bouncing back out to the bus.
func (r *Room) DeliverRemote(payload []byte) {
	r.mu.RLock()
	recipients := make([]PeerHandle, 0, len(r.peers))
	for _, p := range r.peers {
		recipients = append(recipients, p)
	}
	r.mu.RUnlock()

	for _, p := range recipients {
		if !p.ConnOpen() {
			continue
		}
		p.Send(json.RawMessage(payload))
	}
}

// AudioLevelNotification is the audioLevel{peerId, volume} wire shape.
type AudioLevelNotification struct {
	Type   string  `json:"type"`
	PeerID string  `json:"peerId"`
	Volume float64 `json:"volume"`
}

func (r *Room) handleVolumes(v mediaworker.VolumeEntry) {
	r.mu.Lock()
	r.dominantSpeaker = v.PeerID
	r.mu.Unlock()

	metrics.AudioLevelEventsTotal.Inc()

	// audioLevel is broadcast to every peer including the speaker itself,
	// so clients can self-highlight; except="" excludes nobody.
	r.Broadcast(AudioLevelNotification{Type: "audioLevel", PeerID: v.PeerID, Volume: v.Volume}, "")
}

// DominantSpeaker is a stats-endpoint convenience derived from the most
// recent audioLevel emission; it is not part of the signaling protocol.
func (r *Room) DominantSpeaker() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dominantSpeaker
}

// Close releases the room's router and observer. Idempotent by virtue of
// the mediaworker handles themselves being idempotent to close.
func (r *Room) Close() {
	r.Audio.Close()
	r.Router.Close()
}

// Stats is a read-only snapshot for the REST introspection endpoint.
type Stats struct {
	ID              string `json:"id"`
	PeerCount       int    `json:"peerCount"`
	DominantSpeaker string `json:"dominantSpeaker,omitempty"`
}

func (r *Room) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{ID: r.id, PeerCount: len(r.peers), DominantSpeaker: r.dominantSpeaker}
}
