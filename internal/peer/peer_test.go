package peer_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenrelay/sfu-core/internal/mediaworker"
	"github.com/lumenrelay/sfu-core/internal/peer"
)

type fakeConn struct {
	mu   sync.Mutex
	sent []any
	open bool
}

func newFakeConn() *fakeConn { return &fakeConn{open: true} }

func (c *fakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return nil
}
func (c *fakeConn) Close() error { c.open = false; return nil }
func (c *fakeConn) Open() bool   { return c.open }

type fakeRoom struct {
	mu           sync.Mutex
	broadcasts   []any
	removedPeers []string
	empty        bool
}

func (r *fakeRoom) ID() string { return "room-1" }
func (r *fakeRoom) Broadcast(notification any, except string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, notification)
}
func (r *fakeRoom) RemovePeer(peerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removedPeers = append(r.removedPeers, peerID)
	return r.empty
}

type fakeRegistry struct {
	unbound     []string
	roomIsEmpty func() bool
}

func (r *fakeRegistry) Unbind(conn any, peerID string, roomIsEmpty func() bool) {
	r.unbound = append(r.unbound, peerID)
	r.roomIsEmpty = roomIsEmpty
	roomIsEmpty()
}

func newTestPeer(room *fakeRoom, registry *fakeRegistry) (*peer.Peer, *fakeConn) {
	conn := newFakeConn()
	p := peer.New("peer-1", "Alice", conn, room, registry, zap.NewNop())
	return p, conn
}

func TestState_WireUsesLowercaseSpelling(t *testing.T) {
	assert.Equal(t, "new", peer.StateNew.Wire())
	assert.Equal(t, "connecting", peer.StateConnecting.Wire())
	assert.Equal(t, "connected", peer.StateConnected.Wire())
	assert.Equal(t, "disconnected", peer.StateDisconnected.Wire())
}

func TestAddProducer_RegistersRecord(t *testing.T) {
	room := &fakeRoom{}
	registry := &fakeRegistry{}
	p, _ := newTestPeer(room, registry)

	handle := &mediaworker.Producer{ID: "prod-1", Kind: mediaworker.KindVideo}
	p.AddProducer(&peer.ProducerRecord{ID: "prod-1", Kind: mediaworker.KindVideo, Handle: handle})

	_, ok := p.Producer("prod-1")
	assert.True(t, ok)
}

func TestCloseProducer_EvictsAndBroadcastsOnce(t *testing.T) {
	room := &fakeRoom{}
	registry := &fakeRegistry{}
	p, _ := newTestPeer(room, registry)

	handle := &mediaworker.Producer{ID: "prod-1", Kind: mediaworker.KindAudio}
	p.AddProducer(&peer.ProducerRecord{ID: "prod-1", Kind: mediaworker.KindAudio, Handle: handle})

	require.NoError(t, p.CloseProducer("prod-1"))
	assert.Len(t, room.broadcasts, 1)

	// A second close of the same, already-evicted producer must fail
	// cleanly rather than broadcasting producerClosed a second time.
	err := p.CloseProducer("prod-1")
	assert.Error(t, err)
	assert.Len(t, room.broadcasts, 1, "already-evicted producer must not double-broadcast")
}

func TestCloseProducer_UnknownIDReturnsError(t *testing.T) {
	room := &fakeRoom{}
	registry := &fakeRegistry{}
	p, _ := newTestPeer(room, registry)

	err := p.CloseProducer("does-not-exist")
	assert.Error(t, err)
}

func TestAddConsumer_RegistersRecordKeyedByUpstreamProducer(t *testing.T) {
	room := &fakeRoom{}
	registry := &fakeRegistry{}
	p, _ := newTestPeer(room, registry)

	consumer := &mediaworker.Consumer{ID: "cons-1", ProducerID: "prod-1", Kind: mediaworker.KindAudio}
	p.AddConsumer(&peer.ConsumerRecord{ID: "cons-1", ProducerID: "prod-1", Handle: consumer})

	rec, ok := p.ConsumerByUpstream("prod-1")
	require.True(t, ok)
	assert.Equal(t, "cons-1", rec.ID)
	assert.Len(t, p.Consumers(), 1)
}

func TestCleanupPeer_RunsExactlyOnceAndBroadcastsPeerLeft(t *testing.T) {
	room := &fakeRoom{}
	registry := &fakeRegistry{}
	p, _ := newTestPeer(room, registry)

	handle := &mediaworker.Producer{ID: "prod-1", Kind: mediaworker.KindAudio}
	p.AddProducer(&peer.ProducerRecord{ID: "prod-1", Kind: mediaworker.KindAudio, Handle: handle})

	var emptiedCalls int
	p.OnRoomEmptied(func() { emptiedCalls++ })

	room.empty = true

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.CleanupPeer()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, emptiedCalls, "OnRoomEmptied callback must fire exactly once")
	assert.Equal(t, peer.StateDisconnected, p.State())
	assert.Contains(t, registry.unbound, "peer-1")

	foundPeerLeft := false
	for _, n := range room.broadcasts {
		if _, ok := n.(peer.PeerLeftNotification); ok {
			foundPeerLeft = true
		}
	}
	assert.True(t, foundPeerLeft, "CleanupPeer must broadcast peerLeft")
}
