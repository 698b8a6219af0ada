package room_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenrelay/sfu-core/internal/mediaworker"
	"github.com/lumenrelay/sfu-core/internal/room"
)

// fakePeer is a minimal room.PeerHandle double that records every
// notification delivered to it.
type fakePeer struct {
	id          string
	displayName string
	open        bool

	mu        sync.Mutex
	delivered []any
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id, displayName: id, open: true}
}

func (p *fakePeer) ID() string          { return p.id }
func (p *fakePeer) DisplayName() string { return p.displayName }
func (p *fakePeer) ConnOpen() bool      { return p.open }

func (p *fakePeer) Send(notification any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delivered = append(p.delivered, notification)
}

func (p *fakePeer) received() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.delivered))
	copy(out, p.delivered)
	return out
}

func newTestRoom(t *testing.T) *room.Room {
	t.Helper()
	worker, err := mediaworker.NewWorker(mediaworker.Settings{}, zap.NewNop())
	require.NoError(t, err)
	router := worker.CreateRouter("room-1")
	return room.New("room-1", router, zap.NewNop())
}

func TestJoinSnapshot_ExcludesTheJoiningPeerItself(t *testing.T) {
	r := newTestRoom(t)

	alice := newFakePeer("alice")
	others := r.JoinSnapshot(alice)
	assert.Empty(t, others, "first joiner should see no other peers")

	bob := newFakePeer("bob")
	others = r.JoinSnapshot(bob)
	require.Len(t, others, 1)
	assert.Equal(t, "alice", others[0].ID())

	assert.Equal(t, 2, r.PeerCount())
}

func TestBroadcast_SkipsExceptPeerAndClosedConnections(t *testing.T) {
	r := newTestRoom(t)

	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	carol := newFakePeer("carol")
	carol.open = false

	r.JoinSnapshot(alice)
	r.JoinSnapshot(bob)
	r.JoinSnapshot(carol)

	r.Broadcast(room.AudioLevelNotification{Type: "audioLevel", PeerID: "alice", Volume: -10}, "alice")

	assert.Empty(t, alice.received(), "except peer must not receive its own broadcast")
	assert.Len(t, bob.received(), 1)
	assert.Empty(t, carol.received(), "a closed connection must not receive delivery")
}

func TestBroadcast_InvokesRelayHook(t *testing.T) {
	r := newTestRoom(t)
	alice := newFakePeer("alice")
	r.JoinSnapshot(alice)

	var relayed any
	r.SetRelay(func(n any) { relayed = n })

	notification := room.AudioLevelNotification{Type: "audioLevel", PeerID: "alice", Volume: -5}
	r.Broadcast(notification, "")

	assert.Equal(t, notification, relayed)
}

func TestDeliverRemote_DoesNotReinvokeRelay(t *testing.T) {
	r := newTestRoom(t)
	alice := newFakePeer("alice")
	r.JoinSnapshot(alice)

	relayCalls := 0
	r.SetRelay(func(any) { relayCalls++ })

	r.DeliverRemote([]byte(`{"type":"peerLeft","peerId":"bob"}`))

	require.Len(t, alice.received(), 1)
	assert.Equal(t, 0, relayCalls, "a relayed-in notification must not be republished")
}

func TestRemovePeer_ReportsEmptiness(t *testing.T) {
	r := newTestRoom(t)
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	r.JoinSnapshot(alice)
	r.JoinSnapshot(bob)

	assert.False(t, r.RemovePeer("alice"))
	assert.True(t, r.RemovePeer("bob"))
	assert.True(t, r.IsEmpty())
}
