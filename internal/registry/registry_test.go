package registry_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenrelay/sfu-core/internal/registry"
)

type fakeRoom struct{ id string }

func (f *fakeRoom) ID() string { return f.id }

func TestGetOrCreateRoom_ReturnsSameInstanceForRepeatedCalls(t *testing.T) {
	r := registry.New()
	created := 0

	create := func() registry.RoomHandle {
		created++
		return &fakeRoom{id: "room-1"}
	}

	first := r.GetOrCreateRoom("room-1", create)
	second := r.GetOrCreateRoom("room-1", create)

	assert.Same(t, first, second)
	assert.Equal(t, 1, created, "create() must only run once per room id")
}

func TestGetOrCreateRoomCapped_RejectsBeyondMax(t *testing.T) {
	r := registry.New()
	n := 0
	create := func() registry.RoomHandle {
		n++
		return &fakeRoom{id: "room"}
	}

	_, ok := r.GetOrCreateRoomCapped("room-1", 1, create)
	require.True(t, ok)

	_, ok = r.GetOrCreateRoomCapped("room-2", 1, create)
	assert.False(t, ok, "a second distinct room must be rejected once at the cap")
	assert.Equal(t, 1, n)

	// Re-requesting an already-created room never consults the cap.
	existing, ok := r.GetOrCreateRoomCapped("room-1", 1, create)
	assert.True(t, ok)
	assert.Equal(t, "room", existing.ID())
}

func TestGetOrCreateRoomCapped_ZeroMeansUnlimited(t *testing.T) {
	r := registry.New()
	for i := 0; i < 5; i++ {
		_, ok := r.GetOrCreateRoomCapped(fmt.Sprintf("room-%d", i), 0, func() registry.RoomHandle {
			return &fakeRoom{id: "room"}
		})
		require.True(t, ok)
	}
	assert.Equal(t, 5, r.RoomCount())
}

func TestBindPeer_RejectsSecondBindForSamePeerID(t *testing.T) {
	r := registry.New()

	ok := r.BindPeer("conn-a", "peer-1", "room-1")
	require.True(t, ok)

	// Same peerId, different room and connection: spec requires a peerId
	// to be bound to at most one room process-wide.
	ok = r.BindPeer("conn-b", "peer-1", "room-2")
	assert.False(t, ok, "peerId already bound to a room must reject a second bind")

	roomID, found := r.RoomIDFor("peer-1")
	require.True(t, found)
	assert.Equal(t, "room-1", roomID)
}

func TestPeerIDFor_ResolvesBoundConnection(t *testing.T) {
	r := registry.New()
	require.True(t, r.BindPeer("conn-a", "peer-1", "room-1"))

	peerID, ok := r.PeerIDFor("conn-a")
	require.True(t, ok)
	assert.Equal(t, "peer-1", peerID)

	_, ok = r.PeerIDFor("conn-unknown")
	assert.False(t, ok)
}

func TestUnbind_RemovesRoomOnlyWhenReportedEmpty(t *testing.T) {
	r := registry.New()
	r.GetOrCreateRoom("room-1", func() registry.RoomHandle { return &fakeRoom{id: "room-1"} })
	require.True(t, r.BindPeer("conn-a", "peer-1", "room-1"))

	r.Unbind("conn-a", "peer-1", func() bool { return false })

	_, stillPresent := r.Room("room-1")
	assert.True(t, stillPresent, "room must survive when roomIsEmpty reports false")

	_, peerBound := r.PeerIDFor("conn-a")
	assert.False(t, peerBound, "conn/peer bindings are removed regardless of room emptiness")
}

func TestUnbind_DropsRoomWhenReportedEmpty(t *testing.T) {
	r := registry.New()
	r.GetOrCreateRoom("room-1", func() registry.RoomHandle { return &fakeRoom{id: "room-1"} })
	require.True(t, r.BindPeer("conn-a", "peer-1", "room-1"))

	r.Unbind("conn-a", "peer-1", func() bool { return true })

	_, present := r.Room("room-1")
	assert.False(t, present)
}

func TestUnbind_UnknownPeerIsANoOp(t *testing.T) {
	r := registry.New()
	assert.NotPanics(t, func() {
		r.Unbind("conn-x", "peer-unknown", func() bool { return true })
	})
}
