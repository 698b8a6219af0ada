// Package registry is the process-wide Session Registry: three indices
// (connection→peerId, peerId→roomId, roomId→Room) mutated together under
// a single coordination domain so they can never diverge.
package registry

import (
	"sync"
)

// Conn is the minimal identity a registry entry needs for its
// connection→peerId index; concrete connection types satisfy it trivially
// by identity (a pointer is already a comparable key). Aliased to any so
// callers never need to import this package just to name the type.
type Conn = any

// RoomHandle is the subset of Room behavior the registry needs: only its
// identity. Whether a room has gone empty is reported by the caller
// through Unbind's roomIsEmpty callback.
type RoomHandle interface {
	ID() string
}

// Registry owns the three process-wide indices described in the data
// model. All mutating operations take the single internal mutex; this is
// the one coordination domain spec.md requires for Session Registry
// consistency.
type Registry struct {
	mu sync.Mutex

	connToPeer map[Conn]string
	peerToRoom map[string]string
	rooms      map[string]RoomHandle
}

func New() *Registry {
	return &Registry{
		connToPeer: make(map[Conn]string),
		peerToRoom: make(map[string]string),
		rooms:      make(map[string]RoomHandle),
	}
}

// GetOrCreateRoom returns the Room for id if present, otherwise calls
// create() and stores its result. create() runs under the registry's lock,
// so two concurrent calls for the same id always return the same Room.
func (r *Registry) GetOrCreateRoom(id string, create func() RoomHandle) RoomHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[id]; ok {
		return room
	}
	room := create()
	r.rooms[id] = room
	return room
}

// GetOrCreateRoomCapped is GetOrCreateRoom with a ceiling on the number of
// distinct rooms the registry will hold: if id does not already exist and
// the registry is already at maxRooms, create() is not called and ok is
// false. The count check and the creation happen under the same lock
// acquisition, so the cap is exact under concurrent callers.
func (r *Registry) GetOrCreateRoomCapped(id string, maxRooms int, create func() RoomHandle) (room RoomHandle, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, found := r.rooms[id]; found {
		return existing, true
	}
	if maxRooms > 0 && len(r.rooms) >= maxRooms {
		return nil, false
	}
	room = create()
	r.rooms[id] = room
	return room, true
}

func (r *Registry) Room(id string) (RoomHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	return room, ok
}

// RoomCount reports how many rooms currently exist. The value is a
// snapshot; capping room creation atomically is GetOrCreateRoomCapped's job.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// RemoveRoom unconditionally drops id from the room index. Used to roll
// back a Room a caller just materialized via GetOrCreateRoomCapped but
// that never gained a peer (e.g. a joinRoom that created the Room then
// failed on PeerIdTaken), so the registry never holds a peerless Room.
func (r *Registry) RemoveRoom(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
}

// BindPeer registers peerId as bound to roomId and conn, failing if the
// peerId is already bound to any room (PeerIdTaken).
func (r *Registry) BindPeer(conn Conn, peerID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.peerToRoom[peerID]; taken {
		return false
	}
	r.connToPeer[conn] = peerID
	r.peerToRoom[peerID] = roomID
	return true
}

// PeerIDFor resolves a connection to its bound peerId, if any.
func (r *Registry) PeerIDFor(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.connToPeer[conn]
	return id, ok
}

// RoomIDFor resolves a peerId to its bound roomId, if any.
func (r *Registry) RoomIDFor(peerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.peerToRoom[peerID]
	return id, ok
}

// Unbind removes conn/peerId/roomId from the three indices together. If
// roomIsEmpty reports the owning room has no peers left, the room is also
// removed from the registry — step 6 of the peer teardown protocol,
// executed atomically with the peer's own removal so no concurrent
// joinRoom can observe a half-torn-down room.
func (r *Registry) Unbind(conn Conn, peerID string, roomIsEmpty func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.peerToRoom[peerID]
	delete(r.connToPeer, conn)
	delete(r.peerToRoom, peerID)

	if ok && roomIsEmpty != nil && roomIsEmpty() {
		delete(r.rooms, roomID)
	}
}
