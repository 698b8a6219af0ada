package signaling_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenrelay/sfu-core/internal/signaling"
)

func TestJoinRoomRequest_DecodesEnvelopeAndPayloadTogether(t *testing.T) {
	raw := []byte(`{"type":"joinRoom","reqId":"r1","roomId":"room-1","peerId":"peer-1","displayName":"Alice"}`)

	var req signaling.JoinRoomRequest
	require.NoError(t, json.Unmarshal(raw, &req))

	assert.Equal(t, "joinRoom", req.Type)
	assert.Equal(t, "r1", req.ReqID)
	assert.Equal(t, "room-1", req.RoomID)
	assert.Equal(t, "peer-1", req.PeerID)
	assert.Equal(t, "Alice", req.DisplayName)
}

func TestErrorResponse_OmitsReqIDWhenEmpty(t *testing.T) {
	data, err := json.Marshal(signaling.ErrorResponse{Error: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(data))
}

func TestPeerSnapshot_RoundTrips(t *testing.T) {
	snap := signaling.PeerSnapshot{ID: "peer-1", DisplayName: "Alice", ConnectionState: "connected"}
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded signaling.PeerSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snap, decoded)
}
