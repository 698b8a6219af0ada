package broadcast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/lumenrelay/sfu-core/internal/broadcast"
)

func TestBus_NilRedisClientIsANoOp(t *testing.T) {
	bus := broadcast.NewBus(nil, zap.NewNop())

	// Every operation must tolerate a nil client (Redis unreachable at
	// startup), matching the single-instance fallback sfu.New falls back to.
	assert.NotPanics(t, func() {
		bus.Publish("room-1", []byte(`{"type":"peerLeft"}`))
		bus.Subscribe("room-1", func([]byte) {})
		bus.Unsubscribe("room-1")
	})
	assert.NoError(t, bus.Ping())
	assert.NoError(t, bus.Close())
}

func TestBus_SubscribeIsIdempotentPerRoom(t *testing.T) {
	bus := broadcast.NewBus(nil, zap.NewNop())
	defer bus.Close()

	// With no Redis client both calls are no-ops, but must not panic or
	// double-register even when called twice for the same room id.
	assert.NotPanics(t, func() {
		bus.Subscribe("room-1", func([]byte) {})
		bus.Subscribe("room-1", func([]byte) {})
	})
}
