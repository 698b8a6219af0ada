// Package broadcast implements the cross-instance side of the Broadcast
// Bus: a Redis pub/sub relay that carries Room notifications across
// horizontally-scaled signaling processes. The in-process fan-out itself
// is Room.Broadcast in package room. The relay
// never persists anything — a payload not delivered while a subscriber is
// connected is simply gone, exactly like the in-process fan-out it backs.
package broadcast

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumenrelay/sfu-core/internal/metrics"
)

const roomChannelPrefix = "sfu:room:"

// relayedNotification wraps a raw notification payload with the
// publishing instance's id so a receiver can ignore its own echoes.
type relayedNotification struct {
	InstanceID string          `json:"instanceId"`
	Payload    json.RawMessage `json:"payload"`
}

// Bus relays room notifications across SFU instances via Redis pub/sub.
// Each process still owns and fully materializes its own Rooms and Peers;
// Bus only forwards in-flight notification bytes to other processes'
// local rooms, it is never read back as state.
type Bus struct {
	redis      *redis.Client
	instanceID string
	logger     *zap.Logger

	mu   sync.Mutex
	subs map[string]context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBus(redisClient *redis.Client, logger *zap.Logger) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			instanceID = "unknown"
		} else {
			instanceID = hostname
		}
	}

	return &Bus{
		redis:      redisClient,
		instanceID: instanceID,
		logger:     logger,
		subs:       make(map[string]context.CancelFunc),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func roomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// Publish relays a notification payload (already-marshaled wire bytes) to
// every other instance subscribed to roomID. Best-effort: a Redis error
// is logged and swallowed, matching spec.md's fire-and-forget notification
// contract.
func (b *Bus) Publish(roomID string, payload []byte) {
	if b.redis == nil {
		return
	}

	data, err := json.Marshal(relayedNotification{InstanceID: b.instanceID, Payload: payload})
	if err != nil {
		b.logger.Error("failed to marshal relay envelope", zap.Error(err))
		return
	}

	if err := b.redis.Publish(b.ctx, roomChannel(roomID), data).Err(); err != nil {
		b.logger.Warn("failed to publish to relay", zap.String("roomId", roomID), zap.Error(err))
		metrics.RelayPublishFailuresTotal.Inc()
	}
}

// Subscribe starts relaying inbound notifications for roomID to deliver,
// which the caller wires to its local Room's local-only delivery path
// (Room.DeliverRemote, which never re-publishes). Idempotent per roomID.
func (b *Bus) Subscribe(roomID string, deliver func(payload []byte)) {
	if b.redis == nil {
		return
	}

	b.mu.Lock()
	if _, exists := b.subs[roomID]; exists {
		b.mu.Unlock()
		return
	}
	subCtx, subCancel := context.WithCancel(b.ctx)
	b.subs[roomID] = subCancel
	b.mu.Unlock()

	sub := b.redis.Subscribe(subCtx, roomChannel(roomID))
	go b.listen(subCtx, roomID, sub, deliver)
}

func (b *Bus) listen(ctx context.Context, roomID string, sub *redis.PubSub, deliver func(payload []byte)) {
	defer sub.Close()
	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rn relayedNotification
			if err := json.Unmarshal([]byte(msg.Payload), &rn); err != nil {
				b.logger.Warn("failed to unmarshal relay envelope", zap.String("roomId", roomID), zap.Error(err))
				continue
			}
			if rn.InstanceID == b.instanceID {
				continue
			}
			deliver(rn.Payload)
		}
	}
}

// Unsubscribe stops relaying notifications for roomID, called when a Room
// is torn down locally.
func (b *Bus) Unsubscribe(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cancel, ok := b.subs[roomID]; ok {
		cancel()
		delete(b.subs, roomID)
	}
}

// Ping reports whether the Redis relay is reachable, used by the health
// endpoint.
func (b *Bus) Ping() error {
	if b.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(b.ctx, 3*time.Second)
	defer cancel()
	return b.redis.Ping(ctx).Err()
}

// Close tears down every subscription.
func (b *Bus) Close() error {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]context.CancelFunc)
	return nil
}
