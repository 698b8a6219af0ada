package mediaworker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	worker, err := NewWorker(Settings{}, zap.NewNop())
	require.NoError(t, err)
	return worker.CreateRouter("router-1")
}

func TestTransport_ProduceRejectedOnRecvTransport(t *testing.T) {
	router := newTestRouter(t)
	recv, err := router.CreateWebRtcTransport(DirectionRecv)
	require.NoError(t, err)
	defer recv.Close()

	_, err = recv.Produce(KindAudio, RtpParameters{Kind: KindAudio})
	assert.Error(t, err, "a recv transport must reject produce")
}

func TestTransport_ConsumeRejectedOnSendTransport(t *testing.T) {
	router := newTestRouter(t)
	send, err := router.CreateWebRtcTransport(DirectionSend)
	require.NoError(t, err)
	defer send.Close()

	p := newProducer("prod-1", KindAudio, RtpParameters{Kind: KindAudio}, send)
	_, err = send.Consume(p)
	assert.Error(t, err, "a send transport must reject consume")
}

func TestTransport_Close_NotifiesEveryProducerItOriginated(t *testing.T) {
	router := newTestRouter(t)
	send, err := router.CreateWebRtcTransport(DirectionSend)
	require.NoError(t, err)

	p1, err := send.Produce(KindAudio, RtpParameters{Kind: KindAudio})
	require.NoError(t, err)
	p2, err := send.Produce(KindVideo, RtpParameters{Kind: KindVideo})
	require.NoError(t, err)

	var closed1, closed2 bool
	p1.OnTransportClose(func() { closed1 = true })
	p2.OnTransportClose(func() { closed2 = true })

	send.Close()

	assert.True(t, closed1)
	assert.True(t, closed2)
	assert.True(t, p1.closed.Load())
	assert.True(t, p2.closed.Load())
}

func TestTransport_Close_IsIdempotent(t *testing.T) {
	router := newTestRouter(t)
	send, err := router.CreateWebRtcTransport(DirectionSend)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		send.Close()
		send.Close()
	})
}

func TestTransport_ProduceAfterCloseFails(t *testing.T) {
	router := newTestRouter(t)
	send, err := router.CreateWebRtcTransport(DirectionSend)
	require.NoError(t, err)
	send.Close()

	_, err = send.Produce(KindAudio, RtpParameters{Kind: KindAudio})
	assert.Error(t, err)
}
