package mediaworker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestObserver() *AudioLevelObserver {
	return &AudioLevelObserver{
		logger:    zap.NewNop(),
		interval:  DefaultAudioLevelInterval,
		threshold: DefaultAudioLevelThreshold,
		producers: make(map[string]*Producer),
		baselines: make(map[string]uint64),
		stop:      make(chan struct{}),
	}
}

func TestAudioLevelObserver_IgnoresVideoProducers(t *testing.T) {
	o := newTestObserver()
	video := newProducer("prod-video", KindVideo, RtpParameters{Kind: KindVideo}, nil)
	o.AddProducer(video)

	assert.Empty(t, o.producers, "video producers must never be tracked for loudness")
}

func TestAudioLevelObserver_TickReportsLoudestAboveThreshold(t *testing.T) {
	o := newTestObserver()

	quiet := newProducer("prod-quiet", KindAudio, RtpParameters{Kind: KindAudio}, nil)
	quiet.PeerID = "peer-quiet"
	loud := newProducer("prod-loud", KindAudio, RtpParameters{Kind: KindAudio}, nil)
	loud.PeerID = "peer-loud"

	o.AddProducer(quiet)
	o.AddProducer(loud)

	quiet.packetCount.Store(2)
	loud.packetCount.Store(40)

	var reported VolumeEntry
	var calls int
	o.OnVolumes(func(v VolumeEntry) {
		reported = v
		calls++
	})
	o.Close() // stop the background ticker; drive tick() deterministically below

	o.tick()

	assert.Equal(t, 1, calls)
	assert.Equal(t, "peer-loud", reported.PeerID)
	assert.Equal(t, "prod-loud", reported.ProducerID)
}

func TestAudioLevelObserver_TickDoesNothingWhenAllSilent(t *testing.T) {
	o := newTestObserver()
	p := newProducer("prod-1", KindAudio, RtpParameters{Kind: KindAudio}, nil)
	o.AddProducer(p)

	var calls int
	o.OnVolumes(func(VolumeEntry) { calls++ })
	o.Close()

	o.tick()
	assert.Equal(t, 0, calls, "no packets forwarded means nothing to report")
}

func TestAudioLevelObserver_RemoveProducerStopsTracking(t *testing.T) {
	o := newTestObserver()
	p := newProducer("prod-1", KindAudio, RtpParameters{Kind: KindAudio}, nil)
	o.AddProducer(p)
	o.RemoveProducer("prod-1")

	assert.Empty(t, o.producers)
	assert.Empty(t, o.baselines)
}

func TestAudioLevelObserver_Close_IsIdempotent(t *testing.T) {
	o := newTestObserver()
	assert.NotPanics(t, func() {
		o.Close()
		o.Close()
	})
}
