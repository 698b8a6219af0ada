package mediaworker

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AudioLevelObserver periodically reports the loudest active audio
// producer above a threshold. It never inspects payload samples directly
// (the adapter sees only RTP, no decoded PCM); loudness is approximated
// from recent packet-arrival rate, the same proxy the teacher's dominant-
// speaker detection uses.
type AudioLevelObserver struct {
	router    *Router
	logger    *zap.Logger
	interval  time.Duration
	threshold float64

	mu        sync.Mutex
	producers map[string]*Producer
	baselines map[string]uint64

	stop    chan struct{}
	started bool

	onVolumes func(VolumeEntry)
}

func newAudioLevelObserver(router *Router, logger *zap.Logger) *AudioLevelObserver {
	return &AudioLevelObserver{
		router:    router,
		logger:    logger,
		interval:  DefaultAudioLevelInterval,
		threshold: DefaultAudioLevelThreshold,
		producers: make(map[string]*Producer),
		baselines: make(map[string]uint64),
		stop:      make(chan struct{}),
	}
}

// OnVolumes registers the callback invoked once per tick with the single
// loudest producer above threshold. No call is made if nothing qualifies.
func (o *AudioLevelObserver) OnVolumes(fn func(VolumeEntry)) {
	o.mu.Lock()
	o.onVolumes = fn
	started := o.started
	o.started = true
	o.mu.Unlock()

	if !started {
		go o.run()
	}
}

func (o *AudioLevelObserver) AddProducer(p *Producer) {
	if p.Kind != KindAudio {
		return
	}
	o.mu.Lock()
	o.producers[p.ID] = p
	o.baselines[p.ID] = 0
	o.mu.Unlock()
}

func (o *AudioLevelObserver) RemoveProducer(id string) {
	o.mu.Lock()
	delete(o.producers, id)
	delete(o.baselines, id)
	o.mu.Unlock()
}

func (o *AudioLevelObserver) run() {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

func (o *AudioLevelObserver) tick() {
	o.mu.Lock()
	type sample struct {
		producer *Producer
		delta    uint64
	}
	samples := make([]sample, 0, len(o.producers))
	for id, p := range o.producers {
		delta, newBaseline := p.packetsSince(o.baselines[id])
		o.baselines[id] = newBaseline
		samples = append(samples, sample{producer: p, delta: delta})
	}
	fn := o.onVolumes
	o.mu.Unlock()

	if fn == nil || len(samples) == 0 {
		return
	}

	var loudest *sample
	for i := range samples {
		if loudest == nil || samples[i].delta > loudest.delta {
			loudest = &samples[i]
		}
	}
	if loudest == nil || loudest.delta == 0 {
		return
	}

	// Expected packet rate for opus at 20ms ptime is ~40 packets for an
	// 800ms tick; scale actual rate against that ceiling into a dBFS-like
	// negative range, clamped at 0.
	expected := 40.0
	ratio := math.Min(float64(loudest.delta)/expected, 1.0)
	volume := -60.0 * (1.0 - ratio)
	if volume < o.threshold {
		return
	}

	fn(VolumeEntry{
		ProducerID: loudest.producer.ID,
		PeerID:     loudest.producer.PeerID,
		Volume:     volume,
	})
}

// Close stops the observer's tick loop. Idempotent.
func (o *AudioLevelObserver) Close() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	o.mu.Unlock()
	close(o.stop)
}
