package mediaworker

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Router routes RTP streams between the transports it owns and exposes the
// codec capabilities a caller negotiates producers against. One Router
// backs exactly one Room for the Room's lifetime.
type Router struct {
	ID     string
	worker *Worker
	logger *zap.Logger

	mu         sync.Mutex
	transports map[string]*Transport
	closed     bool
}

func newRouter(id string, worker *Worker, logger *zap.Logger) *Router {
	return &Router{
		ID:         id,
		worker:     worker,
		logger:     logger,
		transports: make(map[string]*Transport),
	}
}

// RtpCapabilities returns the fixed codec set this router (and therefore
// every transport it creates) negotiates against.
func (r *Router) RtpCapabilities() RtpCapabilities {
	return r.worker.rtpCapabilities()
}

// CreateWebRtcTransport allocates a new Transport in the given direction.
// Each Peer holds at most one send and one recv transport, but the Router
// itself has no such restriction — it is the caller's job to enforce that.
func (r *Router) CreateWebRtcTransport(direction Direction) (*Transport, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("router %s is closed", r.ID)
	}
	r.mu.Unlock()

	id := uuid.New().String()
	t, err := newTransport(id, direction, r)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	r.mu.Lock()
	r.transports[id] = t
	r.mu.Unlock()

	return t, nil
}

func (r *Router) removeTransport(id string) {
	r.mu.Lock()
	delete(r.transports, id)
	r.mu.Unlock()
}

// CreateAudioLevelObserver allocates an observer bound to this router. One
// per Room, sharing the Room's lifetime. Cadence and threshold come from
// the worker's Settings, falling back to the package defaults when unset.
func (r *Router) CreateAudioLevelObserver() *AudioLevelObserver {
	o := newAudioLevelObserver(r, r.logger.With(zap.String("component", "audioLevelObserver")))
	if iv := r.worker.settings.AudioLevelInterval; iv > 0 {
		o.interval = iv
	}
	if th := r.worker.settings.AudioLevelThreshold; th != 0 {
		o.threshold = th
	}
	return o
}

// Close tears down every transport the router still owns. Idempotent.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	transports := make([]*Transport, 0, len(r.transports))
	for _, t := range r.transports {
		transports = append(transports, t)
	}
	r.transports = make(map[string]*Transport)
	r.mu.Unlock()

	for _, t := range transports {
		t.Close()
	}
}
