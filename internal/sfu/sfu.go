// Package sfu wires together the Session Registry, Room, Peer,
// MediaWorker Adapter, Signaling Dispatcher, Broadcast Bus and metrics
// into the process-level orchestrator: HTTP server, WebSocket upgrade,
// REST introspection, and the per-connection request handler.
package sfu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lumenrelay/sfu-core/internal/broadcast"
	"github.com/lumenrelay/sfu-core/internal/config"
	"github.com/lumenrelay/sfu-core/internal/mediaworker"
	"github.com/lumenrelay/sfu-core/internal/metrics"
	"github.com/lumenrelay/sfu-core/internal/peer"
	"github.com/lumenrelay/sfu-core/internal/registry"
	"github.com/lumenrelay/sfu-core/internal/room"
	"github.com/lumenrelay/sfu-core/internal/signaling"
)

// safeIDPattern restricts roomId/peerId to characters that are safe to log,
// use as map keys, and relay across the broadcast bus unescaped.
var safeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

func validateID(id string, maxLen int, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if maxLen > 0 && len(id) > maxLen {
		return fmt.Errorf("%s exceeds maximum length of %d", fieldName, maxLen)
	}
	if !safeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// SFU is the top-level orchestrator: one process, one Worker, one
// Registry, many Rooms and Peers.
type SFU struct {
	config *config.Config
	logger *zap.Logger

	worker   *mediaworker.Worker
	registry *registry.Registry
	bus      *broadcast.Bus
	redis    *redis.Client
	upgrader websocket.Upgrader

	httpServer *http.Server
}

func New(cfg *config.Config, logger *zap.Logger) (*SFU, error) {
	worker, err := mediaworker.NewWorker(mediaworker.Settings{
		ListenIP:            cfg.MediaWorker.ListenIP,
		AnnouncedIP:         cfg.MediaWorker.AnnouncedIP,
		RTCMinPort:          cfg.MediaWorker.RTCMinPort,
		RTCMaxPort:          cfg.MediaWorker.RTCMaxPort,
		InitialOutgoingBps:  cfg.MediaWorker.InitialOutgoingBps,
		AudioLevelInterval:  cfg.MediaWorker.AudioLevelInterval,
		AudioLevelThreshold: cfg.MediaWorker.AudioLevelThreshold,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create media worker: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, broadcast relay runs single-instance", zap.Error(err))
			redisClient = nil
		}
		cancel()
	}

	s := &SFU{
		config:   cfg,
		logger:   logger,
		worker:   worker,
		registry: registry.New(),
		bus:      broadcast.NewBus(redisClient, logger),
		redis:    redisClient,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	return s, nil
}

// checkOrigin allows every origin when AllowedOrigins is empty or contains
// "*"; otherwise the request's Origin header must match one entry exactly.
func (s *SFU) checkOrigin(r *http.Request) bool {
	allowed := s.config.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func (s *SFU) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/rooms", s.handleListRooms)
	mux.HandleFunc("/api/rooms/", s.handleRoomStats)
	mux.HandleFunc("/health", s.handleHealth)
	if s.config.Metrics.Enabled {
		mux.Handle(s.config.Metrics.Path, promhttp.Handler())
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      mux,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	s.logger.Info("signaling server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *SFU) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if s.bus != nil {
		s.bus.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// --- room helpers ---

var errTooManyRooms = errors.New("too many rooms")

// getOrCreateRoom returns the Room for id, materializing it (router,
// audio observer, relay wiring) if absent. created reports whether this
// call is the one that materialized it, so a caller that goes on to fail
// for an unrelated reason (e.g. PeerIdTaken) knows whether it is
// responsible for rolling the Room back rather than leaving an empty,
// peerless Room registered forever.
func (s *SFU) getOrCreateRoom(id string) (rm *room.Room, created bool, err error) {
	handle, ok := s.registry.GetOrCreateRoomCapped(id, s.config.Server.MaxRooms, func() registry.RoomHandle {
		created = true
		router := s.worker.CreateRouter(id)
		r := room.New(id, router, s.logger.With(zap.String("roomId", id)))
		metrics.RoomsCreatedTotal.Inc()
		metrics.ActiveRooms.Inc()

		// Every locally-broadcast notification is also published to the
		// cross-instance relay, so other signaling processes' copies of
		// this room (keyed by the same id) receive it too.
		r.SetRelay(func(notification any) {
			payload, err := json.Marshal(notification)
			if err != nil {
				s.logger.Error("failed to marshal notification for relay", zap.Error(err))
				return
			}
			s.bus.Publish(id, payload)
		})

		// Inbound relayed notifications are delivered to this process's
		// local peers only (DeliverRemote), never re-published — Publish
		// only fires from SetRelay above, as a side effect of a local
		// Broadcast, which never happens for a payload arriving here.
		s.bus.Subscribe(id, func(payload []byte) {
			r.DeliverRemote(payload)
		})
		return r
	})
	if !ok {
		return nil, false, errTooManyRooms
	}
	return handle.(*room.Room), created, nil
}

// abandonRoom rolls back a Room this process just materialized but that
// no peer ended up joining (e.g. joinRoom failed with PeerIdTaken before
// the new Room ever got a peer). Without this, invariant #3 ("a Room
// exists iff at least one peer is in it") breaks: the Room would sit in
// the registry with an open router/observer and no peer ever left to
// trigger CleanupPeer's teardown.
func (s *SFU) abandonRoom(rm *room.Room) {
	rm.Close()
	s.registry.RemoveRoom(rm.ID())
	s.bus.Unsubscribe(rm.ID())
	metrics.RoomsClosedTotal.Inc()
	metrics.ActiveRooms.Dec()
}

func (s *SFU) roomByID(id string) (*room.Room, bool) {
	handle, ok := s.registry.Room(id)
	if !ok {
		return nil, false
	}
	return handle.(*room.Room), true
}

// --- HTTP handlers ---

func (s *SFU) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "failed to upgrade connection", http.StatusBadRequest)
		return
	}

	conn := signaling.NewConn(ws, s.logger,
		s.config.Server.WSReadLimit,
		s.config.Server.WSPongTimeout,
		s.config.Server.WSPingInterval,
		s.config.Server.WSWriteTimeout,
	)

	cc := &connContext{sfu: s, conn: conn}
	limiter := rate.NewLimiter(rate.Limit(s.config.Server.RateLimitPerSec), s.config.Server.RateLimitBurst)
	dispatcher := signaling.NewDispatcher(conn, cc.handle, limiter, s.logger)

	go conn.WritePump()
	go dispatcher.Run(cc.onDisconnect)
}

func (s *SFU) handleListRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"instanceId": "sfu",
		"roomCount":  s.registry.RoomCount(),
		"maxRooms":   s.config.Server.MaxRooms,
	})
}

func (s *SFU) handleRoomStats(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/api/rooms/"):]
	rm, ok := s.roomByID(id)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rm.GetStats())
}

func (s *SFU) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if err := s.bus.Ping(); err != nil {
		status["relay"] = "unreachable"
	} else {
		status["relay"] = "ok"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// --- per-connection dispatch ---

type connContext struct {
	sfu  *SFU
	conn *signaling.Conn

	mu   sync.Mutex
	p    *peer.Peer
	room *room.Room
}

func (cc *connContext) onDisconnect() {
	cc.mu.Lock()
	p := cc.p
	cc.mu.Unlock()
	if p != nil {
		p.CleanupPeer()
	}
	cc.conn.Close()
}

func (cc *connContext) currentPeer() *peer.Peer {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.p
}

func (cc *connContext) handle(msgType string, raw []byte) (any, error) {
	switch msgType {
	case "createRoom":
		return cc.handleCreateRoom(raw)
	case "joinRoom":
		return cc.handleJoinRoom(raw)
	case "createWebRtcTransport":
		return cc.handleCreateTransport(raw)
	case "connectWebRtcTransport":
		return cc.handleConnectTransport(raw)
	case "produce":
		return cc.handleProduce(raw)
	case "consume":
		return cc.handleConsume(raw)
	case "pauseProducer":
		return cc.handlePauseProducer(raw)
	case "resumeProducer":
		return cc.handleResumeProducer(raw)
	case "setProducerMuted":
		return cc.handleSetProducerMuted(raw)
	case "closeProducer":
		return cc.handleCloseProducer(raw)
	default:
		return signaling.PongResponse{Type: "pong"}, nil
	}
}

func (cc *connContext) handleCreateRoom(raw []byte) (any, error) {
	var req signaling.CreateRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	if err := validateID(req.RoomID, cc.sfu.config.Server.MaxRoomIDLength, "roomId"); err != nil {
		return nil, err
	}
	if _, _, err := cc.sfu.getOrCreateRoom(req.RoomID); err != nil {
		return nil, err
	}
	return signaling.SuccessResponse{Type: "createRoomResponse", ReqID: req.ReqID, Success: true}, nil
}

var errPeerIDTaken = errors.New("PeerIdTaken")
var errRoomFull = errors.New("room is full")

func (cc *connContext) handleJoinRoom(raw []byte) (any, error) {
	var req signaling.JoinRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	if err := validateID(req.RoomID, cc.sfu.config.Server.MaxRoomIDLength, "roomId"); err != nil {
		return nil, err
	}
	if err := validateID(req.PeerID, cc.sfu.config.Server.MaxPeerIDLength, "peerId"); err != nil {
		return nil, err
	}

	rm, createdRoom, err := cc.sfu.getOrCreateRoom(req.RoomID)
	if err != nil {
		return nil, err
	}
	maxPeers := cc.sfu.config.Server.MaxPeersPerRoom
	if maxPeers > 0 && rm.PeerCount() >= maxPeers {
		if createdRoom {
			cc.sfu.abandonRoom(rm)
		}
		return nil, errRoomFull
	}
	p := peer.New(req.PeerID, req.DisplayName, cc.conn, rm, cc.sfu.registry, cc.sfu.logger.With(zap.String("peerId", req.PeerID)))

	if !cc.sfu.registry.BindPeer(cc.conn, req.PeerID, req.RoomID) {
		metrics.PeerJoinFailuresTotal.WithLabelValues("PeerIdTaken").Inc()
		// A Room this call just materialized never got a peer (JoinSnapshot
		// runs after this check); leaving it registered would violate "a
		// Room exists iff at least one peer is in it."
		if createdRoom {
			cc.sfu.abandonRoom(rm)
		}
		return nil, errPeerIDTaken
	}

	p.SetState(peer.StateConnecting)
	p.OnRoomEmptied(func() {
		rm.Close()
		cc.sfu.bus.Unsubscribe(req.RoomID)
		metrics.RoomsClosedTotal.Inc()
		metrics.ActiveRooms.Dec()
	})

	others := rm.JoinSnapshot(p)

	peerSnapshots := make([]signaling.PeerSnapshot, 0, len(others))
	producerSnapshots := make([]signaling.ProducerSnapshot, 0)
	for _, other := range others {
		op, ok := other.(*peer.Peer)
		if !ok {
			continue
		}
		peerSnapshots = append(peerSnapshots, signaling.PeerSnapshot{
			ID:              op.ID(),
			DisplayName:     op.DisplayName(),
			ConnectionState: op.State().Wire(),
		})
		for _, rec := range op.Producers() {
			producerSnapshots = append(producerSnapshots, signaling.ProducerSnapshot{
				ID: rec.ID, PeerID: op.ID(), Kind: string(rec.Kind), Source: rec.Source, DisplayName: op.DisplayName(),
			})
		}
	}

	cc.mu.Lock()
	cc.p = p
	cc.room = rm
	cc.mu.Unlock()

	rm.Broadcast(signaling.PeerJoinedNotification{Type: "peerJoined", PeerID: p.ID(), DisplayName: p.DisplayName()}, p.ID())

	p.SetState(peer.StateConnected)
	metrics.ActivePeers.Inc()

	return signaling.JoinRoomResponse{
		Type:            "joinRoomResponse",
		ReqID:           req.ReqID,
		RtpCapabilities: rm.Router.RtpCapabilities(),
		Peers:           peerSnapshots,
		Producers:       producerSnapshots,
	}, nil
}

func (cc *connContext) handleCreateTransport(raw []byte) (any, error) {
	var req signaling.CreateWebRtcTransportRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p := cc.currentPeer()
	if p == nil {
		return nil, fmt.Errorf("peer not bound")
	}

	direction := mediaworker.DirectionSend
	if req.Direction == "recv" {
		direction = mediaworker.DirectionRecv
	}

	t, err := cc.room.Router.CreateWebRtcTransport(direction)
	if err != nil {
		metrics.WorkerFailuresTotal.WithLabelValues("createWebRtcTransport").Inc()
		return nil, err
	}

	params, err := t.Describe()
	if err != nil {
		t.Close()
		metrics.WorkerFailuresTotal.WithLabelValues("createWebRtcTransport").Inc()
		return nil, err
	}

	if direction == mediaworker.DirectionSend {
		p.SetSendTransport(t)
	} else {
		p.SetRecvTransport(t)
	}

	return signaling.CreateWebRtcTransportResponse{
		Type:           "createWebRtcTransportResponse",
		ReqID:          req.ReqID,
		ID:             params.ID,
		IceParameters:  params.Ice,
		IceCandidates:  params.IceCandidates,
		DtlsParameters: params.Dtls,
		SctpParameters: params.Sctp,
	}, nil
}

func (cc *connContext) handleConnectTransport(raw []byte) (any, error) {
	var req signaling.ConnectWebRtcTransportRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p := cc.currentPeer()
	if p == nil {
		return nil, fmt.Errorf("peer not bound")
	}

	t := cc.transportByID(p, req.TransportID)
	if t == nil {
		return nil, fmt.Errorf("transport not found")
	}

	var dtls mediaworker.DtlsParameters
	_ = json.Unmarshal(req.DtlsParameters, &dtls)

	if err := t.Connect(dtls); err != nil {
		metrics.WorkerFailuresTotal.WithLabelValues("connectWebRtcTransport").Inc()
		return nil, err
	}

	return signaling.SuccessResponse{Type: "connectWebRtcTransportResponse", ReqID: req.ReqID, Success: true}, nil
}

func (cc *connContext) transportByID(p *peer.Peer, id string) *mediaworker.Transport {
	if t := p.SendTransport(); t != nil && t.ID == id {
		return t
	}
	if t := p.RecvTransport(); t != nil && t.ID == id {
		return t
	}
	return nil
}

func defaultSource(kind mediaworker.Kind, source string) string {
	if source != "" {
		return source
	}
	if kind == mediaworker.KindAudio {
		return string(mediaworker.SourceMic)
	}
	return string(mediaworker.SourceWebcam)
}

func (cc *connContext) handleProduce(raw []byte) (any, error) {
	var req signaling.ProduceRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p := cc.currentPeer()
	if p == nil {
		return nil, fmt.Errorf("peer not bound")
	}
	sendTransport := p.SendTransport()
	if sendTransport == nil {
		return nil, fmt.Errorf("send transport not found")
	}
	// produce's precondition is only that a send transport exists
	// (spec.md §4.1); transportId is optional on the wire (the literal
	// S2 scenario omits it), so only check it when the caller sent one.
	if req.TransportID != "" && sendTransport.ID != req.TransportID {
		return nil, fmt.Errorf("send transport not found")
	}

	kind := mediaworker.KindVideo
	if req.Kind == "audio" {
		kind = mediaworker.KindAudio
	}

	var rtpParams mediaworker.RtpParameters
	_ = json.Unmarshal(req.RtpParameters, &rtpParams)
	rtpParams.Kind = kind

	handle, err := sendTransport.Produce(kind, rtpParams)
	if err != nil {
		metrics.WorkerFailuresTotal.WithLabelValues("produce").Inc()
		return nil, err
	}
	source := defaultSource(kind, req.Source)
	handle.PeerID = p.ID()

	var broadcastNotif *signaling.NewProducerNotification
	cc.room.Synchronized(func() {
		rec := &peer.ProducerRecord{ID: handle.ID, Source: source, Kind: kind, Handle: handle}
		// AddProducer increments metrics.ActiveProducers itself, before it
		// wires the transportclose callback that can decrement it.
		p.AddProducer(rec)
		if kind == mediaworker.KindAudio {
			cc.room.Audio.AddProducer(handle)
		}
		broadcastNotif = &signaling.NewProducerNotification{
			Type: "newProducer", ID: handle.ID, PeerID: p.ID(), Kind: string(kind), Source: source, DisplayName: p.DisplayName(),
		}
	})

	cc.room.Broadcast(*broadcastNotif, p.ID())

	return signaling.ProduceResponse{Type: "produceResponse", ReqID: req.ReqID, ID: handle.ID}, nil
}

func (cc *connContext) handleConsume(raw []byte) (any, error) {
	var req signaling.ConsumeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p := cc.currentPeer()
	if p == nil {
		return nil, fmt.Errorf("peer not bound")
	}
	recvTransport := p.RecvTransport()
	if recvTransport == nil {
		return nil, fmt.Errorf("recv transport not found")
	}

	upstreamPeer, upstreamRec, ok := cc.findProducer(req.ProducerID)
	if !ok {
		return nil, fmt.Errorf("Producer not found")
	}
	if upstreamPeer.ID() == p.ID() {
		return nil, fmt.Errorf("cannot consume own producer")
	}

	handle, err := recvTransport.Consume(upstreamRec.Handle)
	if err != nil {
		metrics.WorkerFailuresTotal.WithLabelValues("consume").Inc()
		return nil, err
	}

	// AddConsumer increments metrics.ActiveConsumers itself, before it
	// wires the producerclose callback that can decrement it.
	p.AddConsumer(&peer.ConsumerRecord{
		ID: handle.ID, PeerID: upstreamPeer.ID(), ProducerID: req.ProducerID, Handle: handle,
	})
	if upstreamRec.Kind == mediaworker.KindVideo {
		metrics.PLIRequestsTotal.Inc()
	}

	return signaling.ConsumeResponse{
		Type:          "consumeResponse",
		ReqID:         req.ReqID,
		ID:            handle.ID,
		ProducerID:    req.ProducerID,
		Kind:          string(upstreamRec.Kind),
		RtpParameters: upstreamRec.Handle.Params,
		PeerID:        upstreamPeer.ID(),
		DisplayName:   upstreamPeer.DisplayName(),
		Source:        upstreamRec.Source,
	}, nil
}

func (cc *connContext) findProducer(producerID string) (*peer.Peer, *peer.ProducerRecord, bool) {
	for _, h := range cc.room.Peers() {
		pp, ok := h.(*peer.Peer)
		if !ok {
			continue
		}
		if rec, ok := pp.Producer(producerID); ok {
			return pp, rec, true
		}
	}
	return nil, nil, false
}

func (cc *connContext) handlePauseProducer(raw []byte) (any, error) {
	var req signaling.PauseProducerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p := cc.currentPeer()
	if p == nil {
		return nil, fmt.Errorf("peer not bound")
	}
	rec, ok := p.Producer(req.ProducerID)
	if !ok {
		return nil, fmt.Errorf("producer not found")
	}
	rec.Handle.Pause()
	rec.Paused = true
	return signaling.SuccessResponse{Type: "pauseProducerResponse", ReqID: req.ReqID, Success: true}, nil
}

func (cc *connContext) handleResumeProducer(raw []byte) (any, error) {
	var req signaling.ResumeProducerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p := cc.currentPeer()
	if p == nil {
		return nil, fmt.Errorf("peer not bound")
	}
	rec, ok := p.Producer(req.ProducerID)
	if !ok {
		return nil, fmt.Errorf("producer not found")
	}
	rec.Handle.Resume()
	rec.Paused = false
	if err := rec.Handle.RequestKeyFrame(); err != nil {
		cc.sfu.logger.Warn("keyframe request failed on resume", zap.String("producerId", req.ProducerID), zap.Error(err))
	} else if rec.Kind == mediaworker.KindVideo {
		metrics.PLIRequestsTotal.Inc()
	}
	return signaling.SuccessResponse{Type: "resumeProducerResponse", ReqID: req.ReqID, Success: true}, nil
}

func (cc *connContext) handleSetProducerMuted(raw []byte) (any, error) {
	var req signaling.SetProducerMutedRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p := cc.currentPeer()
	if p == nil {
		return nil, fmt.Errorf("peer not bound")
	}
	rec, ok := p.Producer(req.ProducerID)
	if !ok {
		return nil, fmt.Errorf("producer not found")
	}
	rec.Muted = req.Muted

	cc.room.Broadcast(signaling.ProducerMutedNotification{Type: "producerMuted", ProducerID: req.ProducerID, Muted: req.Muted}, p.ID())

	return signaling.SuccessResponse{Type: "setProducerMutedResponse", ReqID: req.ReqID, Success: true}, nil
}

func (cc *connContext) handleCloseProducer(raw []byte) (any, error) {
	var req signaling.CloseProducerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p := cc.currentPeer()
	if p == nil {
		return nil, fmt.Errorf("peer not bound")
	}
	if err := p.CloseProducer(req.ProducerID); err != nil {
		return nil, err
	}
	return signaling.SuccessResponse{Type: "closeProducerResponse", ReqID: req.ReqID, Success: true}, nil
}
