// Package signaling implements the per-connection Signaling Dispatcher: it
// parses an ordered stream of JSON frames, routes each request to a typed
// handler, serializes a correlated response, and carries asynchronous
// server-initiated notifications — all while enforcing per-connection
// ordering.
package signaling

import "encoding/json"

// Envelope is the minimum shape every inbound frame must have: a type tag
// and an optional client-generated correlation id. Everything else is
// decoded from the same raw bytes into the type-specific payload once the
// type is known.
type Envelope struct {
	Type  string `json:"type"`
	ReqID string `json:"reqId,omitempty"`
}

// ErrorResponse is the shape of any failed request: {reqId?, error}.
type ErrorResponse struct {
	ReqID string `json:"reqId,omitempty"`
	Error string `json:"error"`
}

// --- requests ---

type CreateRoomRequest struct {
	Envelope
	RoomID string `json:"roomId"`
}

type JoinRoomRequest struct {
	Envelope
	RoomID      string `json:"roomId"`
	PeerID      string `json:"peerId"`
	DisplayName string `json:"displayName"`
}

type CreateWebRtcTransportRequest struct {
	Envelope
	Direction string `json:"direction"`
}

type ConnectWebRtcTransportRequest struct {
	Envelope
	TransportID    string         `json:"transportId"`
	DtlsParameters json.RawMessage `json:"dtlsParameters"`
}

type ProduceRequest struct {
	Envelope
	TransportID   string          `json:"transportId"`
	Kind          string          `json:"kind"`
	Source        string          `json:"source,omitempty"`
	RtpParameters json.RawMessage `json:"rtpParameters"`
}

type ConsumeRequest struct {
	Envelope
	ProducerID      string          `json:"producerId"`
	RtpCapabilities json.RawMessage `json:"rtpCapabilities,omitempty"`
}

type PauseProducerRequest struct {
	Envelope
	ProducerID string `json:"producerId"`
}

type ResumeProducerRequest struct {
	Envelope
	ProducerID string `json:"producerId"`
}

type SetProducerMutedRequest struct {
	Envelope
	ProducerID string `json:"producerId"`
	Muted      bool   `json:"muted"`
}

type CloseProducerRequest struct {
	Envelope
	ProducerID string `json:"producerId"`
}

// --- responses ---

type SuccessResponse struct {
	Type    string `json:"type"`
	ReqID   string `json:"reqId,omitempty"`
	Success bool   `json:"success"`
}

type PongResponse struct {
	Type string `json:"type"`
}

type PeerSnapshot struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	ConnectionState string `json:"connectionState"`
}

type ProducerSnapshot struct {
	ID          string `json:"id"`
	PeerID      string `json:"peerId"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	DisplayName string `json:"displayName"`
}

type JoinRoomResponse struct {
	Type            string             `json:"type"`
	ReqID           string             `json:"reqId,omitempty"`
	RtpCapabilities any                `json:"rtpCapabilities"`
	Peers           []PeerSnapshot     `json:"peers"`
	Producers       []ProducerSnapshot `json:"producers"`
}

type CreateWebRtcTransportResponse struct {
	Type           string `json:"type"`
	ReqID          string `json:"reqId,omitempty"`
	ID             string `json:"id"`
	IceParameters  any    `json:"iceParameters"`
	IceCandidates  any    `json:"iceCandidates"`
	DtlsParameters any    `json:"dtlsParameters"`
	SctpParameters any    `json:"sctpParameters"`
}

type ProduceResponse struct {
	Type  string `json:"type"`
	ReqID string `json:"reqId,omitempty"`
	ID    string `json:"id"`
}

type ConsumeResponse struct {
	Type          string `json:"type"`
	ReqID         string `json:"reqId,omitempty"`
	ID            string `json:"id"`
	ProducerID    string `json:"producerId"`
	Kind          string `json:"kind"`
	RtpParameters any    `json:"rtpParameters"`
	PeerID        string `json:"peerId"`
	DisplayName   string `json:"displayName"`
	Source        string `json:"source"`
}

// --- notifications (server -> client, no reqId) ---

type PeerJoinedNotification struct {
	Type        string `json:"type"`
	PeerID      string `json:"peerId"`
	DisplayName string `json:"displayName"`
}

type NewProducerNotification struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	PeerID      string `json:"peerId"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	DisplayName string `json:"displayName"`
}

type ProducerMutedNotification struct {
	Type       string `json:"type"`
	ProducerID string `json:"producerId"`
	Muted      bool   `json:"muted"`
}
