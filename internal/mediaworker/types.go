// Package mediaworker is a thin capability abstraction over an external
// media engine: routers, transports, producers and consumers. Callers never
// see pion/webrtc types directly — only these handles and their events.
package mediaworker

import "time"

type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

type Source string

const (
	SourceMic    Source = "mic"
	SourceWebcam Source = "webcam"
	SourceScreen Source = "screen"
)

type Direction string

const (
	DirectionSend Direction = "send"
	DirectionRecv Direction = "recv"
)

// Fixed router/codec constants, per the signaling protocol this adapter
// backs. A single set of capabilities is shared by every router.
const (
	AudioMimeType          = "audio/opus"
	AudioClockRate         = 48000
	AudioChannels          = 2
	VideoMimeType          = "video/VP8"
	VideoClockRate         = 90000
	InitialOutgoingBitrate = 800000
)

// EncodingLayer is one simulcast/SVC encoding hint supplied by the caller
// to Produce, never synthesized by the adapter itself.
type EncodingLayer struct {
	RID             string `json:"rid"`
	MaxBitrate      uint32 `json:"maxBitrate"`
	ScalabilityMode string `json:"scalabilityMode,omitempty"`
}

// WebcamEncodings and ScreenEncodings are the fixed simulcast hints a
// caller is expected to pass. The adapter does not enforce them, and
// nothing in this module references them: the signaling layer forwards
// whatever encodings the client sends in rtpParameters.
var WebcamEncodings = []EncodingLayer{
	{RID: "r0", MaxBitrate: 100000, ScalabilityMode: "S1T3"},
	{RID: "r1", MaxBitrate: 300000, ScalabilityMode: "S1T3"},
	{RID: "r2", MaxBitrate: 900000, ScalabilityMode: "S1T3"},
}

var ScreenEncodings = []EncodingLayer{
	{RID: "r0", MaxBitrate: 1500000},
	{RID: "r1", MaxBitrate: 4500000},
}

type RtpCodecCapability struct {
	Kind      Kind   `json:"kind"`
	MimeType  string `json:"mimeType"`
	ClockRate int    `json:"clockRate"`
	Channels  int    `json:"channels,omitempty"`
}

// RtpCapabilities is handed back to a client on joinRoom so it can
// negotiate compatible producers.
type RtpCapabilities struct {
	Codecs []RtpCodecCapability `json:"codecs"`
}

// RtpParameters describes a single producer or consumer's encoded stream
// as negotiated with the media engine. Opaque beyond its Kind field as far
// as the signaling layer is concerned.
type RtpParameters struct {
	Kind      Kind            `json:"kind"`
	MimeType  string          `json:"mimeType"`
	ClockRate int             `json:"clockRate"`
	Channels  int             `json:"channels,omitempty"`
	Encodings []EncodingLayer `json:"encodings,omitempty"`
}

type IceParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	ICELite          bool   `json:"iceLite"`
}

type IceCandidate struct {
	Foundation string `json:"foundation"`
	Priority   uint32 `json:"priority"`
	IP         string `json:"ip"`
	Protocol   string `json:"protocol"`
	Port       uint16 `json:"port"`
	Type       string `json:"type"`
}

type DtlsFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

type DtlsParameters struct {
	Role         string            `json:"role"`
	Fingerprints []DtlsFingerprint `json:"fingerprints"`
}

// SctpParameters is carried on the wire for completeness; this adapter
// does not open a real SCTP association since the protocol has no
// data-channel operation.
type SctpParameters struct {
	Port           int `json:"port"`
	MaxMessageSize int `json:"maxMessageSize"`
	MaxStreams     int `json:"maxStreams"`
}

// VolumeEntry is one producer's loudness sample as reported by an
// AudioLevelObserver tick.
type VolumeEntry struct {
	ProducerID string
	PeerID     string
	Volume     float64 // dBFS, negative; 0 is loudest
}

// DefaultAudioLevelInterval and DefaultAudioLevelThreshold are the
// observer's default cadence and minimum-loudness cutoff.
const (
	DefaultAudioLevelInterval  = 800 * time.Millisecond
	DefaultAudioLevelThreshold = -80.0
)
