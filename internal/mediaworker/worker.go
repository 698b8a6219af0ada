package mediaworker

import (
	"fmt"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Settings configures the single global Worker created at process startup.
type Settings struct {
	ListenIP           string
	AnnouncedIP        string
	RTCMinPort         uint16
	RTCMaxPort         uint16
	InitialOutgoingBps uint32

	// AudioLevelInterval and AudioLevelThreshold configure every
	// AudioLevelObserver this worker's routers create; zero values fall
	// back to DefaultAudioLevelInterval/DefaultAudioLevelThreshold.
	AudioLevelInterval  time.Duration
	AudioLevelThreshold float64
}

// Worker is the single global media engine handle, reused by every Router
// created for every Room. It is the "black box" the rest of the system
// never reaches past — only Router/Transport/Producer/Consumer handles
// escape it.
type Worker struct {
	settings Settings
	api      *webrtc.API
	logger   *zap.Logger
}

// NewWorker builds the shared pion API instance (media engine, interceptor
// registry, setting engine with the fixed port range and announced IP)
// exactly once, the way a real media-worker subprocess is started once and
// shared by every router it subsequently creates.
func NewWorker(settings Settings, logger *zap.Logger) (*Worker, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register default codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("register default interceptors: %w", err)
	}

	settingEngine := webrtc.SettingEngine{}
	if settings.RTCMinPort > 0 && settings.RTCMaxPort > 0 {
		if err := settingEngine.SetEphemeralUDPPortRange(settings.RTCMinPort, settings.RTCMaxPort); err != nil {
			return nil, fmt.Errorf("set UDP port range: %w", err)
		}
	}
	if settings.AnnouncedIP != "" {
		settingEngine.SetNAT1To1IPs([]string{settings.AnnouncedIP}, webrtc.ICECandidateTypeHost)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(settingEngine),
	)

	return &Worker{settings: settings, api: api, logger: logger}, nil
}

// CreateRouter allocates a new Router bound to this Worker's shared codec
// and interceptor configuration. One Router is created per Room.
func (w *Worker) CreateRouter(id string) *Router {
	return newRouter(id, w, w.logger.With(zap.String("routerId", id)))
}

func (w *Worker) rtpCapabilities() RtpCapabilities {
	return RtpCapabilities{
		Codecs: []RtpCodecCapability{
			{Kind: KindAudio, MimeType: AudioMimeType, ClockRate: AudioClockRate, Channels: AudioChannels},
			{Kind: KindVideo, MimeType: VideoMimeType, ClockRate: VideoClockRate},
		},
	}
}
