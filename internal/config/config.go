package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	MediaWorker MediaWorkerConfig `yaml:"media_worker"`
	Redis       RedisConfig       `yaml:"redis"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	MaxRooms        int           `yaml:"max_rooms"`
	MaxPeersPerRoom int           `yaml:"max_peers_per_room"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	WSReadLimit    int64         `yaml:"ws_read_limit"`
	WSWriteTimeout time.Duration `yaml:"ws_write_timeout"`
	WSPongTimeout  time.Duration `yaml:"ws_pong_timeout"`
	WSPingInterval time.Duration `yaml:"ws_ping_interval"`

	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`

	MaxRoomIDLength int `yaml:"max_room_id_length"`
	MaxPeerIDLength int `yaml:"max_peer_id_length"`
}

// MediaWorkerConfig holds the configuration for the MediaWorker adapter —
// RTC port range, listen/announced IP, initial outgoing bitrate, and the
// audio-level observer cadence/threshold. Codec constants are not here;
// they live in the mediaworker package.
type MediaWorkerConfig struct {
	ListenIP            string        `yaml:"listen_ip"`
	AnnouncedIP         string        `yaml:"announced_ip"`
	RTCMinPort          uint16        `yaml:"rtc_min_port"`
	RTCMaxPort          uint16        `yaml:"rtc_max_port"`
	InitialOutgoingBps  uint32        `yaml:"initial_outgoing_bps"`
	AudioLevelInterval  time.Duration `yaml:"audio_level_interval"`
	AudioLevelThreshold float64       `yaml:"audio_level_threshold"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            getEnv("SFU_HOST", "0.0.0.0"),
			Port:            getEnvInt("SFU_SIGNALING_PORT", 4001),
			ReadTimeout:     time.Duration(getEnvInt("SFU_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("SFU_WRITE_TIMEOUT", 30)) * time.Second,
			MaxRooms:        getEnvInt("SFU_MAX_ROOMS", 1000),
			MaxPeersPerRoom: getEnvInt("SFU_MAX_PEERS_PER_ROOM", 100),
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: time.Duration(getEnvInt("SFU_SHUTDOWN_TIMEOUT", 10)) * time.Second,
			WSReadLimit:     int64(getEnvInt("SFU_WS_READ_LIMIT", 524288)),
			WSWriteTimeout:  time.Duration(getEnvInt("SFU_WS_WRITE_TIMEOUT", 10)) * time.Second,
			WSPongTimeout:   time.Duration(getEnvInt("SFU_WS_PONG_TIMEOUT", 60)) * time.Second,
			WSPingInterval:  time.Duration(getEnvInt("SFU_WS_PING_INTERVAL", 54)) * time.Second,
			RateLimitPerSec: float64(getEnvInt("SFU_RATE_LIMIT_PER_SEC", 20)),
			RateLimitBurst:  getEnvInt("SFU_RATE_LIMIT_BURST", 40),
			MaxRoomIDLength: getEnvInt("SFU_MAX_ROOM_ID_LENGTH", 128),
			MaxPeerIDLength: getEnvInt("SFU_MAX_PEER_ID_LENGTH", 128),
		},
		MediaWorker: MediaWorkerConfig{
			ListenIP:            getEnv("SFU_LISTEN_IP", "0.0.0.0"),
			AnnouncedIP:         getEnv("SFU_ANNOUNCED_IP", "127.0.0.1"),
			RTCMinPort:          uint16(getEnvInt("SFU_RTC_MIN_PORT", 40000)),
			RTCMaxPort:          uint16(getEnvInt("SFU_RTC_MAX_PORT", 49999)),
			InitialOutgoingBps:  uint32(getEnvInt("SFU_INITIAL_OUTGOING_BITRATE", 800000)),
			AudioLevelInterval:  time.Duration(getEnvInt("SFU_AUDIO_LEVEL_INTERVAL_MS", 800)) * time.Millisecond,
			AudioLevelThreshold: -80,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
