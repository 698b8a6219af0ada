package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sfu_active_rooms_total",
		Help: "Number of rooms currently materialized",
	})

	ActivePeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sfu_active_peers_total",
		Help: "Number of peers currently bound to a room",
	})

	ActiveProducers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sfu_active_producers_total",
		Help: "Number of live producers by kind",
	}, []string{"kind"})

	ActiveConsumers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sfu_active_consumers_total",
		Help: "Number of live consumers",
	})

	RoomsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfu_rooms_created_total",
		Help: "Total rooms materialized since startup",
	})

	RoomsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfu_rooms_closed_total",
		Help: "Total rooms torn down on emptiness since startup",
	})

	PeerJoinFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sfu_peer_join_failures_total",
		Help: "Total joinRoom requests rejected, by reason",
	}, []string{"reason"})

	WorkerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sfu_worker_failures_total",
		Help: "Total media-worker operation failures, by operation",
	}, []string{"operation"})

	PLIRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfu_pli_requests_total",
		Help: "Total Picture Loss Indication requests issued upstream",
	})

	AudioLevelEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfu_audio_level_events_total",
		Help: "Total audioLevel notifications emitted",
	})

	RelayPublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfu_relay_publish_failures_total",
		Help: "Total failed publishes to the cross-instance broadcast relay",
	})

	RequestLatencyMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sfu_request_latency_ms",
		Help:    "Signaling request handling latency in milliseconds, by type",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"type"})
)
