// Package telemetry holds the Prometheus metrics exported on /metrics.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	EventsBroadcast   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	VoiceJoins        *prometheus.CounterVec
	ListenerAttaches  *prometheus.CounterVec
	BridgeUpdates     *prometheus.CounterVec
	AvatarUploads     prometheus.Counter
	AvatarDeletes     prometheus.Counter
	MemberRefreshRuns prometheus.Counter

	// Gauges
	OverlayClients   prometheus.Gauge
	VoiceConnections prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "overlay_events_broadcast_total",
			Help: "Status events pushed to overlay clients, by status",
		}, []string{"status"})
		EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "overlay_events_dropped_total",
			Help: "Events not delivered to a client because its send buffer was full",
		})
		VoiceJoins = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_joins_total",
			Help: "Voice channel join attempts, by result",
		}, []string{"result"})
		ListenerAttaches = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_listener_attaches_total",
			Help: "Speaking listener attach calls, by result",
		}, []string{"result"})
		BridgeUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_updates_total",
			Help: "Gateway notifications processed by the bridge, by kind",
		}, []string{"kind"})
		AvatarUploads = promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_uploads_total",
			Help: "Avatar images uploaded",
		})
		AvatarDeletes = promauto.NewCounter(prometheus.CounterOpts{
			Name: "avatar_deletes_total",
			Help: "Avatar images deleted",
		})
		MemberRefreshRuns = promauto.NewCounter(prometheus.CounterOpts{
			Name: "member_refresh_runs_total",
			Help: "Scheduled guild member list refreshes",
		})
		OverlayClients = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "overlay_clients",
			Help: "Currently connected overlay clients",
		})
		VoiceConnections = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voice_connections",
			Help: "Voice connection handles held by the bot",
		})
	})
}

// The helpers below are no-ops until Init has run, so packages can be
// exercised in tests without registering metrics.

func IncBroadcast(status string) {
	if EventsBroadcast != nil {
		EventsBroadcast.WithLabelValues(status).Inc()
	}
}

func IncDropped() {
	if EventsDropped != nil {
		EventsDropped.Inc()
	}
}

func IncVoiceJoin(result string) {
	if VoiceJoins != nil {
		VoiceJoins.WithLabelValues(result).Inc()
	}
}

func IncListenerAttach(result string) {
	if ListenerAttaches != nil {
		ListenerAttaches.WithLabelValues(result).Inc()
	}
}

func IncBridgeUpdate(kind string) {
	if BridgeUpdates != nil {
		BridgeUpdates.WithLabelValues(kind).Inc()
	}
}

func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

func SetOverlayClients(n int) {
	if OverlayClients != nil {
		OverlayClients.Set(float64(n))
	}
}

func SetVoiceConnections(n int) {
	if VoiceConnections != nil {
		VoiceConnections.Set(float64(n))
	}
}
