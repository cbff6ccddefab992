// Package metrics exposes Prometheus counters of the relay and the tracker.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wavesurfer/mctg/client"
)

var (
	registerOnce sync.Once

	relayPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mctg",
			Subsystem: "relay",
			Name:      "peers",
			Help:      "Connected relay peers.",
		},
	)
	relayFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mctg",
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Frames received by the relay.",
		},
		[]string{"kind", "route"},
	)
	telegraphs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mctg",
			Subsystem: "tracker",
			Name:      "telegraphs_total",
			Help:      "Telegraphs stored in the electrode table.",
		},
		[]string{"electrode", "hardware"},
	)
	identified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mctg",
			Subsystem: "tracker",
			Name:      "identified_total",
			Help:      "Electrode ids announced in reply to a broadcast.",
		},
	)
	lastTelegraph = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mctg",
			Subsystem: "tracker",
			Name:      "last_telegraph_timestamp_seconds",
			Help:      "Unix time of the latest telegraph per electrode.",
		},
		[]string{"electrode"},
	)
)

// Frame kinds and routes of RecordRelayFrame.
const (
	KindText   = "text"
	KindBinary = "binary"

	RouteBroadcast = "broadcast"
	RouteDirect    = "direct"
	RouteDropped   = "dropped"
	RouteInvalid   = "invalid"
)

// RegisterMetrics registers all collectors with the default registry. It is safe to call repeatedly.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(relayPeers, relayFrames, telegraphs, identified, lastTelegraph)
	})
}

// SetRelayPeers records the number of connected relay peers.
func SetRelayPeers(n int) {
	RegisterMetrics()
	relayPeers.Set(float64(n))
}

// RecordRelayFrame counts one frame received by the relay, by kind and by what happened to it.
func RecordRelayFrame(kind, route string) {
	RegisterMetrics()
	relayFrames.WithLabelValues(kind, route).Inc()
}

// TrackerListener counts the telegraphs and ids a client.Client receives. Register it with Client.Notify.
type TrackerListener struct{}

// NewTrackerListener registers the collectors and returns the listener.
func NewTrackerListener() *TrackerListener {
	RegisterMetrics()
	return &TrackerListener{}
}

// Telegraph implements client.TelegraphListener.
func (l *TrackerListener) Telegraph(state client.ElectrodeState) {
	electrode := state.ID.String()
	telegraphs.WithLabelValues(electrode, strconv.FormatUint(uint64(state.HardwareType), 10)).Inc()
	lastTelegraph.WithLabelValues(electrode).Set(float64(state.Updated.UnixNano()) / 1e9)
}

// ElectrodeIdentified implements client.ElectrodeIDListener.
func (l *TrackerListener) ElectrodeIdentified(client.ElectrodeID) {
	identified.Inc()
}
