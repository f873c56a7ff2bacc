package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "cubeserver"

// Frame drop reasons.
const (
	DropUnknownOpcode = "unknown_opcode"
	DropUnimplemented = "unimplemented"
	DropHandlerError  = "handler_error"
	DropMalformed     = "malformed"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	SessionsActive      prometheus.Gauge
	FramesIn            *prometheus.CounterVec
	FramesOut           prometheus.Counter
	FramesDropped       *prometheus.CounterVec
	Broadcasts          *prometheus.CounterVec
	ChunksGenerated     prometheus.Counter
	SlowPeerDisconnects prometheus.Counter
}

// NewMetrics registers the collectors with reg.
//
// Precondition: reg must not already hold collectors with these names.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions_active",
			Help:      "Number of open connections",
		}),
		FramesIn: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_in_total",
			Help:      "Inbound frames by protocol state",
		}, []string{"state"}),
		FramesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_out_total",
			Help:      "Frames written to clients",
		}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_dropped_total",
			Help:      "Inbound frames dropped without being applied",
		}, []string{"reason"}),
		Broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "broadcasts_total",
			Help:      "Broadcasts fanned out by kind",
		}, []string{"kind"}),
		ChunksGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chunks_generated_total",
			Help:      "Chunks produced by the world generator",
		}),
		SlowPeerDisconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "slow_peer_disconnects_total",
			Help:      "Sessions closed because their outbox filled",
		}),
	}
}

// ObserveBroadcast counts one broadcast of kind.
func (m *Metrics) ObserveBroadcast(kind string) { m.Broadcasts.WithLabelValues(kind).Inc() }

// ObserveSlowPeer counts one slow-peer disconnect.
func (m *Metrics) ObserveSlowPeer() { m.SlowPeerDisconnects.Inc() }

// ObserveFrameIn counts one inbound frame in state.
func (m *Metrics) ObserveFrameIn(state string) { m.FramesIn.WithLabelValues(state).Inc() }

// ObserveDrop counts one dropped inbound frame.
func (m *Metrics) ObserveDrop(reason string) { m.FramesDropped.WithLabelValues(reason).Inc() }
