// Package metrics is the single Prometheus registry backing every health
// counter named in spec.md §4.7: adapter connection state, normalizer
// resolution hits/misses, router queue depths and drops, per-shard tick
// rate and strategy invocations, coordinator/gateway counters, and
// recorder batch/flush metrics. The core only exposes these as a
// prometheus.Gatherer; wiring an HTTP /metrics endpoint is the external
// health surface spec.md §1 declares out of scope.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hadron-mkt/hadron/internal/adapters/common"
	"github.com/hadron-mkt/hadron/internal/domain"
)

// Registry holds every Hadron metric family, grounded on the teacher's
// MetricsRegistry (internal/interfaces/http/metrics.go): one struct of
// pre-registered vectors, constructed once at startup.
type Registry struct {
	registerer prometheus.Registerer

	// adapters
	ConnState       *prometheus.GaugeVec
	LastMessageTime *prometheus.GaugeVec
	Reconnects      *prometheus.CounterVec

	// normalizer
	ResolutionHits   prometheus.Counter
	ResolutionMisses prometheus.Counter
	NormalizerDrops  *prometheus.CounterVec

	// router
	QueueDepth *prometheus.GaugeVec
	RouterDrop *prometheus.CounterVec
	RouterLag  prometheus.Counter

	// engine
	ShardTicks      *prometheus.CounterVec
	ShardDecisions  *prometheus.CounterVec
	ShardPanics     *prometheus.CounterVec

	// coordinator
	IntentsByside     *prometheus.CounterVec
	GateRejected       prometheus.Counter
	ConflictsResolved  prometheus.Counter

	// gateway
	ExecutionsByStatus *prometheus.CounterVec
	PriceMisses        prometheus.Counter

	// recorder
	BatchSize     prometheus.Histogram
	FlushLatency  prometheus.Histogram
	FlushFailures prometheus.Counter
	RecorderLag   prometheus.Counter
}

// New builds and registers every metric family against reg (pass
// prometheus.DefaultRegisterer in production, prometheus.NewRegistry()
// in tests to avoid cross-test collisions).
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		registerer: reg,

		ConnState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hadron_adapter_conn_state",
			Help: "Current connection state per venue (1 = in that state, 0 otherwise)",
		}, []string{"venue", "state"}),

		LastMessageTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hadron_adapter_last_message_timestamp_seconds",
			Help: "Unix time of the last successfully received message per venue",
		}, []string{"venue"}),

		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hadron_adapter_reconnects_total",
			Help: "Total reconnect attempts per venue",
		}, []string{"venue"}),

		ResolutionHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hadron_normalizer_resolution_hits_total",
			Help: "Instrument resolution cache hits",
		}),
		ResolutionMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hadron_normalizer_resolution_misses_total",
			Help: "Instrument resolution cache misses",
		}),
		NormalizerDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hadron_normalizer_drops_total",
			Help: "Events dropped by the normalizer, by reason",
		}, []string{"reason"}),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hadron_router_queue_depth",
			Help: "Current depth of a shard's priority queue",
		}, []string{"shard", "priority"}),
		RouterDrop: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hadron_router_drops_total",
			Help: "Ticks dropped by the router, by priority",
		}, []string{"priority"}),
		RouterLag: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hadron_router_broadcast_lag_total",
			Help: "Broadcast lag events observed by the router",
		}),

		ShardTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hadron_engine_shard_ticks_total",
			Help: "Ticks processed per shard and priority",
		}, []string{"shard", "priority"}),
		ShardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hadron_engine_strategy_decisions_total",
			Help: "Strategy decisions emitted per shard, strategy, and kind",
		}, []string{"shard", "strategy", "kind"}),
		ShardPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hadron_engine_shard_panics_total",
			Help: "Panics recovered per shard",
		}, []string{"shard"}),

		IntentsByside: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hadron_coordinator_intents_total",
			Help: "Order intents produced, by side",
		}, []string{"side"}),
		GateRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hadron_coordinator_gate_rejected_total",
			Help: "Decisions rejected by a risk gate",
		}),
		ConflictsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hadron_coordinator_conflicts_resolved_total",
			Help: "Same-instrument decision conflicts resolved",
		}),

		ExecutionsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hadron_gateway_executions_total",
			Help: "Synthesized executions, by status",
		}, []string{"status"}),
		PriceMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hadron_gateway_price_misses_total",
			Help: "Intents with no known last price at execution time",
		}),

		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hadron_recorder_batch_size",
			Help:    "Size of flushed tick batches",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 500},
		}),
		FlushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hadron_recorder_flush_latency_seconds",
			Help:    "Latency of tick batch flush transactions",
			Buckets: prometheus.DefBuckets,
		}),
		FlushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hadron_recorder_flush_failures_total",
			Help: "Tick batches dropped after a retry failed",
		}),
		RecorderLag: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hadron_recorder_broadcast_lag_total",
			Help: "Broadcast lag events observed by the recorder",
		}),
	}

	reg.MustRegister(
		r.ConnState, r.LastMessageTime, r.Reconnects,
		r.ResolutionHits, r.ResolutionMisses, r.NormalizerDrops,
		r.QueueDepth, r.RouterDrop, r.RouterLag,
		r.ShardTicks, r.ShardDecisions, r.ShardPanics,
		r.IntentsByside, r.GateRejected, r.ConflictsResolved,
		r.ExecutionsByStatus, r.PriceMisses,
		r.BatchSize, r.FlushLatency, r.FlushFailures, r.RecorderLag,
	)
	return r
}

// --- common.Health ---

var connStates = []common.ConnState{
	common.StateConnecting, common.StateAuthenticating, common.StateSubscribing,
	common.StateStreaming, common.StateDisconnected, common.StateFaulted,
}

func (r *Registry) SetConnState(venue string, state common.ConnState) {
	for _, s := range connStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		r.ConnState.WithLabelValues(venue, string(s)).Set(v)
	}
}

func (r *Registry) RecordMessage(venue string) {
	r.LastMessageTime.WithLabelValues(venue).SetToCurrentTime()
}

func (r *Registry) IncReconnect(venue string) {
	r.Reconnects.WithLabelValues(venue).Inc()
}

// --- normalizer.Metrics ---

func (r *Registry) RecordResolutionHit()  { r.ResolutionHits.Inc() }
func (r *Registry) RecordResolutionMiss() { r.ResolutionMisses.Inc() }
func (r *Registry) RecordDrop(reason string) {
	r.NormalizerDrops.WithLabelValues(reason).Inc()
}

// RouterMetrics adapts Registry to router.Metrics. router.Metrics and
// recorder.Metrics both declare an IncLag(int) method with the same
// signature but distinct meanings, so each gets its own thin wrapper
// rather than sharing one ambiguous method on Registry.
type RouterMetrics struct{ r *Registry }

// Router returns the router.Metrics view of this registry.
func (r *Registry) Router() RouterMetrics { return RouterMetrics{r} }

func (m RouterMetrics) SetQueueDepth(shard int, priority domain.Priority, depth int) {
	m.r.QueueDepth.WithLabelValues(shardLabel(shard), string(priority)).Set(float64(depth))
}

func (m RouterMetrics) IncDrop(priority domain.Priority) {
	m.r.RouterDrop.WithLabelValues(string(priority)).Inc()
}

func (m RouterMetrics) IncLag(int) {
	m.r.RouterLag.Inc()
}

// --- engine.Metrics ---

func (r *Registry) IncTick(shard int, priority domain.Priority) {
	r.ShardTicks.WithLabelValues(shardLabel(shard), string(priority)).Inc()
}

func (r *Registry) IncDecision(shard int, strategyID string, kind domain.DecisionKind) {
	r.ShardDecisions.WithLabelValues(shardLabel(shard), strategyID, string(kind)).Inc()
}

func (r *Registry) IncPanic(shard int) {
	r.ShardPanics.WithLabelValues(shardLabel(shard)).Inc()
}

// --- coordinator.Metrics ---

func (r *Registry) IncIntent(side domain.Side) {
	r.IntentsByside.WithLabelValues(string(side)).Inc()
}

func (r *Registry) IncGateRejected()     { r.GateRejected.Inc() }
func (r *Registry) IncConflictResolved() { r.ConflictsResolved.Inc() }

// --- gateway.Metrics ---

func (r *Registry) IncExecution(status domain.ExecStatus) {
	r.ExecutionsByStatus.WithLabelValues(string(status)).Inc()
}

func (r *Registry) IncPriceMiss() { r.PriceMisses.Inc() }

// --- recorder.Metrics ---

func (r *Registry) ObserveBatchSize(n int) {
	r.BatchSize.Observe(float64(n))
}

func (r *Registry) ObserveFlushLatency(d time.Duration) {
	r.FlushLatency.Observe(d.Seconds())
}

func (r *Registry) IncFlushFailure() { r.FlushFailures.Inc() }

// RecorderMetrics adapts Registry to recorder.Metrics (see RouterMetrics
// for why this needs its own wrapper instead of a method on Registry).
type RecorderMetrics struct{ r *Registry }

// Recorder returns the recorder.Metrics view of this registry.
func (r *Registry) Recorder() RecorderMetrics { return RecorderMetrics{r} }

func (m RecorderMetrics) ObserveBatchSize(n int)              { m.r.ObserveBatchSize(n) }
func (m RecorderMetrics) ObserveFlushLatency(d time.Duration) { m.r.ObserveFlushLatency(d) }
func (m RecorderMetrics) IncFlushFailure()                    { m.r.IncFlushFailure() }
func (m RecorderMetrics) IncLag(int)                          { m.r.RecorderLag.Inc() }

func shardLabel(shard int) string {
	return strconv.Itoa(shard)
}
