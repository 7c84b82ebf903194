package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/feral-file/registry-indexer/internal/domain"
)

const namespace = "registry_indexer"

// Metrics holds the Prometheus collectors of the indexer.
// All collectors are labelled by domain so both supervisors share one instance.
type Metrics struct {
	eventsRouted      *prometheus.CounterVec
	eventsDiscarded   *prometheus.CounterVec
	eventsMalformed   *prometheus.CounterVec
	recordsInserted   *prometheus.CounterVec
	recordsDuplicate  *prometheus.CounterVec
	augmentCalls      *prometheus.CounterVec
	backfillChunks    *prometheus.CounterVec
	supervisorRestart *prometheus.CounterVec
	publishFailures   *prometheus.CounterVec
	supervisorState   *prometheus.GaugeVec
	cursorBlock       *prometheus.GaugeVec
}

// New registers every collector on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		eventsRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_routed_total",
			Help:      "decoded events handed to a projection handler",
		}, []string{"domain", "kind"}),
		eventsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_discarded_total",
			Help:      "decoded events acknowledged without a projection",
		}, []string{"domain", "kind"}),
		eventsMalformed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_malformed_total",
			Help:      "events skipped because a required field was missing",
		}, []string{"domain", "reason"}),
		recordsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_inserted_total",
			Help:      "rows written to the read model",
		}, []string{"domain", "table"}),
		recordsDuplicate: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_duplicate_total",
			Help:      "events whose row was already stored",
		}, []string{"domain", "table"}),
		augmentCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "augment_calls_total",
			Help:      "contract read calls made to complete a row",
		}, []string{"domain", "method", "status"}),
		backfillChunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_chunks_total",
			Help:      "historical block chunks fully processed",
		}, []string{"domain"}),
		supervisorRestart: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_restarts_total",
			Help:      "indexing passes restarted after a failure",
		}, []string{"domain"}),
		publishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "projection notices that could not be published",
		}, []string{"domain"}),
		supervisorState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "supervisor_state",
			Help:      "0 stopped, 1 backfilling, 2 streaming, 3 failed",
		}, []string{"domain"}),
		cursorBlock: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor_block",
			Help:      "last block persisted as fully processed",
		}, []string{"domain"}),
	}
}

func (m *Metrics) EventRouted(d domain.Domain, kind domain.EventKind) {
	m.eventsRouted.WithLabelValues(string(d), string(kind)).Inc()
}

func (m *Metrics) EventDiscarded(d domain.Domain, kind domain.EventKind) {
	m.eventsDiscarded.WithLabelValues(string(d), string(kind)).Inc()
}

func (m *Metrics) EventMalformed(d domain.Domain, reason string) {
	m.eventsMalformed.WithLabelValues(string(d), reason).Inc()
}

func (m *Metrics) RecordInserted(d domain.Domain, table string) {
	m.recordsInserted.WithLabelValues(string(d), table).Inc()
}

func (m *Metrics) RecordDuplicate(d domain.Domain, table string) {
	m.recordsDuplicate.WithLabelValues(string(d), table).Inc()
}

// AugmentCall counts a contract read call, status is "ok" or "error"
func (m *Metrics) AugmentCall(d domain.Domain, method string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.augmentCalls.WithLabelValues(string(d), method, status).Inc()
}

func (m *Metrics) BackfillChunk(d domain.Domain) {
	m.backfillChunks.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) SupervisorRestart(d domain.Domain) {
	m.supervisorRestart.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) PublishFailure(d domain.Domain) {
	m.publishFailures.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) SetSupervisorState(d domain.Domain, state domain.SupervisorState) {
	m.supervisorState.WithLabelValues(string(d)).Set(state.Code())
}

func (m *Metrics) SetCursor(d domain.Domain, blockNumber uint64) {
	m.cursorBlock.WithLabelValues(string(d)).Set(float64(blockNumber))
}
