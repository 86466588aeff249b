// Package metrics holds the prometheus collectors for the register.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op, so
// components can run without a registry in tests.
type Metrics struct {
	storeOps           *prometheus.CounterVec
	draftSaves         *prometheus.CounterVec
	visitorsRegistered prometheus.Counter
	eventsOpened       prometheus.Counter
	eventsResolved     prometheus.Counter
	signaturesEncoded  prometheus.Counter
	exports            *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "store_ops_total",
			Help:      "Persistent store operations by op and result.",
		}, []string{"op", "result"}),
		draftSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "draft_saves_total",
			Help:      "Draft snapshots written, by form.",
		}, []string{"form"}),
		visitorsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "visitors_registered_total",
			Help:      "Visitor records committed.",
		}),
		eventsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "traceability_events_opened_total",
			Help:      "Traceability events recorded.",
		}),
		eventsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "traceability_events_resolved_total",
			Help:      "Traceability events resolved.",
		}),
		signaturesEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "signatures_encoded_total",
			Help:      "Signature surfaces encoded to a payload.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "register",
			Name:      "exports_total",
			Help:      "Collection exports by kind and format.",
		}, []string{"kind", "format"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.storeOps,
			m.draftSaves,
			m.visitorsRegistered,
			m.eventsOpened,
			m.eventsResolved,
			m.signaturesEncoded,
			m.exports,
		)
	}
	return m
}

func (m *Metrics) StoreOp(op, result string) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) DraftSaved(form string) {
	if m == nil {
		return
	}
	m.draftSaves.WithLabelValues(form).Inc()
}

func (m *Metrics) VisitorRegistered() {
	if m == nil {
		return
	}
	m.visitorsRegistered.Inc()
}

func (m *Metrics) EventOpened() {
	if m == nil {
		return
	}
	m.eventsOpened.Inc()
}

func (m *Metrics) EventResolved() {
	if m == nil {
		return
	}
	m.eventsResolved.Inc()
}

func (m *Metrics) SignatureEncoded() {
	if m == nil {
		return
	}
	m.signaturesEncoded.Inc()
}

func (m *Metrics) Exported(kind, format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(kind, format).Inc()
}
