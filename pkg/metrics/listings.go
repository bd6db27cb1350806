package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ListingMetrics records submission and moderation outcomes.
type ListingMetrics struct {
	submissions         *prometheus.CounterVec
	moderationDecisions *prometheus.CounterVec
	compensatingDeletes prometheus.Counter
	orphanedObjects     prometheus.Counter
}

// NewListingMetrics registers the listing pipeline metrics on the provided registerer.
func NewListingMetrics(reg prometheus.Registerer) *ListingMetrics {
	if reg == nil {
		return &ListingMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_submissions_total",
		Help: "Listing submissions by outcome.",
	}, []string{"outcome"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_decisions_total",
		Help: "Moderation decisions by kind.",
	}, []string{"decision"})
	compensating := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compensating_deletes_total",
		Help: "Storage objects removed by compensating cleanup after a failed submission.",
	})
	orphaned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orphaned_storage_objects_total",
		Help: "Storage deletes that failed and were abandoned.",
	})
	reg.MustRegister(submissions, decisions, compensating, orphaned)
	return &ListingMetrics{
		submissions:         submissions,
		moderationDecisions: decisions,
		compensatingDeletes: compensating,
		orphanedObjects:     orphaned,
	}
}

// IncSubmission counts one submission with the given outcome label.
func (m *ListingMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncDecision counts one moderation decision (approve/disapprove).
func (m *ListingMetrics) IncDecision(decision string) {
	if m == nil || m.moderationDecisions == nil {
		return
	}
	m.moderationDecisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

// IncCompensatingDeletes counts objects removed during rollback.
func (m *ListingMetrics) IncCompensatingDeletes(n int) {
	if m == nil || m.compensatingDeletes == nil {
		return
	}
	m.compensatingDeletes.Add(float64(n))
}

// IncOrphanedObjects counts storage deletes that failed and were abandoned.
func (m *ListingMetrics) IncOrphanedObjects(n int) {
	if m == nil || m.orphanedObjects == nil {
		return
	}
	m.orphanedObjects.Add(float64(n))
}
