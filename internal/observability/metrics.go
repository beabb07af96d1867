// Package observability holds the process-wide Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "feedq"

var (
	transportRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "requests_total",
		Help:      "Feed service calls, labeled by operation and outcome.",
	}, []string{"operation", "outcome"})

	transportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "request_duration_seconds",
		Help:      "Time spent in feed service calls.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"operation"})

	enrichmentLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "enrichment",
		Name:      "lookups_total",
		Help:      "Batched object lookups, labeled by outcome.",
	}, []string{"outcome"})

	enrichmentRefs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "enrichment",
		Name:      "refs_total",
		Help:      "References seen during enrichment, labeled resolved or unresolved.",
	}, []string{"state"})

	resultsReturned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "list",
		Name:      "results_returned_total",
		Help:      "Activities and groups returned after selection and mapping.",
	})

	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Mutation events handed to the publisher, labeled by type and outcome.",
	}, []string{"type", "outcome"})
)

func init() {
	prometheus.MustRegister(transportRequests, transportDuration, enrichmentLookups, enrichmentRefs, resultsReturned, eventsPublished)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordTransport records one feed service call that started at start.
func RecordTransport(operation string, start time.Time, err error) {
	transportRequests.WithLabelValues(operation, outcome(err)).Inc()
	transportDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordEnrichment records one batched lookup and how many references it
// resolved.
func RecordEnrichment(resolved, unresolved int, err error) {
	enrichmentLookups.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return
	}
	enrichmentRefs.WithLabelValues("resolved").Add(float64(resolved))
	enrichmentRefs.WithLabelValues("unresolved").Add(float64(unresolved))
}

// RecordResults records the number of nodes a list request returned.
func RecordResults(n int) {
	resultsReturned.Add(float64(n))
}

// RecordEventPublished records one publish attempt of a mutation event.
func RecordEventPublished(eventType string, err error) {
	eventsPublished.WithLabelValues(eventType, outcome(err)).Inc()
}
