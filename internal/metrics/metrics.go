// Package metrics exposes Prometheus instrumentation for the user service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	userOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dorandoran_user_operations_total",
		Help: "User service operations by outcome",
	}, []string{"operation", "outcome"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dorandoran_user_events_published_total",
		Help: "User lifecycle events handed to publishers by outcome",
	}, []string{"type", "outcome"})

	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dorandoran_user_cache_requests_total",
		Help: "User cache lookups by result",
	}, []string{"result"}) // result=hit|miss|error
)

// RecordOperation counts one service operation; a nil err is a success.
func RecordOperation(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	userOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordEventPublished counts one publish attempt for eventType.
func RecordEventPublished(eventType string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	eventsPublished.WithLabelValues(eventType, outcome).Inc()
}

// RecordCacheResult counts a cache lookup; result is hit, miss or error.
func RecordCacheResult(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
