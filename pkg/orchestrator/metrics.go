package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookflow",
		Name:      "worker_runs_started_total",
		Help:      "Number of book runs dispatched by the worker.",
	})
	metricRunsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookflow",
		Name:      "worker_runs_blocked_total",
		Help:      "Number of runs that stopped on a gate waiting for the editor.",
	})
	metricRunsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookflow",
		Name:      "worker_runs_failed_total",
		Help:      "Number of runs that ended in a terminal failure.",
	})
	metricBooksDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookflow",
		Name:      "books_delivered_total",
		Help:      "Number of books compiled, uploaded, and marked delivered.",
	})
	metricGenerationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookflow",
		Name:      "generation_retries_total",
		Help:      "Number of generation calls repeated after a transient error.",
	})
)

func recordRunStart() {
	metricRunsStarted.Inc()
}

func recordRunOutcome(state OutcomeState) {
	switch state {
	case OutcomeDelivered:
		metricBooksDelivered.Inc()
	case OutcomeBlocked:
		metricRunsBlocked.Inc()
	case OutcomeFailed:
		metricRunsFailed.Inc()
	}
}

func recordGenerationRetry() {
	metricGenerationRetries.Inc()
}
