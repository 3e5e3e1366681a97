package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "escrow"

var (
	// InstructionsProcessed counts top level and invoked instructions by
	// program and result.
	InstructionsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "svm",
		Name:      "instructions_processed_total",
		Help:      "Instructions executed by the runtime, by program and result.",
	}, []string{"program", "result"})

	// TransactionsProcessed counts transactions by result.
	TransactionsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "svm",
		Name:      "transactions_processed_total",
		Help:      "Transactions processed by the runtime, by result.",
	}, []string{"result"})

	// TransactionDuration observes the time from load to commit of a transaction.
	TransactionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "svm",
		Name:      "transaction_duration_seconds",
		Help:      "Time spent executing and committing a transaction.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	// StoreCommits counts account store commits by backend and result.
	StoreCommits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "commits_total",
		Help:      "Account store commits, by backend and result.",
	}, []string{"backend", "result"})
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Result maps err to the result label value.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// MustRegister registers every collector of this package with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		InstructionsProcessed,
		TransactionsProcessed,
		TransactionDuration,
		StoreCommits,
	)
}
