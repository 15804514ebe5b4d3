package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusError    = "error"
)

var (
	// Operations counts ledger operations by outcome.
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by name and outcome",
		},
		[]string{"operation", "status"},
	)

	// RepaymentAmount sums accepted payments, split by entry type.
	RepaymentAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_repayment_amount_total",
			Help: "Currency units recorded as repayment entries",
		},
		[]string{"payment_type"},
	)

	// IdempotencyHits counts mutating requests answered from the idempotency cache.
	IdempotencyHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_idempotency_total",
			Help: "Idempotency middleware outcomes",
		},
		[]string{"result"},
	)
)

// Observe records one operation outcome. rejected marks a business-rule
// refusal as opposed to an infrastructure failure.
func Observe(operation string, err error, rejected bool) {
	status := StatusOK
	switch {
	case err == nil:
	case rejected:
		status = StatusRejected
	default:
		status = StatusError
	}
	Operations.WithLabelValues(operation, status).Inc()
}
