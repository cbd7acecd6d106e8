package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCallsTotal tracks JSON-RPC calls per transport and method.
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "w3sale_rpc_calls_total",
			Help: "Total number of JSON-RPC calls",
		},
		[]string{"transport", "method"},
	)

	// RPCErrorsTotal tracks failed JSON-RPC calls.
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "w3sale_rpc_errors_total",
			Help: "Total number of failed JSON-RPC calls",
		},
		[]string{"transport", "method"},
	)

	// RPCLatency tracks JSON-RPC call latency.
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "w3sale_rpc_latency_seconds",
			Help:    "JSON-RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport", "method"},
	)

	// TransactionsTotal tracks sale transactions by kind (approve|buy) and result.
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "w3sale_transactions_total",
			Help: "Sale transactions by kind and result",
		},
		[]string{"kind", "result"},
	)

	// ReceiptPollsTotal counts receipt polls.
	ReceiptPollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "w3sale_receipt_polls_total",
			Help: "Total number of transaction receipt polls",
		},
	)

	// SaleReadFallbacksTotal counts display reads that fell back to a default.
	SaleReadFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "w3sale_read_fallbacks_total",
			Help: "Sale state reads replaced by a fallback value",
		},
		[]string{"field"},
	)

	// FlowState exposes the current sale flow state as a 0/1 gauge per state.
	FlowState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "w3sale_flow_state",
			Help: "Current sale flow state (1 for the active state)",
		},
		[]string{"state"},
	)
)

// SetFlowState marks state as the active flow state.
func SetFlowState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		FlowState.WithLabelValues(s).Set(v)
	}
}
