// Package telemetry drains evaluated chains off the bus
// onto durable storage and Prometheus, and serves them over HTTP. Metric
// naming/registration follows chidi150c-coinbase's metrics.go: package-level
// CounterVec/GaugeVec registered in init(), small typed setter helpers.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	chainsEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triarb_chains_evaluated_total",
			Help: "Triangular chains evaluated, split by whether ROI was positive.",
		},
		[]string{"positive"},
	)

	chainsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triarb_chains_processed_total",
			Help: "Chains handed to the trade manager, split by outcome comment.",
		},
		[]string{"outcome"},
	)

	bestROI = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "triarb_best_roi",
			Help: "ROI of the best chain in the most recently drained batch.",
		},
	)

	bestProfitUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "triarb_best_profit_usd",
			Help: "Profit in USD of the best chain in the most recently drained batch.",
		},
	)

	ordersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triarb_orders_fired_total",
			Help: "Orders fired to the exchange, split by side.",
		},
		[]string{"side"},
	)

	storeFlushLatency = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "triarb_store_flush_batch_size",
			Help: "Size of the most recent batch flushed to the chain store.",
		},
	)

	stopTradingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "triarb_stop_trading",
			Help: "1 when the stop-trading flag is engaged, 0 otherwise.",
		},
	)
)

func init() {
	prometheus.MustRegister(chainsEvaluated, chainsProcessed)
	prometheus.MustRegister(bestROI, bestProfitUSD)
	prometheus.MustRegister(ordersFired)
	prometheus.MustRegister(storeFlushLatency)
	prometheus.MustRegister(stopTradingGauge)
}

// IncChainEvaluated records one chain observed on the all-cycles feed.
func IncChainEvaluated(positive bool) {
	chainsEvaluated.WithLabelValues(boolLabel(positive)).Inc()
}

// IncChainProcessed records one chain leaving the trade manager with the
// given outcome comment as its label.
func IncChainProcessed(outcome string) {
	chainsProcessed.WithLabelValues(outcome).Inc()
}

// SetBestOfBatch updates the best-ROI/profit gauges from one drained batch.
func SetBestOfBatch(roi, profitUSD float64) {
	bestROI.Set(roi)
	bestProfitUSD.Set(profitUSD)
}

// IncOrderFired records one order handed to an executor.
func IncOrderFired(side string) {
	ordersFired.WithLabelValues(side).Inc()
}

// SetStoreFlushBatchSize records the size of the last batch written to the
// chain store.
func SetStoreFlushBatchSize(n int) {
	storeFlushLatency.Set(float64(n))
}

// SetStopTrading mirrors the bus's stop-trading flag onto a gauge.
func SetStopTrading(v bool) {
	if v {
		stopTradingGauge.Set(1)
		return
	}
	stopTradingGauge.Set(0)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
