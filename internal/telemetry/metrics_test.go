package telemetry

import "testing"

// These exercise the setter helpers purely for panic-freedom; the metrics
// themselves are verified via the Prometheus registry at scrape time.
func TestMetricHelpersDoNotPanic(t *testing.T) {
	t.Parallel()

	IncChainEvaluated(true)
	IncChainEvaluated(false)
	IncChainProcessed("Orders created successfully")
	SetBestOfBatch(0.01, 3.5)
	IncOrderFired("BUY")
	SetStoreFlushBatchSize(5)
	SetStopTrading(true)
	SetStopTrading(false)
}

func TestBoolLabel(t *testing.T) {
	t.Parallel()

	if boolLabel(true) != "true" {
		t.Error("boolLabel(true) should be \"true\"")
	}
	if boolLabel(false) != "false" {
		t.Error("boolLabel(false) should be \"false\"")
	}
}
