package portalmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dantte-lp/goportal/internal/portalmetrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := portalmetrics.NewCollector(reg)

	if c.Workers == nil {
		t.Error("Workers is nil")
	}
	if c.BytesTransferred == nil {
		t.Error("BytesTransferred is nil")
	}
	if c.Teardowns == nil {
		t.Error("Teardowns is nil")
	}
	if c.DialFailures == nil {
		t.Error("DialFailures is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestRegisterUnregisterWorker(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := portalmetrics.NewCollector(reg)

	c.RegisterWorker("inlet", "10.0.0.1:443")

	val := gaugeValue(t, c.Workers, "inlet", "10.0.0.1:443")
	if val != 1 {
		t.Errorf("after RegisterWorker: workers gauge = %v, want 1", val)
	}

	c.RegisterWorker("outlet", "10.0.0.2:8080")

	val = gaugeValue(t, c.Workers, "outlet", "10.0.0.2:8080")
	if val != 1 {
		t.Errorf("second RegisterWorker: workers gauge = %v, want 1", val)
	}

	c.UnregisterWorker("inlet", "10.0.0.1:443")

	val = gaugeValue(t, c.Workers, "inlet", "10.0.0.1:443")
	if val != 0 {
		t.Errorf("after UnregisterWorker: workers gauge = %v, want 0", val)
	}

	val = gaugeValue(t, c.Workers, "outlet", "10.0.0.2:8080")
	if val != 1 {
		t.Errorf("outlet gauge = %v, want 1 (should be unaffected)", val)
	}
}

func TestAddBytesTransferred(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := portalmetrics.NewCollector(reg)

	c.AddBytesTransferred("inlet", "10.0.0.1:443", 128)
	c.AddBytesTransferred("inlet", "10.0.0.1:443", 32)

	val := counterValue(t, c.BytesTransferred, "inlet", "10.0.0.1:443")
	if val != 160 {
		t.Errorf("BytesTransferred = %v, want 160", val)
	}
}

func TestRecordTeardown(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := portalmetrics.NewCollector(reg)

	c.RecordTeardown("inlet", "failed-rx")
	c.RecordTeardown("inlet", "failed-rx")
	c.RecordTeardown("outlet", "remote")

	val := counterValue(t, c.Teardowns, "inlet", "failed-rx")
	if val != 2 {
		t.Errorf("Teardowns(inlet, failed-rx) = %v, want 2", val)
	}

	val = counterValue(t, c.Teardowns, "outlet", "remote")
	if val != 1 {
		t.Errorf("Teardowns(outlet, remote) = %v, want 1", val)
	}
}

func TestIncDialFailures(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := portalmetrics.NewCollector(reg)

	c.IncDialFailures()
	c.IncDialFailures()
	c.IncDialFailures()

	m := &dto.Metric{}
	if err := c.DialFailures.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 3 {
		t.Errorf("DialFailures = %v, want 3", got)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
