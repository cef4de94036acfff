package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/loqalabs/loqa-fluency/internal/fluency"
)

func TestRecordAnalysis(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	ctx := context.Background()
	m.RecordAnalysis(ctx, "http", fluency.Analyze("lion lion tiger"))
	m.RecordAnalysis(ctx, "bus", fluency.Analyze("owl"))
	m.RecordTranscription(ctx, "cartesia", true, 0.2)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = true
			if md.Name != "fluency.analyses" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", md.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			if total != 2 {
				t.Fatalf("expected 2 analyses, got %d", total)
			}
		}
	}
	for _, name := range []string{"fluency.analyses", "fluency.memory_score", "fluency.brain_health_score", "fluency.stt.transcriptions", "fluency.stt.duration"} {
		if !found[name] {
			t.Fatalf("metric %s not recorded", name)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordAnalysis(context.Background(), "http", fluency.Result{})
	m.RecordTranscription(context.Background(), "mock", false, 0)
}
