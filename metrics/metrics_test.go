package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopDiscardsEveryObservation(t *testing.T) {
	var r Recorder = Noop{}
	// Must not panic; there is nothing else observable about Noop.
	r.MorselProcessed("p0")
	r.CompileLatency("p0", time.Millisecond)
	r.FragmentCacheHit("id")
	r.FragmentCacheMiss("id")
	r.HashTableResize("t0")
}

func TestPrometheusRecordsMorselsByPipeline(t *testing.T) {
	p, _ := NewPrometheus()
	p.MorselProcessed("p0")
	p.MorselProcessed("p0")
	p.MorselProcessed("p1")

	if got := testutil.ToFloat64(p.morsels.WithLabelValues("p0")); got != 2 {
		t.Errorf("p0 morsels=%v, want 2", got)
	}
	if got := testutil.ToFloat64(p.morsels.WithLabelValues("p1")); got != 1 {
		t.Errorf("p1 morsels=%v, want 1", got)
	}
}

func TestPrometheusRecordsFragmentCacheHitsAndMisses(t *testing.T) {
	p, _ := NewPrometheus()
	p.FragmentCacheHit("q1")
	p.FragmentCacheMiss("q1")
	p.FragmentCacheMiss("q1")

	if got := testutil.ToFloat64(p.fragHits.WithLabelValues("q1")); got != 1 {
		t.Errorf("hits=%v, want 1", got)
	}
	if got := testutil.ToFloat64(p.fragMisses.WithLabelValues("q1")); got != 2 {
		t.Errorf("misses=%v, want 2", got)
	}
}

func TestPrometheusRecordsHashTableResizes(t *testing.T) {
	p, _ := NewPrometheus()
	p.HashTableResize("join_build")

	if got := testutil.ToFloat64(p.resizes.WithLabelValues("join_build")); got != 1 {
		t.Errorf("resizes=%v, want 1", got)
	}
}

func TestTwoPrometheusInstancesDoNotCollide(t *testing.T) {
	_, reg1 := NewPrometheus()
	_, reg2 := NewPrometheus()
	if reg1 == reg2 {
		t.Fatal("two NewPrometheus calls shared a registry")
	}
	if _, err := reg1.Gather(); err != nil {
		t.Errorf("reg1.Gather: %v", err)
	}
	if _, err := reg2.Gather(); err != nil {
		t.Errorf("reg2.Gather: %v", err)
	}
}

func TestPrometheusCompileLatencyRecordsObservation(t *testing.T) {
	p, reg := NewPrometheus()
	p.CompileLatency("p0", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "inkfuse_compile_latency_ms" {
			found = true
			if len(mf.GetMetric()) != 1 {
				t.Errorf("got %d histogram series, want 1", len(mf.GetMetric()))
			} else if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
				t.Errorf("sample count=%d, want 1", mf.GetMetric()[0].GetHistogram().GetSampleCount())
			}
		}
	}
	if !found {
		t.Error("inkfuse_compile_latency_ms metric family not found after CompileLatency")
	}
}
