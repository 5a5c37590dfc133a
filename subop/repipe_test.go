package subop

import (
	"testing"

	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
)

func buildLinearPipeline() (*Pipeline, []*iu.IU) {
	p := NewPipeline()
	driverIU := iu.Pseudo("driver")
	a := iu.New(ir.I4, "a")
	b := iu.New(ir.I4, "b")
	c := iu.New(ir.I4, "c")

	p.Add(scanLikeSource(driverIU))
	p.Add(&Suboperator{Kind: KindIndexedIUProvider, Sources: []*iu.IU{driverIU}, Provided: []*iu.IU{a}})
	p.Add(&Suboperator{Kind: KindExpression, Sources: []*iu.IU{a}, Provided: []*iu.IU{b}})
	p.Add(&Suboperator{Kind: KindExpression, Sources: []*iu.IU{b}, Provided: []*iu.IU{c}})
	return p, []*iu.IU{a, b, c}
}

func TestRepipeExposesExternalProducerAndSink(t *testing.T) {
	p, ids := buildLinearPipeline()
	a, _, c := ids[0], ids[1], ids[2]

	// re-pipe just the middle suboperator (index 2, producing b from a);
	// it needs a as an external input and must expose its own output.
	sub, err := Repipe(p, 2, 3, []*iu.IU{c})
	if err != nil {
		t.Fatalf("Repipe: %v", err)
	}

	var sawSourceFor, sawSinkFor bool
	for _, s := range sub.Subs {
		if s.Kind == KindFuseChunkSource {
			if s.Provided[0] == a {
				sawSourceFor = true
			}
		}
		if s.Kind == KindFuseChunkSink {
			for _, src := range s.Sources {
				if src == ids[1] { // b, consumed by the next suboperator outside [2,3)
					sawSinkFor = true
				}
			}
		}
	}
	if !sawSourceFor {
		t.Error("Repipe should re-expose the external producer of the interval's source IU")
	}
	if !sawSinkFor {
		t.Error("Repipe should sink an interval-produced IU consumed outside the interval")
	}
	if err := sub.Validate(); err != nil {
		t.Errorf("re-piped sub-pipeline should validate, got %v", err)
	}
}

func TestRepipeInvalidIntervalErrors(t *testing.T) {
	p, _ := buildLinearPipeline()
	if _, err := Repipe(p, 3, 1, nil); err == nil {
		t.Error("Repipe with start >= end should error")
	}
	if _, err := Repipe(p, 0, len(p.Subs)+1, nil); err == nil {
		t.Error("Repipe with end beyond the pipeline length should error")
	}
}

func TestRepipeExtendsForStrongPairs(t *testing.T) {
	p := NewPipeline()
	driverIU := iu.Pseudo("driver")
	predIU := iu.New(ir.Bool, "pred")
	scopeIU := iu.Pseudo("scope")
	retainedIU := iu.New(ir.I4, "retained")

	p.Add(scanLikeSource(driverIU))
	p.Add(&Suboperator{Kind: KindExpression, Sources: []*iu.IU{driverIU}, Provided: []*iu.IU{predIU}})
	p.Add(&Suboperator{
		Kind: KindFilterScope, Sources: []*iu.IU{predIU}, Provided: []*iu.IU{scopeIU}, OutgoingStrong: true,
	})
	p.Add(&Suboperator{
		Kind: KindFilterLogic, Sources: []*iu.IU{retainedIU, scopeIU}, Provided: []*iu.IU{retainedIU}, IncomingStrong: true,
	})

	// scope is index 2, its strong-linked logic consumer is index 3;
	// asking to repipe only [2,3) must be extended to include index 3.
	start, end := extendForStrongPairs(p, 2, 3)
	if start != 2 || end != 4 {
		t.Errorf("extendForStrongPairs([2,3))=[%d,%d), want [2,4)", start, end)
	}
}

func TestComputeScopesSplitsOnOutgoingStrong(t *testing.T) {
	p := NewPipeline()
	a := iu.New(ir.I4, "a")
	scopeIU := iu.Pseudo("scope")
	b := iu.New(ir.I4, "b")

	s1 := &Suboperator{Kind: KindExpression, Provided: []*iu.IU{a}}
	s2 := &Suboperator{Kind: KindFilterScope, Sources: []*iu.IU{a}, Provided: []*iu.IU{scopeIU}, OutgoingStrong: true}
	s3 := &Suboperator{Kind: KindFilterLogic, Sources: []*iu.IU{scopeIU}, Provided: []*iu.IU{b}}
	p.Add(s1)
	p.Add(s2)
	p.Add(s3)

	scopes := ComputeScopes(p)
	if len(scopes) != 2 {
		t.Fatalf("len(scopes)=%d, want 2", len(scopes))
	}
	if len(scopes[0]) != 2 || len(scopes[1]) != 1 {
		t.Errorf("scope sizes=%d,%d want 2,1", len(scopes[0]), len(scopes[1]))
	}
}

func TestStrongPairsFindsAdjacentLinkedNodes(t *testing.T) {
	p := NewPipeline()
	a := iu.New(ir.I4, "a")
	scopeIU := iu.Pseudo("scope")
	b := iu.New(ir.I4, "b")

	p.Add(&Suboperator{Kind: KindExpression, Provided: []*iu.IU{a}})
	p.Add(&Suboperator{Kind: KindFilterScope, Sources: []*iu.IU{a}, Provided: []*iu.IU{scopeIU}, OutgoingStrong: true})
	p.Add(&Suboperator{Kind: KindFilterLogic, Sources: []*iu.IU{scopeIU}, Provided: []*iu.IU{b}, IncomingStrong: true})

	pairs := StrongPairs(p)
	if len(pairs) == 0 {
		t.Fatal("expected at least one strong pair")
	}
	found := false
	for _, pr := range pairs {
		if pr[0] == 1 && pr[1] == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the (scope, logic) pair at indices (1,2), got %v", pairs)
	}
}
