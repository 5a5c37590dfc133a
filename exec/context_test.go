package exec

import (
	"testing"

	"github.com/inkfuse/inkfuse/subop"
)

func TestNewThreadContextAllocatesDistinctState(t *testing.T) {
	tc := newThreadContext(3, 1024, 4096)
	if tc.Idx != 3 {
		t.Errorf("Idx=%d, want 3", tc.Idx)
	}
	if tc.Arena == nil || tc.Chunk == nil || tc.RT == nil {
		t.Fatal("newThreadContext left a nil field")
	}
	if tc.RT.State == nil {
		t.Error("RT.State map not initialized")
	}
}

func TestSetUpStateCallsEverySuboperatorOnce(t *testing.T) {
	pipe := subop.NewPipeline()
	calls := 0
	sub := &subop.Suboperator{
		Kind: subop.KindMaterialize,
		SetupState: func() any {
			calls++
			return "state"
		},
	}
	pipe.Add(sub)

	tc := newThreadContext(0, 1024, 4096)
	setUpState(tc, pipe)

	if calls != 1 {
		t.Fatalf("SetupState called %d times, want 1", calls)
	}
	got := subop.StateFor[string](tc.RT, sub)
	if got != "state" {
		t.Errorf("StateFor returned %q, want %q", got, "state")
	}
}

func TestSetUpStateSkipsSuboperatorsWithoutSetupState(t *testing.T) {
	pipe := subop.NewPipeline()
	sub := &subop.Suboperator{Kind: subop.KindPrint}
	pipe.Add(sub)

	tc := newThreadContext(0, 1024, 4096)
	setUpState(tc, pipe)

	if _, ok := tc.RT.State[sub]; ok {
		t.Error("State entry installed for a suboperator with no SetupState hook")
	}
}
