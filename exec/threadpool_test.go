package exec

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunWorkersRunsEveryIndexExactlyOnce(t *testing.T) {
	const n = 8
	var seen [n]atomic.Bool
	err := runWorkers(n, func(idx int) error {
		seen[idx].Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("runWorkers: %v", err)
	}
	for i, s := range seen {
		if !s.Load() {
			t.Errorf("worker %d never ran", i)
		}
	}
}

func TestRunWorkersClampsBelowOneThread(t *testing.T) {
	var calls atomic.Int32
	err := runWorkers(0, func(idx int) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("runWorkers: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls=%d, want 1 (NumThreads<1 clamps to 1)", calls.Load())
	}
}

func TestRunWorkersReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := runWorkers(4, func(idx int) error {
		if idx == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err=%v, want boom", err)
	}
}

func TestRunWorkersReturnsNilWhenNoneFail(t *testing.T) {
	err := runWorkers(4, func(idx int) error { return nil })
	if err != nil {
		t.Errorf("err=%v, want nil", err)
	}
}
