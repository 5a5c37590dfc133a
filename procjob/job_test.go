package procjob

import (
	"errors"
	"testing"
	"time"

	"github.com/inkfuse/inkfuse/ierrors"
)

func TestStartSuccessfulCommandCompletesWithNilError(t *testing.T) {
	j, err := Start("true", nil, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	res := j.Wait()
	if res.Err != nil {
		t.Errorf("Wait().Err=%v, want nil", res.Err)
	}
}

func TestStartFailingCommandReturnsError(t *testing.T) {
	j, err := Start("false", nil, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	res := j.Wait()
	if res.Err == nil {
		t.Error("Wait().Err=nil, want an error for a nonzero exit")
	}
}

func TestStartUnknownBinaryReturnsError(t *testing.T) {
	if _, err := Start("inkfuse-definitely-not-a-real-binary", nil, t.TempDir()); err == nil {
		t.Error("Start succeeded for a nonexistent binary, want an error")
	}
}

func TestDoneChannelClosesOnCompletion(t *testing.T) {
	j, err := Start("true", nil, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-j.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done channel never closed")
	}
}

func TestInterruptBeforeCompletionReportsErrInterrupted(t *testing.T) {
	j, err := Start("sleep", []string{"30"}, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	j.Interrupt()
	res := j.Wait()
	if !errors.Is(res.Err, ierrors.ErrInterrupted) {
		t.Errorf("Wait().Err=%v, want ErrInterrupted", res.Err)
	}
}

func TestInterruptIsIdempotent(t *testing.T) {
	j, err := Start("true", nil, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	j.Wait()
	j.Interrupt() // after completion: must be a safe no-op
	j.Interrupt() // and calling twice must not panic
}

func TestExternalReturnsAUsableDescriptor(t *testing.T) {
	j, err := Start("true", nil, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer j.Wait()
	if fd := j.External(); fd == 0 {
		t.Error("External() returned a zero file descriptor")
	}
}
