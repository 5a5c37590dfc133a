// Package procjob implements the interruptible background job the
// fused runner and hybrid arbiter use to compile a pipeline without
// blocking query execution (spec §4.4 "Fused runner... Prepare
// emits IR... invokes the C backend"; §4.4 "Hybrid arbitration...
// compile job in the background under an InterruptableJob"). The
// supervision style — launch a subprocess in its own process group so
// the whole group can be killed at once, and signal completion through
// an eventfd rather than a bare channel close so the same descriptor
// can sit in an external poll/select loop — is grounded on the
// teacher's tenant subprocess manager (tenant/manager.go,
// tenant/evict_linux.go).
package procjob

import (
	"bytes"
	"fmt"
	"os/exec"
	"sync"

	"github.com/inkfuse/inkfuse/ierrors"
)

// Result is the outcome of a completed job. Err carries any failure;
// this package never fills in Output, so a caller that needs the
// produced artifact's path keeps it itself.
type Result struct {
	Output string
	Err    error
}

// InterruptableJob runs one external command in its own process group
// and can be cancelled mid-flight. The spec's two `prepare` overloads
// collapse to this single interrupt-aware constructor (see DESIGN.md;
// spec REDESIGN FLAGS "treat the interrupt-aware overload as
// canonical").
type InterruptableJob struct {
	cmd *exec.Cmd
	efd eventFD

	mu          sync.Mutex
	interrupted bool
	result      Result
	done        chan struct{}
}

// Start launches name with args in dir, places it in a fresh process
// group, and begins waiting for it in the background. The caller
// observes completion via Done (a channel close) or by polling the
// job's eventfd with External().
func Start(name string, args []string, dir string) (*InterruptableJob, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	setpgid(cmd)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	efd, err := newEventFD()
	if err != nil {
		return nil, fmt.Errorf("procjob: creating eventfd: %w", err)
	}

	if err := cmd.Start(); err != nil {
		efd.Close()
		return nil, fmt.Errorf("procjob: starting %s: %w", name, err)
	}

	j := &InterruptableJob{
		cmd:  cmd,
		efd:  efd,
		done: make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		j.mu.Lock()
		if j.interrupted {
			err = ierrors.ErrInterrupted
		} else if err != nil {
			err = fmt.Errorf("%w: %s", err, stderr.String())
		}
		j.result = Result{Err: err}
		j.mu.Unlock()
		close(j.done)
		j.efd.Signal()
	}()

	return j, nil
}

// Done returns a channel closed once the job has finished, whether it
// succeeded, failed, or was interrupted.
func (j *InterruptableJob) Done() <-chan struct{} { return j.done }

// External exposes the job's eventfd so a caller already polling other
// file descriptors (a select/epoll loop) can wait on this job without
// an extra goroutine; Linux only, see eventfd_linux.go.
func (j *InterruptableJob) External() uintptr { return j.efd.Fd() }

// Wait blocks until the job completes and returns its result.
func (j *InterruptableJob) Wait() Result {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Interrupt kills the job's entire process group. Safe to call after
// the job has already completed (a no-op in that case); safe to call
// more than once.
func (j *InterruptableJob) Interrupt() {
	j.mu.Lock()
	if j.interrupted {
		j.mu.Unlock()
		return
	}
	j.interrupted = true
	j.mu.Unlock()

	if j.cmd.Process != nil {
		killGroup(j.cmd.Process.Pid)
	}
}
