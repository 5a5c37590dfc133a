//go:build linux

package procjob

import (
	"os"
	"syscall"
)

// eventFD is a Linux eventfd used as the job's completion signal,
// grounded on the teacher's own eventfd syscall invocation
// (tenant/evict_linux.go's eventfd()).
type eventFD struct {
	f *os.File
}

func newEventFD() (eventFD, error) {
	const (
		syseventfd2  = 290 // int eventfd(unsigned int count, int flags);
		efdSemaphore = 1
	)
	rc, _, errno := syscall.Syscall(syseventfd2, 0, syscall.O_NONBLOCK|syscall.O_CLOEXEC|efdSemaphore, 0)
	if errno != 0 {
		return eventFD{}, errno
	}
	return eventFD{f: os.NewFile(rc, "inkfuse-job-eventfd")}, nil
}

// Signal writes one token to the eventfd, waking any select/epoll
// loop blocked on it.
func (e eventFD) Signal() {
	var buf [8]byte
	buf[0] = 1 // the counter is a native-endian uint64; x86-64 is little-endian
	e.f.Write(buf[:])
}

// Fd returns the raw eventfd descriptor.
func (e eventFD) Fd() uintptr { return e.f.Fd() }

// Close releases the eventfd.
func (e eventFD) Close() { e.f.Close() }
