//go:build !linux

package procjob

import "os"

// eventFD falls back to an os.Pipe outside Linux, where the real
// eventfd syscall is unavailable; External() still returns a
// poll/select-able descriptor.
type eventFD struct {
	r, w *os.File
}

func newEventFD() (eventFD, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return eventFD{}, err
	}
	return eventFD{r: r, w: w}, nil
}

func (e eventFD) Signal() {
	e.w.Write([]byte{1})
}

func (e eventFD) Fd() uintptr { return e.r.Fd() }

func (e eventFD) Close() {
	e.w.Close()
	e.r.Close()
}
