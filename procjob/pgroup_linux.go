//go:build linux

package procjob

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setpgid places cmd's eventual child process in a new process group
// so Interrupt can kill the whole tree at once, matching the teacher's
// subprocess supervision (tenant/manager.go launches each tenant this
// way for the same reason: a compiler invocation can itself spawn
// helper processes, e.g. cc1/collect2, that must die together).
func setpgid(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killGroup sends SIGKILL to every process in pid's process group.
func killGroup(pid int) {
	unix.Kill(-pid, unix.SIGKILL)
}
