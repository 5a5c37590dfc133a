//go:build !linux

package procjob

import "os/exec"

// setpgid is a no-op outside Linux; Interrupt falls back to killing
// only the direct child process.
func setpgid(cmd *exec.Cmd) {}

func killGroup(pid int) {
	// best effort: only the direct child, no process-group semantics
	// available without the Setpgid attribute.
}
