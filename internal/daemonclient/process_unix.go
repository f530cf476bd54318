//go:build !windows

package daemonclient

import (
	"os/exec"
	"syscall"
)

// processAlive checks process liveness with signal 0, which delivers
// no signal but still reports ESRCH if the pid is gone.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// detach puts the daemon in its own session so it survives the CLI
// process exiting.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
