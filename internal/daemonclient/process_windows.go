//go:build windows

package daemonclient

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// processAlive shells out to tasklist, since the stdlib syscall
// package exposes no portable "does this pid exist" check on Windows
// and no Windows process-query library is part of this module's
// dependency set.
func processAlive(pid int) bool {
	out, err := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), strconv.Itoa(pid))
}

// detach hides the daemon's console window so it doesn't flash one up
// behind the CLI.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x00000008, // DETACHED_PROCESS
	}
}
