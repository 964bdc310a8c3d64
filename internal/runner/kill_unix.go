//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// configureKill places the probe in its own process group so a timeout
// kills any helpers it spawned along with it.
func configureKill(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
