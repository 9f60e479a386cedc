//go:build unix

package tools

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the shell in its own process group so a timeout
// kills the whole pipeline, not just sh.
func configureProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}
