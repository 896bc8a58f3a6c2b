//go:build !windows

package git

import (
	"os/exec"
	"syscall"
)

// configureProcess starts git in its own process group and makes context
// cancellation kill the whole group, so remote helpers spawned by push, pull
// and clone do not outlive it.
func configureProcess(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		// with Setpgid the group id is the child's pid
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = processWaitDelay
}
