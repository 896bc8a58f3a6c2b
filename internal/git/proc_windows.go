//go:build windows

package git

import "os/exec"

func configureProcess(cmd *exec.Cmd) {
	cmd.WaitDelay = processWaitDelay
}
