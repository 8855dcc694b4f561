// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package runtime

import (
	"errors"
	"os"
	"syscall"
)

// Terminate asks the process to exit with SIGTERM. There is no escalation to
// SIGKILL: a child that ignores the signal keeps running. A process that has
// already exited is not an error.
func Terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := p.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
