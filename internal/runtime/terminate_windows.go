// SPDX-License-Identifier: MPL-2.0

//go:build windows

package runtime

import (
	"errors"
	"os"
)

// Terminate kills the process. Windows has no SIGTERM equivalent that a
// console child can observe, so this is the only signal available.
func Terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
