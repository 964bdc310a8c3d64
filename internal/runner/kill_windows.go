//go:build windows

package runner

import "os/exec"

// configureKill keeps the exec default of killing the direct child.
func configureKill(cmd *exec.Cmd) {}
