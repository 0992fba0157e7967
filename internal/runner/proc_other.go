//go:build !(linux || darwin)

package runner

import "os/exec"

// killProcessGroup leaves the default cancellation in place: only the
// direct child is killed.
func killProcessGroup(cmd *exec.Cmd) {}
