//go:build !unix

package tools

import "os/exec"

func configureProcessGroup(c *exec.Cmd) {}
