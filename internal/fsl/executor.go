package fsl

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
)

// ExecResult holds the outcome of a single external-tool invocation.
type ExecResult struct {
	Stderr string
	Err    error
}

// Execute runs an external command built by one of the Spec types. When
// verbose is enabled, stderr is tee'd to os.Stderr in real time (bet and
// fast report progress there); otherwise it is captured silently for
// retry classification.
func Execute(ctx context.Context, verbose bool, args []string) ExecResult {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stderrBuf bytes.Buffer
	if verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
		cmd.Stdout = os.Stdout
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return ExecResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}
