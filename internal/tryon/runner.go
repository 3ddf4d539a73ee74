package tryon

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"closet/internal/apperrors"
)

// maxCapturedOutput bounds the stderr kept for error reports.
const maxCapturedOutput = 8 << 10

// Runner invokes the external try-on program once.
type Runner interface {
	Run(ctx context.Context) error
}

// ExecRunner runs a fixed command line in a fixed working directory.
type ExecRunner struct {
	Command string
	Args    []string
	Dir     string
}

// Run starts the program and waits for it. A non-zero exit, a timeout or a
// cancellation is reported as an ExternalProcess error carrying stderr.
func (r *ExecRunner) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Dir = r.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Grandchildren holding stderr open must not stall Wait after a kill.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	if err == nil {
		return nil
	}

	details := captured(stderr.String())
	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := "try-on program was cancelled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "try-on program timed out"
		}
		return apperrors.ExternalProcess(msg, details, ctxErr)
	}
	return apperrors.ExternalProcess("try-on program failed", details, err)
}

func captured(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxCapturedOutput {
		s = s[len(s)-maxCapturedOutput:]
	}
	return s
}
