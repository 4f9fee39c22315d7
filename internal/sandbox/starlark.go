// Package sandbox runs learner code in a Python-dialect interpreter and reports printed output or a fault.
//
// Every execution gets a fresh, empty global namespace, so nothing leaks between runs or into the host. The
// interpreter has no builtins for files, sockets or processes and module loading is disabled. CPU and memory are
// not constrained; the only resource bound is a wall-clock timeout after which the execution is cancelled and
// reported as a fault.
package sandbox

import (
	"context"
	"fmt"
	"github.com/myrjola/tutorai/internal/errors"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"strings"
	"time"
)

// DefaultTimeout bounds a single execution.
const DefaultTimeout = 5 * time.Second

const filename = "main.py"

var fileOptions = &syntax.FileOptions{ //nolint:exhaustruct // remaining dialect options stay off
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Starlark executes source code with the Starlark interpreter.
type Starlark struct {
	timeout time.Duration
}

// NewStarlark returns an executor that cancels executions running longer than timeout.
// A non-positive timeout selects [DefaultTimeout].
func NewStarlark(timeout time.Duration) *Starlark {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Starlark{timeout: timeout}
}

// Execute runs src and never returns an error or panics: every failure is folded into a Fault result.
func (s *Starlark) Execute(ctx context.Context, src string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Fault(fmt.Sprintf("internal interpreter error: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out strings.Builder
	thread := &starlark.Thread{ //nolint:exhaustruct // Load stays nil so that load statements fail
		Name: "learner",
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteString(msg)
			out.WriteByte('\n')
		},
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel("execution stopped")
	})
	defer stop()

	_, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, starlark.StringDict{})
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return Fault(fmt.Sprintf("execution timed out after %s", s.timeout))
		case ctx.Err() != nil:
			return Fault("execution cancelled")
		default:
			return Fault(describe(err))
		}
	}
	return Output(out.String())
}

// describe extracts the message of an interpreter error without the Go-side backtrace framing.
func describe(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg
	}
	return err.Error()
}
