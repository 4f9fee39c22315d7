package sandbox

import (
	"strings"
)

// NoOutput replaces output that is empty or only whitespace.
const NoOutput = "_(No output)_"

// Result is the outcome of one execution: either captured output or a fault message.
type Result struct {
	fault bool
	text  string
}

// Output creates a successful result. Blank output is replaced with [NoOutput].
func Output(text string) Result {
	if strings.TrimSpace(text) == "" {
		text = NoOutput
	}
	return Result{fault: false, text: text}
}

// Fault creates a failed result carrying a human-readable message.
func Fault(msg string) Result {
	return Result{fault: true, text: msg}
}

// IsFault reports whether the execution failed.
func (r Result) IsFault() bool {
	return r.fault
}

// Text returns the captured output or the fault message.
func (r Result) Text() string {
	return r.text
}

// String renders the result for display: output verbatim, faults as a bold error line.
func (r Result) String() string {
	if r.fault {
		return "**Error:** " + r.text
	}
	return r.text
}
