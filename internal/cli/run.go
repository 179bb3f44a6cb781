package cli

import (
	"fmt"
	"io"
)

// Process exit codes returned by Run.
const (
	ExitOK      = 0 // up-to-date or stale
	ExitFailure = 1 // the check failed; status=failure was recorded
	ExitUsage   = 2 // bad flags or arguments; nothing was checked
)

// Handler is the program entrypoint for CLI execution.
//
// It is set by the main package (wired in init) so tests can call Run without
// forking processes while keeping the actual implementation out of this package.
var Handler func(args []string, stdout, stderr io.Writer) int

// Run dispatches to Handler and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if Handler == nil {
		fmt.Fprintln(stderr, "error: cli handler not configured")
		return ExitFailure
	}
	return Handler(args, stdout, stderr)
}
