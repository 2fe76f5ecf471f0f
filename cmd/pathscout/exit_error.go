// SPDX-License-Identifier: MPL-2.0

package main

import "fmt"

// Exit codes: 0 when at least one match was emitted, 1 for a successful run
// with no matches, 2 for an unrecoverable error.
const (
	exitMatches   = 0
	exitNoMatches = 1
	exitFatal     = 2
)

// ExitError signals a specific exit code without forcing os.Exit in RunE
// handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
