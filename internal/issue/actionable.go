// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is an error with context for user-facing messages:
	// what operation failed, what resource was involved, which taxonomy
	// kind it belongs to, and how the user might fix it.
	//
	// Use the ErrorContext builder for construction:
	//
	//	err := issue.NewErrorContext().
	//		WithKind(issue.SpawnFailed).
	//		WithOperation("probe gcc include paths").
	//		WithResource("/usr/bin/gcc").
	//		WithSuggestion("Check that gcc is still installed").
	//		Wrap(originalErr).
	//		BuildError()
	ActionableError struct {
		// Kind is the taxonomy class; zero means unclassified.
		Kind Kind

		// Operation describes what was being attempted, as a verb phrase.
		Operation string

		// Resource identifies the file, path, or entity involved (optional).
		Resource string

		// Suggestions are remediation hints (optional).
		Suggestions []string

		// Cause is the underlying error (optional).
		Cause error
	}

	// ErrorContext is a fluent builder for ActionableError values.
	ErrorContext struct {
		kind        Kind
		operation   string
		resource    string
		suggestions []string
		cause       error
	}
)

// NewErrorContext creates a new builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error implements the error interface with the concise, non-verbose form.
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

// Unwrap returns the cause for errors.Is/As traversal.
func (e *ActionableError) Unwrap() error { return e.Cause }

// Format renders the error for terminal display. Suggestions are appended
// as bullets; verbose mode adds the full cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, s := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		err := e.Cause
		depth := 1
		for err != nil {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			err = errors.Unwrap(err)
			depth++
		}
	}
	return msg.String()
}

// WithKind tags the error with a taxonomy kind.
func (c *ErrorContext) WithKind(k Kind) *ErrorContext {
	c.kind = k
	return c
}

// WithOperation sets the operation, a verb phrase like "probe gcc includes".
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource sets the file, path or entity involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends one remediation hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// Wrap records the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build creates the ActionableError. Returns nil if no operation is set.
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}
	suggestions := c.suggestions
	if issue := Lookup(c.kind); issue != nil && len(suggestions) == 0 {
		suggestions = issue.Hints()
	}
	return &ActionableError{
		Kind:        c.kind,
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: suggestions,
		Cause:       c.cause,
	}
}

// BuildError is Build returning the error interface, for direct returns.
func (c *ErrorContext) BuildError() error {
	ae := c.Build()
	if ae == nil {
		return nil
	}
	return ae
}
