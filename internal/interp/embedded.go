// SPDX-License-Identifier: MPL-2.0

package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// EmbeddedRuntime is the in-process invocation capability. At most one
// runtime is live at a time; the driver finalizes the current one before
// initializing another.
type EmbeddedRuntime interface {
	// Initialize prepares the runtime. Must be called before RunScript.
	Initialize(ctx context.Context) error
	// RunScript executes src in-process; its stdout accumulates in the
	// capture buffer.
	RunScript(ctx context.Context, src string) error
	// CaptureStdout returns everything written to stdout since the last
	// reset.
	CaptureStdout() string
	// ResetStdout clears the capture buffer.
	ResetStdout()
	// Finalize tears the runtime down. The runtime is unusable afterwards.
	Finalize() error
}

// catcher is the stdout sink installed as the embedded runtime's standard
// output. Writes accumulate until Reset.
type catcher struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (c *catcher) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Value returns the accumulated output.
func (c *catcher) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Reset clears the buffer.
func (c *catcher) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
}

// ErrRuntimeFinalized is returned by operations on a torn-down runtime.
var ErrRuntimeFinalized = errors.New("embedded runtime already finalized")

// shellRuntime hosts the POSIX-shell family in-process. Scripts share one
// interpreter state across RunScript calls, so a probe sequence sees its own
// variable assignments.
type shellRuntime struct {
	environ []string
	out     catcher
	parser  *syntax.Parser
	runner  *interp.Runner
	done    bool
}

// newShellRuntime builds an uninitialized shell runtime. environ is the
// child-style environment the scripts see; nil means the process
// environment.
func newShellRuntime(environ []string) *shellRuntime {
	if environ == nil {
		environ = os.Environ()
	}
	return &shellRuntime{environ: environ}
}

// Initialize implements EmbeddedRuntime.
func (r *shellRuntime) Initialize(context.Context) error {
	if r.done {
		return ErrRuntimeFinalized
	}
	r.parser = syntax.NewParser()
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(r.environ...)),
		interp.StdIO(nil, &r.out, io.Discard),
	)
	if err != nil {
		return fmt.Errorf("failed to create shell runtime: %w", err)
	}
	r.runner = runner
	return nil
}

// RunScript implements EmbeddedRuntime. A non-zero script exit is not an
// error; the probe parses whatever reached the capture buffer.
func (r *shellRuntime) RunScript(ctx context.Context, src string) error {
	if r.done {
		return ErrRuntimeFinalized
	}
	if r.runner == nil {
		return errors.New("shell runtime not initialized")
	}
	prog, err := r.parser.Parse(strings.NewReader(src), "probe")
	if err != nil {
		return fmt.Errorf("probe script syntax error: %w", err)
	}
	if err := r.runner.Run(ctx, prog); err != nil {
		var exit interp.ExitStatus
		if errors.As(err, &exit) {
			return nil
		}
		return fmt.Errorf("probe script failed: %w", err)
	}
	return nil
}

// CaptureStdout implements EmbeddedRuntime.
func (r *shellRuntime) CaptureStdout() string { return r.out.Value() }

// ResetStdout implements EmbeddedRuntime.
func (r *shellRuntime) ResetStdout() { r.out.Reset() }

// Finalize implements EmbeddedRuntime.
func (r *shellRuntime) Finalize() error {
	r.done = true
	r.runner = nil
	r.out.Reset()
	return nil
}
