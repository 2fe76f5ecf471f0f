// SPDX-License-Identifier: MPL-2.0

// Package spawn is the process surface for probes: run an executable with
// argument list, environment overrides and a wall-clock timeout, and collect
// its stdout and stderr as line slices. Probes never shell out; the
// executable is invoked directly.
package spawn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds every probe spawn. Exceeding it counts as
// probe-failed; the child is killed and reaped.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is the sentinel error wrapped by TimeoutError.
var ErrTimeout = errors.New("probe timed out")

// TimeoutError is returned when a spawned probe exceeds its deadline.
type TimeoutError struct {
	Exe     string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %s", e.Exe, e.Timeout)
}

// Unwrap returns ErrTimeout so callers can use errors.Is.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

type (
	// Request describes one child process invocation.
	Request struct {
		// Exe is the executable path (absolute or PATH-resolvable).
		Exe string
		// Args are the arguments, excluding argv[0].
		Args []string
		// EnvOverrides are applied to the child only. A nil map entry value
		// is not expressible here; use Unset for removals.
		EnvOverrides map[string]string
		// Unset names variables removed from the child environment.
		Unset []string
		// Stdin is fed to the child verbatim when non-empty.
		Stdin string
		// Timeout caps the child's wall-clock run time; zero means
		// DefaultTimeout.
		Timeout time.Duration
	}

	// Result carries everything a probe parser needs.
	Result struct {
		ExitCode    int
		StdoutLines []string
		StderrLines []string
	}

	// Runner runs child processes. The production implementation is Exec;
	// probe tests substitute fakes keyed on the requested executable.
	Runner interface {
		Run(ctx context.Context, req Request) (Result, error)
	}
)

// LastStderrLine returns the final non-empty stderr line, or "".
func (r Result) LastStderrLine() string {
	for i := len(r.StderrLines) - 1; i >= 0; i-- {
		if strings.TrimSpace(r.StderrLines[i]) != "" {
			return r.StderrLines[i]
		}
	}
	return ""
}

// Exec is the production Runner backed by os/exec.
type Exec struct{}

// Run implements Runner. A non-zero exit status is not an error; it is
// reported through Result.ExitCode so parsers can still read stderr.
func (Exec) Run(ctx context.Context, req Request) (Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Exe, req.Args...)
	cmd.Env = buildEnv(os.Environ(), req.EnvOverrides, req.Unset)
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		StdoutLines: splitLines(stdout.String()),
		StderrLines: splitLines(stderr.String()),
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return res, &TimeoutError{Exe: req.Exe, Timeout: timeout}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("spawn %s: %w", req.Exe, err)
	}
	return res, nil
}

// buildEnv applies overrides and removals to a base environment slice.
func buildEnv(base []string, overrides map[string]string, unset []string) []string {
	drop := make(map[string]bool, len(unset)+len(overrides))
	for _, name := range unset {
		drop[name] = true
	}
	for name := range overrides {
		drop[name] = true
	}
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i >= 0 && drop[kv[:i]] {
			continue
		}
		out = append(out, kv)
	}
	for name, value := range overrides {
		out = append(out, name+"="+value)
	}
	return out
}

// splitLines splits process output into lines, dropping a trailing empty
// line and carriage returns.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
