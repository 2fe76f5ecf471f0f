// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 1")
	err := NewErrorContext().
		WithKind(SpawnFailed).
		WithOperation("probe gcc include paths").
		WithResource("/usr/bin/gcc").
		Wrap(cause).
		BuildError()

	want := "failed to probe gcc include paths: /usr/bin/gcc: exit status 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false")
	}
}

func TestBuildRequiresOperation(t *testing.T) {
	t.Parallel()

	if err := NewErrorContext().WithResource("x").BuildError(); err != nil {
		t.Errorf("BuildError without operation = %v, want nil", err)
	}
}

func TestBuildInheritsCatalogHints(t *testing.T) {
	t.Parallel()

	ae := NewErrorContext().
		WithKind(PatternSyntax).
		WithOperation("compile search pattern").
		Build()
	if len(ae.Suggestions) == 0 {
		t.Fatalf("catalog hints were not inherited")
	}

	custom := NewErrorContext().
		WithKind(PatternSyntax).
		WithOperation("compile search pattern").
		WithSuggestion("only this one").
		Build()
	if len(custom.Suggestions) != 1 {
		t.Errorf("explicit suggestions should win over catalog hints")
	}
}

func TestFormatVerboseShowsChain(t *testing.T) {
	t.Parallel()

	inner := errors.New("inner")
	ae := NewErrorContext().
		WithOperation("load cache").
		Wrap(inner).
		Build()

	plain := ae.Format(false)
	if strings.Contains(plain, "Error chain") {
		t.Errorf("non-verbose format shows chain")
	}
	verbose := ae.Format(true)
	if !strings.Contains(verbose, "Error chain") || !strings.Contains(verbose, "inner") {
		t.Errorf("verbose format missing chain: %q", verbose)
	}
}

func TestKindFatal(t *testing.T) {
	t.Parallel()

	if !PatternSyntax.Fatal() {
		t.Errorf("PatternSyntax.Fatal() = false")
	}
	for _, k := range []Kind{ConfigMalformed, MissingEnvVar, SpawnFailed, ProbeCrash, ArchiveMalformed, CacheStale, HostMismatch} {
		if k.Fatal() {
			t.Errorf("%v.Fatal() = true", k)
		}
	}
}

func TestRenderAppendsHints(t *testing.T) {
	t.Parallel()

	orig := render
	defer func() { render = orig }()
	var captured string
	render = func(in, _ string) (string, error) {
		captured = in
		return in, nil
	}

	entry := Lookup(SpawnFailed)
	if entry == nil {
		t.Fatalf("catalog is missing SpawnFailed")
	}
	if _, err := entry.Render("auto"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(captured, "- Verify the executable") {
		t.Errorf("hints not appended: %q", captured)
	}
}
