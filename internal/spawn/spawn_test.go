// SPDX-License-Identifier: MPL-2.0

package spawn

import (
	"os"
	"reflect"
	"testing"
)

func TestEnvPushPopRestoresSetVariable(t *testing.T) {
	t.Setenv("PATHSCOUT_TEST_SENTINEL", "sentinel")

	snap := PushUnset("PATHSCOUT_TEST_SENTINEL")
	if _, ok := os.LookupEnv("PATHSCOUT_TEST_SENTINEL"); ok {
		t.Fatalf("variable still set after PushUnset")
	}
	snap.Pop()
	if got := os.Getenv("PATHSCOUT_TEST_SENTINEL"); got != "sentinel" {
		t.Errorf("restored value = %q, want sentinel", got)
	}
}

func TestEnvPushPopRestoresUnsetVariable(t *testing.T) {
	const name = "PATHSCOUT_TEST_NEVER_SET"
	os.Unsetenv(name)

	snap := PushUnset(name)
	os.Setenv(name, "left-behind-by-probe")
	snap.Pop()
	if _, ok := os.LookupEnv(name); ok {
		t.Errorf("previously-unset variable is set after Pop")
	}
}

func TestEnvPushPopSurvivesFailurePath(t *testing.T) {
	t.Setenv("C_INCLUDE_PATH_TESTDOUBLE", "sentinel")

	// Mimic a failing probe: push, fail, pop via defer.
	func() {
		snap := PushUnset("C_INCLUDE_PATH_TESTDOUBLE")
		defer snap.Pop()
		// probe "fails" here; nothing else happens
	}()

	if got := os.Getenv("C_INCLUDE_PATH_TESTDOUBLE"); got != "sentinel" {
		t.Errorf("value after failed probe = %q, want sentinel", got)
	}
}

func TestBuildEnv(t *testing.T) {
	t.Parallel()

	base := []string{"KEEP=1", "DROP=2", "REPLACE=old"}
	got := buildEnv(base, map[string]string{"REPLACE": "new", "ADDED": "3"}, []string{"DROP"})

	set := map[string]string{}
	for _, kv := range got {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				set[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	want := map[string]string{"KEEP": "1", "REPLACE": "new", "ADDED": "3"}
	if !reflect.DeepEqual(set, want) {
		t.Errorf("buildEnv() = %v, want %v", set, want)
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"one\n", []string{"one"}},
		{"a\r\nb\r\n", []string{"a", "b"}},
		{"no-trailing-newline", []string{"no-trailing-newline"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
	}
	for _, tc := range cases {
		if got := splitLines(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitLines(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLastStderrLine(t *testing.T) {
	t.Parallel()

	r := Result{StderrLines: []string{"first", "second", "   "}}
	if got := r.LastStderrLine(); got != "second" {
		t.Errorf("LastStderrLine() = %q", got)
	}
	if got := (Result{}).LastStderrLine(); got != "" {
		t.Errorf("LastStderrLine(empty) = %q", got)
	}
}
