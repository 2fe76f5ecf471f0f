// SPDX-License-Identifier: MPL-2.0

package spawn

import "os"

// EnvSnapshot remembers the prior values of a set of environment variables
// so a probe can unset them for the duration of a spawn and put every one of
// them back afterwards, set-or-unset state included. The discipline is
// push/pop on the process environment and therefore inherently
// single-threaded; the driver never runs probes concurrently.
type EnvSnapshot struct {
	saved map[string]*string
}

// PushUnset captures the named variables and removes them from the process
// environment. Call Pop (usually via defer) to restore them — the restore
// must happen even when the probe fails.
func PushUnset(names ...string) *EnvSnapshot {
	s := &EnvSnapshot{saved: make(map[string]*string, len(names))}
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			v := value
			s.saved[name] = &v
			os.Unsetenv(name)
		} else {
			s.saved[name] = nil
		}
	}
	return s
}

// Pop restores every captured variable to its exact prior state: previously
// set variables get their old values, previously unset ones are unset again.
func (s *EnvSnapshot) Pop() {
	for name, prior := range s.saved {
		if prior == nil {
			os.Unsetenv(name)
			continue
		}
		os.Setenv(name, *prior)
	}
}
