// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func tempCachePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), FileName)
}

func TestPutFlushReloadRoundTrip(t *testing.T) {
	t.Parallel()

	path := tempCachePath(t)

	c := Open(path, quietLogger())
	c.Put("Compiler", "compiler_exe_3", "%d,%b,%b,%s,%s,%s,%s",
		1, false, false, "C_INCLUDE_PATH", "LIBRARY_PATH", "gcc.exe", `C:\MinGW\bin\gcc.exe`)
	c.Put("Compiler", "compiler_inc_1_0", "%s", `C:\MinGW\include`)
	if !c.Dirty() {
		t.Fatalf("cache not dirty after Put")
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if c.Dirty() {
		t.Errorf("cache still dirty after Flush")
	}

	reloaded := Open(path, quietLogger())
	var (
		version          int
		ignored, probed  bool
		incEnv, libEnv   string
		shortName, fullP string
	)
	n := reloaded.Get("Compiler", "compiler_exe_3", "%d,%b,%b,%s,%s,%s,%s",
		&version, &ignored, &probed, &incEnv, &libEnv, &shortName, &fullP)
	if n != 7 {
		t.Fatalf("Get parsed %d fields, want 7", n)
	}
	if version != 1 || ignored || probed {
		t.Errorf("scalar fields = %d %v %v", version, ignored, probed)
	}
	if incEnv != "C_INCLUDE_PATH" || libEnv != "LIBRARY_PATH" {
		t.Errorf("env fields = %q %q", incEnv, libEnv)
	}
	if shortName != "gcc.exe" || fullP != `C:\MinGW\bin\gcc.exe` {
		t.Errorf("path fields = %q %q", shortName, fullP)
	}

	var inc string
	if n := reloaded.Get("Compiler", "compiler_inc_1_0", "%s", &inc); n != 1 || inc != `C:\MinGW\include` {
		t.Errorf("include round-trip: n=%d value=%q", n, inc)
	}
}

func TestGreedyFinalStringKeepsCommas(t *testing.T) {
	t.Parallel()

	c := Open(tempCachePath(t), quietLogger())
	c.Put("Python", "module_0", "%s,%s", "requests", "/site-packages/requests, extras")

	var name, loc string
	if n := c.Get("Python", "module_0", "%s,%s", &name, &loc); n != 2 {
		t.Fatalf("Get parsed %d fields", n)
	}
	if loc != "/site-packages/requests, extras" {
		t.Errorf("final field = %q", loc)
	}
}

func TestMiddleStringFieldsSurviveCommas(t *testing.T) {
	t.Parallel()

	path := tempCachePath(t)
	c := Open(path, quietLogger())
	// Commas in a middle string field (a Windows-style install dir) must
	// not shift the fields after it.
	c.Put("Python", "interp_exe_0", "%d,%s,%s",
		3, `C:\Users\a b, c\python`, `C:\Users\a b, c\python\python.exe`)
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	reloaded := Open(path, quietLogger())
	var state int
	var home, exe string
	if n := reloaded.Get("Python", "interp_exe_0", "%d,%s,%s", &state, &home, &exe); n != 3 {
		t.Fatalf("Get parsed %d fields, want 3", n)
	}
	if home != `C:\Users\a b, c\python` {
		t.Errorf("middle field = %q", home)
	}
	if exe != `C:\Users\a b, c\python\python.exe` {
		t.Errorf("final field = %q", exe)
	}
}

func TestGetMissingKeyReturnsZero(t *testing.T) {
	t.Parallel()

	c := Open(tempCachePath(t), quietLogger())
	var s string
	if n := c.Get("Lua", "nope", "%s", &s); n != 0 {
		t.Errorf("Get(absent) = %d", n)
	}
}

func TestGetStopsAtFirstBadField(t *testing.T) {
	t.Parallel()

	c := Open(tempCachePath(t), quietLogger())
	c.Put("Compiler", "rec", "%s,%s", "not-a-number", "tail")

	var i int
	var s string
	if n := c.Get("Compiler", "rec", "%d,%s", &i, &s); n != 0 {
		t.Errorf("Get with bad first field = %d, want 0", n)
	}
}

func TestDeleteAndIndexedIteration(t *testing.T) {
	t.Parallel()

	c := Open(tempCachePath(t), quietLogger())
	for i := 0; i < 3; i++ {
		c.Put("Python", IndexedKey("sys_path", i), "%s", "/p")
	}

	// Readers iterate until Get fails.
	count := 0
	for {
		var s string
		if c.Get("Python", IndexedKey("sys_path", count), "%s", &s) == 0 {
			break
		}
		count++
	}
	if count != 3 {
		t.Fatalf("iterated %d indexed keys, want 3", count)
	}

	c.Delete("Python", IndexedKey("sys_path", 1))
	var s string
	if c.Get("Python", IndexedKey("sys_path", 1), "%s", &s) != 0 {
		t.Errorf("deleted key still present")
	}
}

func TestDeleteIndexedSweepsDerivedKeys(t *testing.T) {
	t.Parallel()

	c := Open(tempCachePath(t), quietLogger())
	c.Put("Compiler", "compiler_inc_1", "%d", 2)
	c.Put("Compiler", "compiler_inc_1_0", "%s", "/a")
	c.Put("Compiler", "compiler_inc_1_1", "%s", "/b")
	c.Put("Compiler", "compiler_lib_1", "%d", 0)

	c.DeleteIndexed("Compiler", "compiler_inc_1")

	for _, key := range []string{"compiler_inc_1", "compiler_inc_1_0", "compiler_inc_1_1"} {
		var s string
		if c.Get("Compiler", key, "%s", &s) != 0 {
			t.Errorf("key %s survived DeleteIndexed", key)
		}
	}
	var n int
	if c.Get("Compiler", "compiler_lib_1", "%d", &n) != 1 {
		t.Errorf("unrelated key was swept")
	}
}

func TestOpenMissingAndGarbageFiles(t *testing.T) {
	t.Parallel()

	// Missing file: empty cache, usable.
	c := Open(filepath.Join(t.TempDir(), "absent.cache"), quietLogger())
	var s string
	if c.Get("Compiler", "k", "%s", &s) != 0 {
		t.Errorf("missing file produced data")
	}

	// Unparseable lines are skipped, file still loads.
	p := tempCachePath(t)
	if err := os.WriteFile(p, []byte("[Compiler]\ngood = 1\n<<<garbage line\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c = Open(p, quietLogger())
	var n int
	if c.Get("Compiler", "good", "%d", &n) != 1 || n != 1 {
		t.Errorf("good key lost to garbage neighbor")
	}
}

func TestFlushIsNoopWhenClean(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "never-created.cache")
	c := Open(path, quietLogger())
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush(clean): %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("clean flush created a file")
	}
}
