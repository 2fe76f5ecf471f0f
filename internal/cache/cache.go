// SPDX-License-Identifier: MPL-2.0

// Package cache persists probe results between runs so an unchanged
// environment never pays for the same compiler or interpreter probe twice.
// The backing store is an INI-like text file: one section per domain, keys
// holding comma-separated scalar values. The cache is advisory — readers
// must tolerate stale entries and delete them on discovery.
package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	ini "github.com/go-ini/ini"
)

// FileName is the cache file's name inside the cache directory.
const FileName = "probe.cache"

// Cache is a keyed section/key/value store loaded at init and flushed at
// exit. It is not safe for concurrent use; the driver is single-threaded.
type Cache struct {
	path   string
	file   *ini.File
	dirty  bool
	logger *log.Logger
}

// Open loads the cache file at path. A missing or unreadable file yields an
// empty cache; the cache is advisory so neither case is an error.
func Open(path string, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	c := &Cache{path: path, logger: logger}
	f, err := ini.LoadSources(ini.LoadOptions{
		SkipUnrecognizableLines: true,
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
	}, path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cannot read cache file; starting empty", "path", path, "err", err)
		}
		c.file = ini.Empty()
		return c
	}
	c.file = f
	return c
}

// Get parses the value under section/key according to format, a comma-joined
// sequence of verbs: %d (int), %b (bool as 1/0), %s (string). Destinations
// are pointers in verb order. A trailing %s is greedy and consumes the rest
// of the value, commas included, so paths survive round-trips; commas in any
// earlier %s field are escaped by Put and restored here. The return
// value is the number of fields parsed successfully; 0 means the key is
// absent or the first field failed to parse.
func (c *Cache) Get(section, key, format string, dests ...any) int {
	sec := c.file.Section(section)
	if !sec.HasKey(key) {
		return 0
	}
	value := sec.Key(key).Value()
	verbs := strings.Split(format, ",")
	if len(verbs) != len(dests) {
		c.logger.Warn("cache get: verb/destination count mismatch", "section", section, "key", key)
		return 0
	}

	fields := splitCSV(value, len(verbs))
	parsed := 0
	for i, verb := range verbs {
		if i >= len(fields) {
			break
		}
		field := fields[i]
		if verb == "%s" && i < len(verbs)-1 {
			field = unescapeField(field)
		}
		if !parseField(verb, field, dests[i]) {
			break
		}
		parsed++
	}
	return parsed
}

// Put stores values under section/key, formatted per format (same verbs as
// Get) and joined with commas.
func (c *Cache) Put(section, key, format string, vals ...any) {
	verbs := strings.Split(format, ",")
	if len(verbs) != len(vals) {
		c.logger.Warn("cache put: verb/value count mismatch", "section", section, "key", key)
		return
	}
	fields := make([]string, len(verbs))
	for i, verb := range verbs {
		f := formatField(verb, vals[i])
		if verb == "%s" && i < len(verbs)-1 {
			f = escapeField(f)
		}
		fields[i] = f
	}
	c.file.Section(section).Key(key).SetValue(strings.Join(fields, ","))
	c.dirty = true
}

// Delete removes a single key from a section. Deleting an absent key is a
// no-op that still marks the cache dirty only when something was removed.
func (c *Cache) Delete(section, key string) {
	sec := c.file.Section(section)
	if !sec.HasKey(key) {
		return
	}
	sec.DeleteKey(key)
	c.dirty = true
}

// DeleteIndexed removes every keyN / keyN_M entry derived from name in the
// section. Probes call this before re-writing a record's path lists so stale
// tails never survive a shrink.
func (c *Cache) DeleteIndexed(section, name string) {
	sec := c.file.Section(section)
	for _, k := range sec.KeyStrings() {
		if k == name || strings.HasPrefix(k, name+"_") || isIndexedForm(k, name) {
			sec.DeleteKey(k)
			c.dirty = true
		}
	}
}

// Dirty reports whether a Put or Delete happened since Open or the last
// successful Flush.
func (c *Cache) Dirty() bool { return c.dirty }

// Flush rewrites the cache file atomically (temp file + rename) when dirty.
func (c *Cache) Flush() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	var buf bytes.Buffer
	if _, err := c.file.WriteTo(&buf); err != nil {
		return fmt.Errorf("serialize cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace cache: %w", err)
	}
	c.dirty = false
	return nil
}

// Sections lists the section names present in the cache, in file order.
func (c *Cache) Sections() []string {
	var out []string
	for _, s := range c.file.Sections() {
		if s.Name() == ini.DefaultSection && len(s.Keys()) == 0 {
			continue
		}
		out = append(out, s.Name())
	}
	return out
}

// Keys lists the key names in a section, in file order.
func (c *Cache) Keys(section string) []string {
	return c.file.Section(section).KeyStrings()
}

// IndexedKey renders "name", "nameN" or "nameN_M" for 0, 1 or 2 indices.
func IndexedKey(name string, idx ...int) string {
	switch len(idx) {
	case 1:
		return fmt.Sprintf("%s_%d", name, idx[0])
	case 2:
		return fmt.Sprintf("%s_%d_%d", name, idx[0], idx[1])
	default:
		return name
	}
}

// splitCSV splits value into at most n fields; the final field keeps any
// remaining commas.
// escapeField protects a non-final %s field from the comma join. Only the
// last %s of a row is greedy; any other string field (a home dir, a module
// version) could otherwise shift every field after it on reload.
func escapeField(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, ",", "%2C")
}

func unescapeField(s string) string {
	s = strings.ReplaceAll(s, "%2C", ",")
	return strings.ReplaceAll(s, "%25", "%")
}

func splitCSV(value string, n int) []string {
	if n <= 1 {
		return []string{value}
	}
	return strings.SplitN(value, ",", n)
}

func parseField(verb, field string, dest any) bool {
	switch verb {
	case "%d":
		p, ok := dest.(*int)
		if !ok {
			return false
		}
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return false
		}
		*p = v
	case "%b":
		p, ok := dest.(*bool)
		if !ok {
			return false
		}
		switch strings.TrimSpace(field) {
		case "1":
			*p = true
		case "0":
			*p = false
		default:
			return false
		}
	case "%s":
		p, ok := dest.(*string)
		if !ok {
			return false
		}
		*p = field
	default:
		return false
	}
	return true
}

func formatField(verb string, val any) string {
	switch verb {
	case "%d":
		if v, ok := val.(int); ok {
			return strconv.Itoa(v)
		}
	case "%b":
		if v, ok := val.(bool); ok {
			if v {
				return "1"
			}
			return "0"
		}
	case "%s":
		if v, ok := val.(string); ok {
			return v
		}
	}
	return fmt.Sprint(val)
}

// isIndexedForm reports whether key is name followed by digits ("name3").
func isIndexedForm(key, name string) bool {
	if !strings.HasPrefix(key, name) || len(key) == len(name) {
		return false
	}
	for _, r := range key[len(name):] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
