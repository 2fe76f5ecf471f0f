// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/cache"
	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
)

// Cache layout under the [Compiler] section, one ordinal per record:
//
//	compiler_exe_N   = state,ignored,bitness,family,incEnv,libEnv,shortName,fullPath
//	compiler_inc_N_M = directory
//	compiler_lib_N_M = directory
//
// Readers iterate N, then M, until a Get fails. The cache is advisory: a
// record whose executable disappeared is dropped and its keys deleted.
const (
	cacheSection = "Compiler"
	exeKey       = "compiler_exe"
	incKey       = "compiler_inc"
	libKey       = "compiler_lib"

	exeFormat = "%d,%b,%d,%s,%s,%s,%s,%s"
)

// Store persists probed compiler records across runs.
type Store struct {
	Cache  *cache.Cache
	FS     fsys.Filesystem
	Canon  *pathlist.Canonicalizer
	Logger *log.Logger
}

// Load reconstructs the cached records, validating that each executable
// still exists. Stale entries are deleted and skipped.
func (s *Store) Load() []*Record {
	var out []*Record
	for n := 0; ; n++ {
		var (
			state, bitness int
			ignored        bool
			family         string
			incEnv, libEnv string
			short, full    string
		)
		got := s.Cache.Get(cacheSection, cache.IndexedKey(exeKey, n), exeFormat,
			&state, &ignored, &bitness, &family, &incEnv, &libEnv, &short, &full)
		if got < 8 {
			break
		}
		if !s.FS.Exists(full) {
			s.Logger.Debug("cached compiler disappeared; dropping entry",
				"compiler", short, "path", full)
			s.deleteOrdinal(n)
			continue
		}
		rec := &Record{
			Family:     Family(family),
			ShortName:  short,
			FullPath:   full,
			IncludeEnv: incEnv,
			LibraryEnv: libEnv,
			Ignored:    ignored,
			Bitness:    peinfo.Bitness(bitness),
			State:      ProbeState(state),
		}
		if !rec.Family.IsValid() {
			s.deleteOrdinal(n)
			continue
		}
		rec.IncludePaths = s.loadList(incKey, n, rec.ListOwner("includes"))
		rec.LibraryPaths = s.loadList(libKey, n, rec.ListOwner("libraries"))
		out = append(out, rec)
	}
	return out
}

func (s *Store) loadList(name string, n int, owner string) *pathlist.List {
	l := &pathlist.List{Owner: owner}
	for m := 0; ; m++ {
		var dir string
		if s.Cache.Get(cacheSection, cache.IndexedKey(name, n, m), "%s", &dir) < 1 {
			break
		}
		l.Append(s.Canon, dir)
	}
	return l
}

// Save rewrites the section from the given records. Only records that were
// actually probed (successfully or not) are worth keeping.
func (s *Store) Save(recs []*Record) {
	s.Cache.DeleteIndexed(cacheSection, exeKey)
	s.Cache.DeleteIndexed(cacheSection, incKey)
	s.Cache.DeleteIndexed(cacheSection, libKey)
	n := 0
	for _, rec := range recs {
		if rec.State != StateProbed && rec.State != StateFailed {
			continue
		}
		s.Cache.Put(cacheSection, cache.IndexedKey(exeKey, n), exeFormat,
			int(rec.State), rec.Ignored, int(rec.Bitness), string(rec.Family),
			rec.IncludeEnv, rec.LibraryEnv, rec.ShortName, rec.FullPath)
		s.saveList(incKey, n, rec.IncludePaths)
		s.saveList(libKey, n, rec.LibraryPaths)
		n++
	}
}

func (s *Store) saveList(name string, n int, l *pathlist.List) {
	if l == nil {
		return
	}
	m := 0
	for _, e := range l.Entries {
		if e.DuplicateOf != nil {
			continue
		}
		s.Cache.Put(cacheSection, cache.IndexedKey(name, n, m), "%s", e.CanonicalPath)
		m++
	}
}

func (s *Store) deleteOrdinal(n int) {
	s.Cache.Delete(cacheSection, cache.IndexedKey(exeKey, n))
	for m := 0; ; m++ {
		key := cache.IndexedKey(incKey, n, m)
		var dir string
		if s.Cache.Get(cacheSection, key, "%s", &dir) < 1 {
			break
		}
		s.Cache.Delete(cacheSection, key)
	}
	for m := 0; ; m++ {
		key := cache.IndexedKey(libKey, n, m)
		var dir string
		if s.Cache.Get(cacheSection, key, "%s", &dir) < 1 {
			break
		}
		s.Cache.Delete(cacheSection, key)
	}
}
