// SPDX-License-Identifier: MPL-2.0

package interp

import (
	"github.com/charmbracelet/log"

	"github.com/pathscout/pathscout/internal/cache"
	"github.com/pathscout/pathscout/internal/fsys"
	"github.com/pathscout/pathscout/internal/ignore"
	"github.com/pathscout/pathscout/internal/pathlist"
	"github.com/pathscout/pathscout/internal/peinfo"
)

// Cache layout, one section per interpreter family ([Python], [Lua],
// [Shell]), one ordinal per record:
//
//	interp_exe_N   = state,default,embeddable,bitness,variant,version,home,userSite,exe
//	interp_path_N_M = directory-or-archive
//	interp_mod_N_M  = name,version,isArchive,metadataPath,location
//
// Readers iterate N, then M, until a Get fails. A record whose executable
// disappeared is dropped and its keys deleted.
const (
	interpExeKey  = "interp_exe"
	interpPathKey = "interp_path"
	interpModKey  = "interp_mod"

	interpExeFormat = "%d,%b,%b,%d,%s,%s,%s,%s,%s"
	interpModFormat = "%s,%s,%b,%s,%s"
)

// sectionName maps an ignore section to its cache section header.
func sectionName(s ignore.Section) string { return string(s) }

// Store persists probed interpreter records across runs.
type Store struct {
	Cache  *cache.Cache
	FS     fsys.Filesystem
	Canon  *pathlist.Canonicalizer
	Logger *log.Logger
}

// Load reconstructs the cached records of one family section, validating
// that each executable still exists.
func (s *Store) Load(section ignore.Section) []*Record {
	sec := sectionName(section)
	var out []*Record
	for n := 0; ; n++ {
		var (
			state, bitness      int
			isDefault, embed    bool
			variant, version    string
			home, userSite, exe string
		)
		got := s.Cache.Get(sec, cache.IndexedKey(interpExeKey, n), interpExeFormat,
			&state, &isDefault, &embed, &bitness,
			&variant, &version, &home, &userSite, &exe)
		if got < 9 {
			break
		}
		if !s.FS.Exists(exe) {
			s.Logger.Debug("cached interpreter disappeared; dropping entry",
				"variant", variant, "path", exe)
			s.deleteOrdinal(sec, n)
			continue
		}
		rec := &Record{
			Variant:      Variant(variant),
			ShortName:    shortNameOf(exe),
			Executable:   exe,
			Version:      parseVersion(version),
			Bitness:      peinfo.Bitness(bitness),
			IsDefault:    isDefault,
			IsEmbeddable: embed,
			HomeDir:      home,
			UserSiteDir:  userSite,
			State:        ProbeState(state),
		}
		if !rec.Variant.IsValid() {
			s.deleteOrdinal(sec, n)
			continue
		}
		rec.ModuleSearchPath = s.loadPath(sec, n, rec)
		rec.InstalledModules = s.loadModules(sec, n)
		out = append(out, rec)
	}
	return out
}

func (s *Store) loadPath(sec string, n int, rec *Record) *pathlist.List {
	l := &pathlist.List{Owner: rec.ListOwner()}
	for m := 0; ; m++ {
		var dir string
		if s.Cache.Get(sec, cache.IndexedKey(interpPathKey, n, m), "%s", &dir) < 1 {
			break
		}
		l.Append(s.Canon, dir)
	}
	fsys.Classify(s.FS, l)
	return l
}

func (s *Store) loadModules(sec string, n int) []Module {
	var out []Module
	for m := 0; ; m++ {
		var mod Module
		got := s.Cache.Get(sec, cache.IndexedKey(interpModKey, n, m), interpModFormat,
			&mod.Name, &mod.Version, &mod.IsArchive, &mod.MetadataPath, &mod.Location)
		if got < 5 {
			break
		}
		out = append(out, mod)
	}
	return out
}

// Save rewrites one family section from the given records.
func (s *Store) Save(section ignore.Section, recs []*Record) {
	sec := sectionName(section)
	s.Cache.DeleteIndexed(sec, interpExeKey)
	s.Cache.DeleteIndexed(sec, interpPathKey)
	s.Cache.DeleteIndexed(sec, interpModKey)
	n := 0
	for _, rec := range recs {
		if rec.State != StateProbed && rec.State != StateFailed {
			continue
		}
		s.Cache.Put(sec, cache.IndexedKey(interpExeKey, n), interpExeFormat,
			int(rec.State), rec.IsDefault, rec.IsEmbeddable, int(rec.Bitness),
			string(rec.Variant), rec.Version.String(),
			rec.HomeDir, rec.UserSiteDir, rec.Executable)
		if rec.ModuleSearchPath != nil {
			m := 0
			for _, e := range rec.ModuleSearchPath.Entries {
				if e.DuplicateOf != nil {
					continue
				}
				s.Cache.Put(sec, cache.IndexedKey(interpPathKey, n, m), "%s", e.CanonicalPath)
				m++
			}
		}
		for m, mod := range rec.InstalledModules {
			s.Cache.Put(sec, cache.IndexedKey(interpModKey, n, m), interpModFormat,
				mod.Name, mod.Version, mod.IsArchive, mod.MetadataPath, mod.Location)
		}
		n++
	}
}

func (s *Store) deleteOrdinal(sec string, n int) {
	s.Cache.Delete(sec, cache.IndexedKey(interpExeKey, n))
	for _, name := range []string{interpPathKey, interpModKey} {
		for m := 0; ; m++ {
			key := cache.IndexedKey(name, n, m)
			var v string
			if s.Cache.Get(sec, key, "%s", &v) < 1 {
				break
			}
			s.Cache.Delete(sec, key)
		}
	}
}

func shortNameOf(exe string) string {
	for i := len(exe) - 1; i >= 0; i-- {
		if exe[i] == '/' || exe[i] == '\\' {
			return exe[i+1:]
		}
	}
	return exe
}
