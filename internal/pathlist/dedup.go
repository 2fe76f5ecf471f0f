// SPDX-License-Identifier: MPL-2.0

package pathlist

// Dedup marks every entry whose canonical comparison key already appeared
// earlier in the list. For entry E at position i, if an earlier entry at
// position j shares E's key, E.DuplicateOf is set to j (the first such j).
// Entries already marked are re-evaluated from scratch, so Dedup is safe to
// call more than once.
func (l *List) Dedup(c *Canonicalizer) {
	seen := make(map[string]int, len(l.Entries))
	for i := range l.Entries {
		e := &l.Entries[i]
		e.DuplicateOf = nil
		key := c.CompareKey(e.CanonicalPath)
		if j, ok := seen[key]; ok {
			dup := j
			e.DuplicateOf = &dup
			continue
		}
		seen[key] = i
	}
}

// Compact returns a new list holding only the entries with a nil DuplicateOf,
// in their original order. Origin ordinals are restamped to the compacted
// positions so downstream reports stay dense.
func (l *List) Compact() *List {
	out := &List{Owner: l.Owner}
	for _, e := range l.Entries {
		if e.DuplicateOf != nil {
			continue
		}
		e.Origin.Ordinal = len(out.Entries)
		out.Entries = append(out.Entries, e)
	}
	return out
}
