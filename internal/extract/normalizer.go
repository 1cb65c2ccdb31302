package extract

import (
	"sort"
)

// Normalize deduplicates raw records and orders them for the inventory.
//
// Records collide when ecosystem and name match. A known version always
// wins over an unknown one. Identical versions collapse to their most
// authoritative source. When distinct versions remain, every one of them is
// kept and flagged as a conflict, the most authoritative record comes first
// and the rest are marked superseded.
func Normalize(records []PackageRecord) ([]PackageRecord, []ConflictWarning) {
	groups := map[recordKey][]PackageRecord{}
	var keys []recordKey
	for _, record := range records {
		if !record.Uncertain && (record.Version == "" || !validVersion(record.Ecosystem, record.Version)) {
			record.Uncertain = true
		}

		key := record.key()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], record)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ecosystem != keys[j].ecosystem {
			return ecosystemLess(keys[i].ecosystem, keys[j].ecosystem)
		}

		return keys[i].name < keys[j].name
	})

	var (
		normalized []PackageRecord
		conflicts  []ConflictWarning
	)
	for _, key := range keys {
		resolved, conflict := resolve(groups[key])
		normalized = append(normalized, resolved...)
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
	}

	return normalized, conflicts
}

func resolve(group []PackageRecord) ([]PackageRecord, *ConflictWarning) {
	var known []PackageRecord
	for _, record := range group {
		if record.Version != "" {
			known = append(known, record)
		}
	}

	if len(known) == 0 {
		sortByAuthority(group)
		return group[:1], nil
	}

	sortByAuthority(known)

	// the first record seen for a version is its most authoritative source
	seen := map[string]struct{}{}
	var distinct []PackageRecord
	for _, record := range known {
		if _, ok := seen[record.Version]; ok {
			continue
		}

		seen[record.Version] = struct{}{}
		distinct = append(distinct, record)
	}

	if len(distinct) == 1 {
		return distinct, nil
	}

	retained := distinct[0]
	rest := distinct[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].Source != rest[j].Source {
			return rest[i].Source > rest[j].Source
		}

		if c := compareVersions(rest[i].Ecosystem, rest[i].Version, rest[j].Version); c != 0 {
			return c > 0
		}

		if rest[i].Version != rest[j].Version {
			return rest[i].Version > rest[j].Version
		}

		return rest[i].SourcePath < rest[j].SourcePath
	})

	conflict := &ConflictWarning{
		Ecosystem: retained.Ecosystem,
		Name:      retained.Name,
		Retained:  retained.SourcePath,
	}

	resolved := make([]PackageRecord, 0, len(distinct))
	retained.Conflict = true
	resolved = append(resolved, retained)
	conflict.Versions = append(conflict.Versions, retained.Version)

	for _, record := range rest {
		record.Conflict = true
		record.Superseded = true
		resolved = append(resolved, record)
		conflict.Versions = append(conflict.Versions, record.Version)
	}

	return resolved, conflict
}

// sortByAuthority orders records from the most to the least authoritative
// source, breaking ties on the source path.
func sortByAuthority(records []PackageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Source != records[j].Source {
			return records[i].Source > records[j].Source
		}

		if records[i].SourcePath != records[j].SourcePath {
			return records[i].SourcePath < records[j].SourcePath
		}

		if records[i].Version != records[j].Version {
			return records[i].Version < records[j].Version
		}

		return records[i].Arch < records[j].Arch
	})
}
