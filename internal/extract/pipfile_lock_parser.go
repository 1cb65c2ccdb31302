package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

const PipfileLockParserID = "pipfile-lock"

// PipfileLockParser reads the default and develop sections of a Pipenv
// Pipfile.lock.
type PipfileLockParser struct{}

type pipfileLock struct {
	Default map[string]pipfileLockPackage `json:"default"`
	Develop map[string]pipfileLockPackage `json:"develop"`
}

type pipfileLockPackage struct {
	Version string `json:"version"`
}

func (p PipfileLockParser) ID() string { return PipfileLockParserID }

func (p PipfileLockParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
	content, err := os.ReadFile(candidate.Path)
	if err != nil {
		return nil, NewParseError(candidate, err)
	}

	var lock pipfileLock
	err = json.Unmarshal(content, &lock)
	if err != nil {
		return nil, NewParseError(candidate, fmt.Errorf("failed to decode lock file: %w", err))
	}

	var records []PackageRecord
	for _, section := range []map[string]pipfileLockPackage{lock.Default, lock.Develop} {
		var names []string
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			// pinned versions are recorded as "==1.2.3"
			version := strings.TrimPrefix(section[name].Version, "==")
			records = append(records, candidate.Record(name, version))
		}
	}

	return records, nil
}
