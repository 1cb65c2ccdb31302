package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

const PoetryLockParserID = "poetry-lock"

// PoetryLockParser reads the [[package]] tables of a poetry.lock file.
type PoetryLockParser struct{}

type poetryLock struct {
	Package []poetryLockPackage `toml:"package"`
}

type poetryLockPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

func (p PoetryLockParser) ID() string { return PoetryLockParserID }

func (p PoetryLockParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
	file, err := os.Open(candidate.Path)
	if err != nil {
		return nil, NewParseError(candidate, err)
	}
	defer func() {
		if err2 := file.Close(); err2 != nil && err == nil {
			err = err2
		}
	}()

	var lock poetryLock
	err = toml.NewDecoder(file).Decode(&lock)
	if err != nil {
		return nil, NewParseError(candidate, fmt.Errorf("failed to decode lock file: %w", err))
	}

	var records []PackageRecord
	for i, pkg := range lock.Package {
		if pkg.Name == "" {
			return nil, NewParseError(candidate, fmt.Errorf("package %d has no name", i+1))
		}

		records = append(records, candidate.Record(pkg.Name, pkg.Version))
	}

	return records, err // err should be nil here, but return err to catch deferred error
}
