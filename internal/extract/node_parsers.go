package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	NodePackageParserID = "node-package"
	PackageLockParserID = "package-lock"
	PNPMLockParserID    = "pnpm-lock"
)

// NodePackageParser reads the package.json of a module installed under
// node_modules.
type NodePackageParser struct{}

func (p NodePackageParser) ID() string { return NodePackageParserID }

func (p NodePackageParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
	content, err := os.ReadFile(candidate.Path)
	if err != nil {
		return nil, NewParseError(candidate, err)
	}

	var manifest struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	err = json.Unmarshal(content, &manifest)
	if err != nil {
		return nil, NewParseError(candidate, fmt.Errorf("failed to decode package manifest: %w", err))
	}

	name := manifest.Name
	if name == "" {
		name = moduleNameFromPath(candidate.RelPath)
	}

	if name == "" {
		return nil, NewParseError(candidate, errors.New("package manifest has no name"))
	}

	return []PackageRecord{candidate.Record(name, manifest.Version)}, nil
}

// moduleNameFromPath derives "pkg" or "@scope/pkg" from the path of a
// package.json or a package-lock "node_modules/..." key.
func moduleNameFromPath(p string) string {
	p = strings.TrimSuffix(p, "/package.json")

	index := strings.LastIndex(p, "node_modules/")
	if index < 0 {
		return ""
	}

	return p[index+len("node_modules/"):]
}

// PackageLockParser reads npm's package-lock.json, both the nested
// "dependencies" layout of lockfile version 1 and the flat "packages"
// layout of versions 2 and 3.
type PackageLockParser struct{}

type packageLock struct {
	LockfileVersion int                              `json:"lockfileVersion"`
	Packages        map[string]packageLockPackage    `json:"packages"`
	Dependencies    map[string]packageLockDependency `json:"dependencies"`
}

type packageLockPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Link    bool   `json:"link"`
}

type packageLockDependency struct {
	Version      string                           `json:"version"`
	Dependencies map[string]packageLockDependency `json:"dependencies"`
}

func (p PackageLockParser) ID() string { return PackageLockParserID }

func (p PackageLockParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
	content, err := os.ReadFile(candidate.Path)
	if err != nil {
		return nil, NewParseError(candidate, err)
	}

	var lock packageLock
	err = json.Unmarshal(content, &lock)
	if err != nil {
		return nil, NewParseError(candidate, fmt.Errorf("failed to decode lock file: %w", err))
	}

	if lock.Packages != nil {
		var keys []string
		for key := range lock.Packages {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var records []PackageRecord
		for _, key := range keys {
			pkg := lock.Packages[key]

			// the root project and workspace folders are not dependencies
			if !strings.Contains(key, "node_modules/") || pkg.Link {
				continue
			}

			name := pkg.Name
			if name == "" {
				name = moduleNameFromPath(key)
			}

			records = append(records, candidate.Record(name, pkg.Version))
		}

		return records, nil
	}

	var records []PackageRecord
	var walk func(map[string]packageLockDependency)
	walk = func(dependencies map[string]packageLockDependency) {
		var names []string
		for name := range dependencies {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			dependency := dependencies[name]
			records = append(records, candidate.Record(name, dependency.Version))
			walk(dependency.Dependencies)
		}
	}
	walk(lock.Dependencies)

	return records, nil
}

// PNPMLockParser reads the packages section of a pnpm-lock.yaml file.
type PNPMLockParser struct{}

func (p PNPMLockParser) ID() string { return PNPMLockParserID }

func (p PNPMLockParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
	content, err := os.ReadFile(candidate.Path)
	if err != nil {
		return nil, NewParseError(candidate, err)
	}

	var lock struct {
		LockfileVersion any            `yaml:"lockfileVersion"`
		Packages        map[string]any `yaml:"packages"`
	}
	err = yaml.Unmarshal(content, &lock)
	if err != nil {
		return nil, NewParseError(candidate, fmt.Errorf("failed to decode lock file: %w", err))
	}

	if lock.LockfileVersion == nil {
		return nil, NewParseError(candidate, errors.New("lock file has no lockfileVersion"))
	}

	var keys []string
	for key := range lock.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var records []PackageRecord
	for _, key := range keys {
		name, version, ok := parsePNPMKey(key)
		if !ok {
			return nil, NewParseError(candidate, fmt.Errorf("malformed package key %q", key))
		}

		records = append(records, candidate.Record(name, version))
	}

	return records, nil
}

// parsePNPMKey splits a pnpm package key into name and version. Keys look
// like "/name/1.0.0_peer@2" (v5), "/name@1.0.0(peer@2)" (v6) or
// "name@1.0.0" (v9), with an optional "@scope/" prefix on the name.
func parsePNPMKey(key string) (string, string, bool) {
	key = strings.TrimPrefix(key, "/")
	if index := strings.Index(key, "("); index >= 0 {
		key = key[:index]
	}

	var scope string
	if strings.HasPrefix(key, "@") {
		index := strings.Index(key, "/")
		if index < 0 {
			return "", "", false
		}

		scope, key = key[:index+1], key[index+1:]
	}

	if index := strings.Index(key, "/"); index >= 0 {
		name, version := key[:index], key[index+1:]
		if index := strings.Index(version, "_"); index >= 0 {
			version = version[:index]
		}

		return scope + name, version, name != "" && version != ""
	}

	index := strings.Index(key, "@")
	if index <= 0 || index == len(key)-1 {
		return "", "", false
	}

	return scope + key[:index], key[index+1:], true
}
