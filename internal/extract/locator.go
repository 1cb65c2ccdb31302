package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are the pseudo filesystems a materialized image may carry
// mount points for.
var DefaultExcludes = []string{"proc/**", "sys/**", "dev/**"}

// A Locator walks a filesystem tree and emits the files claimed by the
// detection rules of its registry.
type Locator struct {
	registry *Registry
	excludes []string
}

// NewLocator returns a Locator routing files through the given registry.
// Paths matching one of the exclude globs are never visited.
func NewLocator(registry *Registry, excludes []string) (Locator, error) {
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(pattern) {
			return Locator{}, fmt.Errorf("malformed exclude pattern %q", pattern)
		}
	}

	return Locator{
		registry: registry,
		excludes: excludes,
	}, nil
}

// Locate walks root depth-first in lexical order and calls visit for every
// candidate. Symbolic links are never followed. Unreadable entries are
// returned as access errors and do not stop the walk. Directories outside
// the scope are pruned before they are read.
func (l Locator) Locate(ctx context.Context, root string, scope *Scope, visit func(Candidate) error) ([]ScanError, error) {
	var failures []ScanError

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = cleanRel(filepath.ToSlash(rel))

		if err != nil {
			if rel == "/" {
				return err
			}

			failures = append(failures, accessError(rel, err))
			return nil
		}

		if rel == "/" {
			return nil
		}

		if l.excluded(rel) {
			if entry.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		switch {
		case entry.IsDir():
			if !scope.AllowsDir(rel) {
				return filepath.SkipDir
			}

			return nil

		case entry.Type()&fs.ModeSymlink != 0:
			if !scope.AllowsFile(rel) {
				return nil
			}

			if _, ok := l.registry.Detect(strings.TrimPrefix(rel, "/")); ok {
				failures = append(failures, accessError(rel, errors.New("symbolic link not followed")))
			}

			return nil

		case !entry.Type().IsRegular():
			return nil
		}

		if !scope.AllowsFile(rel) {
			return nil
		}

		rule, ok := l.registry.Detect(strings.TrimPrefix(rel, "/"))
		if !ok {
			return nil
		}

		return visit(Candidate{
			Path:      path,
			RelPath:   rel,
			Ecosystem: rule.Ecosystem,
			ParserID:  rule.ParserID,
			Source:    rule.Source,
		})
	})
	if err != nil {
		return failures, err
	}

	return failures, nil
}

func (l Locator) excluded(rel string) bool {
	rel = strings.TrimPrefix(rel, "/")
	for _, pattern := range l.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}

		// "dir/**" also names the directory itself
		if strings.HasSuffix(pattern, "/**") {
			if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); ok {
				return true
			}
		}
	}

	return false
}
