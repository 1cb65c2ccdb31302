package extract

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
)

// A Scope restricts a scan to a set of paths relative to the scanned root,
// typically the files introduced by one or more image layers. A nil Scope is
// unrestricted.
type Scope struct {
	allowed   map[string]struct{}
	ancestors map[string]struct{}
}

// Unrestricted returns the sentinel scope that admits the whole tree.
func Unrestricted() *Scope {
	return nil
}

// NewScope returns a Scope admitting the given root-relative paths and
// everything beneath them.
func NewScope(paths ...string) *Scope {
	s := &Scope{
		allowed:   map[string]struct{}{},
		ancestors: map[string]struct{}{},
	}

	for _, p := range paths {
		p = cleanRel(p)
		s.allowed[p] = struct{}{}

		for dir := path.Dir(p); dir != "/"; dir = path.Dir(dir) {
			s.ancestors[dir] = struct{}{}
		}
	}

	return s
}

// LoadScope reads a scope from a file holding one root-relative path per
// line. Blank lines and lines starting with '#' are ignored.
func LoadScope(file string) (*Scope, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open scope file: %w", err)
	}
	defer func() {
		if err2 := f.Close(); err2 != nil && err == nil {
			err = err2
		}
	}()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		paths = append(paths, line)
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read scope file: %w", err)
	}

	return NewScope(paths...), err // err should be nil here, but return err to catch deferred error
}

// Unrestricted reports whether the scope admits the whole tree.
func (s *Scope) Unrestricted() bool {
	return s == nil
}

// Len returns the number of allowed paths.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}

	return len(s.allowed)
}

// AllowsDir reports whether the walk needs to descend into the directory.
func (s *Scope) AllowsDir(rel string) bool {
	if s == nil {
		return true
	}

	rel = cleanRel(rel)
	if rel == "/" {
		return true
	}

	if _, ok := s.ancestors[rel]; ok {
		return true
	}

	return s.covers(rel)
}

// AllowsFile reports whether the file lies within the scope.
func (s *Scope) AllowsFile(rel string) bool {
	if s == nil {
		return true
	}

	return s.covers(cleanRel(rel))
}

func (s *Scope) covers(rel string) bool {
	for p := rel; ; p = path.Dir(p) {
		if _, ok := s.allowed[p]; ok {
			return true
		}

		if p == "/" {
			return false
		}
	}
}

func cleanRel(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean("/" + strings.TrimPrefix(p, "./"))
}
