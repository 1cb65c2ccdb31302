package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/paketo-buildpacks/packit/v2/scribe"
)

// DefaultTimeout bounds the time a single parser may spend on a candidate.
const DefaultTimeout = 30 * time.Second

// A Scanner produces package inventories from materialized container image
// filesystems.
type Scanner struct {
	registry    *Registry
	excludes    []string
	concurrency int
	timeout     time.Duration
	logger      scribe.Logger
}

// A ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithRegistry replaces the built-in parsers and detection rules.
func WithRegistry(registry *Registry) ScannerOption {
	return func(s *Scanner) {
		s.registry = registry
	}
}

// WithConcurrency sets the number of parser workers. Values below one fall
// back to the number of CPUs.
func WithConcurrency(concurrency int) ScannerOption {
	return func(s *Scanner) {
		s.concurrency = concurrency
	}
}

// WithTimeout sets the per-candidate parse timeout.
func WithTimeout(timeout time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.timeout = timeout
	}
}

// WithExcludes sets the globs of root-relative paths that are never walked.
func WithExcludes(excludes []string) ScannerOption {
	return func(s *Scanner) {
		s.excludes = excludes
	}
}

// WithLogger sets the logger progress is reported to.
func WithLogger(logger scribe.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner returns a Scanner configured with the given options.
func NewScanner(options ...ScannerOption) Scanner {
	scanner := Scanner{
		excludes: DefaultExcludes,
		logger:   scribe.NewLogger(io.Discard),
	}

	for _, option := range options {
		option(&scanner)
	}

	if scanner.registry == nil {
		scanner.registry = DefaultRegistry()
	}

	if scanner.concurrency < 1 {
		scanner.concurrency = runtime.NumCPU()
	}

	if scanner.timeout <= 0 {
		scanner.timeout = DefaultTimeout
	}

	return scanner
}

// Scan walks the filesystem tree at root and returns the inventory of the
// packages it carries. A nil scope scans the whole tree.
//
// Only an unusable root is fatal. Cancelling ctx stops the scan early and
// returns the partial inventory with Cancelled set.
func (s Scanner) Scan(ctx context.Context, root string, scope *Scope) (Inventory, error) {
	root, err := validateRoot(root)
	if err != nil {
		return Inventory{}, err
	}

	locator, err := NewLocator(s.registry, s.excludes)
	if err != nil {
		return Inventory{}, fmt.Errorf("failed to create locator: %w", err)
	}

	s.logger.Title("Scanning %s", root)
	if !scope.Unrestricted() {
		s.logger.Subprocess("Restricted to %d path(s)", scope.Len())
	}

	s.logger.Process("Locating and parsing package artifacts (%d workers)", s.concurrency)

	c := newCollector(s.logger)
	newDispatcher(s.registry, s.concurrency, s.timeout).run(ctx, c, func(enqueue func(Candidate) error) error {
		failures, err := locator.Locate(ctx, root, scope, enqueue)
		c.accessFailures(failures)
		return err
	})
	s.logger.Break()

	s.logger.Process("Normalizing %d record(s)", len(c.records))
	records, conflicts := Normalize(c.records)
	for _, conflict := range conflicts {
		s.logger.Subprocess("Conflicting versions of %s/%s: %v", conflict.Ecosystem, conflict.Name, conflict.Versions)
	}
	s.logger.Break()

	distro, err := DetectDistro(root)
	if err != nil {
		c.accessFailures([]ScanError{accessError("/etc/os-release", err)})
	}

	inventory := Inventory{
		Root:      root,
		Records:   records,
		Errors:    c.errors,
		Conflicts: conflicts,
		Distro:    distro,
		Stats:     c.stats,
		Cancelled: ctx.Err() != nil,
	}

	if inventory.Records == nil {
		inventory.Records = []PackageRecord{}
	}

	if inventory.Conflicts == nil {
		inventory.Conflicts = []ConflictWarning{}
	}

	if inventory.Errors == nil {
		inventory.Errors = []ScanError{}
	}
	sortErrors(inventory.Errors)

	if inventory.Cancelled {
		s.logger.Process("Scan cancelled after %d of %d candidate(s)", inventory.Stats.Parsed+inventory.Stats.Failed, inventory.Stats.Candidates)
	} else {
		s.logger.Process("Found %d package(s) in %d candidate(s)", len(inventory.Records), inventory.Stats.Candidates)
	}
	s.logger.Break()

	return inventory, nil
}

// Scan runs a scan with the built-in parsers.
func Scan(ctx context.Context, root string, scope *Scope, concurrency int) (Inventory, error) {
	return NewScanner(WithConcurrency(concurrency)).Scan(ctx, root, scope)
}

func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &FatalError{Root: root, Err: fmt.Errorf("%w: %s", ErrInvalidRoot, err)}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &FatalError{Root: root, Err: fmt.Errorf("%w: %s", ErrInvalidRoot, err)}
	}

	if !info.IsDir() {
		return "", &FatalError{Root: root, Err: fmt.Errorf("%w: not a directory", ErrInvalidRoot)}
	}

	return abs, nil
}
