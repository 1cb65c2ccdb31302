package extract

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/exp/slices"
)

// A Parser turns the bytes of a candidate artifact into package records.
//
//go:generate faux --interface Parser --output fakes/parser.go
type Parser interface {
	ID() string
	Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error)
}

// A Rule routes files whose root-relative path matches one of its patterns
// to a parser.
type Rule struct {
	ParserID  string
	Ecosystem Ecosystem
	Source    SourceKind

	// Patterns are doublestar globs matched against the slash separated
	// path relative to the scanned root, without its leading slash.
	Patterns []string

	// Excludes are doublestar globs naming paths the patterns match but the
	// parser cannot read.
	Excludes []string
}

// Match reports whether the rule claims the given root-relative path.
func (r Rule) Match(rel string) bool {
	for _, pattern := range r.Excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}

	for _, pattern := range r.Patterns {
		// patterns are validated on registration
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}

// A Registry holds the parser variants and the prioritised list of detection
// rules routing candidates to them.
type Registry struct {
	parsers map[string]Parser
	rules   []Rule
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: map[string]Parser{},
	}
}

// Register adds a parser together with the rule that selects it. Rules are
// evaluated in registration order and the first match wins.
func (r *Registry) Register(parser Parser, rule Rule) error {
	if parser.ID() != rule.ParserID {
		return fmt.Errorf("rule for parser %q cannot route to parser %q", rule.ParserID, parser.ID())
	}

	if _, ok := r.parsers[parser.ID()]; ok {
		return fmt.Errorf("parser %q is already registered", parser.ID())
	}

	if len(rule.Patterns) == 0 {
		return fmt.Errorf("rule for parser %q has no patterns", rule.ParserID)
	}

	for _, pattern := range append(append([]string{}, rule.Patterns...), rule.Excludes...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("rule for parser %q has malformed pattern %q", rule.ParserID, pattern)
		}
	}

	r.parsers[parser.ID()] = parser
	r.rules = append(r.rules, rule)

	return nil
}

// Disable removes every parser of the given ecosystem together with its
// rules.
func (r *Registry) Disable(ecosystem Ecosystem) {
	var rules []Rule
	for _, rule := range r.rules {
		if rule.Ecosystem == ecosystem {
			delete(r.parsers, rule.ParserID)
			continue
		}

		rules = append(rules, rule)
	}

	r.rules = rules
}

// Parser returns the parser registered under the given id.
func (r *Registry) Parser(id string) (Parser, bool) {
	parser, ok := r.parsers[id]
	return parser, ok
}

// Rules returns the detection rules in priority order.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// ParserIDs returns the ids of all registered parsers, sorted.
func (r *Registry) ParserIDs() []string {
	var ids []string
	for id := range r.parsers {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Detect returns the first rule matching the root-relative path.
func (r *Registry) Detect(rel string) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.Match(rel) {
			return rule, true
		}
	}

	return Rule{}, false
}

// DefaultRegistry returns a Registry holding every built-in parser.
func DefaultRegistry() *Registry {
	registry := NewRegistry()

	for _, entry := range []struct {
		parser Parser
		rule   Rule
	}{
		{
			parser: NewRPMDBParser(),
			rule: Rule{
				ParserID:  RPMDBParserID,
				Ecosystem: EcosystemRPM,
				Source:    SourceDatabase,
				Patterns: []string{
					"**/var/lib/rpm/{Packages,Packages.db,rpmdb.sqlite}",
					"**/usr/lib/sysimage/rpm/{Packages,Packages.db,rpmdb.sqlite}",
				},
			},
		},
		{
			parser: DpkgStatusParser{},
			rule: Rule{
				ParserID:  DpkgStatusParserID,
				Ecosystem: EcosystemDeb,
				Source:    SourceDatabase,
				Patterns: []string{
					"**/var/lib/dpkg/status",
					"**/var/lib/dpkg/status.d/*",
				},
				Excludes: []string{"**/var/lib/dpkg/status.d/*.md5sums"},
			},
		},
		{
			parser: APKInstalledParser{},
			rule: Rule{
				ParserID:  APKInstalledParserID,
				Ecosystem: EcosystemAPK,
				Source:    SourceDatabase,
				Patterns:  []string{"**/lib/apk/db/installed"},
			},
		},
		{
			parser: PythonMetadataParser{},
			rule: Rule{
				ParserID:  PythonMetadataParserID,
				Ecosystem: EcosystemPython,
				Source:    SourceMetadata,
				Patterns: []string{
					"**/*.egg-info/PKG-INFO",
					"**/*.dist-info/METADATA",
					"**/*.egg-info",
				},
			},
		},
		{
			parser: PoetryLockParser{},
			rule: Rule{
				ParserID:  PoetryLockParserID,
				Ecosystem: EcosystemPython,
				Source:    SourceLockfile,
				Patterns:  []string{"**/poetry.lock"},
			},
		},
		{
			parser: PipfileLockParser{},
			rule: Rule{
				ParserID:  PipfileLockParserID,
				Ecosystem: EcosystemPython,
				Source:    SourceLockfile,
				Patterns:  []string{"**/Pipfile.lock"},
			},
		},
		{
			parser: NodePackageParser{},
			rule: Rule{
				ParserID:  NodePackageParserID,
				Ecosystem: EcosystemNode,
				Source:    SourceMetadata,
				Patterns: []string{
					"**/node_modules/*/package.json",
					"**/node_modules/@*/*/package.json",
				},
			},
		},
		{
			parser: PackageLockParser{},
			rule: Rule{
				ParserID:  PackageLockParserID,
				Ecosystem: EcosystemNode,
				Source:    SourceLockfile,
				Patterns:  []string{"**/package-lock.json"},
			},
		},
		{
			parser: PNPMLockParser{},
			rule: Rule{
				ParserID:  PNPMLockParserID,
				Ecosystem: EcosystemNode,
				Source:    SourceLockfile,
				Patterns:  []string{"**/pnpm-lock.yaml"},
			},
		},
	} {
		err := registry.Register(entry.parser, entry.rule)
		if err != nil {
			// the built-in table is static
			panic(err)
		}
	}

	return registry
}
