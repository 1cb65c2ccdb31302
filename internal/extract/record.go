package extract

import (
	"regexp"
	"sort"
	"strings"
)

// An Ecosystem names a package-management technology with its own on-disk
// artifact format.
type Ecosystem string

const (
	EcosystemRPM    Ecosystem = "rpm"
	EcosystemDeb    Ecosystem = "deb"
	EcosystemAPK    Ecosystem = "apk"
	EcosystemPython Ecosystem = "python"
	EcosystemNode   Ecosystem = "node"
)

// ecosystemOrder is the fixed ordering applied to inventory records. Any
// ecosystem not listed here sorts after these, alphabetically.
var ecosystemOrder = []Ecosystem{
	EcosystemRPM,
	EcosystemDeb,
	EcosystemAPK,
	EcosystemPython,
	EcosystemNode,
}

func (e Ecosystem) rank() int {
	for i, known := range ecosystemOrder {
		if e == known {
			return i
		}
	}

	return len(ecosystemOrder)
}

func ecosystemLess(a, b Ecosystem) bool {
	ra, rb := a.rank(), b.rank()
	if ra != rb {
		return ra < rb
	}

	return a < b
}

// A SourceKind describes how authoritative an artifact is about the install
// state of a package.
type SourceKind int

const (
	// SourceLockfile is a declared dependency that may or may not be installed.
	SourceLockfile SourceKind = iota + 1

	// SourceMetadata is distribution metadata written next to an installed
	// package.
	SourceMetadata

	// SourceDatabase is the database of the system's own package manager.
	SourceDatabase
)

func (k SourceKind) String() string {
	switch k {
	case SourceDatabase:
		return "database"
	case SourceMetadata:
		return "metadata"
	case SourceLockfile:
		return "lockfile"
	default:
		return "unknown"
	}
}

// A PackageRecord is a single package fact together with its provenance.
type PackageRecord struct {
	Ecosystem  Ecosystem
	Name       string
	Version    string
	Arch       string
	SourcePath string
	ParserID   string
	Source     SourceKind

	// Uncertain is set when the version is empty or not valid for the
	// ecosystem.
	Uncertain bool

	// Conflict is set on every record of a package whose sources disagree
	// on its version.
	Conflict bool

	// Superseded is set on conflicting records that lost to a more
	// authoritative source.
	Superseded bool
}

type recordKey struct {
	ecosystem Ecosystem
	name      string
}

func (r PackageRecord) key() recordKey {
	return recordKey{r.Ecosystem, canonicalName(r.Ecosystem, r.Name)}
}

var pythonNameSeparators = regexp.MustCompile(`[-_.]+`)

// canonicalName returns the name under which records of the ecosystem are
// compared. Python distribution names are normalized as in PEP 503, every
// other ecosystem compares names as written.
func canonicalName(ecosystem Ecosystem, name string) string {
	if ecosystem == EcosystemPython {
		return strings.ToLower(pythonNameSeparators.ReplaceAllString(name, "-"))
	}

	return name
}

// A Candidate is a filesystem path suspected of containing package metadata.
type Candidate struct {
	// Path is the location of the artifact on disk.
	Path string

	// RelPath is the slash separated path of the artifact relative to the
	// scanned root, with a leading slash.
	RelPath string

	Ecosystem Ecosystem
	ParserID  string
	Source    SourceKind
}

// Record returns a PackageRecord carrying the provenance of the candidate.
func (c Candidate) Record(name, version string) PackageRecord {
	return PackageRecord{
		Ecosystem:  c.Ecosystem,
		Name:       name,
		Version:    version,
		SourcePath: c.RelPath,
		ParserID:   c.ParserID,
		Source:     c.Source,
		Uncertain:  version == "",
	}
}

// A ConflictWarning reports that several sources disagree on the version of
// a package. It is an annotation, not an error.
type ConflictWarning struct {
	Ecosystem Ecosystem
	Name      string
	Versions  []string

	// Retained is the source path of the authoritative record.
	Retained string
}

// Distro holds the name and version of the image's Linux distribution, as
// found in its os-release file.
type Distro struct {
	Name    string
	Version string
}

// Stats accounts for every candidate the locator produced. Parsed, Failed
// and Abandoned always add up to Candidates.
type Stats struct {
	Candidates int
	Parsed     int
	Failed     int
	Abandoned  int
}

// An Inventory is the result of a single scan.
type Inventory struct {
	Root      string
	Records   []PackageRecord
	Errors    []ScanError
	Conflicts []ConflictWarning
	Distro    Distro
	Stats     Stats

	// Cancelled is set when the scan was interrupted by its caller and the
	// inventory only reflects the candidates processed so far.
	Cancelled bool
}

// EcosystemGroup is the set of records belonging to one ecosystem.
type EcosystemGroup struct {
	Ecosystem Ecosystem
	Records   []PackageRecord
}

// ByEcosystem returns the inventory records grouped by ecosystem, in the
// same order as Records.
func (i Inventory) ByEcosystem() []EcosystemGroup {
	var groups []EcosystemGroup
	for _, record := range i.Records {
		if len(groups) == 0 || groups[len(groups)-1].Ecosystem != record.Ecosystem {
			groups = append(groups, EcosystemGroup{Ecosystem: record.Ecosystem})
		}

		last := &groups[len(groups)-1]
		last.Records = append(last.Records, record)
	}

	return groups
}

// Ecosystems returns the distinct ecosystems present in the inventory.
func (i Inventory) Ecosystems() []Ecosystem {
	seen := map[Ecosystem]struct{}{}
	for _, record := range i.Records {
		seen[record.Ecosystem] = struct{}{}
	}

	var ecosystems []Ecosystem
	for e := range seen {
		ecosystems = append(ecosystems, e)
	}

	sort.Slice(ecosystems, func(i, j int) bool {
		return ecosystemLess(ecosystems[i], ecosystems[j])
	})

	return ecosystems
}
