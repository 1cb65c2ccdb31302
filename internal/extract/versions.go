package extract

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	pep440 "github.com/aquasecurity/go-pep440-version"
	rpmutils "github.com/sassoftware/go-rpmutils"
)

// validVersion reports whether a non-empty version string is well formed for
// its ecosystem. Ecosystems without a strict grammar accept anything.
func validVersion(ecosystem Ecosystem, version string) bool {
	switch ecosystem {
	case EcosystemPython:
		_, err := pep440.Parse(version)
		return err == nil
	case EcosystemNode:
		_, err := semver.StrictNewVersion(strings.TrimPrefix(version, "v"))
		return err == nil
	default:
		return strings.TrimSpace(version) != ""
	}
}

// compareVersions orders two versions of the same ecosystem, returning a
// negative number when a sorts before b. Versions that cannot be parsed fall
// back to a byte-wise comparison.
func compareVersions(ecosystem Ecosystem, a, b string) int {
	switch ecosystem {
	case EcosystemRPM:
		return rpmutils.Vercmp(a, b)
	case EcosystemPython:
		va, errA := pep440.Parse(a)
		vb, errB := pep440.Parse(b)
		if errA == nil && errB == nil {
			return va.Compare(vb)
		}
	case EcosystemNode:
		va, errA := semver.NewVersion(a)
		vb, errB := semver.NewVersion(b)
		if errA == nil && errB == nil {
			return va.Compare(vb)
		}
	}

	return strings.Compare(a, b)
}
