package extract

import (
	"bytes"
	"io"

	"github.com/anchore/syft/syft/file"
	"github.com/anchore/syft/syft/linux"
	"github.com/anchore/syft/syft/pkg"
	"github.com/anchore/syft/syft/sbom"
	psbom "github.com/paketo-buildpacks/packit/v2/sbom"
)

// SBOM is the software bill-of-materials view of an Inventory.
type SBOM struct {
	sbom sbom.SBOM
}

// NewSBOM converts the inventory into an SBOM. Superseded records are left
// out so that every package appears with its authoritative version only.
func NewSBOM(inventory Inventory) SBOM {
	var packages []pkg.Package
	for _, record := range inventory.Records {
		if record.Superseded {
			continue
		}

		p := pkg.Package{
			Name:      record.Name,
			Version:   record.Version,
			Type:      packageType(record.Ecosystem),
			Language:  packageLanguage(record.Ecosystem),
			FoundBy:   record.ParserID,
			Locations: file.NewLocationSet(file.NewLocation(record.SourcePath)),
			Metadata:  packageMetadata(record),
		}
		p.SetID()

		packages = append(packages, p)
	}

	var distribution *linux.Release
	if inventory.Distro.Name != "" {
		distribution = &linux.Release{
			ID:        inventory.Distro.Name,
			VersionID: inventory.Distro.Version,
		}
	}

	return SBOM{
		sbom: sbom.SBOM{
			Artifacts: sbom.Artifacts{
				Packages:          pkg.NewCollection(packages...),
				LinuxDistribution: distribution,
			},
		},
	}
}

// Packages returns the names of the packages in the SBOM, sorted.
func (s SBOM) Packages() []string {
	var names []string
	for _, p := range s.sbom.Artifacts.Packages.Sorted() {
		names = append(names, p.Name)
	}

	return names
}

// SyftFormat returns a Syft JSON-encoded string representation of the SBOM
// contents using schema version 2.0.2.
func (s SBOM) SyftFormat() (string, error) {
	return s.inFormat(psbom.Format("application/vnd.syft+json;version=2.0.2"))
}

// CycloneDXFormat returns a CycloneDX JSON-encoded string representation of
// the SBOM contents using schema version 1.3.
func (s SBOM) CycloneDXFormat() (string, error) {
	return s.inFormat(psbom.Format("application/vnd.cyclonedx+json;version=1.3"))
}

func (s SBOM) inFormat(format psbom.Format) (string, error) {
	reader := psbom.NewFormattedReader(psbom.NewSBOM(s.sbom), format)
	buffer := bytes.NewBuffer(nil)

	_, err := io.Copy(buffer, reader)
	if err != nil {
		return "", err
	}

	return buffer.String(), nil
}

func packageType(ecosystem Ecosystem) pkg.Type {
	switch ecosystem {
	case EcosystemRPM:
		return pkg.RpmPkg
	case EcosystemDeb:
		return pkg.DebPkg
	case EcosystemAPK:
		return pkg.ApkPkg
	case EcosystemPython:
		return pkg.PythonPkg
	case EcosystemNode:
		return pkg.NpmPkg
	default:
		return pkg.UnknownPkg
	}
}

func packageLanguage(ecosystem Ecosystem) pkg.Language {
	switch ecosystem {
	case EcosystemPython:
		return pkg.Python
	case EcosystemNode:
		return pkg.JavaScript
	default:
		return pkg.UnknownLanguage
	}
}

func packageMetadata(record PackageRecord) interface{} {
	switch record.Ecosystem {
	case EcosystemRPM:
		return pkg.RpmDBEntry{
			Name:    record.Name,
			Version: record.Version,
			Arch:    record.Arch,
		}
	case EcosystemDeb:
		return pkg.DpkgDBEntry{
			Package:      record.Name,
			Version:      record.Version,
			Architecture: record.Arch,
		}
	case EcosystemAPK:
		return pkg.ApkDBEntry{
			Package:      record.Name,
			Version:      record.Version,
			Architecture: record.Arch,
		}
	case EcosystemPython:
		return pkg.PythonPackage{
			Name:    record.Name,
			Version: record.Version,
		}
	case EcosystemNode:
		return pkg.NpmPackage{
			Name:    record.Name,
			Version: record.Version,
		}
	default:
		return nil
	}
}
